package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"librarium/internal/entities"
	"librarium/internal/ledger"
)

// Ledger covers the circulation operations the controller needs.
type Ledger interface {
	IssueBook(memberID, bookID uint, loanDays int) (*entities.Transaction, error)
	ReturnBook(transactionID uint) (*entities.Transaction, error)
	RenewLoan(transactionID uint, additionalDays int) (*entities.Transaction, error)
	GetTransaction(id uint) (*entities.Transaction, error)
	GetTransactionByReference(reference string) (*entities.Transaction, error)
	ListTransactions(filter ledger.ListFilter) ([]entities.Transaction, int64, error)
	ListOverdue(asOf time.Time) ([]entities.Transaction, error)
}

// CirculationAuditor records issue, return and renewal events. May be nil.
type CirculationAuditor interface {
	LogIssue(memberID, bookID uint, reference string, err error)
	LogReturn(memberID, transactionID uint, fine *entities.Fine, err error)
	LogRenew(memberID, transactionID uint, newDue time.Time, err error)
}

type TransactionsController struct {
	ledger  Ledger
	auditor CirculationAuditor
}

func NewTransactionsController(ledgerSvc Ledger, auditor CirculationAuditor) *TransactionsController {
	return &TransactionsController{
		ledger:  ledgerSvc,
		auditor: auditor,
	}
}

type issueRequest struct {
	MemberID uint `json:"member_id" binding:"required"`
	BookID   uint `json:"book_id" binding:"required"`
	LoanDays int  `json:"loan_days"`
}

func (controller *TransactionsController) IssueBook(c *gin.Context) {
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "member_id and book_id are required")
		return
	}

	// Non-admins can only borrow for themselves.
	if self, limited := restrictedTo(c); limited && req.MemberID != self {
		respondError(c, http.StatusForbidden, "insufficient permissions")
		return
	}

	record, err := controller.ledger.IssueBook(req.MemberID, req.BookID, req.LoanDays)
	if controller.auditor != nil {
		reference := ""
		if record != nil {
			reference = record.Reference
		}
		controller.auditor.LogIssue(req.MemberID, req.BookID, reference, err)
	}
	if err != nil {
		respondDomainError(c, err, "issue book")
		return
	}

	respondCreated(c, record)
}

func (controller *TransactionsController) ReturnBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if !controller.visibleTransaction(c, id) {
		return
	}

	record, err := controller.ledger.ReturnBook(id)
	if controller.auditor != nil {
		memberID := uint(0)
		var fine *entities.Fine
		if record != nil {
			memberID = record.MemberID
			fine = record.Fine
		}
		controller.auditor.LogReturn(memberID, id, fine, err)
	}
	if err != nil {
		respondDomainError(c, err, "return book")
		return
	}

	c.IndentedJSON(http.StatusOK, record)
}

type renewRequest struct {
	AdditionalDays int `json:"additional_days" binding:"required"`
}

func (controller *TransactionsController) RenewLoan(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req renewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "additional_days is required")
		return
	}

	if !controller.visibleTransaction(c, id) {
		return
	}

	record, err := controller.ledger.RenewLoan(id, req.AdditionalDays)
	if controller.auditor != nil && record != nil {
		controller.auditor.LogRenew(record.MemberID, id, record.DueAt, err)
	}
	if err != nil {
		respondDomainError(c, err, "renew loan")
		return
	}

	c.IndentedJSON(http.StatusOK, record)
}

// visibleTransaction checks that a restricted caller owns the transaction.
// Foreign records read as not found so IDs cannot be enumerated. Responds
// and returns false when the record must stay hidden or the lookup failed.
func (controller *TransactionsController) visibleTransaction(c *gin.Context, id uint) bool {
	self, limited := restrictedTo(c)
	if !limited {
		return true
	}
	record, err := controller.ledger.GetTransaction(id)
	if err != nil {
		respondDomainError(c, err, "get transaction")
		return false
	}
	if record.MemberID != self {
		respondError(c, http.StatusNotFound, ledger.ErrTransactionNotFound.Error())
		return false
	}
	return true
}

func (controller *TransactionsController) GetTransaction(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	record, err := controller.ledger.GetTransaction(id)
	if err != nil {
		respondDomainError(c, err, "get transaction")
		return
	}
	if self, limited := restrictedTo(c); limited && record.MemberID != self {
		respondError(c, http.StatusNotFound, ledger.ErrTransactionNotFound.Error())
		return
	}
	c.IndentedJSON(http.StatusOK, record)
}

func (controller *TransactionsController) GetTransactionByReference(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		respondBadRequest(c, "reference is required")
		return
	}

	record, err := controller.ledger.GetTransactionByReference(reference)
	if err != nil {
		respondDomainError(c, err, "get transaction by reference")
		return
	}
	if self, limited := restrictedTo(c); limited && record.MemberID != self {
		respondError(c, http.StatusNotFound, ledger.ErrTransactionNotFound.Error())
		return
	}
	c.IndentedJSON(http.StatusOK, record)
}

func (controller *TransactionsController) ListTransactions(c *gin.Context) {
	memberID, ok := parseQueryUint(c, "member_id")
	if !ok {
		return
	}
	bookID, ok := parseQueryUint(c, "book_id")
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	// Restricted callers only ever list their own loans, whatever the
	// query string says.
	if self, limited := restrictedTo(c); limited {
		memberID = self
	}

	filter := ledger.ListFilter{
		MemberID: memberID,
		BookID:   bookID,
		Status:   entities.TransactionStatus(c.Query("status")),
		Limit:    limit,
		Offset:   offset,
	}

	records, total, err := controller.ledger.ListTransactions(filter)
	if err != nil {
		respondInternalError(c, err, "list transactions")
		return
	}

	c.IndentedJSON(http.StatusOK, PaginatedResponse{
		Data:    records,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(records)) < total,
	})
}

func (controller *TransactionsController) ListOverdue(c *gin.Context) {
	asOf := time.Now().UTC()
	if v := c.Query("as_of"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondBadRequest(c, "as_of must be RFC3339")
			return
		}
		asOf = parsed
	}

	records, err := controller.ledger.ListOverdue(asOf)
	if err != nil {
		respondInternalError(c, err, "list overdue")
		return
	}

	if self, limited := restrictedTo(c); limited {
		own := records[:0]
		for _, record := range records {
			if record.MemberID == self {
				own = append(own, record)
			}
		}
		records = own
	}

	c.IndentedJSON(http.StatusOK, gin.H{"transactions": records, "count": len(records), "as_of": asOf})
}
