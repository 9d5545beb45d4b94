package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"librarium/internal/entities"
	"librarium/internal/fines"
)

// FineStore covers the fine operations the controller needs.
type FineStore interface {
	RecordPayment(fineID uint, amount float64) (*entities.Fine, error)
	GetFine(id uint) (*entities.Fine, error)
	GetFineByTransaction(transactionID uint) (*entities.Fine, error)
	ListFinesByMember(memberID uint) ([]entities.Fine, error)
	OutstandingByMember(memberID uint) (float64, error)
	MemberForFine(fineID uint) (uint, error)
}

// PaymentAuditor records fine payments. May be nil.
type PaymentAuditor interface {
	LogPayment(memberID, fineID uint, amount float64, err error)
}

type FinesController struct {
	store   FineStore
	auditor PaymentAuditor
}

func NewFinesController(store FineStore, auditor PaymentAuditor) *FinesController {
	return &FinesController{
		store:   store,
		auditor: auditor,
	}
}

// visibleFine checks that a restricted caller owns the fine. Foreign fines
// read as not found so IDs cannot be enumerated. Responds and returns false
// when the fine must stay hidden or the lookup failed.
func (controller *FinesController) visibleFine(c *gin.Context, fineID uint) bool {
	self, limited := restrictedTo(c)
	if !limited {
		return true
	}
	owner, err := controller.store.MemberForFine(fineID)
	if err != nil {
		respondDomainError(c, err, "resolve fine owner")
		return false
	}
	if owner != self {
		respondError(c, http.StatusNotFound, fines.ErrFineNotFound.Error())
		return false
	}
	return true
}

func (controller *FinesController) GetFine(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fine, err := controller.store.GetFine(id)
	if err != nil {
		respondDomainError(c, err, "get fine")
		return
	}
	if !controller.visibleFine(c, fine.ID) {
		return
	}
	c.IndentedJSON(http.StatusOK, fine)
}

func (controller *FinesController) GetFineByTransaction(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fine, err := controller.store.GetFineByTransaction(id)
	if err != nil {
		respondDomainError(c, err, "get fine by transaction")
		return
	}
	if !controller.visibleFine(c, fine.ID) {
		return
	}
	c.IndentedJSON(http.StatusOK, fine)
}

func (controller *FinesController) ListMemberFines(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if self, limited := restrictedTo(c); limited && id != self {
		respondError(c, http.StatusForbidden, "insufficient permissions")
		return
	}

	fineList, err := controller.store.ListFinesByMember(id)
	if err != nil {
		respondInternalError(c, err, "list member fines")
		return
	}

	outstanding, err := controller.store.OutstandingByMember(id)
	if err != nil {
		respondInternalError(c, err, "member outstanding balance")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"fines":       fineList,
		"count":       len(fineList),
		"outstanding": outstanding,
	})
}

type paymentRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

func (controller *FinesController) RecordPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "amount is required")
		return
	}

	if !controller.visibleFine(c, id) {
		return
	}

	fine, err := controller.store.RecordPayment(id, req.Amount)
	if controller.auditor != nil {
		controller.auditor.LogPayment(GetMemberID(c), id, req.Amount, err)
	}
	if err != nil {
		respondDomainError(c, err, "record payment")
		return
	}

	c.IndentedJSON(http.StatusOK, fine)
}
