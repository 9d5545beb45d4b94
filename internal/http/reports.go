package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"librarium/internal/reports"
)

type ReportsController struct {
	service *reports.Service
}

func NewReportsController(service *reports.Service) *ReportsController {
	return &ReportsController{service: service}
}

func (controller *ReportsController) Dashboard(c *gin.Context) {
	dashboard, err := controller.service.GetDashboard()
	if err != nil {
		respondInternalError(c, err, "dashboard")
		return
	}
	c.IndentedJSON(http.StatusOK, dashboard)
}

func (controller *ReportsController) FineTotals(c *gin.Context) {
	totals, err := controller.service.FineTotalsByMember()
	if err != nil {
		respondInternalError(c, err, "fine totals")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"members": totals, "count": len(totals)})
}

func (controller *ReportsController) MemberSummary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if self, limited := restrictedTo(c); limited && id != self {
		respondError(c, http.StatusForbidden, "insufficient permissions")
		return
	}

	summary, err := controller.service.GetMemberSummary(id)
	if err != nil {
		respondDomainError(c, err, "member summary")
		return
	}
	c.IndentedJSON(http.StatusOK, summary)
}

func (controller *ReportsController) AvailableBooks(c *gin.Context) {
	books, err := controller.service.AvailableBooks()
	if err != nil {
		respondInternalError(c, err, "available books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}
