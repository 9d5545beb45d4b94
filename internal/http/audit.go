package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"librarium/internal/entities"
)

// AuditReader provides paginated access to audit events.
type AuditReader interface {
	GetEvents(memberID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
	GetEventsByType(eventType entities.AuditEventType, memberID uint, limit, offset int) ([]entities.AuditEvent, int64, error)
}

type AuditController struct {
	reader AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{reader: reader}
}

func (controller *AuditController) ListEvents(c *gin.Context) {
	memberID, ok := parseQueryUint(c, "member_id")
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	var events []entities.AuditEvent
	var total int64
	var err error

	if eventType := c.Query("type"); eventType != "" {
		events, total, err = controller.reader.GetEventsByType(entities.AuditEventType(eventType), memberID, limit, offset)
	} else {
		events, total, err = controller.reader.GetEvents(memberID, limit, offset)
	}
	if err != nil {
		respondInternalError(c, err, "list audit events")
		return
	}

	c.IndentedJSON(http.StatusOK, PaginatedResponse{
		Data:    events,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(events)) < total,
	})
}
