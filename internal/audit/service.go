package audit

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"librarium/internal/database/audit"
	"librarium/internal/entities"
)

// Service provides high-level audit logging for circulation activity.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background without blocking the
// request path.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	go func() {
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// LogIssue records a book issue attempt.
func (s *Service) LogIssue(memberID, bookID uint, reference string, err error) {
	event := &entities.AuditEvent{
		MemberID:    memberID,
		EventType:   entities.AuditEventIssue,
		Action:      "book_issue",
		Description: fmt.Sprintf("Issued book %d to member %d", bookID, memberID),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}

	if reference != "" {
		if md, e := json.Marshal(map[string]any{"reference": reference}); e == nil {
			event.Metadata = string(md)
		}
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.Description = fmt.Sprintf("Failed to issue book %d to member %d", bookID, memberID)
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogReturn records a book return, including any fine assessed.
func (s *Service) LogReturn(memberID, transactionID uint, fine *entities.Fine, err error) {
	event := &entities.AuditEvent{
		MemberID:    memberID,
		EventType:   entities.AuditEventReturn,
		Action:      "book_return",
		Description: fmt.Sprintf("Returned loan %d", transactionID),
		EntityType:  "transaction",
		EntityID:    &transactionID,
		Status:      entities.AuditStatusSuccess,
	}

	if fine != nil {
		metadata := map[string]any{
			"days_late":   fine.DaysLate,
			"fine_amount": fine.TotalAmount,
		}
		if md, e := json.Marshal(metadata); e == nil {
			event.Metadata = string(md)
		}
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogRenew records a loan renewal.
func (s *Service) LogRenew(memberID, transactionID uint, newDue time.Time, err error) {
	event := &entities.AuditEvent{
		MemberID:    memberID,
		EventType:   entities.AuditEventRenew,
		Action:      "loan_renew",
		Description: fmt.Sprintf("Renewed loan %d until %s", transactionID, newDue.Format("2006-01-02")),
		EntityType:  "transaction",
		EntityID:    &transactionID,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogPayment records a fine payment.
func (s *Service) LogPayment(memberID, fineID uint, amount float64, err error) {
	event := &entities.AuditEvent{
		MemberID:    memberID,
		EventType:   entities.AuditEventPayment,
		Action:      "fine_payment",
		Description: fmt.Sprintf("Payment of %.2f towards fine %d", amount, fineID),
		EntityType:  "fine",
		EntityID:    &fineID,
		Status:      entities.AuditStatusSuccess,
	}

	if md, e := json.Marshal(map[string]any{"amount": amount}); e == nil {
		event.Metadata = string(md)
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogOverdue records an overdue loan observed by the daily scan.
func (s *Service) LogOverdue(memberID, transactionID uint, dueAt time.Time) {
	event := &entities.AuditEvent{
		MemberID:    memberID,
		EventType:   entities.AuditEventOverdue,
		Action:      "loan_overdue",
		Description: fmt.Sprintf("Loan %d overdue since %s", transactionID, dueAt.Format("2006-01-02")),
		EntityType:  "transaction",
		EntityID:    &transactionID,
		Status:      entities.AuditStatusSuccess,
	}

	s.LogAsync(event)
}

// LogCatalog records a catalog change (book added, copies adjusted,
// book retired).
func (s *Service) LogCatalog(memberID, bookID uint, action, description string, err error) {
	event := &entities.AuditEvent{
		MemberID:    memberID,
		EventType:   entities.AuditEventCatalog,
		Action:      action,
		Description: description,
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(memberID uint, action, ipAddr string, success bool) {
	event := &entities.AuditEvent{
		MemberID:  memberID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(memberID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(memberID, limit, offset)
}

// GetEventsByType retrieves audit events filtered by type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, memberID uint, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, memberID, limit, offset)
}

// DeleteOldEvents removes events older than the retention window.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
