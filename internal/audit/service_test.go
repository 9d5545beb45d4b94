package audit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "librarium/internal/database/audit"
	"librarium/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return NewService(auditRepo.NewRepository(db)), db
}

// waitForEvent polls for an async event instead of a fixed sleep.
func waitForEvent(t *testing.T, db *gorm.DB, action string) entities.AuditEvent {
	t.Helper()
	var event entities.AuditEvent
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if err := db.Where("action = ?", action).First(&event).Error; err == nil {
			return event
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("audit event %q never appeared", action)
	return event
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		MemberID:    1,
		EventType:   entities.AuditEventIssue,
		Action:      "book_issue",
		Description: "Issued book 1 to member 1",
		Status:      entities.AuditStatusSuccess,
	}

	err := svc.Log(event)
	require.NoError(t, err)

	var saved entities.AuditEvent
	err = db.First(&saved, event.ID).Error
	require.NoError(t, err)
	assert.Equal(t, "book_issue", saved.Action)
	assert.False(t, saved.CreatedAt.IsZero())
}

func TestService_LogIssue(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful issue", func(t *testing.T) {
		svc.LogIssue(1, 2, "ref-abc", nil)

		event := waitForEvent(t, db, "book_issue")
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		assert.Equal(t, entities.AuditEventIssue, event.EventType)
		assert.Contains(t, event.Metadata, "ref-abc")
		require.NotNil(t, event.EntityID)
		assert.Equal(t, uint(2), *event.EntityID)
	})

	t.Run("failed issue", func(t *testing.T) {
		svc.LogIssue(1, 3, "", errors.New("no copies available"))

		deadline := time.Now().Add(2 * time.Second)
		var event entities.AuditEvent
		for time.Now().Before(deadline) {
			if err := db.Where("action = ? AND status = ?", "book_issue", entities.AuditStatusFailed).
				First(&event).Error; err == nil {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Contains(t, event.ErrorMsg, "no copies available")
	})
}

func TestService_LogReturn_WithFine(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogReturn(1, 7, &entities.Fine{DaysLate: 3, TotalAmount: 3.0}, nil)

	event := waitForEvent(t, db, "book_return")
	assert.Equal(t, entities.AuditEventReturn, event.EventType)
	assert.Contains(t, event.Metadata, "days_late")
	assert.Contains(t, event.Metadata, "fine_amount")
}

func TestService_LogPayment(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogPayment(1, 4, 2.5, nil)

	event := waitForEvent(t, db, "fine_payment")
	assert.Equal(t, entities.AuditEventPayment, event.EventType)
	assert.Contains(t, event.Description, "2.50")
	assert.Contains(t, event.Metadata, "amount")
}

func TestService_LogOverdue(t *testing.T) {
	svc, db := setupTestService(t)

	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	svc.LogOverdue(1, 9, due)

	event := waitForEvent(t, db, "loan_overdue")
	assert.Equal(t, entities.AuditEventOverdue, event.EventType)
	assert.Contains(t, event.Description, "2026-03-01")
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)

	old := &entities.AuditEvent{
		MemberID:  1,
		EventType: entities.AuditEventIssue,
		Action:    "book_issue",
		CreatedAt: time.Now().Add(-100 * 24 * time.Hour),
	}
	recent := &entities.AuditEvent{
		MemberID:  1,
		EventType: entities.AuditEventReturn,
		Action:    "book_return",
		CreatedAt: time.Now(),
	}
	require.NoError(t, db.Create(old).Error)
	require.NoError(t, db.Create(recent).Error)

	deleted, err := svc.DeleteOldEvents(90 * 24 * time.Hour)

	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	var count int64
	require.NoError(t, db.Model(&entities.AuditEvent{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestService_GetEventsByType(t *testing.T) {
	svc, db := setupTestService(t)

	require.NoError(t, db.Create(&entities.AuditEvent{MemberID: 1, EventType: entities.AuditEventIssue, Action: "book_issue"}).Error)
	require.NoError(t, db.Create(&entities.AuditEvent{MemberID: 2, EventType: entities.AuditEventIssue, Action: "book_issue"}).Error)
	require.NoError(t, db.Create(&entities.AuditEvent{MemberID: 1, EventType: entities.AuditEventReturn, Action: "book_return"}).Error)

	events, total, err := svc.GetEventsByType(entities.AuditEventIssue, 0, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, events, 2)

	events, total, err = svc.GetEventsByType(entities.AuditEventIssue, 1, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, events, 1)
	assert.Equal(t, uint(1), events[0].MemberID)
}
