package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"librarium/internal/entities"
)

// OverdueLister provides the open loans past their due date.
type OverdueLister interface {
	ListOverdue(asOf time.Time) ([]entities.Transaction, error)
}

// OverdueRecorder records an overdue observation for a loan.
type OverdueRecorder interface {
	LogOverdue(memberID, transactionID uint, dueAt time.Time)
}

// OverdueScanTask walks the open loans and records an audit event for each
// one past its due date. Enqueued daily by the scheduler.
type OverdueScanTask struct {
	AsOf time.Time `json:"as_of"`
}

// Config returns the queue configuration for overdue scan tasks.
func (t OverdueScanTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "overdue_scan",
		MaxAttempts: 3,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// OverdueScanProcessor creates a processor function for OverdueScanTask.
func OverdueScanProcessor(lister OverdueLister, recorder OverdueRecorder) backlite.QueueProcessor[OverdueScanTask] {
	return func(ctx context.Context, task OverdueScanTask) error {
		if lister == nil {
			return fmt.Errorf("overdue lister not configured")
		}

		asOf := task.AsOf
		if asOf.IsZero() {
			asOf = time.Now().UTC()
		}

		overdue, err := lister.ListOverdue(asOf)
		if err != nil {
			return fmt.Errorf("overdue scan: %w", err)
		}

		if recorder != nil {
			for _, record := range overdue {
				recorder.LogOverdue(record.MemberID, record.ID, record.DueAt)
			}
		}

		log.Printf("[TASK] Overdue scan found %d late loans as of %s", len(overdue), asOf.Format(time.RFC3339))
		return nil
	}
}

// NewOverdueScanQueue creates a backlite queue for overdue scan tasks.
func NewOverdueScanQueue(lister OverdueLister, recorder OverdueRecorder) backlite.Queue {
	return backlite.NewQueue(OverdueScanProcessor(lister, recorder))
}
