package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"librarium/internal/config"
	"librarium/internal/tasks"
)

// OverdueScanScheduler enqueues the daily overdue scan and audit cleanup
// tasks on a cron schedule.
type OverdueScanScheduler struct {
	tasksClient *tasks.Client
	cfg         config.OverdueScan
	auditCfg    config.Audit

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewOverdueScanScheduler creates a new scheduler instance.
func NewOverdueScanScheduler(tasksClient *tasks.Client, cfg config.OverdueScan, auditCfg config.Audit) *OverdueScanScheduler {
	return &OverdueScanScheduler{
		tasksClient: tasksClient,
		cfg:         cfg,
		auditCfg:    auditCfg,
		cron:        cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if the overdue scan is enabled.
func (s *OverdueScanScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Overdue scan scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.runScan()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Overdue scan scheduler: started with schedule '%s'", s.cfg.Schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish.
func (s *OverdueScanScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Overdue scan scheduler: stopped")
}

// RunNow triggers an immediate scan outside the schedule.
func (s *OverdueScanScheduler) RunNow() {
	go s.runScan()
}

// IsRunning returns whether the scheduler is active.
func (s *OverdueScanScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next scan will be enqueued.
func (s *OverdueScanScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runScan enqueues the overdue scan plus the audit cleanup that rides along
// with the daily schedule. The task queue handles retries and timeouts.
func (s *OverdueScanScheduler) runScan() {
	if s.tasksClient == nil {
		return
	}

	now := time.Now().UTC()

	if _, err := s.tasksClient.Add(tasks.OverdueScanTask{AsOf: now}).Save(); err != nil {
		log.Printf("Overdue scan scheduler: failed to enqueue scan: %v", err)
		return
	}

	if _, err := s.tasksClient.Add(tasks.CleanupAuditEventsTask{RetentionDays: s.auditCfg.RetentionDays}).Save(); err != nil {
		log.Printf("Overdue scan scheduler: failed to enqueue audit cleanup: %v", err)
	}

	log.Printf("Overdue scan scheduler: enqueued scan as of %s", now.Format(time.RFC3339))
}
