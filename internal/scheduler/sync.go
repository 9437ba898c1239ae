package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/grscicoll/ihsync/internal/config"
	"github.com/grscicoll/ihsync/internal/tasks"
)

// cleanupSchedule prunes run history once a day, off-peak and away from
// the sync schedule default.
const cleanupSchedule = "30 4 * * *"

// SyncScheduler enqueues periodic reconciliation runs. The run itself
// executes on the task queue so a slow directory walk never blocks cron.
// It also enqueues a daily run-history cleanup honouring the retention
// window.
type SyncScheduler struct {
	cfg    config.Sync
	notify bool
	queue  *tasks.Client

	cron       *cron.Cron
	entryID    cron.EntryID
	cleanupID  cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewSyncScheduler creates a new scheduler instance. notify controls
// whether scheduled runs submit issues for conflicts.
func NewSyncScheduler(cfg config.Sync, notify bool, queue *tasks.Client) *SyncScheduler {
	return &SyncScheduler{
		cfg:    cfg,
		notify: notify,
		queue:  queue,
		cron:   cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler if scheduled sync is enabled.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.cfg.Enabled {
		log.Printf("Sync scheduler: disabled")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.enqueueRun()
	})
	if err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}
	s.entryID = entryID

	cleanupID, err := s.cron.AddFunc(cleanupSchedule, func() {
		s.enqueueCleanup()
	})
	if err != nil {
		return fmt.Errorf("invalid cleanup schedule '%s': %w", cleanupSchedule, err)
	}
	s.cleanupID = cleanupID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Sync scheduler: started with schedule '%s' (dry run: %v). Next run: %v",
		s.cfg.Schedule, s.cfg.DryRun, s.nextRunLocked())

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Sync scheduler: stopped")
}

// IsRunning returns whether the scheduler is active.
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next scheduled run will be enqueued.
func (s *SyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	return s.nextRunLocked()
}

func (s *SyncScheduler) nextRunLocked() *time.Time {
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *SyncScheduler) enqueueRun() {
	_, err := s.queue.Add(tasks.SyncRunTask{
		DryRun: s.cfg.DryRun,
		Notify: s.notify,
	}).Save()
	if err != nil {
		log.Printf("Sync scheduler: failed to enqueue run: %v", err)
		return
	}
	log.Printf("Sync scheduler: enqueued run (dry run: %v)", s.cfg.DryRun)
}

func (s *SyncScheduler) enqueueCleanup() {
	_, err := s.queue.Add(tasks.CleanupRunsTask{
		RetentionDays: s.cfg.RetentionDays,
	}).Save()
	if err != nil {
		log.Printf("Sync scheduler: failed to enqueue run cleanup: %v", err)
		return
	}
	log.Printf("Sync scheduler: enqueued run cleanup (retention: %d days)", s.cfg.RetentionDays)
}
