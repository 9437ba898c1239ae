package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/grscicoll/ihsync/internal/services"
)

// SyncRunTask triggers one reconciliation run against the registry.
type SyncRunTask struct {
	DryRun bool `json:"dry_run"`
	Notify bool `json:"notify"`
	// Limit optionally caps the number of directory records (0 = all).
	Limit int `json:"limit,omitempty"`
}

// Config returns the queue configuration for sync run tasks.
func (t SyncRunTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_run",
		MaxAttempts: 1,
		Backoff:     5 * time.Minute,
		Timeout:     2 * time.Hour, // a full directory walk is slow
		Retention: &backlite.Retention{
			Duration:   30 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// SyncRunProcessor creates a processor function for SyncRunTask.
func SyncRunProcessor(service *services.SyncService) backlite.QueueProcessor[SyncRunTask] {
	return func(ctx context.Context, task SyncRunTask) error {
		if service == nil {
			return fmt.Errorf("sync service not configured")
		}

		run, err := service.Run(ctx, services.SyncOptions{
			DryRun: task.DryRun,
			Notify: task.Notify,
			Limit:  task.Limit,
		})
		if errors.Is(err, services.ErrSyncAlreadyRunning) {
			log.Printf("[TASK] sync run skipped: %v", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("sync run: %w", err)
		}

		log.Printf("[TASK] sync run %d complete: %d seen, %d created, %d updated, %d conflicts, %d failed actions",
			run.ID, run.InstitutionsSeen, run.InstitutionsCreated,
			run.InstitutionsUpdated+run.CollectionsUpdated, run.Conflicts, run.FailedActions)

		return nil
	}
}

// NewSyncRunQueue creates a backlite queue for sync run tasks.
func NewSyncRunQueue(service *services.SyncService) backlite.Queue {
	return backlite.NewQueue(SyncRunProcessor(service))
}
