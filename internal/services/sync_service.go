package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/sync"
)

// ErrSyncAlreadyRunning is returned when a run is requested while another
// run is still in progress.
var ErrSyncAlreadyRunning = errors.New("a sync run is already in progress")

// SyncOptions controls one sync run invocation.
type SyncOptions struct {
	DryRun bool
	Notify bool
	// Limit caps the number of directory records processed. Zero means all.
	Limit int
}

// SyncService runs the full reconciliation pipeline: fetch the directory,
// snapshot the registry, compute the diff, apply it and persist the run.
type SyncService struct {
	directory DirectorySource
	registry  RegistryReader
	finder    *sync.DiffFinder
	handler   *sync.ResultHandler
	runs      RunStore
}

// NewSyncService wires the pipeline.
func NewSyncService(directory DirectorySource, registry RegistryReader, finder *sync.DiffFinder, handler *sync.ResultHandler, runs RunStore) *SyncService {
	return &SyncService{
		directory: directory,
		registry:  registry,
		finder:    finder,
		handler:   handler,
		runs:      runs,
	}
}

// Run executes one sync run and returns its persisted record. Only one run
// may be in progress at a time.
func (s *SyncService) Run(ctx context.Context, opts SyncOptions) (*entities.SyncRun, error) {
	running, err := s.runs.IsRunning()
	if err != nil {
		return nil, fmt.Errorf("failed to check run state: %w", err)
	}
	if running {
		return nil, ErrSyncAlreadyRunning
	}

	run, err := s.runs.Start(opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	result, err := s.computeDiff(ctx, opts, run)
	if err != nil {
		if failErr := s.runs.Fail(run, err.Error()); failErr != nil {
			log.Printf("[SYNC] failed to mark run %d as failed: %v", run.ID, failErr)
		}
		return run, err
	}

	counts := result.Counts()
	log.Printf("[SYNC] run %d diff complete: %s", run.ID, counts)

	failed := s.handler.Apply(ctx, result, sync.ApplyOptions{
		DryRun: opts.DryRun,
		Notify: opts.Notify,
	})

	fillRun(run, counts, failed, opts.Notify)
	if err := s.runs.Complete(run); err != nil {
		return run, fmt.Errorf("failed to persist run: %w", err)
	}

	log.Printf("[SYNC] run %d finished: %d failed actions", run.ID, len(failed))
	return run, nil
}

func (s *SyncService) computeDiff(ctx context.Context, opts SyncOptions, run *entities.SyncRun) (*sync.DiffResult, error) {
	records, err := s.directory.FetchInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch directory: %w", err)
	}
	if opts.Limit > 0 && len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	run.InstitutionsSeen = len(records)

	institutions, err := s.registry.ListInstitutions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list institutions: %w", err)
	}
	collections, err := s.registry.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	log.Printf("[SYNC] run %d: %d directory records against %d institutions, %d collections",
		run.ID, len(records), len(institutions), len(collections))

	return s.finder.Run(ctx, records, sync.Snapshot{
		Institutions: institutions,
		Collections:  collections,
	}), nil
}

func fillRun(run *entities.SyncRun, counts sync.Counts, failed []sync.FailedAction, notified bool) {
	run.Notified = notified
	run.InstitutionsNoChange = counts.InstitutionsNoChange
	run.InstitutionsCreated = counts.InstitutionsToCreate
	run.InstitutionsUpdated = counts.InstitutionUpdates
	run.CollectionsNoChange = counts.CollectionsNoChange
	run.CollectionsUpdated = counts.CollectionUpdates
	run.StaffCreated = counts.StaffToCreate
	run.StaffUpdated = counts.StaffToUpdate
	run.StaffDeleted = counts.StaffToDelete
	run.Conflicts = counts.Conflicts
	run.Outdated = counts.Outdated
	run.FailedActions = len(failed)

	for _, f := range failed {
		record := entities.FailedActionRecord{
			Entity:  f.Entity,
			Message: f.Message,
		}
		if f.EntityKey != uuid.Nil {
			record.EntityKey = f.EntityKey.String()
		}
		run.Failures = append(run.Failures, record)
	}
}
