// Package syncruns provides database operations for sync run history.
package syncruns

import (
	"time"

	"gorm.io/gorm"

	"github.com/grscicoll/ihsync/internal/entities"
)

// Repository handles all sync run database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sync run repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Start creates a run record in the running state.
func (r *Repository) Start(dryRun bool) (*entities.SyncRun, error) {
	run := &entities.SyncRun{
		Status:    entities.SyncRunStatusRunning,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}
	if err := r.db.Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

// Complete marks a run as finished and stores its counters and failures.
func (r *Repository) Complete(run *entities.SyncRun) error {
	now := time.Now()
	run.Status = entities.SyncRunStatusCompleted
	run.FinishedAt = &now
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(run).Error
}

// Fail marks a run as failed with the given error message.
func (r *Repository) Fail(run *entities.SyncRun, errMsg string) error {
	now := time.Now()
	run.Status = entities.SyncRunStatusFailed
	run.Error = errMsg
	run.FinishedAt = &now
	return r.db.Save(run).Error
}

// Get retrieves one run with its recorded failures.
func (r *Repository) Get(id uint) (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.Preload("Failures").First(&run, id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Latest retrieves the most recently started run, or nil when none exist.
func (r *Repository) Latest() (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.Preload("Failures").Order("started_at DESC").First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// List retrieves runs newest-first.
func (r *Repository) List(limit, offset int) ([]entities.SyncRun, error) {
	var runs []entities.SyncRun
	query := r.db.Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// IsRunning checks whether a run is currently in progress. A run is
// considered stale and failed if it started more than two hours ago.
func (r *Repository) IsRunning() (bool, error) {
	var run entities.SyncRun
	err := r.db.Where("status = ?", entities.SyncRunStatusRunning).Order("started_at DESC").First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	staleThreshold := time.Now().Add(-2 * time.Hour)
	if run.StartedAt.Before(staleThreshold) {
		_ = r.Fail(&run, "run was interrupted")
		return false, nil
	}

	return true, nil
}

// DeleteOlderThan removes finished runs older than the cutoff, with their
// failure records. Returns the number of runs removed.
func (r *Repository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var ids []uint
	err := r.db.Model(&entities.SyncRun{}).
		Where("status != ? AND started_at < ?", entities.SyncRunStatusRunning, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := r.db.Where("sync_run_id IN ?", ids).Delete(&entities.FailedActionRecord{}).Error; err != nil {
		return 0, err
	}
	result := r.db.Delete(&entities.SyncRun{}, ids)
	return result.RowsAffected, result.Error
}
