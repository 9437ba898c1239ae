package syncruns

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grscicoll/ihsync/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_syncruns_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.SyncRun{}, &entities.FailedActionRecord{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_StartAndComplete(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	run, err := repo.Start(true)
	require.NoError(t, err)
	assert.Equal(t, entities.SyncRunStatusRunning, run.Status)
	assert.True(t, run.DryRun)

	run.InstitutionsSeen = 42
	run.InstitutionsCreated = 3
	run.Conflicts = 1
	err = repo.Complete(run)
	require.NoError(t, err)

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SyncRunStatusCompleted, got.Status)
	assert.Equal(t, 42, got.InstitutionsSeen)
	assert.NotNil(t, got.FinishedAt)
}

func TestRepository_CompletePersistsFailures(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	run, err := repo.Start(false)
	require.NoError(t, err)

	run.FailedActions = 2
	run.Failures = []entities.FailedActionRecord{
		{Entity: "Acme Herbarium", Message: "create institution: boom"},
		{Entity: "Other Herbarium", Message: "update institution: boom"},
	}
	require.NoError(t, repo.Complete(run))

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	require.Len(t, got.Failures, 2)
	assert.Equal(t, "Acme Herbarium", got.Failures[0].Entity)
	assert.Equal(t, run.ID, got.Failures[0].SyncRunID)
}

func TestRepository_Fail(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	run, err := repo.Start(false)
	require.NoError(t, err)

	require.NoError(t, repo.Fail(run, "directory fetch failed"))

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SyncRunStatusFailed, got.Status)
	assert.Equal(t, "directory fetch failed", got.Error)
}

func TestRepository_LatestAndList(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	latest, err := repo.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest, "no runs yet")

	first, err := repo.Start(false)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(first))

	// Ensure distinct start times
	second, err := repo.Start(true)
	require.NoError(t, err)
	second.StartedAt = first.StartedAt.Add(time.Minute)
	require.NoError(t, repo.Complete(second))

	latest, err = repo.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)

	runs, err := repo.List(10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	runs, err = repo.List(1, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, first.ID, runs[0].ID)
}

func TestRepository_IsRunning(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	running, err := repo.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	run, err := repo.Start(false)
	require.NoError(t, err)

	running, err = repo.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)

	require.NoError(t, repo.Complete(run))

	running, err = repo.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRepository_IsRunning_StaleRunIsFailed(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	run, err := repo.Start(false)
	require.NoError(t, err)
	run.StartedAt = time.Now().Add(-3 * time.Hour)
	require.NoError(t, repo.db.Save(run).Error)

	running, err := repo.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	got, err := repo.Get(run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.SyncRunStatusFailed, got.Status)
	assert.Equal(t, "run was interrupted", got.Error)
}

func TestRepository_DeleteOlderThan(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	old, err := repo.Start(false)
	require.NoError(t, err)
	old.Failures = []entities.FailedActionRecord{{Message: "boom"}}
	require.NoError(t, repo.Complete(old))
	old.StartedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.db.Save(old).Error)

	recent, err := repo.Start(false)
	require.NoError(t, err)
	require.NoError(t, repo.Complete(recent))

	removed, err := repo.DeleteOlderThan(time.Now().Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	runs, err := repo.List(0, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recent.ID, runs[0].ID)

	var failureCount int64
	require.NoError(t, repo.db.Model(&entities.FailedActionRecord{}).Count(&failureCount).Error)
	assert.Equal(t, int64(0), failureCount, "failure records must be removed with their run")
}
