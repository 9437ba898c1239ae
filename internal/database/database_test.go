package database

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grscicoll/ihsync/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	dbPath := "./test_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return db, cleanup
}

func TestNewDatabase(t *testing.T) {
	t.Run("creates database file", func(t *testing.T) {
		dbPath := "./init_test.db"
		defer os.Remove(dbPath)

		db, err := NewDatabase(dbPath)
		require.NoError(t, err)
		defer db.Close()

		_, err = os.Stat(dbPath)
		assert.NoError(t, err)
	})

	t.Run("migrates run tables", func(t *testing.T) {
		db, cleanup := setupTestDB(t)
		defer cleanup()

		assert.True(t, db.DB.Migrator().HasTable(&entities.SyncRun{}))
		assert.True(t, db.DB.Migrator().HasTable(&entities.FailedActionRecord{}))
	})

	t.Run("migration is idempotent", func(t *testing.T) {
		dbPath := "./idempotent_test.db"
		defer os.Remove(dbPath)

		db1, err := NewDatabase(dbPath)
		require.NoError(t, err)
		require.NoError(t, db1.Close())

		// Reopen against the same file
		db2, err := NewDatabase(dbPath)
		require.NoError(t, err)
		defer db2.Close()

		assert.True(t, db2.DB.Migrator().HasTable(&entities.SyncRun{}))
	})

	t.Run("Close closes database connection", func(t *testing.T) {
		dbPath := "./close_test.db"
		defer os.Remove(dbPath)

		db, err := NewDatabase(dbPath)
		require.NoError(t, err)

		err = db.Close()
		assert.NoError(t, err)
	})
}
