package config

const (
	// DefaultDatabasePath is the default path for the sync run database
	DefaultDatabasePath = "./ihsync.db"

	// DefaultMigrationActor is the reserved actor name used for bulk
	// migration edits in the registry
	DefaultMigrationActor = "GRSCICOLL_MIGRATION"
)
