// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations
//	└── syncruns/        # Sync run history and failed action records
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./ihsync.db")
//
//	// Create domain-specific repositories
//	runsRepo := syncruns.NewRepository(db.DB)
//
//	// Use repositories
//	run, err := runsRepo.Start(true)
//	latest, err := runsRepo.Latest()
//
// # Adding a New Domain
//
// To add a new domain (e.g., per-entity change history):
//
//  1. Create a new sub-package: internal/database/changes/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Register its entities in the AutoMigrate call in database.go
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
