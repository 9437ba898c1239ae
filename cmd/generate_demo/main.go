// Command generate_demo creates a demo database with sample sync run history.
// Useful for exercising the /api/runs endpoints without a real run.
// Usage: go run cmd/generate_demo/main.go [-db path/to/demo.db]
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/grscicoll/ihsync/internal/database"
	"github.com/grscicoll/ihsync/internal/entities"
)

const defaultDemoDatabasePath = "./demo.db"

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Delete existing demo database to start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}

	db, err := database.NewDatabase(*dbPath)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	for _, run := range demoRuns() {
		if err := db.DB.Create(run).Error; err != nil {
			log.Fatalf("Failed to save run: %v", err)
		}
		log.Printf("Saved run %d (%s, %d records seen)", run.ID, run.Status, run.InstitutionsSeen)
	}

	log.Printf("Demo database generated at %s", *dbPath)
}

// demoRuns returns a plausible week of run history: a dry run, a real run
// with a few isolated failures, and an interrupted run.
func demoRuns() []*entities.SyncRun {
	now := time.Now()
	at := func(daysAgo int, d time.Duration) (time.Time, *time.Time) {
		start := now.AddDate(0, 0, -daysAgo)
		end := start.Add(d)
		return start, &end
	}

	dryStart, dryEnd := at(7, 12*time.Minute)
	realStart, realEnd := at(3, 18*time.Minute)
	failedStart, failedEnd := at(1, 2*time.Minute)

	return []*entities.SyncRun{
		{
			Status:               entities.SyncRunStatusCompleted,
			DryRun:               true,
			InstitutionsSeen:     3450,
			InstitutionsNoChange: 3102,
			InstitutionsCreated:  12,
			InstitutionsUpdated:  281,
			CollectionsNoChange:  44,
			CollectionsUpdated:   9,
			Conflicts:            2,
			Outdated:             5,
			StartedAt:            dryStart,
			FinishedAt:           dryEnd,
		},
		{
			Status:               entities.SyncRunStatusCompleted,
			DryRun:               false,
			Notified:             true,
			InstitutionsSeen:     3450,
			InstitutionsNoChange: 3102,
			InstitutionsCreated:  12,
			InstitutionsUpdated:  279,
			CollectionsNoChange:  44,
			CollectionsUpdated:   9,
			StaffCreated:         31,
			StaffUpdated:         64,
			StaffDeleted:         7,
			Conflicts:            2,
			Outdated:             5,
			FailedActions:        2,
			Failures: []entities.FailedActionRecord{
				{
					Entity:  "Herbarium Berolinense (B)",
					Message: "update institution: server returned status 503",
				},
				{
					Entity:  "Royal Botanic Gardens Kew (K)",
					Message: "create contact: server returned status 500",
				},
			},
			StartedAt:  realStart,
			FinishedAt: realEnd,
		},
		{
			Status:     entities.SyncRunStatusFailed,
			DryRun:     false,
			Error:      "fetch institutions: request failed after 3 attempts",
			StartedAt:  failedStart,
			FinishedAt: failedEnd,
		},
	}
}
