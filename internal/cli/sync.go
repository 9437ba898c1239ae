package cli

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/grscicoll/ihsync/internal/config"
	"github.com/grscicoll/ihsync/internal/database"
	"github.com/grscicoll/ihsync/internal/database/syncruns"
	"github.com/grscicoll/ihsync/internal/entrypoint"
	"github.com/grscicoll/ihsync/internal/services"
)

// SyncCommand runs one reconciliation run from the command line.
type SyncCommand struct {
	DryRun   bool
	NoNotify bool
	Limit    int
}

// NewSyncCommand creates a new SyncCommand.
func NewSyncCommand() *SyncCommand {
	return &SyncCommand{}
}

// ParseFlags parses command line flags
func (cmd *SyncCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)

	fs.BoolVar(&cmd.DryRun, "dry-run", true, "Compute the diff without writing to the registry")
	fs.BoolVar(&cmd.NoNotify, "no-notify", false, "Skip issue submission even when a tracker is configured")
	fs.IntVar(&cmd.Limit, "limit", 0, "Process at most this many directory records (0 = all)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s sync [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run one Index Herbariorum reconciliation against the registry.\n\n")
		fmt.Fprintf(os.Stderr, "This command:\n")
		fmt.Fprintf(os.Stderr, "  1. Fetches the full IH institution directory\n")
		fmt.Fprintf(os.Stderr, "  2. Snapshots the registry institutions and collections\n")
		fmt.Fprintf(os.Stderr, "  3. Computes creates, updates, conflicts and outdated records\n")
		fmt.Fprintf(os.Stderr, "  4. Applies the diff (unless -dry-run) and records the run\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s sync\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync -dry-run=false\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s sync -limit 100\n", os.Args[0])
	}

	return fs.Parse(args)
}

// Run executes the sync command
func (cmd *SyncCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	runs := syncruns.NewRepository(db.DB)
	service := entrypoint.BuildSyncService(cfg, runs)

	notify := cfg.Notify.Enabled && !cmd.NoNotify
	if cmd.DryRun {
		fmt.Println("Dry run: no registry writes will be performed")
	}

	run, err := service.Run(context.Background(), services.SyncOptions{
		DryRun: cmd.DryRun,
		Notify: notify,
		Limit:  cmd.Limit,
	})
	if err != nil {
		return fmt.Errorf("sync run failed: %w", err)
	}

	fmt.Printf("Run %d finished\n", run.ID)
	fmt.Printf("  directory records:   %d\n", run.InstitutionsSeen)
	fmt.Printf("  unchanged:           %d institutions, %d collections\n", run.InstitutionsNoChange, run.CollectionsNoChange)
	fmt.Printf("  created:             %d institutions\n", run.InstitutionsCreated)
	fmt.Printf("  updated:             %d institutions, %d collections\n", run.InstitutionsUpdated, run.CollectionsUpdated)
	fmt.Printf("  staff:               %d created, %d updated, %d deleted\n", run.StaffCreated, run.StaffUpdated, run.StaffDeleted)
	fmt.Printf("  conflicts:           %d\n", run.Conflicts)
	fmt.Printf("  outdated:            %d\n", run.Outdated)
	if run.FailedActions > 0 {
		fmt.Printf("  failed actions:      %d (see run record %d)\n", run.FailedActions, run.ID)
	}

	return nil
}
