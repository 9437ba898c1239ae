package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grscicoll/ihsync/internal/config"
	"github.com/grscicoll/ihsync/internal/countries"
	"github.com/grscicoll/ihsync/internal/database"
	"github.com/grscicoll/ihsync/internal/database/syncruns"
	"github.com/grscicoll/ihsync/internal/grscicoll"
	http_controllers "github.com/grscicoll/ihsync/internal/http"
	"github.com/grscicoll/ihsync/internal/ih"
	"github.com/grscicoll/ihsync/internal/scheduler"
	"github.com/grscicoll/ihsync/internal/services"
	"github.com/grscicoll/ihsync/internal/sync"
	"github.com/grscicoll/ihsync/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// BuildSyncService wires the reconciliation pipeline from configuration.
// Shared by the server entrypoint and the CLI commands.
func BuildSyncService(cfg *config.Config, runs services.RunStore) *services.SyncService {
	directory := ih.NewClient(cfg.IH.BaseURL)
	registry := grscicoll.NewClient(cfg.Registry.BaseURL, cfg.Registry.Token)

	converter := sync.NewConverter(countries.DefaultMatcher())
	finder := sync.NewDiffFinder(converter, directory, cfg.Registry.MigrationActor)

	var notifier sync.IssueNotifier = noopNotifier{}
	if cfg.Notify.Enabled && cfg.Notify.Repository != "" {
		notifier = grscicoll.NewIssueTracker(cfg.Notify.APIURL, cfg.Notify.Repository, cfg.Notify.Token)
	}
	handler := sync.NewResultHandler(registry, notifier)

	return services.NewSyncService(directory, registry, finder, handler, runs)
}

// noopNotifier logs issues that would have been submitted. Used when no
// issue tracker is configured.
type noopNotifier struct{}

func (noopNotifier) SubmitIssue(ctx context.Context, issue sync.Issue) error {
	log.Printf("[SYNC] issue (tracker not configured): %s", issue.Title)
	return nil
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting IH sync service v%s", version)

	if cfg.Registry.Token == "" {
		log.Printf("WARNING: registry token is not set. Non-dry runs will fail on write. Set 'REGISTRY_TOKEN' to enable writes.")
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	runs := syncruns.NewRepository(db.DB)
	syncService := BuildSyncService(cfg, runs)

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:           cfg.Tasks.Workers,
			MaxRetries:        cfg.Tasks.MaxRetries,
			RetryDelay:        cfg.Tasks.RetryDelay,
			TaskTimeout:       cfg.Tasks.TaskTimeout,
			ReleaseAfter:      cfg.Tasks.ReleaseAfter,
			CleanupInterval:   cfg.Tasks.CleanupInterval,
			RetentionDuration: cfg.Tasks.RetentionDuration,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		// Register task queues
		taskClient.Register(
			tasks.NewSyncRunQueue(syncService),
			tasks.NewCleanupRunsQueue(runs),
		)

		// Start task workers in background
		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Start the scheduler if both it and the task queue are enabled
	var syncScheduler *scheduler.SyncScheduler
	if taskClient != nil {
		syncScheduler = scheduler.NewSyncScheduler(cfg.Sync, cfg.Notify.Enabled, taskClient)
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start sync scheduler: %v", err)
		}
	} else if cfg.Sync.Enabled {
		log.Printf("WARNING: scheduled sync requires the task queue; set TASKS_ENABLED=true")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:   db,
		Runs:       runs,
		TaskClient: taskClient,
		Scheduler:  syncScheduler,
		Version:    version,
	})

	onShutdown := func(ctx context.Context) {
		if syncScheduler != nil {
			syncScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
