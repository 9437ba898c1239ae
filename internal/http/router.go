package http

import (
	"github.com/gin-gonic/gin"

	"github.com/grscicoll/ihsync/internal/database"
	"github.com/grscicoll/ihsync/internal/database/syncruns"
	"github.com/grscicoll/ihsync/internal/scheduler"
	"github.com/grscicoll/ihsync/internal/tasks"
)

// RouterConfig collects the router dependencies.
type RouterConfig struct {
	Database   *database.Database
	Runs       *syncruns.Repository
	TaskClient *tasks.Client
	Scheduler  *scheduler.SyncScheduler
	Version    string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Runs, cfg.Scheduler, cfg.Version)
	runsController := NewRunsController(cfg.Runs)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Run history endpoints
	router.GET("/api/runs", runsController.ListRuns)
	router.GET("/api/runs/latest", runsController.GetLatestRun)
	router.GET("/api/runs/:id", runsController.GetRun)

	// Sync trigger and task status endpoints
	if cfg.TaskClient != nil {
		syncController := NewSyncController(cfg.TaskClient, cfg.Scheduler)
		router.POST("/api/sync", syncController.TriggerSync)
		router.GET("/api/sync/schedule", syncController.GetSchedule)
		router.GET("/api/tasks/:id", syncController.GetTaskStatus)
	}

	return router
}
