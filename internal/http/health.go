package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/grscicoll/ihsync/internal/database"
	"github.com/grscicoll/ihsync/internal/database/syncruns"
	"github.com/grscicoll/ihsync/internal/scheduler"
)

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthController reports service health: database connectivity plus the
// sync-specific signals an operator checks first, last-run freshness and
// scheduler state.
type HealthController struct {
	db        *database.Database
	runs      *syncruns.Repository
	scheduler *scheduler.SyncScheduler
	version   string
}

func NewHealthController(db *database.Database, runs *syncruns.Repository, sched *scheduler.SyncScheduler, version string) *HealthController {
	return &HealthController{
		db:        db,
		runs:      runs,
		scheduler: sched,
		version:   version,
	}
}

func (h *HealthController) Status(c *gin.Context) {
	checks := make(map[string]string)
	status := "healthy"

	// Check database connectivity
	if h.db != nil {
		sqlDB, err := h.db.DB.DB()
		if err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else if err := sqlDB.Ping(); err != nil {
			checks["database"] = "error: " + err.Error()
			status = "unhealthy"
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not configured"
	}

	checks["last_run"] = h.lastRunCheck()
	checks["scheduler"] = h.schedulerCheck()

	health := HealthResponse{
		Status:  status,
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  checks,
	}

	statusCode := http.StatusOK
	if status != "healthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.IndentedJSON(statusCode, health)
}

// lastRunCheck summarizes the most recent sync run. Informational only: a
// failed run is worth seeing here but does not make the service unhealthy.
func (h *HealthController) lastRunCheck() string {
	if h.runs == nil {
		return "not configured"
	}
	run, err := h.runs.Latest()
	if err != nil {
		return "error: " + err.Error()
	}
	if run == nil {
		return "none recorded"
	}
	age := time.Since(run.StartedAt).Round(time.Second)
	return fmt.Sprintf("%s %s ago", run.Status, age)
}

func (h *HealthController) schedulerCheck() string {
	if h.scheduler == nil {
		return "not configured"
	}
	if !h.scheduler.IsRunning() {
		return "stopped"
	}
	if next := h.scheduler.GetNextRunTime(); next != nil {
		return "next run at " + next.Format(time.RFC3339)
	}
	return "running"
}
