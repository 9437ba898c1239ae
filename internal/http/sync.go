package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/grscicoll/ihsync/internal/scheduler"
	"github.com/grscicoll/ihsync/internal/tasks"
)

// SyncController triggers sync runs and reports scheduling state.
type SyncController struct {
	client    *tasks.Client
	scheduler *scheduler.SyncScheduler
}

// NewSyncController creates a new SyncController.
func NewSyncController(client *tasks.Client, sched *scheduler.SyncScheduler) *SyncController {
	return &SyncController{client: client, scheduler: sched}
}

// TriggerSyncRequest is the request body for POST /api/sync.
type TriggerSyncRequest struct {
	DryRun bool `json:"dry_run"`
	Notify bool `json:"notify"`
	Limit  int  `json:"limit,omitempty"`
}

// TriggerSync handles POST /api/sync
// Enqueues a sync run on the task queue and returns the task ID.
func (sc *SyncController) TriggerSync(c *gin.Context) {
	req := TriggerSyncRequest{DryRun: true}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.Limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must not be negative"})
		return
	}

	ids, err := sc.client.Add(tasks.SyncRunTask{
		DryRun: req.DryRun,
		Notify: req.Notify,
		Limit:  req.Limit,
	}).Save()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task_id": ids[0],
		"dry_run": req.DryRun,
		"message": "sync run enqueued",
	})
}

// GetSchedule handles GET /api/sync/schedule
func (sc *SyncController) GetSchedule(c *gin.Context) {
	if sc.scheduler == nil || !sc.scheduler.IsRunning() {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"enabled":  true,
		"next_run": sc.scheduler.GetNextRunTime(),
	})
}

// GetTaskStatus handles GET /api/tasks/:id
func (sc *SyncController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task ID is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := sc.client.Status(ctx, taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
