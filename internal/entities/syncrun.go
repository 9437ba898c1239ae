package entities

import (
	"time"
)

type SyncRunStatus string

const (
	SyncRunStatusRunning   SyncRunStatus = "running"
	SyncRunStatusCompleted SyncRunStatus = "completed"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

// SyncRun records the outcome of one reconciliation run against the
// registry. One row per invocation, including dry runs.
type SyncRun struct {
	ID       uint          `gorm:"primaryKey" json:"id"`
	Status   SyncRunStatus `gorm:"size:20;index" json:"status"`
	DryRun   bool          `json:"dry_run"`
	Notified bool          `json:"notified"`

	InstitutionsSeen     int `json:"institutions_seen"`
	InstitutionsNoChange int `json:"institutions_no_change"`
	InstitutionsCreated  int `json:"institutions_created"`
	InstitutionsUpdated  int `json:"institutions_updated"`
	CollectionsNoChange  int `json:"collections_no_change"`
	CollectionsUpdated   int `json:"collections_updated"`
	StaffCreated         int `json:"staff_created"`
	StaffUpdated         int `json:"staff_updated"`
	StaffDeleted         int `json:"staff_deleted"`
	Conflicts            int `json:"conflicts"`
	Outdated             int `json:"outdated"`
	FailedActions        int `json:"failed_actions"`

	Error string `gorm:"type:text" json:"error,omitempty"`

	Failures []FailedActionRecord `gorm:"foreignKey:SyncRunID" json:"failures,omitempty"`

	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FailedActionRecord persists a single isolated write failure from a run.
type FailedActionRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SyncRunID uint      `gorm:"index" json:"sync_run_id"`
	EntityKey string    `gorm:"size:36" json:"entity_key,omitempty"`
	Entity    string    `gorm:"size:512" json:"entity,omitempty"`
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
