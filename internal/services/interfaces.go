package services

import (
	"context"

	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
)

// DirectorySource provides the external directory a sync run walks.
type DirectorySource interface {
	FetchInstitutions(ctx context.Context) ([]ih.Institution, error)
}

// RegistryReader lists the registry state a run diffs against.
type RegistryReader interface {
	ListInstitutions(ctx context.Context) ([]*entities.Institution, error)
	ListCollections(ctx context.Context) ([]*entities.Collection, error)
}

// RunStore persists sync run history.
type RunStore interface {
	Start(dryRun bool) (*entities.SyncRun, error)
	Complete(run *entities.SyncRun) error
	Fail(run *entities.SyncRun, errMsg string) error
	IsRunning() (bool, error)
}
