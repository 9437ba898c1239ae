package sync

import (
	"context"

	"github.com/google/uuid"

	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
)

// EntityKind distinguishes the two registry entity types staff can belong to.
type EntityKind string

const (
	EntityKindInstitution EntityKind = "institution"
	EntityKindCollection  EntityKind = "collection"
)

// StaffFetcher retrieves the staff list for one institution code. Called
// lazily by the diff finder so multi-way conflicts never trigger a fetch.
type StaffFetcher interface {
	FetchStaff(ctx context.Context, code string) ([]ih.Staff, error)
}

// RegistryWriter applies single-entity writes against the registry. Every
// method returns an error on failure; the result handler isolates each call.
type RegistryWriter interface {
	CreateInstitution(ctx context.Context, institution *entities.Institution) (uuid.UUID, error)
	UpdateInstitution(ctx context.Context, institution *entities.Institution) error
	UpdateCollection(ctx context.Context, collection *entities.Collection) error
	CreatePerson(ctx context.Context, kind EntityKind, entityKey uuid.UUID, person *entities.Person) (uuid.UUID, error)
	UpdatePerson(ctx context.Context, person *entities.Person) error
	DeletePerson(ctx context.Context, key uuid.UUID) error
}

// IssueNotifier submits conflict and failure reports for manual review.
type IssueNotifier interface {
	SubmitIssue(ctx context.Context, issue Issue) error
}
