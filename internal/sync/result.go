package sync

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
)

// Issue is a notification payload describing an outcome that needs manual
// review.
type Issue struct {
	Title       string
	Description string
	EntityKeys  []uuid.UUID
	IRN         string
}

// FailedAction records one isolated failure while applying the diff.
type FailedAction struct {
	EntityKey uuid.UUID
	Entity    string
	Message   string
}

// ConflictRecord is an external record that matched more than one registry
// entity, or matched entities of both kinds, or could not be converted.
type ConflictRecord struct {
	IRN             string
	Code            string
	Name            string
	InstitutionKeys []uuid.UUID
	CollectionKeys  []uuid.UUID
	Reason          string
}

// OutdatedRecord is an external record whose matched registry entity was
// modified more recently than the record itself. The registry side is
// authoritative; no update is attempted.
type OutdatedRecord struct {
	IRN        string
	Code       string
	Name       string
	EntityKey  uuid.UUID
	EntityName string
}

// StaffConflict is an ambiguous or outdated staff match, scoped to one
// entity's contact list.
type StaffConflict struct {
	Staff   ih.Staff
	Persons []entities.Person
	Reason  string
}

// PersonUpdate pairs an existing contact with its converted replacement.
type PersonUpdate struct {
	Old *entities.Person
	New *entities.Person
}

// StaffDiffResult reconciles one external staff list against one contact
// list. Built once per entity per run; callers must treat it as read-only.
type StaffDiffResult struct {
	NoChange  []*entities.Person
	ToCreate  []*entities.Person
	ToUpdate  []PersonUpdate
	ToDelete  []*entities.Person
	Conflicts []StaffConflict
}

// Empty reports whether the diff carries no actionable change and no
// conflict.
func (r *StaffDiffResult) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.ToCreate) == 0 && len(r.ToUpdate) == 0 && len(r.ToDelete) == 0 && len(r.Conflicts) == 0
}

// InstitutionUpdate pairs an existing institution with its converted
// replacement. EntityChanged is false when only the staff diff carries
// changes; the pair is still listed so staff diffs are never dropped.
type InstitutionUpdate struct {
	Old           *entities.Institution
	New           *entities.Institution
	EntityChanged bool
	Staff         *StaffDiffResult
}

// CollectionUpdate is the collection counterpart of InstitutionUpdate.
type CollectionUpdate struct {
	Old           *entities.Collection
	New           *entities.Collection
	EntityChanged bool
	Staff         *StaffDiffResult
}

// DiffResult aggregates every outcome of one reconciliation run. It is
// populated by the diff finder and read-only afterwards; the handler only
// reads it.
type DiffResult struct {
	InstitutionsNoChange []*entities.Institution
	CollectionsNoChange  []*entities.Collection
	InstitutionsToCreate []*entities.Institution
	InstitutionUpdates   []InstitutionUpdate
	CollectionUpdates    []CollectionUpdate
	Conflicts            []ConflictRecord
	Outdated             []OutdatedRecord

	// FetchFailures records staff fetches that errored mid-run. The affected
	// record's staff reconciliation is skipped, never treated as deletions.
	FetchFailures []FailedAction
}

// Counts summarizes bucket sizes for logging and run reports.
type Counts struct {
	InstitutionsNoChange int
	CollectionsNoChange  int
	InstitutionsToCreate int
	InstitutionUpdates   int
	CollectionUpdates    int
	StaffToCreate        int
	StaffToUpdate        int
	StaffToDelete        int
	Conflicts            int
	Outdated             int
}

// Counts computes the bucket summary, including staff-level totals.
func (r *DiffResult) Counts() Counts {
	c := Counts{
		InstitutionsNoChange: len(r.InstitutionsNoChange),
		CollectionsNoChange:  len(r.CollectionsNoChange),
		InstitutionsToCreate: len(r.InstitutionsToCreate),
		InstitutionUpdates:   len(r.InstitutionUpdates),
		CollectionUpdates:    len(r.CollectionUpdates),
		Conflicts:            len(r.Conflicts),
		Outdated:             len(r.Outdated),
	}
	addStaff := func(s *StaffDiffResult) {
		if s == nil {
			return
		}
		c.StaffToCreate += len(s.ToCreate)
		c.StaffToUpdate += len(s.ToUpdate)
		c.StaffToDelete += len(s.ToDelete)
		c.Conflicts += len(s.Conflicts)
	}
	for _, u := range r.InstitutionUpdates {
		addStaff(u.Staff)
	}
	for _, u := range r.CollectionUpdates {
		addStaff(u.Staff)
	}
	return c
}

func (c Counts) String() string {
	return fmt.Sprintf(
		"institutions: %d unchanged, %d to create, %d to update; collections: %d unchanged, %d to update; staff: %d/%d/%d create/update/delete; %d conflicts, %d outdated",
		c.InstitutionsNoChange, c.InstitutionsToCreate, c.InstitutionUpdates,
		c.CollectionsNoChange, c.CollectionUpdates,
		c.StaffToCreate, c.StaffToUpdate, c.StaffToDelete,
		c.Conflicts, c.Outdated,
	)
}
