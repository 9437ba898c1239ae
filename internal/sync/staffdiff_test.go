package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/grscicoll/ihsync/internal/countries"
	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
)

const testMigrationActor = "registry-migration"

func testStaffDiffFinder() *StaffDiffFinder {
	return NewStaffDiffFinder(NewConverter(countries.DefaultMatcher()), testMigrationActor)
}

func TestStaffDiff_IRNMatchWins(t *testing.T) {
	contact := entities.Person{
		Key:       uuid.New(),
		FirstName: "Completely",
		LastName:  "Different",
		Identifiers: []entities.Identifier{
			{Type: entities.IdentifierTypeIHIRN, Value: "gbif:ih:irn:42"},
		},
	}
	rec := ih.Staff{IRN: json.Number("42"), FirstName: "Jane", LastName: "Doe"}

	result := testStaffDiffFinder().Reconcile([]ih.Staff{rec}, []entities.Person{contact})

	if len(result.ToUpdate) != 1 {
		t.Fatalf("expected IRN match to produce an update, got %+v", result)
	}
	if len(result.ToDelete) != 0 {
		t.Errorf("matched contact must not be a delete candidate")
	}
}

func TestStaffDiff_SpecExampleNoChange(t *testing.T) {
	// External {Jane Doe, jane@x.org} vs internal {Jane Doe, jane@x.org,
	// phone 555}: name+email score 8, phone is merge-preserved, no change.
	contact := entities.Person{
		Key:       uuid.New(),
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.org",
		Phone:     "555",
	}
	rec := ih.Staff{
		FirstName: "Jane",
		LastName:  "Doe",
		Contact:   ih.Contact{Email: "jane@x.org"},
	}

	result := testStaffDiffFinder().Reconcile([]ih.Staff{rec}, []entities.Person{contact})

	if len(result.NoChange) != 1 {
		t.Fatalf("expected no-change, got %+v", result)
	}
	if len(result.ToCreate) != 0 || len(result.ToUpdate) != 0 || len(result.ToDelete) != 0 {
		t.Errorf("expected empty action buckets, got %+v", result)
	}
}

func TestStaffDiff_ScoreGate(t *testing.T) {
	// Same phone, city and position but neither name nor email agree: the
	// candidate must score 0, so the record is a create and the contact a
	// delete.
	contact := entities.Person{
		Key:       uuid.New(),
		FirstName: "Alice",
		LastName:  "Smith",
		Email:     "alice@x.org",
		Phone:     "555",
		Position:  "Curator",
		MailingAddress: &entities.Address{
			City: "London",
		},
	}
	rec := ih.Staff{
		FirstName: "Bob",
		LastName:  "Jones",
		Position:  "Curator",
		Contact:   ih.Contact{Email: "bob@y.org", Phone: "555"},
		Address:   ih.StaffAddress{City: "London"},
	}

	result := testStaffDiffFinder().Reconcile([]ih.Staff{rec}, []entities.Person{contact})

	if len(result.ToCreate) != 1 {
		t.Errorf("expected create candidate, got %+v", result)
	}
	if len(result.ToDelete) != 1 {
		t.Errorf("unmatched contact must become a delete candidate, got %+v", result)
	}
}

func TestStaffDiff_TieIsConflict(t *testing.T) {
	a := entities.Person{Key: uuid.New(), FirstName: "Jane", LastName: "Doe"}
	b := entities.Person{Key: uuid.New(), FirstName: "Jane", LastName: "Doe"}
	rec := ih.Staff{FirstName: "Jane", LastName: "Doe"}

	result := testStaffDiffFinder().Reconcile([]ih.Staff{rec}, []entities.Person{a, b})

	if len(result.Conflicts) != 1 {
		t.Fatalf("expected one conflict, got %+v", result)
	}
	if len(result.Conflicts[0].Persons) != 2 {
		t.Errorf("conflict must reference all tied candidates")
	}
	// Tied candidates are claimed: neither may be a delete candidate.
	if len(result.ToDelete) != 0 {
		t.Errorf("tied candidates must not be delete candidates, got %+v", result.ToDelete)
	}
}

func TestStaffDiff_HigherScoreBeatsTie(t *testing.T) {
	matching := entities.Person{
		Key: uuid.New(), FirstName: "Jane", LastName: "Doe", Email: "jane@x.org",
	}
	nameOnly := entities.Person{
		Key: uuid.New(), FirstName: "Jane", LastName: "Doe", Email: "other@x.org",
	}
	rec := ih.Staff{
		FirstName: "Jane", LastName: "Doe",
		Contact: ih.Contact{Email: "jane@x.org"},
	}

	result := testStaffDiffFinder().Reconcile([]ih.Staff{rec}, []entities.Person{nameOnly, matching})

	if len(result.Conflicts) != 0 {
		t.Fatalf("strictly higher score must not tie, got %+v", result.Conflicts)
	}
	if len(result.NoChange)+len(result.ToUpdate) != 1 {
		t.Fatalf("expected a single match, got %+v", result)
	}
	if len(result.ToDelete) != 1 || result.ToDelete[0].Key != nameOnly.Key {
		t.Errorf("losing candidate must be a delete candidate, got %+v", result.ToDelete)
	}
}

func TestStaffDiff_StalenessConflict(t *testing.T) {
	contact := entities.Person{
		Key:        uuid.New(),
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane@x.org",
		Position:   "Head Curator",
		Modified:   time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		ModifiedBy: "editor",
	}
	rec := ih.Staff{
		FirstName:    "Jane",
		LastName:     "Doe",
		Position:     "Curator",
		Contact:      ih.Contact{Email: "jane@x.org"},
		DateModified: "2020-01-01",
	}

	result := testStaffDiffFinder().Reconcile([]ih.Staff{rec}, []entities.Person{contact})

	// Even though the converted contact would differ, staleness wins.
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected staleness conflict, got %+v", result)
	}
	if len(result.ToUpdate) != 0 {
		t.Errorf("outdated record must never produce an update")
	}
	if len(result.ToDelete) != 0 {
		t.Errorf("claimed contact must not be a delete candidate")
	}
}

func TestStaffDiff_MigrationActorIsNotStale(t *testing.T) {
	contact := entities.Person{
		Key:        uuid.New(),
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane@x.org",
		Position:   "Head Curator",
		Modified:   time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		ModifiedBy: testMigrationActor,
	}
	rec := ih.Staff{
		FirstName:    "Jane",
		LastName:     "Doe",
		Position:     "Curator",
		Contact:      ih.Contact{Email: "jane@x.org"},
		DateModified: "2020-01-01",
	}

	result := testStaffDiffFinder().Reconcile([]ih.Staff{rec}, []entities.Person{contact})

	if len(result.Conflicts) != 0 {
		t.Fatalf("migration-actor edits are excluded from staleness, got %+v", result.Conflicts)
	}
	if len(result.ToUpdate) != 1 {
		t.Errorf("expected update, got %+v", result)
	}
}

func TestStaffDiff_DeleteCompleteness(t *testing.T) {
	contacts := []entities.Person{
		{Key: uuid.New(), FirstName: "A", LastName: "One"},
		{Key: uuid.New(), FirstName: "B", LastName: "Two"},
		{Key: uuid.New(), FirstName: "C", LastName: "Three"},
	}

	result := testStaffDiffFinder().Reconcile(nil, contacts)

	if len(result.ToDelete) != 3 {
		t.Fatalf("every unmatched contact must be a delete candidate, got %d", len(result.ToDelete))
	}
}

func TestStaffDiff_NoDoubleClaim(t *testing.T) {
	contact := entities.Person{Key: uuid.New(), FirstName: "Jane", LastName: "Doe"}
	recs := []ih.Staff{
		{FirstName: "Jane", LastName: "Doe"},
		{FirstName: "Jane", LastName: "Doe"},
	}

	result := testStaffDiffFinder().Reconcile(recs, []entities.Person{contact})

	// First record claims the contact; the second must become a create.
	total := len(result.NoChange) + len(result.ToUpdate)
	if total != 1 || len(result.ToCreate) != 1 {
		t.Errorf("expected one claim and one create, got %+v", result)
	}
}
