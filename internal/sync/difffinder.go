package sync

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
)

// DiffFinder walks the Index Herbariorum directory and buckets every record
// against the registry snapshot. It is read-only with respect to the
// registry: the only remote call is the lazy staff fetch.
//
// Records are processed in the order IH returns them. When an ambiguous
// record could claim entities that a later record would also match, the
// earlier record wins; bucket membership is otherwise order-independent.
type DiffFinder struct {
	converter      *Converter
	staffDiff      *StaffDiffFinder
	staff          StaffFetcher
	migrationActor string
}

// NewDiffFinder creates the orchestrator. migrationActor is the reserved
// actor excluded from staleness comparisons.
func NewDiffFinder(converter *Converter, staff StaffFetcher, migrationActor string) *DiffFinder {
	return &DiffFinder{
		converter:      converter,
		staffDiff:      NewStaffDiffFinder(converter, migrationActor),
		staff:          staff,
		migrationActor: migrationActor,
	}
}

// Snapshot is the registry state a run diffs against, listed once up front.
type Snapshot struct {
	Institutions []*entities.Institution
	Collections  []*entities.Collection
}

// Run computes the full diff. No registry entity ends up in more than one
// bucket: matched entities are claimed out of the working pools as they are
// consumed.
func (f *DiffFinder) Run(ctx context.Context, records []ih.Institution, snapshot Snapshot) *DiffResult {
	result := &DiffResult{}

	institutions := newPool(snapshot.Institutions)
	collections := newPool(snapshot.Collections)

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			log.Printf("[SYNC] diff aborted: %v", err)
			return result
		}

		encoded := EncodeIRN(rec.IRN.String())

		// The two lookups filter disjoint pools; run them in parallel and
		// join before dispatching.
		var instMatches, colMatches []int
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			instMatches = institutions.matchIdentifier(encoded)
		}()
		go func() {
			defer wg.Done()
			colMatches = collections.matchIdentifier(encoded)
		}()
		wg.Wait()

		switch {
		case len(instMatches) == 1 && len(colMatches) == 0:
			f.updateInstitution(ctx, rec, institutions.claim(instMatches[0]), result)

		case len(colMatches) == 1 && len(instMatches) == 0:
			f.updateCollection(ctx, rec, collections.claim(colMatches[0]), result)

		case len(instMatches) == 0 && len(colMatches) == 0:
			f.create(ctx, rec, result)

		default:
			// Multiple matches, or matches of both kinds. Everything matched
			// is claimed by the conflict and withheld from later records.
			conflict := ConflictRecord{
				IRN:    rec.IRN.String(),
				Code:   rec.Code,
				Name:   rec.Organization,
				Reason: "external record matches multiple registry entities",
			}
			for _, idx := range instMatches {
				conflict.InstitutionKeys = append(conflict.InstitutionKeys, institutions.claim(idx).EntityKey())
			}
			for _, idx := range colMatches {
				conflict.CollectionKeys = append(conflict.CollectionKeys, collections.claim(idx).EntityKey())
			}
			result.Conflicts = append(result.Conflicts, conflict)
		}
	}

	return result
}

func (f *DiffFinder) updateInstitution(ctx context.Context, rec ih.Institution, existing *entities.Institution, result *DiffResult) {
	if f.outdated(existing.Modified, existing.ModifiedBy, rec) {
		result.Outdated = append(result.Outdated, OutdatedRecord{
			IRN:        rec.IRN.String(),
			Code:       rec.Code,
			Name:       rec.Organization,
			EntityKey:  existing.Key,
			EntityName: existing.Name,
		})
		return
	}

	converted, err := f.converter.ConvertInstitution(rec, existing)
	if err != nil {
		result.Conflicts = append(result.Conflicts, ConflictRecord{
			IRN:             rec.IRN.String(),
			Code:            rec.Code,
			Name:            rec.Organization,
			InstitutionKeys: []uuid.UUID{existing.Key},
			Reason:          fmt.Sprintf("conversion failed: %v", err),
		})
		return
	}

	entityChanged := !converted.LenientEquals(existing)
	staffDiff, ok := f.reconcileStaff(ctx, rec, existing.Contacts, existing.Key, result)
	if !ok {
		staffDiff = &StaffDiffResult{}
	}

	if entityChanged || !staffDiff.Empty() {
		result.InstitutionUpdates = append(result.InstitutionUpdates, InstitutionUpdate{
			Old:           existing,
			New:           converted,
			EntityChanged: entityChanged,
			Staff:         staffDiff,
		})
	} else {
		result.InstitutionsNoChange = append(result.InstitutionsNoChange, existing)
	}
}

func (f *DiffFinder) updateCollection(ctx context.Context, rec ih.Institution, existing *entities.Collection, result *DiffResult) {
	if f.outdated(existing.Modified, existing.ModifiedBy, rec) {
		result.Outdated = append(result.Outdated, OutdatedRecord{
			IRN:        rec.IRN.String(),
			Code:       rec.Code,
			Name:       rec.Organization,
			EntityKey:  existing.Key,
			EntityName: existing.Name,
		})
		return
	}

	converted := f.converter.ConvertCollection(rec, existing)

	entityChanged := !converted.LenientEquals(existing)
	staffDiff, ok := f.reconcileStaff(ctx, rec, existing.Contacts, existing.Key, result)
	if !ok {
		staffDiff = &StaffDiffResult{}
	}

	if entityChanged || !staffDiff.Empty() {
		result.CollectionUpdates = append(result.CollectionUpdates, CollectionUpdate{
			Old:           existing,
			New:           converted,
			EntityChanged: entityChanged,
			Staff:         staffDiff,
		})
	} else {
		result.CollectionsNoChange = append(result.CollectionsNoChange, existing)
	}
}

func (f *DiffFinder) create(ctx context.Context, rec ih.Institution, result *DiffResult) {
	converted, err := f.converter.ConvertInstitution(rec, nil)
	if err != nil {
		result.Conflicts = append(result.Conflicts, ConflictRecord{
			IRN:    rec.IRN.String(),
			Code:   rec.Code,
			Name:   rec.Organization,
			Reason: fmt.Sprintf("conversion failed: %v", err),
		})
		return
	}

	staff, err := f.staff.FetchStaff(ctx, rec.Code)
	if err != nil {
		log.Printf("[SYNC] staff fetch failed for new institution %s: %v", rec.Code, err)
		result.FetchFailures = append(result.FetchFailures, FailedAction{
			Entity:  rec.Organization,
			Message: fmt.Sprintf("staff fetch failed: %v", err),
		})
	}
	for _, s := range staff {
		converted.Contacts = append(converted.Contacts, *f.converter.ConvertPerson(s, nil))
	}

	result.InstitutionsToCreate = append(result.InstitutionsToCreate, converted)
}

// reconcileStaff fetches the record's staff and runs the staff diff against
// the entity's current contacts. A failed fetch skips staff reconciliation
// for this record; it must never look like a mass deletion.
func (f *DiffFinder) reconcileStaff(ctx context.Context, rec ih.Institution, contacts []entities.Person, entityKey uuid.UUID, result *DiffResult) (*StaffDiffResult, bool) {
	staff, err := f.staff.FetchStaff(ctx, rec.Code)
	if err != nil {
		log.Printf("[SYNC] staff fetch failed for %s: %v", rec.Code, err)
		result.FetchFailures = append(result.FetchFailures, FailedAction{
			EntityKey: entityKey,
			Entity:    rec.Organization,
			Message:   fmt.Sprintf("staff fetch failed: %v", err),
		})
		return nil, false
	}
	return f.staffDiff.Reconcile(staff, contacts), true
}

func (f *DiffFinder) outdated(modified time.Time, modifiedBy string, rec ih.Institution) bool {
	recModified, ok := rec.ModifiedDate()
	if !ok {
		return false
	}
	return modified.After(recModified) && modifiedBy != f.migrationActor
}

// pool is the claimable working set of one entity kind. Claimed entries
// stay out of every later lookup in the run.
type pool[T interface {
	EntityKey() uuid.UUID
	HasIdentifier(idType, value string) bool
}] struct {
	items   []T
	claimed []bool
}

func newPool[T interface {
	EntityKey() uuid.UUID
	HasIdentifier(idType, value string) bool
}](items []T) *pool[T] {
	return &pool[T]{items: items, claimed: make([]bool, len(items))}
}

func (p *pool[T]) matchIdentifier(encoded string) []int {
	var matches []int
	for i, item := range p.items {
		if p.claimed[i] {
			continue
		}
		if item.HasIdentifier(entities.IdentifierTypeIHIRN, encoded) {
			matches = append(matches, i)
		}
	}
	return matches
}

func (p *pool[T]) claim(idx int) T {
	p.claimed[idx] = true
	return p.items[idx]
}
