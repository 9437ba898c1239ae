package sync

import (
	"strings"

	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
)

// Field-similarity weights. Name and email dominate; partial agreement on
// minor fields alone never constitutes a match (see the score gate).
const (
	scoreName     = 4
	scoreEmail    = 4
	scorePhone    = 3
	scoreCountry  = 3
	scoreCity     = 2
	scorePosition = 2
	scoreFax      = 1
	scoreStreet   = 1
	scoreState    = 1
	scoreZip      = 1
)

// StaffDiffFinder reconciles one external staff list against one contact
// list. Contacts are consumed from a working pool as matches are claimed;
// leftovers become delete candidates.
type StaffDiffFinder struct {
	converter      *Converter
	migrationActor string
}

// NewStaffDiffFinder creates a staff diff finder. migrationActor is the
// reserved actor excluded from staleness comparisons.
func NewStaffDiffFinder(converter *Converter, migrationActor string) *StaffDiffFinder {
	return &StaffDiffFinder{converter: converter, migrationActor: migrationActor}
}

// Reconcile buckets every external staff record and every internal contact
// exactly once. It is pure: no contact is mutated, no call leaves the
// process.
func (f *StaffDiffFinder) Reconcile(staff []ih.Staff, contacts []entities.Person) *StaffDiffResult {
	result := &StaffDiffResult{}

	pool := make([]*entities.Person, len(contacts))
	for i := range contacts {
		p := contacts[i]
		pool[i] = &p
	}
	claimed := make([]bool, len(pool))

	for _, rec := range staff {
		encoded := EncodeIRN(rec.IRN.String())

		matches := f.irnMatches(encoded, pool, claimed)
		byIRN := len(matches) > 0
		if !byIRN {
			matches = f.fieldMatches(rec, pool, claimed)
		}

		switch len(matches) {
		case 0:
			result.ToCreate = append(result.ToCreate, f.converter.ConvertPerson(rec, nil))

		case 1:
			idx := matches[0]
			existing := pool[idx]
			claimed[idx] = true

			if f.outdated(existing, rec) {
				result.Conflicts = append(result.Conflicts, StaffConflict{
					Staff:   rec,
					Persons: []entities.Person{*existing},
					Reason:  "external staff record is outdated; contact modified more recently in the registry",
				})
				continue
			}

			converted := f.converter.ConvertPerson(rec, existing)
			if converted.LenientEquals(existing) {
				result.NoChange = append(result.NoChange, existing)
			} else {
				result.ToUpdate = append(result.ToUpdate, PersonUpdate{Old: existing, New: converted})
			}

		default:
			// Ambiguous match. All tied candidates are claimed so none of
			// them becomes a delete candidate while unresolved.
			tied := make([]entities.Person, 0, len(matches))
			for _, idx := range matches {
				claimed[idx] = true
				tied = append(tied, *pool[idx])
			}
			reason := "multiple contacts scored equally for this staff record"
			if byIRN {
				reason = "multiple contacts carry this staff record's IRN"
			}
			result.Conflicts = append(result.Conflicts, StaffConflict{
				Staff:   rec,
				Persons: tied,
				Reason:  reason,
			})
		}
	}

	for i, p := range pool {
		if !claimed[i] {
			result.ToDelete = append(result.ToDelete, p)
		}
	}

	return result
}

// irnMatches returns the unclaimed contacts carrying the encoded IRN.
func (f *StaffDiffFinder) irnMatches(encoded string, pool []*entities.Person, claimed []bool) []int {
	var matches []int
	for i, p := range pool {
		if claimed[i] {
			continue
		}
		if p.HasIdentifier(entities.IdentifierTypeIHIRN, encoded) {
			matches = append(matches, i)
		}
	}
	return matches
}

// fieldMatches returns the unclaimed contacts achieving the strictly
// maximum positive similarity score. Ties are kept as a set.
func (f *StaffDiffFinder) fieldMatches(rec ih.Staff, pool []*entities.Person, claimed []bool) []int {
	best := 0
	var matches []int
	for i, p := range pool {
		if claimed[i] {
			continue
		}
		score := f.score(rec, p)
		if score > best {
			best = score
			matches = []int{i}
		} else if score == best && score > 0 {
			matches = append(matches, i)
		}
	}
	return matches
}

// score computes the additive weighted field agreement between an external
// staff record and a contact. When neither name nor email agree the score
// is 0 regardless of other field agreement.
func (f *StaffDiffFinder) score(rec ih.Staff, p *entities.Person) int {
	score := 0

	externalName := buildFirstName(rec.FirstName, rec.MiddleName) + rec.LastName
	internalName := p.FirstName + p.LastName
	if equalNormalized(externalName, internalName) {
		score += scoreName
	}
	if equalNormalized(firstValue(rec.Contact.Email), p.Email) {
		score += scoreEmail
	}

	// Gate: without name or email agreement, nothing else counts.
	if score == 0 {
		return 0
	}

	if equalTrimmed(firstValue(rec.Contact.Phone), p.Phone) {
		score += scorePhone
	}
	if equalTrimmed(firstValue(rec.Contact.Fax), p.Fax) {
		score += scoreFax
	}
	if equalTrimmed(rec.Position, p.Position) {
		score += scorePosition
	}

	var addr entities.Address
	if p.MailingAddress != nil {
		addr = *p.MailingAddress
	}
	if country, ok := f.converter.countries.Match(rec.Address.Country); ok && addr.Country != "" && country.Code == addr.Country {
		score += scoreCountry
	}
	if equalTrimmed(rec.Address.City, addr.City) {
		score += scoreCity
	}
	if equalTrimmed(rec.Address.Street, addr.Address) {
		score += scoreStreet
	}
	if equalTrimmed(rec.Address.State, addr.Province) {
		score += scoreState
	}
	if equalTrimmed(rec.Address.ZipCode, addr.PostalCode) {
		score += scoreZip
	}

	return score
}

// outdated reports whether the contact was modified in the registry after
// the external record's last-modified date, by someone other than the
// migration actor.
func (f *StaffDiffFinder) outdated(p *entities.Person, rec ih.Staff) bool {
	modified, ok := rec.ModifiedDate()
	if !ok {
		return false
	}
	return p.Modified.After(modified) && p.ModifiedBy != f.migrationActor
}

// equalNormalized compares case-insensitively with all whitespace removed.
// Two empty values never agree.
func equalNormalized(a, b string) bool {
	na := normalize(a)
	nb := normalize(b)
	return na != "" && na == nb
}

// equalTrimmed compares trimmed values; two empty values never agree.
func equalTrimmed(a, b string) bool {
	ta := strings.TrimSpace(a)
	tb := strings.TrimSpace(b)
	return ta != "" && ta == tb
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}
