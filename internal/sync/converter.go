package sync

import (
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"

	"github.com/grscicoll/ihsync/internal/countries"
	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
)

// irnIdentifierTemplate is the canonical encoding for IH IRNs stored on
// registry entities. Stored identifiers and lookup keys must agree
// bit-for-bit, so every encode goes through EncodeIRN.
const irnIdentifierTemplate = "gbif:ih:irn:%s"

// EncodeIRN wraps a raw IH IRN in the identifier template.
func EncodeIRN(irn string) string {
	return fmt.Sprintf(irnIdentifierTemplate, irn)
}

// Converter transforms Index Herbariorum records into registry entities.
// When an existing entity is supplied the result starts as a copy of it, so
// registry-only fields survive, and only the fields IH owns are overwritten.
type Converter struct {
	countries *countries.Matcher
}

// NewConverter creates a converter using the given country matcher.
func NewConverter(matcher *countries.Matcher) *Converter {
	return &Converter{countries: matcher}
}

// ConvertInstitution builds the registry institution for an IH record.
// existing may be nil for the create path. The only error is specimen-count
// overflow, which indicates a data-integrity problem worth stopping this
// record on.
func (c *Converter) ConvertInstitution(rec ih.Institution, existing *entities.Institution) (*entities.Institution, error) {
	out := cloneInstitution(existing)

	specimens, err := narrowSpecimenCount(rec.SpecimenTotal)
	if err != nil {
		return nil, fmt.Errorf("institution %s (IRN %s): %w", rec.Code, rec.IRN, err)
	}

	out.Name = strings.TrimSpace(rec.Organization)
	out.Code = strings.TrimSpace(rec.Code)
	out.NumberSpecimens = specimens
	out.Latitude = copyFloat(rec.Location.Lat)
	out.Longitude = copyFloat(rec.Location.Lon)
	out.Address = c.physicalAddress(rec.Address)
	out.MailingAddress = c.postalAddress(rec.Address)
	out.Email = splitMultiValue(rec.Contact.Email)
	out.Phone = splitMultiValue(rec.Contact.Phone)
	out.Homepage = firstHomepage(rec.Contact.WebURL)
	if irn := rec.IRN.String(); irn != "" {
		out.AddIdentifierIfAbsent(entities.Identifier{
			Type:  entities.IdentifierTypeIHIRN,
			Value: EncodeIRN(irn),
		})
	}
	return out, nil
}

// ConvertCollection builds the registry collection for an IH record.
// Collections carry no specimen count or geolocation in this sync.
func (c *Converter) ConvertCollection(rec ih.Institution, existing *entities.Collection) *entities.Collection {
	out := cloneCollection(existing)

	out.Name = strings.TrimSpace(rec.Organization)
	out.Code = strings.TrimSpace(rec.Code)
	out.Address = c.physicalAddress(rec.Address)
	out.MailingAddress = c.postalAddress(rec.Address)
	out.Email = splitMultiValue(rec.Contact.Email)
	out.Phone = splitMultiValue(rec.Contact.Phone)
	out.Homepage = firstHomepage(rec.Contact.WebURL)
	if irn := rec.IRN.String(); irn != "" {
		out.AddIdentifierIfAbsent(entities.Identifier{
			Type:  entities.IdentifierTypeIHIRN,
			Value: EncodeIRN(irn),
		})
	}
	return out
}

// ConvertPerson builds the registry contact for an IH staff record,
// merging onto existing when supplied. Staff records are sparse, so a field
// the record does not supply preserves the existing value instead of
// clearing it.
func (c *Converter) ConvertPerson(rec ih.Staff, existing *entities.Person) *entities.Person {
	out := clonePerson(existing)

	setIfPresent(&out.FirstName, buildFirstName(rec.FirstName, rec.MiddleName))
	setIfPresent(&out.LastName, strings.TrimSpace(rec.LastName))
	setIfPresent(&out.Position, strings.TrimSpace(rec.Position))
	setIfPresent(&out.Email, firstValue(rec.Contact.Email))
	setIfPresent(&out.Phone, firstValue(rec.Contact.Phone))
	setIfPresent(&out.Fax, firstValue(rec.Contact.Fax))
	if addr := c.staffAddress(rec.Address); addr != nil {
		out.MailingAddress = addr
	}
	if irn := rec.IRN.String(); irn != "" {
		out.AddIdentifierIfAbsent(entities.Identifier{
			Type:  entities.IdentifierTypeIHIRN,
			Value: EncodeIRN(irn),
		})
	}
	return out
}

func setIfPresent(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// buildFirstName joins first and middle name with a single space. An empty
// result stays empty rather than holding whitespace.
func buildFirstName(first, middle string) string {
	parts := make([]string, 0, 2)
	if v := strings.TrimSpace(first); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(middle); v != "" {
		parts = append(parts, v)
	}
	return strings.Join(parts, " ")
}

func (c *Converter) physicalAddress(a ih.Address) *entities.Address {
	return c.address(a.PhysicalStreet, a.PhysicalCity, a.PhysicalState, a.PhysicalZipCode, a.PhysicalCountry)
}

func (c *Converter) postalAddress(a ih.Address) *entities.Address {
	return c.address(a.PostalStreet, a.PostalCity, a.PostalState, a.PostalZipCode, a.PostalCountry)
}

func (c *Converter) staffAddress(a ih.StaffAddress) *entities.Address {
	return c.address(a.Street, a.City, a.State, a.ZipCode, a.Country)
}

func (c *Converter) address(street, city, state, zip, country string) *entities.Address {
	out := &entities.Address{
		Address:    strings.TrimSpace(street),
		City:       strings.TrimSpace(city),
		Province:   strings.TrimSpace(state),
		PostalCode: strings.TrimSpace(zip),
	}
	if raw := strings.TrimSpace(country); raw != "" {
		if match, ok := c.countries.Match(raw); ok {
			out.Country = match.Code
		} else {
			// Coverage gap: never fabricate a country.
			log.Printf("[SYNC] no country mapping for %q", raw)
		}
	}
	if out.IsEmpty() {
		return nil
	}
	return out
}

// splitMultiValue splits a comma- or newline-delimited field into trimmed
// values. Newlines are normalized to commas first.
func splitMultiValue(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", ",")
	raw = strings.ReplaceAll(raw, "\n", ",")
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// firstValue returns the first entry of a delimited multi-value field.
func firstValue(raw string) string {
	values := splitMultiValue(raw)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// firstHomepage extracts the first URL-like value from the webUrl field.
// Unparseable values are logged and dropped, never fatal.
func firstHomepage(raw string) string {
	raw = strings.ReplaceAll(raw, ";", ",")
	raw = strings.ReplaceAll(raw, "\r\n", ",")
	raw = strings.ReplaceAll(raw, "\n", ",")
	first := strings.TrimSpace(strings.SplitN(raw, ",", 2)[0])
	if first == "" {
		return ""
	}

	// Collapse internal whitespace before parsing.
	first = strings.Join(strings.Fields(first), " ")

	candidate := first
	if !strings.Contains(candidate, "://") {
		candidate = "http://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" || strings.ContainsAny(u.Host, " ") {
		log.Printf("[SYNC] could not parse homepage %q", first)
		return ""
	}
	return u.String()
}

// narrowSpecimenCount narrows the IH specimen total to the registry's
// 32-bit field. Overflow is a hard error; silent truncation would corrupt
// specimen statistics.
func narrowSpecimenCount(v int64) (int, error) {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, fmt.Errorf("specimen count %d overflows 32-bit integer", v)
	}
	return int(v), nil
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyAddress(a *entities.Address) *entities.Address {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}

func cloneInstitution(in *entities.Institution) *entities.Institution {
	if in == nil {
		return &entities.Institution{}
	}
	out := *in
	out.Email = append([]string(nil), in.Email...)
	out.Phone = append([]string(nil), in.Phone...)
	out.Identifiers = append([]entities.Identifier(nil), in.Identifiers...)
	out.Contacts = append([]entities.Person(nil), in.Contacts...)
	out.Address = copyAddress(in.Address)
	out.MailingAddress = copyAddress(in.MailingAddress)
	out.Latitude = copyFloat(in.Latitude)
	out.Longitude = copyFloat(in.Longitude)
	return &out
}

func cloneCollection(in *entities.Collection) *entities.Collection {
	if in == nil {
		return &entities.Collection{}
	}
	out := *in
	out.Email = append([]string(nil), in.Email...)
	out.Phone = append([]string(nil), in.Phone...)
	out.Identifiers = append([]entities.Identifier(nil), in.Identifiers...)
	out.Contacts = append([]entities.Person(nil), in.Contacts...)
	out.Address = copyAddress(in.Address)
	out.MailingAddress = copyAddress(in.MailingAddress)
	return &out
}

func clonePerson(in *entities.Person) *entities.Person {
	if in == nil {
		return &entities.Person{}
	}
	out := *in
	out.Identifiers = append([]entities.Identifier(nil), in.Identifiers...)
	out.MailingAddress = copyAddress(in.MailingAddress)
	return &out
}
