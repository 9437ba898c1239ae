package sync

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/grscicoll/ihsync/internal/countries"
	"github.com/grscicoll/ihsync/internal/entities"
	"github.com/grscicoll/ihsync/internal/ih"
)

func testConverter() *Converter {
	return NewConverter(countries.DefaultMatcher())
}

func TestConvertInstitution_New(t *testing.T) {
	lat, lon := 51.5, -0.1
	rec := ih.Institution{
		IRN:           json.Number("123"),
		Organization:  "Acme Herbarium",
		Code:          "ACME",
		SpecimenTotal: 5000,
		Location:      ih.Location{Lat: &lat, Lon: &lon},
		Address: ih.Address{
			PhysicalCity:    "London",
			PhysicalCountry: "U.K.",
			PostalStreet:    "1 Main St",
			PostalCountry:   "United Kingdom",
		},
		Contact: ih.Contact{
			Email:  "a@acme.org\nb@acme.org",
			Phone:  "+44 1, +44 2",
			WebURL: "http://acme.org; http://mirror.acme.org",
		},
	}

	got, err := testConverter().ConvertInstitution(rec, nil)
	if err != nil {
		t.Fatalf("ConvertInstitution failed: %v", err)
	}

	if got.Name != "Acme Herbarium" || got.Code != "ACME" {
		t.Errorf("unexpected name/code: %q %q", got.Name, got.Code)
	}
	if got.NumberSpecimens != 5000 {
		t.Errorf("unexpected specimen count %d", got.NumberSpecimens)
	}
	if got.Latitude == nil || *got.Latitude != 51.5 {
		t.Errorf("unexpected latitude %v", got.Latitude)
	}

	// The manual override table must resolve "U.K.", not the generic
	// heuristics.
	if got.Address == nil || got.Address.Country != "GB" {
		t.Errorf("expected physical country GB, got %+v", got.Address)
	}
	if got.MailingAddress == nil || got.MailingAddress.Country != "GB" {
		t.Errorf("expected postal country GB, got %+v", got.MailingAddress)
	}

	if len(got.Email) != 2 || got.Email[0] != "a@acme.org" || got.Email[1] != "b@acme.org" {
		t.Errorf("unexpected emails %v", got.Email)
	}
	if len(got.Phone) != 2 || got.Phone[1] != "+44 2" {
		t.Errorf("unexpected phones %v", got.Phone)
	}
	if got.Homepage != "http://acme.org" {
		t.Errorf("unexpected homepage %q", got.Homepage)
	}

	if !got.HasIdentifier(entities.IdentifierTypeIHIRN, "gbif:ih:irn:123") {
		t.Errorf("expected encoded IRN identifier, got %v", got.Identifiers)
	}
}

func TestConvertInstitution_MergePreservesRegistryFields(t *testing.T) {
	key := uuid.New()
	existing := &entities.Institution{
		Key:         key,
		Code:        "OLD",
		Name:        "Old Name",
		Description: "kept by the registry",
		CreatedBy:   "someone",
		Created:     time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		Identifiers: []entities.Identifier{
			{Type: "LSID", Value: "urn:lsid:example"},
			{Type: entities.IdentifierTypeIHIRN, Value: "gbif:ih:irn:123"},
		},
	}

	rec := ih.Institution{IRN: json.Number("123"), Organization: "New Name", Code: "NEW"}

	got, err := testConverter().ConvertInstitution(rec, existing)
	if err != nil {
		t.Fatalf("ConvertInstitution failed: %v", err)
	}

	if got.Key != key || got.Description != "kept by the registry" || got.CreatedBy != "someone" {
		t.Errorf("registry-only fields not preserved: %+v", got)
	}
	if got.Name != "New Name" || got.Code != "NEW" {
		t.Errorf("IH-owned fields not overwritten: %q %q", got.Name, got.Code)
	}

	// Add-if-absent: the IRN identifier must not be duplicated.
	count := 0
	for _, id := range got.Identifiers {
		if id.Type == entities.IdentifierTypeIHIRN && id.Value == "gbif:ih:irn:123" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one IRN identifier, got %d", count)
	}

	// The input entity must not have been mutated.
	if existing.Name != "Old Name" {
		t.Errorf("existing entity was mutated: %q", existing.Name)
	}
}

func TestConvertInstitution_SpecimenOverflow(t *testing.T) {
	rec := ih.Institution{
		IRN:           json.Number("123"),
		Code:          "BIG",
		SpecimenTotal: int64(math.MaxInt32) + 1,
	}
	if _, err := testConverter().ConvertInstitution(rec, nil); err == nil {
		t.Fatal("expected overflow error")
	} else if !strings.Contains(err.Error(), "overflow") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestConvertPerson_MergePreservesAbsentFields(t *testing.T) {
	existing := &entities.Person{
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

	got := testConverter().ConvertPerson(rec, existing)

	if got.Phone != "555" {
		t.Errorf("absent external phone must preserve existing value, got %q", got.Phone)
	}
	if !got.LenientEquals(existing) {
		t.Errorf("expected lenient equality, got %+v vs %+v", got, existing)
	}
}

func TestConvertPerson_FullName(t *testing.T) {
	got := testConverter().ConvertPerson(ih.Staff{
		FirstName:  " Jane ",
		MiddleName: "Q",
		LastName:   "Doe",
	}, nil)
	if got.FirstName != "Jane Q" {
		t.Errorf("expected %q, got %q", "Jane Q", got.FirstName)
	}

	got = testConverter().ConvertPerson(ih.Staff{LastName: "Doe"}, nil)
	if got.FirstName != "" {
		t.Errorf("expected empty first name, got %q", got.FirstName)
	}
}

func TestFirstHomepage(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"http://acme.org", "http://acme.org"},
		{"http://a.org, http://b.org", "http://a.org"},
		{"http://a.org;http://b.org", "http://a.org"},
		{"acme.org/herbarium", "http://acme.org/herbarium"},
		{"http://a.org\nhttp://b.org", "http://a.org"},
		{"not a url at all", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := firstHomepage(tt.input); got != tt.want {
			t.Errorf("firstHomepage(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSplitMultiValue(t *testing.T) {
	got := splitMultiValue(" a@x.org ,\nb@x.org\r\n c@x.org,")
	want := []string{"a@x.org", "b@x.org", "c@x.org"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("value %d: got %q, want %q", i, got[i], want[i])
		}
	}
	if splitMultiValue("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestConvertCollection_UnmappedCountryLeftAbsent(t *testing.T) {
	rec := ih.Institution{
		IRN:     json.Number("7"),
		Code:    "X",
		Address: ih.Address{PhysicalCity: "Nowhere", PhysicalCountry: "Atlantis"},
	}
	got := testConverter().ConvertCollection(rec, nil)
	if got.Address == nil || got.Address.Country != "" {
		t.Errorf("unmapped country must stay absent, got %+v", got.Address)
	}
	if got.Address.City != "Nowhere" {
		t.Errorf("city should survive unmapped country, got %+v", got.Address)
	}
}
