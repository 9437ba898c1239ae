package ih

import (
	"encoding/json"
	"strings"
	"time"
)

// dateModified values come back in a handful of formats depending on the
// record's age.
var modifiedLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// Institution is one herbarium record from the Index Herbariorum API.
type Institution struct {
	IRN           json.Number `json:"irn"`
	Organization  string      `json:"organization"`
	Code          string      `json:"code"`
	Division      string      `json:"division"`
	Department    string      `json:"department"`
	SpecimenTotal int64       `json:"specimenTotal"`
	Address       Address     `json:"address"`
	Contact       Contact     `json:"contact"`
	Location      Location    `json:"location"`
	DateModified  string      `json:"dateModified"`
}

// Address carries both the physical and the postal address block. Country
// fields are free text and must go through the country matcher.
type Address struct {
	PhysicalStreet  string `json:"physicalStreet"`
	PhysicalCity    string `json:"physicalCity"`
	PhysicalState   string `json:"physicalState"`
	PhysicalZipCode string `json:"physicalZipCode"`
	PhysicalCountry string `json:"physicalCountry"`
	PostalStreet    string `json:"postalStreet"`
	PostalCity      string `json:"postalCity"`
	PostalState     string `json:"postalState"`
	PostalZipCode   string `json:"postalZipCode"`
	PostalCountry   string `json:"postalCountry"`
}

// Contact carries the contact block. Email and phone may hold several
// values joined by commas or newlines.
type Contact struct {
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Fax    string `json:"fax"`
	WebURL string `json:"webUrl"`
}

// Location is the geolocation block.
type Location struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Staff is one staff record, fetched per institution code.
type Staff struct {
	IRN          json.Number  `json:"irn"`
	Code         string       `json:"code"`
	FirstName    string       `json:"firstName"`
	MiddleName   string       `json:"middleName"`
	LastName     string       `json:"lastName"`
	Position     string       `json:"position"`
	Address      StaffAddress `json:"address"`
	Contact      Contact      `json:"contact"`
	DateModified string       `json:"dateModified"`
}

// StaffAddress is the single address block on staff records.
type StaffAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// ModifiedDate parses the record's dateModified. The boolean is false when
// the field is missing or unparseable; such records never win a staleness
// comparison.
func (i Institution) ModifiedDate() (time.Time, bool) {
	return parseModified(i.DateModified)
}

// ModifiedDate parses the staff record's dateModified.
func (s Staff) ModifiedDate() (time.Time, bool) {
	return parseModified(s.DateModified)
}

func parseModified(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range modifiedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
