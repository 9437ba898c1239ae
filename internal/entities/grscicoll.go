package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// IdentifierTypeIHIRN marks identifiers that carry an encoded Index
// Herbariorum IRN. At most one identifier with this type and a given value
// may exist on an entity.
const IdentifierTypeIHIRN = "IH_IRN"

// Identifier is a typed key-value pair attached to an institution,
// collection or person.
type Identifier struct {
	Type  string `json:"type"`
	Value string `json:"identifier"`
}

// Address is a structured postal or physical address. Country holds an
// ISO 3166-1 alpha-2 code, empty when unknown.
type Address struct {
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsEmpty reports whether every field of the address is blank.
func (a *Address) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.Address == "" && a.City == "" && a.Province == "" && a.PostalCode == "" && a.Country == ""
}

// Equal compares two addresses field by field, treating nil as empty.
func (a *Address) Equal(b *Address) bool {
	if a.IsEmpty() && b.IsEmpty() {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}

// Person is a contact attached to exactly one institution or collection.
type Person struct {
	Key            uuid.UUID    `json:"key,omitempty"`
	FirstName      string       `json:"firstName,omitempty"`
	LastName       string       `json:"lastName,omitempty"`
	Position       string       `json:"position,omitempty"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Fax            string       `json:"fax,omitempty"`
	MailingAddress *Address     `json:"mailingAddress,omitempty"`
	Identifiers    []Identifier `json:"identifiers,omitempty"`
	ModifiedBy     string       `json:"modifiedBy,omitempty"`
	Modified       time.Time    `json:"modified,omitempty"`
}

// HasIdentifier reports whether the person carries an identifier with the
// given type and value.
func (p *Person) HasIdentifier(idType, value string) bool {
	return hasIdentifier(p.Identifiers, idType, value)
}

// AddIdentifierIfAbsent appends the identifier unless an equal one is
// already present.
func (p *Person) AddIdentifierIfAbsent(id Identifier) {
	if !p.HasIdentifier(id.Type, id.Value) {
		p.Identifiers = append(p.Identifiers, id)
	}
}

// LenientEquals compares the business fields of two persons, ignoring
// keys and audit metadata.
func (p *Person) LenientEquals(o *Person) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.FirstName == o.FirstName &&
		p.LastName == o.LastName &&
		p.Position == o.Position &&
		p.Email == o.Email &&
		p.Phone == o.Phone &&
		p.Fax == o.Fax &&
		p.MailingAddress.Equal(o.MailingAddress) &&
		identifiersEqual(p.Identifiers, o.Identifiers)
}

// Institution is a GrSciColl institution.
type Institution struct {
	Key             uuid.UUID    `json:"key,omitempty"`
	Code            string       `json:"code,omitempty"`
	Name            string       `json:"name,omitempty"`
	Description     string       `json:"description,omitempty"`
	Homepage        string       `json:"homepage,omitempty"`
	Latitude        *float64     `json:"latitude,omitempty"`
	Longitude       *float64     `json:"longitude,omitempty"`
	NumberSpecimens int          `json:"numberSpecimens,omitempty"`
	Email           []string     `json:"email,omitempty"`
	Phone           []string     `json:"phone,omitempty"`
	Address         *Address     `json:"address,omitempty"`
	MailingAddress  *Address     `json:"mailingAddress,omitempty"`
	Identifiers     []Identifier `json:"identifiers,omitempty"`
	Contacts        []Person     `json:"contacts,omitempty"`
	CreatedBy       string       `json:"createdBy,omitempty"`
	ModifiedBy      string       `json:"modifiedBy,omitempty"`
	Created         time.Time    `json:"created,omitempty"`
	Modified        time.Time    `json:"modified,omitempty"`
}

// Collection is a GrSciColl collection. Unlike institutions it has no
// geolocation or specimen count of its own in this sync scope.
type Collection struct {
	Key            uuid.UUID    `json:"key,omitempty"`
	Code           string       `json:"code,omitempty"`
	Name           string       `json:"name,omitempty"`
	Description    string       `json:"description,omitempty"`
	Homepage       string       `json:"homepage,omitempty"`
	Email          []string     `json:"email,omitempty"`
	Phone          []string     `json:"phone,omitempty"`
	Address        *Address     `json:"address,omitempty"`
	MailingAddress *Address     `json:"mailingAddress,omitempty"`
	Identifiers    []Identifier `json:"identifiers,omitempty"`
	Contacts       []Person     `json:"contacts,omitempty"`
	CreatedBy      string       `json:"createdBy,omitempty"`
	ModifiedBy     string       `json:"modifiedBy,omitempty"`
	Created        time.Time    `json:"created,omitempty"`
	Modified       time.Time    `json:"modified,omitempty"`
}

// EntityKey implements the shared entity surface used by the diff finder's
// working pools; both entity kinds also expose HasIdentifier below.
func (i *Institution) EntityKey() uuid.UUID { return i.Key }

func (c *Collection) EntityKey() uuid.UUID { return c.Key }

// HasIdentifier reports whether the institution carries the identifier.
func (i *Institution) HasIdentifier(idType, value string) bool {
	return hasIdentifier(i.Identifiers, idType, value)
}

// AddIdentifierIfAbsent appends the identifier unless already present.
func (i *Institution) AddIdentifierIfAbsent(id Identifier) {
	if !i.HasIdentifier(id.Type, id.Value) {
		i.Identifiers = append(i.Identifiers, id)
	}
}

// HasIdentifier reports whether the collection carries the identifier.
func (c *Collection) HasIdentifier(idType, value string) bool {
	return hasIdentifier(c.Identifiers, idType, value)
}

// AddIdentifierIfAbsent appends the identifier unless already present.
func (c *Collection) AddIdentifierIfAbsent(id Identifier) {
	if !c.HasIdentifier(id.Type, id.Value) {
		c.Identifiers = append(c.Identifiers, id)
	}
}

// LenientEquals compares business fields of two institutions. Keys, audit
// metadata and contacts are ignored; contacts are reconciled separately.
func (i *Institution) LenientEquals(o *Institution) bool {
	if i == nil || o == nil {
		return i == o
	}
	return i.Code == o.Code &&
		i.Name == o.Name &&
		i.Description == o.Description &&
		i.Homepage == o.Homepage &&
		floatPtrEqual(i.Latitude, o.Latitude) &&
		floatPtrEqual(i.Longitude, o.Longitude) &&
		i.NumberSpecimens == o.NumberSpecimens &&
		stringSlicesEqual(i.Email, o.Email) &&
		stringSlicesEqual(i.Phone, o.Phone) &&
		i.Address.Equal(o.Address) &&
		i.MailingAddress.Equal(o.MailingAddress) &&
		identifiersEqual(i.Identifiers, o.Identifiers)
}

// LenientEquals compares business fields of two collections.
func (c *Collection) LenientEquals(o *Collection) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.Code == o.Code &&
		c.Name == o.Name &&
		c.Description == o.Description &&
		c.Homepage == o.Homepage &&
		stringSlicesEqual(c.Email, o.Email) &&
		stringSlicesEqual(c.Phone, o.Phone) &&
		c.Address.Equal(o.Address) &&
		c.MailingAddress.Equal(o.MailingAddress) &&
		identifiersEqual(c.Identifiers, o.Identifiers)
}

func hasIdentifier(ids []Identifier, idType, value string) bool {
	for _, id := range ids {
		if id.Type == idType && strings.EqualFold(id.Value, value) {
			return true
		}
	}
	return false
}

func identifiersEqual(a, b []Identifier) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
