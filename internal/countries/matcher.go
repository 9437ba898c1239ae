// Package countries maps the free-text country strings found in Index
// Herbariorum records to canonical ISO 3166-1 countries.
package countries

import (
	"strings"
)

// Country is one canonical country: an ISO 3166-1 alpha-2 code and the
// display title used for fuzzy matching.
type Country struct {
	Code  string
	Title string
}

// Matcher resolves raw country strings against a canonical country set.
// The manual override table takes priority over every generic heuristic:
// some aliases ("U.K.", "Ivory Coast") would otherwise resolve wrongly or
// not at all.
type Matcher struct {
	countries []Country
	byCode    map[string]Country
	overrides map[string]string // normalized alias -> ISO code
}

// NewMatcher builds a matcher over the given canonical set and override
// table. Override keys are free-text aliases, values are ISO codes.
func NewMatcher(countries []Country, overrides map[string]string) *Matcher {
	m := &Matcher{
		countries: countries,
		byCode:    make(map[string]Country, len(countries)),
		overrides: make(map[string]string, len(overrides)),
	}
	for _, c := range countries {
		m.byCode[strings.ToUpper(c.Code)] = c
	}
	for alias, code := range overrides {
		m.overrides[normalizeAlias(alias)] = strings.ToUpper(code)
	}
	return m
}

// DefaultMatcher returns a matcher over the embedded ISO table and the
// curated override list.
func DefaultMatcher() *Matcher {
	return NewMatcher(All, DefaultOverrides)
}

// Match resolves a single raw country string. The boolean is false when no
// heuristic produced a mapping; callers must leave the field absent in that
// case rather than guessing.
func (m *Matcher) Match(raw string) (Country, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Country{}, false
	}

	// 1. Manual overrides win over everything below.
	if code, ok := m.overrides[normalizeAlias(value)]; ok {
		if c, ok := m.byCode[code]; ok {
			return c, true
		}
	}

	// 2. Exact ISO code.
	if c, ok := m.byCode[strings.ToUpper(value)]; ok {
		return c, true
	}

	// 3. ISO code with periods stripped ("U.S." style).
	stripped := strings.ToUpper(strings.ReplaceAll(value, ".", ""))
	if c, ok := m.byCode[stripped]; ok {
		return c, true
	}

	// 4. "Country, Region" forms: exact title match on the comma prefix.
	if idx := strings.Index(value, ","); idx > 0 {
		prefix := strings.TrimSpace(value[:idx])
		for _, c := range m.countries {
			if strings.EqualFold(c.Title, prefix) {
				return c, true
			}
		}
	}

	lower := strings.ToLower(value)

	// 5. First country whose title is contained in the input.
	for _, c := range m.countries {
		if strings.Contains(lower, strings.ToLower(c.Title)) {
			return c, true
		}
	}

	// 6. First country whose title contains the input.
	for _, c := range m.countries {
		if strings.Contains(strings.ToLower(c.Title), lower) {
			return c, true
		}
	}

	return Country{}, false
}

// MatchAll maps every distinct input string that could be resolved. Unmapped
// strings are returned separately so callers can report coverage gaps.
func (m *Matcher) MatchAll(values []string) (mapped map[string]Country, unmapped []string) {
	mapped = make(map[string]Country)
	seen := make(map[string]bool)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		if c, ok := m.Match(v); ok {
			mapped[v] = c
		} else {
			unmapped = append(unmapped, v)
		}
	}
	return mapped, unmapped
}

func normalizeAlias(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
