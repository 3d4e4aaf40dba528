package auth

import (
	"fmt"
	"strings"
)

// Scope is a permission gating one family of endpoints.
type Scope uint8

const (
	ScopeMessages Scope = iota
	ScopeContacts
	ScopeNotes
	ScopeStickies
	ScopeReminders
	ScopeLocations
	ScopeScreenshots
	ScopeJobs
	ScopeActivity

	scopeCount
)

var scopeNames = [scopeCount]string{
	ScopeMessages:    "messages",
	ScopeContacts:    "contacts",
	ScopeNotes:       "notes",
	ScopeStickies:    "stickies",
	ScopeReminders:   "reminders",
	ScopeLocations:   "locations",
	ScopeScreenshots: "screenshots",
	ScopeJobs:        "jobs",
	ScopeActivity:    "activity",
}

func (s Scope) String() string {
	if s < scopeCount {
		return scopeNames[s]
	}
	return fmt.Sprintf("scope(%d)", uint8(s))
}

// ParseScope maps a scope name to its Scope.
func ParseScope(name string) (Scope, error) {
	for i, n := range scopeNames {
		if n == name {
			return Scope(i), nil
		}
	}
	return 0, fmt.Errorf("unknown scope %q", name)
}

// MustParseScope is ParseScope for names fixed at compile time.
func MustParseScope(name string) Scope {
	s, err := ParseScope(name)
	if err != nil {
		panic(err)
	}
	return s
}

// ScopeSet is a set of scopes.
type ScopeSet uint16

// NewScopeSet builds a set from scopes.
func NewScopeSet(scopes ...Scope) ScopeSet {
	var s ScopeSet
	for _, sc := range scopes {
		s = s.Add(sc)
	}
	return s
}

// ParseScopeSet builds a set from scope names. Unknown names are an error.
func ParseScopeSet(names []string) (ScopeSet, error) {
	var s ScopeSet
	for _, n := range names {
		sc, err := ParseScope(strings.TrimSpace(n))
		if err != nil {
			return 0, err
		}
		s = s.Add(sc)
	}
	return s, nil
}

func (s ScopeSet) Add(sc Scope) ScopeSet {
	return s | 1<<sc
}

func (s ScopeSet) Has(sc Scope) bool {
	return sc < scopeCount && s&(1<<sc) != 0
}

// Names lists the scopes in declaration order.
func (s ScopeSet) Names() []string {
	var out []string
	for i := Scope(0); i < scopeCount; i++ {
		if s.Has(i) {
			out = append(out, i.String())
		}
	}
	return out
}

// AllScopes lists every known scope name.
func AllScopes() []string {
	return append([]string(nil), scopeNames[:]...)
}
