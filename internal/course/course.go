// Package course defines the canonical course identifier used as the key
// across the catalog, the dependency graph and schedules.
package course

import (
	"sort"
	"strings"
)

// ID is a canonical "<DEPARTMENT> <NUMBER>" identifier, e.g. "COMPSCI 111".
// Department codes may contain spaces ("I&C SCI 33").
type ID string

// Make joins a department code and a course number.
func Make(department, number string) ID {
	return ID(Normalize(department + " " + number))
}

// Normalize collapses runs of whitespace and trims the identifier.
func Normalize(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// Parse splits an identifier into department and number. The number is the
// last word; everything before it is the department.
func Parse(raw string) (department, number string, ok bool) {
	fields := strings.Fields(raw)
	if len(fields) < 2 {
		return "", "", false
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1], true
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Department returns the department part of the identifier.
func (id ID) Department() string {
	dept, _, _ := Parse(string(id))
	return dept
}

// Number returns the course number part of the identifier.
func (id ID) Number() string {
	_, num, _ := Parse(string(id))
	return num
}

// Sort orders identifiers lexicographically in place.
func Sort(ids []ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// Dedupe returns ids in first-seen order with duplicates and blanks removed.
func Dedupe(ids []ID) []ID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[ID]struct{}, len(ids))
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		id = ID(Normalize(string(id)))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Set is a membership set of identifiers.
type Set map[ID]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s Set) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in lexicographic order.
func (s Set) Sorted() []ID {
	out := make([]ID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	Sort(out)
	return out
}
