package catalog

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/requirement"
)

var courseNumberPattern = regexp.MustCompile(`^[A-Z]?[0-9]+[A-Z]*$`)

// DefaultRemap rewrites department codes that appear in requirement text under
// an older or abbreviated name.
var DefaultRemap = map[string]string{
	"ICS": "I&C SCI",
	"CS":  "COMPSCI",
}

// Departments decides which department codes a requirement token may use.
type Departments struct {
	remap   map[string]string
	known   map[string]struct{}
	retired map[string]struct{}
}

// NewDepartments builds the table. Remap keys and values are normalized;
// retired codes are accepted in requirements even when no catalog record
// belongs to them anymore.
func NewDepartments(remap map[string]string, known, retired []string) *Departments {
	d := &Departments{
		remap:   make(map[string]string, len(remap)),
		known:   make(map[string]struct{}, len(known)),
		retired: make(map[string]struct{}, len(retired)),
	}
	for from, to := range remap {
		from, to = normalizeCode(from), normalizeCode(to)
		if from == "" || to == "" {
			continue
		}
		d.remap[from] = to
	}
	for _, code := range known {
		d.AddKnown(code)
	}
	for _, code := range retired {
		if code = normalizeCode(code); code != "" {
			d.retired[code] = struct{}{}
		}
	}
	return d
}

// Clone returns an independent copy so ingestion can register departments
// without mutating a shared table.
func (d *Departments) Clone() *Departments {
	if d == nil {
		return NewDepartments(nil, nil, nil)
	}
	c := &Departments{
		remap:   make(map[string]string, len(d.remap)),
		known:   make(map[string]struct{}, len(d.known)),
		retired: make(map[string]struct{}, len(d.retired)),
	}
	for k, v := range d.remap {
		c.remap[k] = v
	}
	for k := range d.known {
		c.known[k] = struct{}{}
	}
	for k := range d.retired {
		c.retired[k] = struct{}{}
	}
	return c
}

// AddKnown registers a live department code.
func (d *Departments) AddKnown(code string) {
	if code = normalizeCode(code); code != "" {
		d.known[code] = struct{}{}
	}
}

// Canonical applies the remap table to a department code.
func (d *Departments) Canonical(code string) string {
	code = normalizeCode(code)
	if d == nil {
		return code
	}
	if mapped, ok := d.remap[code]; ok {
		return mapped
	}
	return code
}

// Accepts reports whether a (canonical) code is known or retired.
func (d *Departments) Accepts(code string) bool {
	if d == nil {
		return true
	}
	if _, ok := d.known[code]; ok {
		return true
	}
	_, ok := d.retired[code]
	return ok
}

// NormalizeID rewrites the department part of an identifier through the
// remap table. Identifiers that do not split into department and number are
// only whitespace-normalized.
func (d *Departments) NormalizeID(raw string) course.ID {
	dept, num, ok := course.Parse(raw)
	if !ok {
		return course.ID(course.Normalize(raw))
	}
	return course.Make(d.Canonical(dept), strings.ToUpper(num))
}

// Known returns the live department codes in sorted order.
func (d *Departments) Known() []string {
	out := make([]string, 0, len(d.known))
	for code := range d.known {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Validator returns a requirement.Validator that accepts syntactically valid
// course identifiers whose department is known or retired after remapping.
func (d *Departments) Validator() requirement.Validator {
	return func(token string) (course.ID, bool) {
		dept, num, ok := course.Parse(token)
		if !ok {
			return "", false
		}
		num = strings.ToUpper(num)
		if !courseNumberPattern.MatchString(num) {
			return "", false
		}
		dept = d.Canonical(dept)
		if !d.Accepts(dept) {
			return "", false
		}
		return course.Make(dept, num), true
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(course.Normalize(code))
}
