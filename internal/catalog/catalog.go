// Package catalog holds the read-only course snapshot the planner consumes.
// Records carry already-parsed requirement trees; the planner never re-parses
// catalog text.
package catalog

import (
	"sort"

	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/requirement"
)

// Accessor looks up course records by identifier.
type Accessor interface {
	Lookup(id course.ID) (*Record, bool)
}

// Record describes a single course.
type Record struct {
	ID             course.ID `json:"id" yaml:"id"`
	Department     string    `json:"department_code" yaml:"department_code"`
	DepartmentName string    `json:"department_name,omitempty" yaml:"department_name,omitempty"`
	Number         string    `json:"number" yaml:"number"`
	Title          string    `json:"title,omitempty" yaml:"title,omitempty"`
	Units          string    `json:"units,omitempty" yaml:"units,omitempty"`
	Description    string    `json:"description,omitempty" yaml:"description,omitempty"`
	Restriction    string    `json:"restriction,omitempty" yaml:"restriction,omitempty"`
	GradingOption  string    `json:"grading_option,omitempty" yaml:"grading_option,omitempty"`

	Prerequisite              *requirement.Expr `json:"prerequisite_courses,omitempty" yaml:"prerequisite_courses,omitempty"`
	Corequisite               *requirement.Expr `json:"corequisite_courses,omitempty" yaml:"corequisite_courses,omitempty"`
	PrerequisiteOrCorequisite *requirement.Expr `json:"prerequisite_or_corequisite_courses,omitempty" yaml:"prerequisite_or_corequisite_courses,omitempty"`

	// Notes records requirement text that could not be parsed.
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Department is a code/name pair for listing.
type Department struct {
	Code string `json:"code" yaml:"code"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Catalog is an immutable snapshot of course records. It is safe for
// concurrent readers.
type Catalog struct {
	records     map[course.ID]*Record
	order       []course.ID
	departments *Departments
}

// New builds a catalog from records. Later records with the same id replace
// earlier ones.
func New(records []*Record, departments *Departments) *Catalog {
	if departments == nil {
		departments = NewDepartments(nil, nil, nil)
	}
	c := &Catalog{
		records:     make(map[course.ID]*Record, len(records)),
		departments: departments,
	}
	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, exists := c.records[rec.ID]; !exists {
			c.order = append(c.order, rec.ID)
		}
		c.records[rec.ID] = rec
		if rec.Department != "" {
			departments.AddKnown(rec.Department)
		}
	}
	return c
}

// Lookup implements Accessor.
func (c *Catalog) Lookup(id course.ID) (*Record, bool) {
	if c == nil {
		return nil, false
	}
	rec, ok := c.records[id]
	return rec, ok
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// IDs returns course identifiers in catalog order.
func (c *Catalog) IDs() []course.ID {
	out := make([]course.ID, len(c.order))
	copy(out, c.order)
	return out
}

// DepartmentTable exposes the remap/known table used to ingest the catalog.
func (c *Catalog) DepartmentTable() *Departments {
	return c.departments
}

// Departments lists the departments that own at least one record, sorted by
// code.
func (c *Catalog) Departments() []Department {
	byCode := map[string]Department{}
	for _, id := range c.order {
		rec := c.records[id]
		dept := Department{Code: rec.Department, Name: rec.DepartmentName}
		if existing, ok := byCode[dept.Code]; ok && existing.Name != "" {
			continue
		}
		byCode[dept.Code] = dept
	}
	out := make([]Department, 0, len(byCode))
	for _, dept := range byCode {
		out = append(out, dept)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CoursesIn returns the records of one department in catalog order.
func (c *Catalog) CoursesIn(code string) []*Record {
	code = c.departments.Canonical(code)
	var out []*Record
	for _, id := range c.order {
		if rec := c.records[id]; rec.Department == code {
			out = append(out, rec)
		}
	}
	return out
}
