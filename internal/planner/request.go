package planner

import (
	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/course"
)

// Request is one scheduling call. Catalog is optional when the caller already
// holds a loaded catalog.
type Request struct {
	Catalog              []catalog.RawRecord `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	RequiredCourses      []course.ID         `json:"required_courses" yaml:"required_courses"`
	CompletedCourses     []course.ID         `json:"completed_courses,omitempty" yaml:"completed_courses,omitempty"`
	MaxCoursesPerQuarter int                 `json:"max_courses_per_quarter,omitempty" yaml:"max_courses_per_quarter,omitempty"`
	MaxCombinations      int                 `json:"max_combinations,omitempty" yaml:"max_combinations,omitempty"`
}

// Clone returns a copy that shares no slices with r. Catalog records are
// copied shallowly.
func (r Request) Clone() Request {
	clone := r
	if len(r.Catalog) > 0 {
		clone.Catalog = append([]catalog.RawRecord(nil), r.Catalog...)
	}
	clone.RequiredCourses = append([]course.ID(nil), r.RequiredCourses...)
	clone.CompletedCourses = append([]course.ID(nil), r.CompletedCourses...)
	return clone
}

// Validate checks the limits and that at least one course is required.
func (r Request) Validate() error {
	if len(r.RequiredCourses) == 0 {
		return apperrors.New(apperrors.KindInvalidRequest, "required_courses", "at least one required course is needed")
	}
	if r.MaxCoursesPerQuarter < 0 {
		return apperrors.New(apperrors.KindInvalidRequest, "max_courses_per_quarter", "must be positive, got %d", r.MaxCoursesPerQuarter)
	}
	if r.MaxCombinations < 0 {
		return apperrors.New(apperrors.KindInvalidRequest, "max_combinations", "must be positive, got %d", r.MaxCombinations)
	}
	return nil
}

// Normalized clones the request, rewrites course ids through depts (nil
// only normalizes whitespace), removes duplicates, validates it and then
// drops completed courses from the required list. When every required course
// is completed the result has an empty required list. Zero limits stay zero
// so the caller can apply its own defaults.
func (r Request) Normalized(depts *catalog.Departments) (Request, error) {
	clone := r.Clone()
	clone.RequiredCourses = normalizeIDs(clone.RequiredCourses, depts)
	clone.CompletedCourses = normalizeIDs(clone.CompletedCourses, depts)
	if err := clone.Validate(); err != nil {
		return Request{}, err
	}
	done := course.NewSet(clone.CompletedCourses...)
	required := clone.RequiredCourses[:0]
	for _, id := range clone.RequiredCourses {
		if !done.Has(id) {
			required = append(required, id)
		}
	}
	clone.RequiredCourses = required
	return clone, nil
}

// WithDefaults fills zero limits.
func (r Request) WithDefaults(maxPerQuarter, maxCombinations int) Request {
	if r.MaxCoursesPerQuarter == 0 {
		r.MaxCoursesPerQuarter = maxPerQuarter
	}
	if r.MaxCombinations == 0 {
		r.MaxCombinations = maxCombinations
	}
	return r
}

func normalizeIDs(ids []course.ID, depts *catalog.Departments) []course.ID {
	out := make([]course.ID, 0, len(ids))
	for _, id := range ids {
		if depts != nil {
			out = append(out, depts.NormalizeID(string(id)))
			continue
		}
		out = append(out, course.ID(course.Normalize(string(id))))
	}
	return course.Dedupe(out)
}
