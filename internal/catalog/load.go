package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/requirement"
)

// RawRecord is one course as stored in catalog.json. Requirements come either
// as parsed trees (the *_courses fields) or as raw catalog text.
type RawRecord struct {
	DepartmentCode string `json:"department_code" yaml:"department_code"`
	DepartmentName string `json:"department_name,omitempty" yaml:"department_name,omitempty"`
	Number         string `json:"number" yaml:"number"`
	Title          string `json:"title,omitempty" yaml:"title,omitempty"`
	Units          string `json:"units,omitempty" yaml:"units,omitempty"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	Restriction    string `json:"restriction,omitempty" yaml:"restriction,omitempty"`
	GradingOption  string `json:"grading_option,omitempty" yaml:"grading_option,omitempty"`

	PrerequisiteCourses              *requirement.Expr `json:"prerequisite_courses,omitempty" yaml:"prerequisite_courses,omitempty"`
	CorequisiteCourses               *requirement.Expr `json:"corequisite_courses,omitempty" yaml:"corequisite_courses,omitempty"`
	PrerequisiteOrCorequisiteCourses *requirement.Expr `json:"prerequisite_or_corequisite_courses,omitempty" yaml:"prerequisite_or_corequisite_courses,omitempty"`

	Prerequisite              string `json:"prerequisite,omitempty" yaml:"prerequisite,omitempty"`
	Corequisite               string `json:"corequisite,omitempty" yaml:"corequisite,omitempty"`
	PrerequisiteOrCorequisite string `json:"prerequisite_or_corequisite,omitempty" yaml:"prerequisite_or_corequisite,omitempty"`
}

// Options controls ingestion.
type Options struct {
	Departments *Departments
	Logger      zerolog.Logger
}

// DefaultOptions uses the default remap table and a silent logger.
func DefaultOptions() Options {
	return Options{
		Departments: NewDepartments(DefaultRemap, nil, nil),
		Logger:      zerolog.Nop(),
	}
}

// Decode reads a YAML or JSON list of raw records and builds a catalog.
func Decode(data []byte, opts Options) (*Catalog, []apperrors.Warning, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil, fmt.Errorf("catalog: payload is empty")
	}
	var raw []RawRecord
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("catalog: decode: %w", err)
	}
	cat, warnings := Build(raw, opts)
	return cat, warnings, nil
}

// LoadReader reads catalog data from r.
func LoadReader(r io.Reader, opts Options) (*Catalog, []apperrors.Warning, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: read: %w", err)
	}
	return Decode(data, opts)
}

// LoadFile reads catalog data from path.
func LoadFile(path string, opts Options) (*Catalog, []apperrors.Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	cat, warnings, err := Decode(data, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return cat, warnings, nil
}

// Build converts raw records. Requirement text is parsed after every
// department is registered so forward references validate. A requirement
// that fails to parse becomes a note on its record; the rest of the catalog is
// unaffected.
func Build(raw []RawRecord, opts Options) (*Catalog, []apperrors.Warning) {
	depts := opts.Departments.Clone()
	if opts.Departments == nil {
		depts = NewDepartments(DefaultRemap, nil, nil)
	}
	log := opts.Logger
	var warnings []apperrors.Warning

	for _, r := range raw {
		depts.AddKnown(depts.Canonical(r.DepartmentCode))
	}
	validate := depts.Validator()

	records := make([]*Record, 0, len(raw))
	seen := make(map[course.ID]struct{}, len(raw))
	for i, r := range raw {
		dept := depts.Canonical(r.DepartmentCode)
		num := strings.ToUpper(strings.TrimSpace(r.Number))
		if dept == "" || num == "" {
			w := apperrors.Warnf(apperrors.KindInvalidRequest, fmt.Sprintf("record[%d]", i), "department_code and number are required")
			log.Warn().Str("record", w.Subject).Msg(w.Message)
			warnings = append(warnings, w)
			continue
		}
		rec := &Record{
			ID:             course.Make(dept, num),
			Department:     dept,
			DepartmentName: strings.TrimSpace(r.DepartmentName),
			Number:         num,
			Title:          strings.TrimSpace(r.Title),
			Units:          strings.TrimSpace(r.Units),
			Description:    strings.TrimSpace(r.Description),
			Restriction:    strings.TrimSpace(r.Restriction),
			GradingOption:  strings.TrimSpace(r.GradingOption),
		}
		if _, dup := seen[rec.ID]; dup {
			w := apperrors.Warnf(apperrors.KindDuplicateCourse, string(rec.ID), "record[%d] replaces an earlier record", i)
			log.Warn().Str("course", string(rec.ID)).Msg(w.Message)
			warnings = append(warnings, w)
		}
		seen[rec.ID] = struct{}{}

		fields := []struct {
			name string
			tree *requirement.Expr
			text string
			dst  **requirement.Expr
		}{
			{"prerequisite", r.PrerequisiteCourses, r.Prerequisite, &rec.Prerequisite},
			{"corequisite", r.CorequisiteCourses, r.Corequisite, &rec.Corequisite},
			{"prerequisite_or_corequisite", r.PrerequisiteOrCorequisiteCourses, r.PrerequisiteOrCorequisite, &rec.PrerequisiteOrCorequisite},
		}
		for _, f := range fields {
			if f.tree != nil {
				normalized := normalizeTree(*f.tree, depts)
				*f.dst = &normalized
				continue
			}
			if strings.TrimSpace(f.text) == "" {
				continue
			}
			expr, err := requirement.ParseStatement(f.text, validate)
			if err != nil {
				w := apperrors.FromError(err, string(rec.ID))
				rec.Notes = append(rec.Notes, fmt.Sprintf("%s not parsed: %s", f.name, w.Message))
				log.Warn().Str("course", string(rec.ID)).Str("field", f.name).Str("kind", string(w.Kind)).Msg(w.Message)
				warnings = append(warnings, w)
				continue
			}
			*f.dst = &expr
		}
		records = append(records, rec)
	}
	return New(records, depts), warnings
}

func normalizeTree(e requirement.Expr, depts *Departments) requirement.Expr {
	if e.Kind == requirement.KindLeaf {
		return requirement.Leaf(depts.NormalizeID(string(e.Course)))
	}
	children := make([]requirement.Expr, len(e.Children))
	for i, child := range e.Children {
		children[i] = normalizeTree(child, depts)
	}
	return requirement.Expr{Kind: e.Kind, Children: children}
}
