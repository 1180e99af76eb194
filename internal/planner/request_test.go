package planner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/course"
)

func TestParseRequestJSON(t *testing.T) {
	req, err := ParseRequest([]byte(`{
  "catalog": [{"department_code": "MATH", "number": "2A"}],
  "required_courses": ["MATH 2B", "MATH 2A"],
  "completed_courses": ["ICS 31"],
  "max_courses_per_quarter": 3
}`))
	require.NoError(t, err)
	require.Len(t, req.Catalog, 1)
	assert.Equal(t, "2A", req.Catalog[0].Number)
	assert.Equal(t, []course.ID{"MATH 2B", "MATH 2A"}, req.RequiredCourses)
	assert.Equal(t, 3, req.MaxCoursesPerQuarter)
}

func TestParseRequestRejectsEmptyPayload(t *testing.T) {
	_, err := ParseRequest([]byte("\n  \n"))
	assert.Error(t, err)
	_, err = ParseRequest([]byte("required_courses: {"))
	assert.Error(t, err)
}

func TestNormalizedRemapsAndDropsCompleted(t *testing.T) {
	depts := catalog.NewDepartments(catalog.DefaultRemap, nil, nil)
	req := Request{
		RequiredCourses:  []course.ID{" compsci  161", "ICS 46", "COMPSCI 161", "I&C SCI 33"},
		CompletedCourses: []course.ID{"ics 33"},
	}
	got, err := req.Normalized(depts)
	require.NoError(t, err)
	assert.Equal(t, []course.ID{"COMPSCI 161", "I&C SCI 46"}, got.RequiredCourses)
	assert.Equal(t, []course.ID{"I&C SCI 33"}, got.CompletedCourses)
	assert.Equal(t, " compsci  161", string(req.RequiredCourses[0]), "normalization must not touch the original")
}

func TestNormalizedValidates(t *testing.T) {
	_, err := Request{CompletedCourses: []course.ID{"MATH 2A"}}.Normalized(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))

	_, err = Request{RequiredCourses: []course.ID{"MATH 2A"}, MaxCoursesPerQuarter: -1}.Normalized(nil)
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))
}

func TestNormalizedAllCompleted(t *testing.T) {
	got, err := Request{
		RequiredCourses:  []course.ID{"MATH 2A", " MATH  2B"},
		CompletedCourses: []course.ID{"MATH 2B", "MATH 2A"},
	}.Normalized(nil)
	require.NoError(t, err)
	assert.Empty(t, got.RequiredCourses)
	assert.Equal(t, []course.ID{"MATH 2B", "MATH 2A"}, got.CompletedCourses)
}

func TestWithDefaults(t *testing.T) {
	req := Request{MaxCoursesPerQuarter: 2}.WithDefaults(4, 1000)
	assert.Equal(t, 2, req.MaxCoursesPerQuarter)
	assert.Equal(t, 1000, req.MaxCombinations)
}

func TestLoadRequestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "request.yaml")
	doc := "required_courses:\n  - COMPSCI 161\ncompleted_courses: []\nmax_courses_per_quarter: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	req, err := LoadRequestFile(path)
	require.NoError(t, err)
	assert.Equal(t, []course.ID{"COMPSCI 161"}, req.RequiredCourses)

	_, err = LoadRequestFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
