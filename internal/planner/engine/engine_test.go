package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/planner"
	"github.com/kingrea/coursenobi/internal/planner/scheduler"
)

const algorithmsCatalog = `
- {department_code: I&C SCI, number: "31"}
- {department_code: I&C SCI, number: "32", prerequisite: "I&C SCI 31"}
- {department_code: I&C SCI, number: "33", prerequisite: "I&C SCI 32"}
- {department_code: I&C SCI, number: 45C, prerequisite: "I&C SCI 33"}
- {department_code: I&C SCI, number: "46", prerequisite: "I&C SCI 45C"}
- {department_code: I&C SCI, number: 6B}
- {department_code: CSE, number: 45C, prerequisite: "I&C SCI 33"}
- {department_code: CSE, number: "46", prerequisite: "CSE 45C and CSE 43"}
- {department_code: MATH, number: 2A}
- {department_code: MATH, number: 2B, prerequisite: "MATH 2A"}
- {department_code: COMPSCI, number: "161", prerequisite: "(I&C SCI 46 or CSE 46) and (I&C SCI 6B or MATH 2B). Restriction: majors only."}
- {department_code: PHYSICS, number: 7C, corequisite: "PHYSICS 7LC"}
- {department_code: PHYSICS, number: 7LC}
- {department_code: PHYSICS, number: 7D, prerequisite: "PHYSICS 7C"}
- {department_code: R, number: "1", prerequisite: "P 1 or P 2"}
- {department_code: P, number: "1", prerequisite: "X 1 and Y 1"}
- {department_code: P, number: "2"}
- {department_code: X, number: "1"}
- {department_code: Y, number: "1"}
`

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, _, err := catalog.Decode([]byte(algorithmsCatalog), catalog.DefaultOptions())
	require.NoError(t, err)
	return cat
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("run-%d", n)
	}
}

func termStrings(s scheduler.Schedule) [][]string {
	out := make([][]string, len(s))
	for i, term := range s {
		for _, id := range term {
			out[i] = append(out[i], string(id))
		}
	}
	return out
}

func TestEngineSchedulesCheapestPath(t *testing.T) {
	e := New(WithCatalog(loadCatalog(t)), WithIDGenerator(sequentialIDs()))
	result, err := e.Run(context.Background(), planner.Request{
		RequiredCourses:  []course.ID{"COMPSCI 161"},
		CompletedCourses: []course.ID{"ICS 31"},
	})
	require.NoError(t, err)

	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, 4, result.Capacity)
	assert.Equal(t, map[string]int{"or-1": 0, "or-2": 0}, result.Assignment)
	assert.Equal(t, 6, result.Cost)
	assert.Equal(t, 4, result.Evaluated)
	assert.Equal(t, [][]string{
		{"I&C SCI 32", "I&C SCI 6B"},
		{"I&C SCI 33"},
		{"I&C SCI 45C"},
		{"I&C SCI 46"},
		{"COMPSCI 161"},
	}, termStrings(result.Schedule))

	var unknown []string
	for _, w := range result.Warnings {
		if w.Kind == apperrors.KindUnknownCourse {
			unknown = append(unknown, w.Subject)
		}
	}
	assert.Equal(t, []string{"CSE 43"}, unknown)
}

func TestEngineKeepsCorequisitesTogether(t *testing.T) {
	e := New(WithCatalog(loadCatalog(t)))
	result, err := e.Run(context.Background(), planner.Request{
		RequiredCourses:      []course.ID{"PHYSICS 7D"},
		MaxCoursesPerQuarter: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"PHYSICS 7C", "PHYSICS 7LC"}, {"PHYSICS 7D"}}, termStrings(result.Schedule))
}

func TestEngineCompletedChoiceBranch(t *testing.T) {
	e := New(WithCatalog(loadCatalog(t)))
	result, err := e.Run(context.Background(), planner.Request{
		RequiredCourses:  []course.ID{"R 1"},
		CompletedCourses: []course.ID{"P 2"},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"R 1"}}, termStrings(result.Schedule))
	assert.Empty(t, result.Assignment)
	assert.Equal(t, 1, result.Cost)
}

func TestEngineInlineCatalog(t *testing.T) {
	req, err := planner.ParseRequest([]byte(`{
  "catalog": [
    {"department_code": "MATH", "number": "3A", "prerequisite_courses": ["or", ["MATH 2B", "MATH 5B"]]},
    {"department_code": "MATH", "number": "2B"},
    {"department_code": "MATH", "number": "5B", "prerequisite": "MATH 5A"},
    {"department_code": "MATH", "number": "5A"}
  ],
  "required_courses": ["math 3a"],
  "max_courses_per_quarter": 1
}`))
	require.NoError(t, err)
	result, err := New().Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"MATH 2B"}, {"MATH 3A"}}, termStrings(result.Schedule))
	assert.Equal(t, []course.ID{"MATH 3A"}, result.Required)
}

func TestEngineFailuresAreCoded(t *testing.T) {
	store := NewMemoryStore(10)
	e := New(WithCatalog(loadCatalog(t)), WithStore(store), WithIDGenerator(sequentialIDs()))

	result, err := e.Run(context.Background(), planner.Request{
		RequiredCourses:      []course.ID{"PHYSICS 7C"},
		MaxCoursesPerQuarter: 1,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrCapacityExceeded))
	assert.Equal(t, "run-1", result.RunID)
	stored, loadErr := e.Lookup("run-1")
	require.NoError(t, loadErr)
	assert.Nil(t, stored.Schedule)

	_, err = New().Run(context.Background(), planner.Request{RequiredCourses: []course.ID{"MATH 2A"}})
	assert.Equal(t, apperrors.KindInvalidRequest, apperrors.KindOf(err))

	_, err = e.Run(context.Background(), planner.Request{CompletedCourses: []course.ID{"MATH 2A"}})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidRequest))
}

func TestEngineEverythingCompleted(t *testing.T) {
	result, err := New(WithCatalog(loadCatalog(t))).Run(context.Background(), planner.Request{
		RequiredCourses:  []course.ID{"MATH 2A", "MATH 2B"},
		CompletedCourses: []course.ID{"MATH 2B", "MATH 2A"},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Schedule)
	assert.Empty(t, result.Schedule)
	assert.Empty(t, result.Required)
	assert.Equal(t, 0, result.Cost)
}

func TestEngineHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(WithCatalog(loadCatalog(t))).Run(ctx, planner.Request{RequiredCourses: []course.ID{"COMPSCI 161"}})
	assert.True(t, errors.Is(err, context.Canceled))
}

// expiringContext reports cancellation once its Err budget is spent.
type expiringContext struct {
	context.Context
	checks int
}

func (c *expiringContext) Err() error {
	if c.checks <= 0 {
		return context.Canceled
	}
	c.checks--
	return nil
}

func TestEngineCancelsDuringEnumeration(t *testing.T) {
	var records []catalog.RawRecord
	var required []course.ID
	for i := 1; i <= 13; i++ {
		number := fmt.Sprintf("%d", i)
		records = append(records,
			catalog.RawRecord{DepartmentCode: "R", Number: number, Prerequisite: fmt.Sprintf("A %d or B %d", i, i)},
			catalog.RawRecord{DepartmentCode: "A", Number: number},
			catalog.RawRecord{DepartmentCode: "B", Number: number},
		)
		required = append(required, course.ID("R "+number))
	}
	// Two checks pass before enumeration starts, one at the first assignment;
	// 2^13 assignments guarantee the next check fires mid-enumeration.
	ctx := &expiringContext{Context: context.Background(), checks: 3}
	result, err := New().Run(ctx, planner.Request{Catalog: records, RequiredCourses: required})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, result.Schedule)
	assert.Equal(t, 0, ctx.checks)
}

func TestEngineConcurrentRunsAgree(t *testing.T) {
	e := New(WithCatalog(loadCatalog(t)))
	req := planner.Request{RequiredCourses: []course.ID{"COMPSCI 161", "PHYSICS 7D"}, MaxCoursesPerQuarter: 3}
	want, err := e.Run(context.Background(), req)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]scheduler.Schedule, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Run(context.Background(), req)
			results[i], errs[i] = res.Schedule, err
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, want.Schedule, results[i])
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	fixed := time.Date(2024, 9, 26, 9, 0, 0, 0, time.UTC)
	repo := NewRepository(t.TempDir())
	e := New(
		WithCatalog(loadCatalog(t)),
		WithStore(repo),
		WithClock(func() time.Time { return fixed }),
		WithIDGenerator(func() string { return "fixed-run" }),
	)
	result, err := e.Run(context.Background(), planner.Request{RequiredCourses: []course.ID{"MATH 2B"}})
	require.NoError(t, err)

	loaded, err := repo.Load("fixed-run")
	require.NoError(t, err)
	assert.Equal(t, result.Schedule, loaded.Schedule)
	assert.True(t, loaded.StartedAt.Equal(fixed))

	_, err = repo.Load("../etc/passwd")
	assert.True(t, errors.Is(err, ErrResultNotFound))
	_, err = New().Lookup("fixed-run")
	assert.True(t, errors.Is(err, ErrResultNotFound))
}

func TestMemoryStoreEvictsOldest(t *testing.T) {
	store := NewMemoryStore(2)
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Save(Result{RunID: id}))
	}
	_, err := store.Load("a")
	assert.True(t, errors.Is(err, ErrResultNotFound))
	got, err := store.Load("c")
	require.NoError(t, err)
	assert.Equal(t, "c", got.RunID)
}
