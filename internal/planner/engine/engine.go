package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/planner"
	"github.com/kingrea/coursenobi/internal/planner/graph"
	"github.com/kingrea/coursenobi/internal/planner/resolver"
	"github.com/kingrea/coursenobi/internal/planner/scheduler"
)

// DefaultMaxCoursesPerQuarter applies when neither the request nor the engine
// sets a capacity.
const DefaultMaxCoursesPerQuarter = 4

// Result is the outcome of one run. On failure it still carries the run id and
// the warnings gathered before the failing stage.
type Result struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	Required   []course.ID         `json:"required_courses" yaml:"required_courses"`
	Completed  []course.ID         `json:"completed_courses,omitempty" yaml:"completed_courses,omitempty"`
	Capacity   int                 `json:"max_courses_per_quarter" yaml:"max_courses_per_quarter"`
	Schedule   scheduler.Schedule  `json:"schedule" yaml:"schedule"`
	Assignment map[string]int      `json:"assignment,omitempty" yaml:"assignment,omitempty"`
	Cost       int                 `json:"cost" yaml:"cost"`
	Evaluated  int                 `json:"evaluated" yaml:"evaluated"`
	Warnings   []apperrors.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	StartedAt  time.Time           `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time           `json:"finished_at" yaml:"finished_at"`
}

// Engine runs scheduling requests. It holds only read-only state after
// construction and is safe for concurrent use; every run builds its own graph.
type Engine struct {
	catalog         *catalog.Catalog
	departments     *catalog.Departments
	maxPerQuarter   int
	maxCombinations int
	store           ResultStore
	log             zerolog.Logger
	clock           func() time.Time
	newID           func() string
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithCatalog sets the catalog used when a request carries none.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = cat
	}
}

// WithDepartments sets the department table used to ingest inline catalogs.
func WithDepartments(depts *catalog.Departments) Option {
	return func(e *Engine) {
		if depts != nil {
			e.departments = depts
		}
	}
}

// WithDefaults sets the limits applied when a request leaves them at zero.
func WithDefaults(maxPerQuarter, maxCombinations int) Option {
	return func(e *Engine) {
		if maxPerQuarter > 0 {
			e.maxPerQuarter = maxPerQuarter
		}
		if maxCombinations > 0 {
			e.maxCombinations = maxCombinations
		}
	}
}

// WithStore records every finished run, successful or not.
func WithStore(store ResultStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithIDGenerator replaces the uuid run id generator (primarily for tests).
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// New builds an engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		departments:     catalog.NewDepartments(catalog.DefaultRemap, nil, nil),
		maxPerQuarter:   DefaultMaxCoursesPerQuarter,
		maxCombinations: resolver.DefaultMaxCombinations,
		log:             zerolog.Nop(),
		clock:           time.Now,
		newID:           func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the engine's default catalog, which may be nil.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Store returns the result store, which may be nil.
func (e *Engine) Store() ResultStore {
	return e.store
}

// Run executes the pipeline for req. ctx is checked between stages.
func (e *Engine) Run(ctx context.Context, req planner.Request) (Result, error) {
	result := Result{RunID: e.newID(), StartedAt: e.clock()}
	log := e.log.With().Str("run_id", result.RunID).Logger()

	err := e.run(ctx, log, req, &result)
	result.FinishedAt = e.clock()
	if err != nil {
		log.Error().Err(err).Str("kind", string(apperrors.KindOf(err))).Msg("scheduling failed")
	} else {
		log.Info().
			Int("quarters", len(result.Schedule)).
			Int("cost", result.Cost).
			Int("warnings", len(result.Warnings)).
			Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
			Msg("schedule ready")
	}
	if e.store != nil {
		if saveErr := e.store.Save(result); saveErr != nil {
			log.Warn().Err(saveErr).Msg("could not store result")
		}
	}
	return result, err
}

func (e *Engine) run(ctx context.Context, log zerolog.Logger, req planner.Request, result *Result) error {
	cat := e.catalog
	if len(req.Catalog) > 0 {
		var warnings []apperrors.Warning
		cat, warnings = catalog.Build(req.Catalog, catalog.Options{Departments: e.departments, Logger: log})
		result.Warnings = append(result.Warnings, warnings...)
	}
	if cat == nil {
		return apperrors.New(apperrors.KindInvalidRequest, "catalog", "request has no catalog and none is loaded")
	}

	normalized, err := req.Normalized(cat.DepartmentTable())
	if err != nil {
		return err
	}
	normalized = normalized.WithDefaults(e.maxPerQuarter, e.maxCombinations)
	result.Required = normalized.RequiredCourses
	result.Completed = normalized.CompletedCourses
	result.Capacity = normalized.MaxCoursesPerQuarter
	log.Info().
		Strs("required", ids(normalized.RequiredCourses)).
		Int("completed", len(normalized.CompletedCourses)).
		Int("capacity", normalized.MaxCoursesPerQuarter).
		Msg("scheduling request accepted")
	if len(normalized.RequiredCourses) == 0 {
		result.Schedule = scheduler.Schedule{}
		log.Info().Msg("every required course is already completed")
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	g, warnings := graph.Build(normalized.RequiredCourses, cat, graph.WithLogger(log))
	result.Warnings = append(result.Warnings, warnings...)
	g.Reduce(normalized.CompletedCourses, graph.WithLogger(log))

	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := resolver.New(g, resolver.WithMaxCombinations(normalized.MaxCombinations), resolver.WithLogger(log))
	if err != nil {
		return err
	}
	resolution, err := res.ResolveContext(ctx, normalized.RequiredCourses)
	if err != nil {
		return err
	}
	result.Cost = resolution.Cost
	result.Evaluated = resolution.Evaluated
	if len(resolution.Assignment) > 0 {
		result.Assignment = make(map[string]int, len(resolution.Assignment))
		for id, branch := range resolution.Assignment {
			result.Assignment[id.String()] = branch
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	sched, err := scheduler.New(g, scheduler.WithLogger(log))
	if err != nil {
		return err
	}
	schedule, err := sched.Run(scheduler.Request{Capacity: normalized.MaxCoursesPerQuarter})
	if err != nil {
		return err
	}
	result.Schedule = schedule
	return nil
}

// Lookup returns a stored result.
func (e *Engine) Lookup(runID string) (Result, error) {
	if e.store == nil {
		return Result{}, fmt.Errorf("engine: no result store configured: %w", ErrResultNotFound)
	}
	return e.store.Load(runID)
}

func ids(in []course.ID) []string {
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = string(id)
	}
	return out
}
