package scheduler

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/planner/graph"
)

// Term is one quarter's courses in lexicographic order.
type Term []course.ID

// Schedule is the ordered list of quarters.
type Schedule []Term

// Courses returns every scheduled course in term order.
func (s Schedule) Courses() []course.ID {
	var out []course.ID
	for _, term := range s {
		out = append(out, term...)
	}
	return out
}

// Request captures the scheduling constraints.
type Request struct {
	// Capacity is the maximum number of courses per quarter. Must be >= 1.
	Capacity int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) {
		s.log = logger
	}
}

// Scheduler consumes a collapsed graph. Run removes nodes as they are placed,
// so a Scheduler is single use.
type Scheduler struct {
	g   *graph.Graph
	log zerolog.Logger
}

// New wires a Scheduler to a graph that must no longer contain choices.
func New(g *graph.Graph, opts ...Option) (*Scheduler, error) {
	if g == nil {
		return nil, fmt.Errorf("scheduler: graph is required")
	}
	if choices := g.Choices(); len(choices) > 0 {
		return nil, apperrors.New(apperrors.KindInvalidRequest, choices[0].String(), "graph still has %d unresolved choices", len(choices))
	}
	s := &Scheduler{g: g, log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Run places every remaining course into quarters.
//
// A course is available once none of its prerequisites remain unscheduled and
// each prerequisite-or-corequisite is either scheduled or in the quarter being
// filled. Courses are scanned in lexicographic order, and the scan repeats
// until a pass places nothing, so a prerequisite-or-corequisite placed late in
// a pass can still pull its dependent into the same quarter. A corequisite
// unit is placed whole or deferred whole.
func (s *Scheduler) Run(req Request) (Schedule, error) {
	if req.Capacity < 1 {
		return nil, apperrors.New(apperrors.KindInvalidRequest, "", "max courses per quarter must be at least 1, got %d", req.Capacity)
	}
	g := s.g
	for _, id := range g.Courses() {
		if g.IsCompleted(id) {
			g.RemoveNode(graph.CourseNode(id))
		}
	}

	var schedule Schedule
	for g.Len() > 0 {
		term := newTermBuilder(req.Capacity)
		for progress := true; progress; {
			progress = false
			for _, id := range g.Courses() {
				if term.has(id) {
					continue
				}
				unit := s.unit(id)
				if len(unit) > req.Capacity {
					return nil, apperrors.New(apperrors.KindCapacityExceeded, joinIDs(unit),
						"corequisite unit of %d courses exceeds %d per quarter", len(unit), req.Capacity)
				}
				if len(unit) > term.remaining() || !s.unitAvailable(unit, term) {
					continue
				}
				term.place(unit)
				progress = true
			}
		}
		if term.len() == 0 {
			remaining := g.Courses()
			return nil, apperrors.New(apperrors.KindDependencyCycle, joinIDs(remaining),
				"no course can be scheduled; %d courses wait on each other", len(remaining))
		}
		placed := term.sorted()
		for _, id := range placed {
			g.RemoveNode(graph.CourseNode(id))
		}
		s.log.Debug().Int("quarter", len(schedule)+1).Strs("courses", idStrings(placed)).Msg("quarter filled")
		schedule = append(schedule, placed)
	}
	return schedule, nil
}

// unit returns the corequisite closure of id among the remaining courses.
func (s *Scheduler) unit(id course.ID) []course.ID {
	start := graph.CourseNode(id)
	seen := map[graph.NodeKey]struct{}{start: {}}
	stack := []graph.NodeKey{start}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		var linked []graph.NodeKey
		for _, e := range s.g.Out(k) {
			if e.Relation == graph.Corequisite {
				linked = append(linked, e.To)
			}
		}
		for _, e := range s.g.In(k) {
			if e.Relation == graph.Corequisite {
				linked = append(linked, e.From)
			}
		}
		for _, next := range linked {
			if _, ok := seen[next]; ok {
				continue
			}
			seen[next] = struct{}{}
			stack = append(stack, next)
		}
	}
	out := make([]course.ID, 0, len(seen))
	for k := range seen {
		out = append(out, k.Course)
	}
	course.Sort(out)
	return out
}

func (s *Scheduler) unitAvailable(unit []course.ID, term *termBuilder) bool {
	members := course.NewSet(unit...)
	for _, id := range unit {
		for _, e := range s.g.Out(graph.CourseNode(id)) {
			target := e.To.Course
			switch e.Relation {
			case graph.Prerequisite:
				return false
			case graph.PrerequisiteOrCorequisite:
				if !term.has(target) && !members.Has(target) {
					return false
				}
			}
		}
	}
	return true
}

type termBuilder struct {
	capacity int
	courses  course.Set
}

func newTermBuilder(capacity int) *termBuilder {
	return &termBuilder{capacity: capacity, courses: course.NewSet()}
}

func (t *termBuilder) has(id course.ID) bool { return t.courses.Has(id) }

func (t *termBuilder) len() int { return len(t.courses) }

func (t *termBuilder) remaining() int { return t.capacity - len(t.courses) }

func (t *termBuilder) place(unit []course.ID) {
	for _, id := range unit {
		t.courses[id] = struct{}{}
	}
}

func (t *termBuilder) sorted() Term {
	return Term(t.courses.Sorted())
}

func joinIDs(ids []course.ID) string {
	return strings.Join(idStrings(ids), ", ")
}

func idStrings(ids []course.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
