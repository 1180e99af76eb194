package scheduler

import (
	"errors"
	"reflect"
	"testing"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/planner/graph"
)

func TestSchedulerPlacesCorequisitesTogether(t *testing.T) {
	g := newGraph(nil, [][2]string{{"A", "B"}})
	got := mustRun(t, g, 2)
	assertSchedule(t, got, [][]string{{"A", "B"}})
}

func TestSchedulerPacksFanIn(t *testing.T) {
	g := newGraph([][2]string{{"A", "B"}, {"A", "C"}, {"A", "D"}, {"A", "E"}}, nil)
	got := mustRun(t, g, 4)
	assertSchedule(t, got, [][]string{{"B", "C", "D", "E"}, {"A"}})
}

func TestSchedulerChainTakesOneTermPerLink(t *testing.T) {
	g := newGraph([][2]string{{"A", "B"}, {"B", "C"}, {"C", "D"}, {"D", "E"}}, nil)
	got := mustRun(t, g, 4)
	assertSchedule(t, got, [][]string{{"E"}, {"D"}, {"C"}, {"B"}, {"A"}})
}

func TestSchedulerLevelsMixedGraph(t *testing.T) {
	prereqs := [][2]string{
		{"A", "B"}, {"D", "C"}, {"D", "A"}, {"D", "E"},
		{"B", "F"}, {"C", "G"}, {"C", "H"}, {"A", "I"},
	}
	got := mustRun(t, newGraph(prereqs, nil), 4)
	assertSchedule(t, got, [][]string{{"E", "F", "G", "H"}, {"B", "C", "I"}, {"A"}, {"D"}})

	withCoreq := newGraph(prereqs[:7], [][2]string{{"A", "I"}})
	got = mustRun(t, withCoreq, 4)
	assertSchedule(t, got, [][]string{{"E", "F", "G", "H"}, {"B", "C"}, {"A", "I"}, {"D"}})
}

func TestSchedulerDefersUnitThatDoesNotFit(t *testing.T) {
	g := newGraph(nil, [][2]string{{"B", "C"}})
	g.AddCourse("A")
	got := mustRun(t, g, 2)
	assertSchedule(t, got, [][]string{{"A"}, {"B", "C"}})
}

func TestSchedulerPrerequisiteOrCorequisite(t *testing.T) {
	g := newGraph([][2]string{{"B", "C"}}, nil)
	g.AddEdge(graph.Edge{From: node("A"), To: node("B"), Relation: graph.PrerequisiteOrCorequisite, Branch: graph.NoBranch})
	got := mustRun(t, g, 3)
	assertSchedule(t, got, [][]string{{"C"}, {"A", "B"}})
}

func TestSchedulerSkipsCompletedCourses(t *testing.T) {
	g := newGraph([][2]string{{"A", "B"}}, nil)
	g.MarkCompleted("B")
	got := mustRun(t, g, 1)
	assertSchedule(t, got, [][]string{{"A"}})
}

func TestSchedulerCapacityExceeded(t *testing.T) {
	g := newGraph(nil, [][2]string{{"A", "B"}, {"B", "C"}})
	s, err := New(g)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	_, err = s.Run(Request{Capacity: 2})
	if !errors.Is(err, apperrors.ErrCapacityExceeded) {
		t.Fatalf("expected capacity-exceeded, got %v", err)
	}
	coded, _ := apperrors.As(err)
	if coded.Subject != "A, B, C" {
		t.Fatalf("unexpected subject %q", coded.Subject)
	}
}

func TestSchedulerDetectsPrerequisiteCycle(t *testing.T) {
	g := newGraph([][2]string{{"A", "B"}, {"B", "A"}, {"C", "D"}}, nil)
	s, _ := New(g)
	_, err := s.Run(Request{Capacity: 4})
	if !errors.Is(err, apperrors.ErrDependencyCycle) {
		t.Fatalf("expected dependency-cycle, got %v", err)
	}
	coded, _ := apperrors.As(err)
	if coded.Subject != "A, B" {
		t.Fatalf("unexpected subject %q", coded.Subject)
	}
}

func TestSchedulerRejectsBadInput(t *testing.T) {
	g := newGraph(nil, nil)
	g.AddCourse("A")
	s, _ := New(g)
	if _, err := s.Run(Request{Capacity: 0}); !errors.Is(err, apperrors.ErrInvalidRequest) {
		t.Fatalf("expected invalid-request for zero capacity, got %v", err)
	}

	withChoice := graph.New()
	withChoice.NewChoice()
	if _, err := New(withChoice); !errors.Is(err, apperrors.ErrInvalidRequest) {
		t.Fatalf("expected invalid-request for unresolved choice, got %v", err)
	}
}

func TestSchedulerIsDeterministic(t *testing.T) {
	prereqs := [][2]string{{"M", "K"}, {"M", "L"}, {"Z", "K"}, {"Q", "P"}, {"P", "K"}}
	coreqs := [][2]string{{"X", "Y"}}
	first := mustRun(t, newGraph(prereqs, coreqs), 3)
	for i := 0; i < 10; i++ {
		again := mustRun(t, newGraph(prereqs, coreqs), 3)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

// newGraph builds a course-only graph. prereqs are owner -> requirement pairs;
// coreqs become edges in both directions.
func newGraph(prereqs, coreqs [][2]string) *graph.Graph {
	g := graph.New()
	for _, p := range prereqs {
		g.AddEdge(graph.Edge{From: node(p[0]), To: node(p[1]), Relation: graph.Prerequisite, Branch: graph.NoBranch})
	}
	for _, c := range coreqs {
		g.AddEdge(graph.Edge{From: node(c[0]), To: node(c[1]), Relation: graph.Corequisite, Branch: graph.NoBranch})
		g.AddEdge(graph.Edge{From: node(c[1]), To: node(c[0]), Relation: graph.Corequisite, Branch: graph.NoBranch})
	}
	return g
}

func node(id string) graph.NodeKey { return graph.CourseNode(course.ID(id)) }

func mustRun(t *testing.T, g *graph.Graph, capacity int) Schedule {
	t.Helper()
	s, err := New(g)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	out, err := s.Run(Request{Capacity: capacity})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return out
}

func assertSchedule(t *testing.T, got Schedule, want [][]string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d terms, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		ids := make([]string, len(got[i]))
		for j, id := range got[i] {
			ids[j] = string(id)
		}
		if !reflect.DeepEqual(ids, want[i]) {
			t.Fatalf("term %d = %v, want %v", i+1, ids, want[i])
		}
	}
}
