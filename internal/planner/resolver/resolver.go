package resolver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/planner/graph"
)

// DefaultMaxCombinations bounds the Cartesian product of choice branches.
const DefaultMaxCombinations = 100000

// cancelCheckInterval is how many assignments are scored between context
// checks.
const cancelCheckInterval = 1024

// Assignment maps each choice to the branch index it follows.
type Assignment map[graph.ChoiceID]int

// Clone returns a copy of the assignment.
func (a Assignment) Clone() Assignment {
	if a == nil {
		return nil
	}
	out := make(Assignment, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// String renders the assignment as "or-1=0 or-2=1" in choice order.
func (a Assignment) String() string {
	ids := make([]graph.ChoiceID, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%s=%d", id, a[id])
	}
	return strings.Join(parts, " ")
}

// Resolution describes the winning assignment.
type Resolution struct {
	Assignment Assignment
	// Cost is the number of not-yet-completed courses the assignment requires.
	Cost int
	// Evaluated counts the assignments scored.
	Evaluated int
	// Choices lists the choices that were enumerated, in enumeration order.
	Choices []graph.ChoiceID
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxCombinations overrides DefaultMaxCombinations. Values < 1 are
// ignored.
func WithMaxCombinations(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxCombinations = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = logger
	}
}

// Resolver evaluates and collapses the choices of one graph.
type Resolver struct {
	g               *graph.Graph
	maxCombinations int
	log             zerolog.Logger
}

// New wires a Resolver to a graph it may mutate.
func New(g *graph.Graph, opts ...Option) (*Resolver, error) {
	if g == nil {
		return nil, fmt.Errorf("resolver: graph is required")
	}
	r := &Resolver{g: g, maxCombinations: DefaultMaxCombinations, log: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Resolve enumerates every combination of branches for the choices reachable
// from required, keeps the cheapest (the first one in enumeration order on a
// tie) and collapses the graph to it. Enumeration order is lexicographic over
// choices sorted by id, the first choice being the most significant digit.
func (r *Resolver) Resolve(required []course.ID) (Resolution, error) {
	return r.ResolveContext(context.Background(), required)
}

// ResolveContext is Resolve with cancellation. ctx is checked every
// cancelCheckInterval assignments; on cancellation the graph is left as it
// was and ctx.Err() is returned.
func (r *Resolver) ResolveContext(ctx context.Context, required []course.ID) (Resolution, error) {
	starts, err := r.requiredKeys(required)
	if err != nil {
		return Resolution{}, err
	}
	choices, branches, err := r.reachableChoices(starts)
	if err != nil {
		return Resolution{}, err
	}
	total, err := r.combinations(choices, branches)
	if err != nil {
		return Resolution{}, err
	}
	r.log.Debug().Int("choices", len(choices)).Int("combinations", total).Msg("enumerating choice assignments")

	var (
		best      Assignment
		bestCost  = -1
		bestSet   map[graph.NodeKey]struct{}
		evaluated int
	)
	positions := make([]int, len(choices))
	for {
		if evaluated%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				r.log.Debug().Int("evaluated", evaluated).Msg("enumeration cancelled")
				return Resolution{}, err
			}
		}
		assignment := make(Assignment, len(choices))
		for i, id := range choices {
			assignment[id] = branches[i][positions[i]]
		}
		induced := r.induced(starts, assignment)
		cost := r.cost(induced)
		evaluated++
		if bestCost < 0 || cost < bestCost {
			best, bestCost, bestSet = assignment, cost, induced
		}
		if !advance(positions, branches) {
			break
		}
	}

	r.collapse(best, bestSet)
	r.log.Debug().Int("cost", bestCost).Int("evaluated", evaluated).Str("assignment", best.String()).Msg("choices resolved")
	return Resolution{
		Assignment: best,
		Cost:       bestCost,
		Evaluated:  evaluated,
		Choices:    choices,
	}, nil
}

func (r *Resolver) requiredKeys(required []course.ID) ([]graph.NodeKey, error) {
	required = course.Dedupe(required)
	if len(required) == 0 {
		required = r.g.Roots()
	}
	starts := make([]graph.NodeKey, 0, len(required))
	for _, id := range required {
		k := graph.CourseNode(id)
		if !r.g.Has(k) {
			if r.g.IsCompleted(id) {
				continue
			}
			return nil, apperrors.New(apperrors.KindUnsatisfiable, string(id), "required course is not in the dependency graph")
		}
		starts = append(starts, k)
	}
	return starts, nil
}

// reachableChoices returns the choices reachable from starts in id order
// together with each choice's branch indices.
func (r *Resolver) reachableChoices(starts []graph.NodeKey) ([]graph.ChoiceID, [][]int, error) {
	reach := r.g.Reachable(starts, nil)
	var choices []graph.ChoiceID
	for k := range reach {
		if k.IsChoice() {
			choices = append(choices, k.Choice)
		}
	}
	sort.Slice(choices, func(i, j int) bool { return choices[i] < choices[j] })
	branches := make([][]int, len(choices))
	for i, id := range choices {
		branches[i] = r.g.Branches(graph.ChoiceNode(id))
		if len(branches[i]) == 0 {
			return nil, nil, apperrors.New(apperrors.KindUnsatisfiable, id.String(), "choice has no remaining branches")
		}
	}
	return choices, branches, nil
}

func (r *Resolver) combinations(choices []graph.ChoiceID, branches [][]int) (int, error) {
	total := 1
	for i, b := range branches {
		if total > math.MaxInt/len(b) || total*len(b) > r.maxCombinations {
			return 0, apperrors.New(apperrors.KindEnumerationTooLarge, choices[i].String(),
				"more than %d branch combinations across %d choices", r.maxCombinations, len(choices))
		}
		total *= len(b)
	}
	return total, nil
}

// advance steps the odometer; the last position varies fastest.
func advance(positions []int, branches [][]int) bool {
	for i := len(positions) - 1; i >= 0; i-- {
		positions[i]++
		if positions[i] < len(branches[i]) {
			return true
		}
		positions[i] = 0
	}
	return false
}

// induced returns the nodes reachable from starts when each choice follows
// only its assigned branch.
func (r *Resolver) induced(starts []graph.NodeKey, assignment Assignment) map[graph.NodeKey]struct{} {
	return r.g.Reachable(starts, func(e graph.Edge) bool {
		if !e.From.IsChoice() {
			return true
		}
		return e.Branch == assignment[e.From.Choice]
	})
}

func (r *Resolver) cost(nodes map[graph.NodeKey]struct{}) int {
	n := 0
	for k := range nodes {
		if k.IsChoice() || r.g.IsCompleted(k.Course) {
			continue
		}
		n++
	}
	return n
}

// collapse keeps only the induced nodes and replaces every choice with
// direct edges from its predecessors to the chosen branch.
func (r *Resolver) collapse(assignment Assignment, induced map[graph.NodeKey]struct{}) {
	g := r.g
	for _, k := range g.Nodes() {
		if _, ok := induced[k]; !ok {
			g.RemoveNode(k)
		}
	}
	for _, id := range g.Choices() {
		choice := graph.ChoiceNode(id)
		chosen := assignment[id]
		var targets []graph.NodeKey
		for _, e := range g.Out(choice) {
			if e.Branch != chosen {
				g.RemoveBranchEdge(choice, e.To, e.Branch)
				continue
			}
			targets = append(targets, e.To)
		}
		for _, in := range g.In(choice) {
			for _, to := range targets {
				g.AddEdge(graph.Edge{From: in.From, To: to, Relation: in.Relation, Branch: in.Branch})
			}
		}
		g.RemoveNode(choice)
	}
	// A corequisite back-edge from a course that was kept for another reason
	// must not tie it to an owner whose choice went elsewhere.
	for _, k := range g.Nodes() {
		for _, e := range g.Out(k) {
			if e.Relation != graph.Corequisite {
				continue
			}
			if back, ok := g.Edge(e.To, e.From); !ok || back.Relation != graph.Corequisite {
				g.RemoveEdge(e.From, e.To)
			}
		}
	}
}
