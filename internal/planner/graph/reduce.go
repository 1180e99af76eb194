package graph

import (
	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/course"
)

// ReduceReport summarizes what Reduce changed.
type ReduceReport struct {
	// Satisfied lists choices a completed course resolved on its own.
	Satisfied []ChoiceID
	// Removed lists nodes deleted from the graph.
	Removed []NodeKey
	// Retained lists nodes that were candidates for removal but stayed
	// because something outside the removed region still requires them.
	Retained []NodeKey
}

type reducer struct {
	g        *Graph
	log      zerolog.Logger
	report   ReduceReport
	deferred map[NodeKey]struct{}
}

// Reduce prunes requirements that completed courses already satisfy. It must
// run before choices are resolved so satisfied alternatives never reach the
// enumeration.
//
// A completed course that is the whole of one branch of a choice satisfies
// that choice: the other branches go away, the choice is replaced by a direct
// edge from its owner, and the course stays in the graph as a satisfied node.
// Otherwise the completed course is dropped together with the part of its
// requirement subtree nothing else depends on.
func (g *Graph) Reduce(completed []course.ID, opts ...Option) ReduceReport {
	o := collectOptions(opts)
	r := &reducer{g: g, log: o.logger, deferred: make(map[NodeKey]struct{})}
	for _, id := range course.Dedupe(completed) {
		g.MarkCompleted(id)
		r.reduce(id)
	}
	r.revisit()
	r.log.Debug().
		Int("satisfied", len(r.report.Satisfied)).
		Int("removed", len(r.report.Removed)).
		Int("retained", len(r.report.Retained)).
		Msg("completed courses reduced")
	return r.report
}

func (r *reducer) reduce(id course.ID) {
	g := r.g
	k := CourseNode(id)
	if !g.Has(k) {
		return
	}

	satisfied := false
	for {
		choice, branch, ok := r.soleBranchOwner(k)
		if !ok {
			break
		}
		r.satisfy(choice, branch, k)
		satisfied = true
	}
	for _, e := range g.In(k) {
		if e.From.IsChoice() || !satisfied {
			g.RemoveEdge(e.From, k)
		}
	}

	// A completed course's own requirements no longer matter.
	region := []NodeKey{k}
	for _, to := range g.Successors(k) {
		g.RemoveEdge(k, to)
		region = append(region, to)
	}
	r.removeExclusive(region)
}

// soleBranchOwner finds a choice predecessor of k whose branch consists of k
// alone.
func (r *reducer) soleBranchOwner(k NodeKey) (NodeKey, int, bool) {
	for _, e := range r.g.In(k) {
		if !e.From.IsChoice() {
			continue
		}
		if len(r.g.BranchTargets(e.From, e.Branch)) == 1 {
			return e.From, e.Branch, true
		}
	}
	return NodeKey{}, 0, false
}

// satisfy resolves choice to the branch holding only k, then walks upward:
// each predecessor of the choice is connected straight to k, and a
// predecessor that is itself a choice left with k as a whole branch is
// satisfied in turn.
func (r *reducer) satisfy(choice NodeKey, branch int, k NodeKey) {
	g := r.g
	r.report.Satisfied = append(r.report.Satisfied, choice.Choice)
	r.log.Debug().Str("choice", choice.String()).Str("course", k.String()).Int("branch", branch).Msg("choice satisfied by completed course")

	var others []NodeKey
	for _, e := range g.Out(choice) {
		if e.Branch == branch {
			continue
		}
		g.RemoveBranchEdge(choice, e.To, e.Branch)
		if e.To != k {
			others = append(others, e.To)
		}
	}
	r.removeExclusive(others)

	incoming := g.In(choice)
	g.RemoveNode(choice)
	r.report.Removed = append(r.report.Removed, choice)
	for _, e := range incoming {
		g.AddEdge(Edge{From: e.From, To: k, Relation: e.Relation, Branch: e.Branch})
	}
}

// removeExclusive deletes the nodes reachable from starts that nothing
// outside that reachable region requires. Required courses and anything
// reachable from a node with a live outside reference are kept; the
// referenced nodes are remembered and revisited once every completed course
// has been processed.
func (r *reducer) removeExclusive(starts []NodeKey) {
	g := r.g
	region := g.Reachable(starts, nil)
	if len(region) == 0 {
		return
	}
	var anchors []NodeKey
	for _, k := range sortedSet(region) {
		if !k.IsChoice() && g.IsRoot(k.Course) {
			anchors = append(anchors, k)
			continue
		}
		for _, p := range g.Predecessors(k) {
			if _, inside := region[p]; !inside {
				anchors = append(anchors, k)
				r.retain(k)
				break
			}
		}
	}
	kept := g.Reachable(anchors, nil)
	for _, k := range sortedSet(region) {
		if _, ok := kept[k]; ok {
			continue
		}
		g.RemoveNode(k)
		r.report.Removed = append(r.report.Removed, k)
	}
}

func (r *reducer) retain(k NodeKey) {
	if _, ok := r.deferred[k]; ok {
		return
	}
	r.deferred[k] = struct{}{}
	r.report.Retained = append(r.report.Retained, k)
	r.log.Debug().Str("node", k.String()).Msg("node still referenced; kept")
}

// revisit removes deferred nodes that ended up orphaned.
func (r *reducer) revisit() {
	for changed := true; changed; {
		changed = false
		for _, k := range sortedSet(r.deferred) {
			delete(r.deferred, k)
			if !r.g.Has(k) || r.g.InDegree(k) > 0 {
				continue
			}
			if !k.IsChoice() && r.g.IsRoot(k.Course) {
				continue
			}
			r.removeExclusive([]NodeKey{k})
			changed = true
		}
	}
}

func sortedSet(set map[NodeKey]struct{}) []NodeKey {
	out := make([]NodeKey, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}
