package graph

import (
	"fmt"
	"sort"

	"github.com/kingrea/coursenobi/internal/course"
)

// NodeKind distinguishes course nodes from synthetic choice nodes.
type NodeKind uint8

const (
	KindCourse NodeKind = iota
	KindChoice
)

// ChoiceID identifies one OR group. IDs are allocated in increasing order per
// graph and are never shared between two OR expressions.
type ChoiceID int

func (c ChoiceID) String() string {
	return fmt.Sprintf("or-%d", int(c))
}

// NodeKey is either a course or a choice. Exactly one of Course / Choice is
// meaningful, selected by Kind.
type NodeKey struct {
	Kind   NodeKind
	Course course.ID
	Choice ChoiceID
}

// CourseNode returns the key for a course.
func CourseNode(id course.ID) NodeKey {
	return NodeKey{Kind: KindCourse, Course: id}
}

// ChoiceNode returns the key for a choice.
func ChoiceNode(id ChoiceID) NodeKey {
	return NodeKey{Kind: KindChoice, Choice: id}
}

// IsChoice reports whether the key names a choice node.
func (k NodeKey) IsChoice() bool {
	return k.Kind == KindChoice
}

func (k NodeKey) String() string {
	if k.IsChoice() {
		return k.Choice.String()
	}
	return string(k.Course)
}

// Less orders courses (by id) before choices (by id).
func (k NodeKey) Less(other NodeKey) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.IsChoice() {
		return k.Choice < other.Choice
	}
	return k.Course < other.Course
}

// Relation is the kind of requirement an edge encodes.
type Relation uint8

const (
	// Prerequisite: the target must be scheduled in a strictly earlier term.
	Prerequisite Relation = iota
	// Corequisite: source and target share a term.
	Corequisite
	// PrerequisiteOrCorequisite: the target may be earlier or in the same term.
	PrerequisiteOrCorequisite
)

func (r Relation) String() string {
	switch r {
	case Prerequisite:
		return "prerequisite"
	case Corequisite:
		return "corequisite"
	case PrerequisiteOrCorequisite:
		return "prerequisite-or-corequisite"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// NoBranch marks edges that do not leave a choice node.
const NoBranch = -1

// Edge points from a node to something it requires.
type Edge struct {
	From     NodeKey
	To       NodeKey
	Relation Relation
	// Branch is the alternative index for edges leaving a choice, NoBranch
	// otherwise.
	Branch int
}

// edgeKey identifies an edge among the edges leaving one node. Only choices
// use more than one branch, so a course shared by two alternatives gets one
// edge per alternative.
type edgeKey struct {
	to     NodeKey
	branch int
}

// inKey identifies an edge among the edges entering one node.
type inKey struct {
	from   NodeKey
	branch int
}

// Graph is an arena-style dependency graph. Nodes are plain keys, so removing
// a node is key deletion and never leaves dangling references. A Graph is not
// safe for concurrent mutation; each scheduling run owns its own.
type Graph struct {
	nodes      map[NodeKey]struct{}
	out        map[NodeKey]map[edgeKey]Edge
	in         map[NodeKey]map[inKey]struct{}
	roots      map[course.ID]struct{}
	completed  map[course.ID]struct{}
	nextChoice ChoiceID
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[NodeKey]struct{}),
		out:       make(map[NodeKey]map[edgeKey]Edge),
		in:        make(map[NodeKey]map[inKey]struct{}),
		roots:     make(map[course.ID]struct{}),
		completed: make(map[course.ID]struct{}),
	}
}

// AddCourse inserts a course node if it is missing and returns its key.
func (g *Graph) AddCourse(id course.ID) NodeKey {
	k := CourseNode(id)
	g.nodes[k] = struct{}{}
	return k
}

// NewChoice allocates a fresh choice node.
func (g *Graph) NewChoice() NodeKey {
	g.nextChoice++
	k := ChoiceNode(g.nextChoice)
	g.nodes[k] = struct{}{}
	return k
}

// Has reports whether the node is present.
func (g *Graph) Has(k NodeKey) bool {
	_, ok := g.nodes[k]
	return ok
}

// AddEdge inserts e. Both endpoints are added when missing. Edges leaving a
// course always carry NoBranch; edges leaving a choice are distinct per
// branch, so one target may sit in several branches. A second edge with the
// same source, target and branch only replaces the first when its relation
// is stricter: Prerequisite, then Corequisite, then
// PrerequisiteOrCorequisite. Self-loops are ignored. It reports whether the
// graph changed.
func (g *Graph) AddEdge(e Edge) bool {
	if e.From == e.To {
		return false
	}
	if !e.From.IsChoice() {
		e.Branch = NoBranch
	}
	g.nodes[e.From] = struct{}{}
	g.nodes[e.To] = struct{}{}
	key := edgeKey{to: e.To, branch: e.Branch}
	if existing, ok := g.out[e.From][key]; ok {
		if strictness(e.Relation) <= strictness(existing.Relation) {
			return false
		}
	}
	if g.out[e.From] == nil {
		g.out[e.From] = make(map[edgeKey]Edge)
	}
	if g.in[e.To] == nil {
		g.in[e.To] = make(map[inKey]struct{})
	}
	g.out[e.From][key] = e
	g.in[e.To][inKey{from: e.From, branch: e.Branch}] = struct{}{}
	return true
}

func strictness(r Relation) int {
	switch r {
	case Prerequisite:
		return 2
	case Corequisite:
		return 1
	default:
		return 0
	}
}

// Edge returns the edge from -> to. When a choice reaches to from several
// branches the lowest branch is returned.
func (g *Graph) Edge(from, to NodeKey) (Edge, bool) {
	for _, e := range g.Out(from) {
		if e.To == to {
			return e, true
		}
	}
	return Edge{}, false
}

// RemoveEdge deletes every edge from -> to, across all branches.
func (g *Graph) RemoveEdge(from, to NodeKey) {
	for key := range g.out[from] {
		if key.to == to {
			g.RemoveBranchEdge(from, to, key.branch)
		}
	}
}

// RemoveBranchEdge deletes the edge from -> to in one branch only.
func (g *Graph) RemoveBranchEdge(from, to NodeKey, branch int) {
	if targets, ok := g.out[from]; ok {
		delete(targets, edgeKey{to: to, branch: branch})
		if len(targets) == 0 {
			delete(g.out, from)
		}
	}
	if sources, ok := g.in[to]; ok {
		delete(sources, inKey{from: from, branch: branch})
		if len(sources) == 0 {
			delete(g.in, to)
		}
	}
}

// RemoveNode deletes k and every edge touching it. Roots and completion marks
// are left alone so a removed course still reports as completed.
func (g *Graph) RemoveNode(k NodeKey) {
	for key := range g.out[k] {
		g.RemoveBranchEdge(k, key.to, key.branch)
	}
	for key := range g.in[k] {
		g.RemoveBranchEdge(key.from, k, key.branch)
	}
	delete(g.nodes, k)
}

// Out returns the edges leaving k ordered by branch, then target.
func (g *Graph) Out(k NodeKey) []Edge {
	edges := make([]Edge, 0, len(g.out[k]))
	for _, e := range g.out[k] {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Branch != edges[j].Branch {
			return edges[i].Branch < edges[j].Branch
		}
		return edges[i].To.Less(edges[j].To)
	})
	return edges
}

// In returns the edges entering k ordered by source, then branch.
func (g *Graph) In(k NodeKey) []Edge {
	edges := make([]Edge, 0, len(g.in[k]))
	for key := range g.in[k] {
		edges = append(edges, g.out[key.from][edgeKey{to: k, branch: key.branch}])
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From.Less(edges[j].From)
		}
		return edges[i].Branch < edges[j].Branch
	})
	return edges
}

// Successors returns the distinct targets of k's edges in Out order.
func (g *Graph) Successors(k NodeKey) []NodeKey {
	var out []NodeKey
	seen := map[NodeKey]struct{}{}
	for _, e := range g.Out(k) {
		if _, ok := seen[e.To]; ok {
			continue
		}
		seen[e.To] = struct{}{}
		out = append(out, e.To)
	}
	return out
}

// Predecessors returns the distinct sources of edges entering k in sorted
// order.
func (g *Graph) Predecessors(k NodeKey) []NodeKey {
	var out []NodeKey
	for _, e := range g.In(k) {
		if n := len(out); n > 0 && out[n-1] == e.From {
			continue
		}
		out = append(out, e.From)
	}
	return out
}

// InDegree returns the number of edges entering k, counting each branch of a
// choice separately.
func (g *Graph) InDegree(k NodeKey) int {
	return len(g.in[k])
}

// Branches returns the distinct branch indices leaving a choice, ascending.
func (g *Graph) Branches(k NodeKey) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, e := range g.out[k] {
		if _, ok := seen[e.Branch]; ok {
			continue
		}
		seen[e.Branch] = struct{}{}
		out = append(out, e.Branch)
	}
	sort.Ints(out)
	return out
}

// BranchTargets returns the targets of one branch of a choice.
func (g *Graph) BranchTargets(k NodeKey, branch int) []NodeKey {
	var out []NodeKey
	for _, e := range g.Out(k) {
		if e.Branch == branch {
			out = append(out, e.To)
		}
	}
	return out
}

// Nodes returns every node, courses first, each group sorted.
func (g *Graph) Nodes() []NodeKey {
	out := make([]NodeKey, 0, len(g.nodes))
	for k := range g.nodes {
		out = append(out, k)
	}
	sortKeys(out)
	return out
}

// Courses returns the course nodes in lexicographic order.
func (g *Graph) Courses() []course.ID {
	var out []course.ID
	for k := range g.nodes {
		if !k.IsChoice() {
			out = append(out, k.Course)
		}
	}
	course.Sort(out)
	return out
}

// Choices returns the choice nodes in allocation order.
func (g *Graph) Choices() []ChoiceID {
	var out []ChoiceID
	for k := range g.nodes {
		if k.IsChoice() {
			out = append(out, k.Choice)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// AddRoot records a required course and adds its node.
func (g *Graph) AddRoot(id course.ID) {
	g.AddCourse(id)
	g.roots[id] = struct{}{}
}

// IsRoot reports whether id is a required course.
func (g *Graph) IsRoot(id course.ID) bool {
	_, ok := g.roots[id]
	return ok
}

// Roots returns the required courses in lexicographic order.
func (g *Graph) Roots() []course.ID {
	out := make([]course.ID, 0, len(g.roots))
	for id := range g.roots {
		out = append(out, id)
	}
	course.Sort(out)
	return out
}

// MarkCompleted records that id needs no scheduling.
func (g *Graph) MarkCompleted(id course.ID) {
	g.completed[id] = struct{}{}
}

// IsCompleted reports whether id was marked completed.
func (g *Graph) IsCompleted(id course.ID) bool {
	_, ok := g.completed[id]
	return ok
}

// Completed returns the completed courses in lexicographic order.
func (g *Graph) Completed() []course.ID {
	out := make([]course.ID, 0, len(g.completed))
	for id := range g.completed {
		out = append(out, id)
	}
	course.Sort(out)
	return out
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	c := New()
	c.nextChoice = g.nextChoice
	for k := range g.nodes {
		c.nodes[k] = struct{}{}
	}
	for _, targets := range g.out {
		for _, e := range targets {
			c.AddEdge(e)
		}
	}
	for id := range g.roots {
		c.roots[id] = struct{}{}
	}
	for id := range g.completed {
		c.completed[id] = struct{}{}
	}
	return c
}

// Reachable returns every node reachable from the given starts, starts
// included. Absent starts are skipped. follow, when non-nil, filters edges.
func (g *Graph) Reachable(starts []NodeKey, follow func(Edge) bool) map[NodeKey]struct{} {
	seen := make(map[NodeKey]struct{}, len(starts))
	stack := make([]NodeKey, 0, len(starts))
	for _, k := range starts {
		if !g.Has(k) {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		stack = append(stack, k)
	}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for key, e := range g.out[k] {
			if follow != nil && !follow(e) {
				continue
			}
			to := key.to
			if _, ok := seen[to]; ok {
				continue
			}
			seen[to] = struct{}{}
			stack = append(stack, to)
		}
	}
	return seen
}

// RootKeys returns the node keys of the required courses present in the graph.
func (g *Graph) RootKeys() []NodeKey {
	var out []NodeKey
	for _, id := range g.Roots() {
		if k := CourseNode(id); g.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// SortKeys orders keys with NodeKey.Less.
func SortKeys(keys []NodeKey) {
	sortKeys(keys)
}

func sortKeys(keys []NodeKey) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
