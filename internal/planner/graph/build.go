package graph

import (
	"github.com/rs/zerolog"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/catalog"
	"github.com/kingrea/coursenobi/internal/course"
	"github.com/kingrea/coursenobi/internal/requirement"
)

// Option configures Build and Reduce.
type Option func(*options)

type options struct {
	logger zerolog.Logger
}

// WithLogger sets the logger used for warnings and debug traces.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func collectOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

type builder struct {
	cat      catalog.Accessor
	g        *Graph
	expanded map[course.ID]bool
	warnings []apperrors.Warning
	log      zerolog.Logger
}

// Build expands the transitive requirements of required into a fresh graph.
// Each course is expanded once, so converging paths share one node. Courses
// missing from the catalog become dependency-free leaves and are reported as
// warnings.
func Build(required []course.ID, cat catalog.Accessor, opts ...Option) (*Graph, []apperrors.Warning) {
	o := collectOptions(opts)
	b := &builder{
		cat:      cat,
		g:        New(),
		expanded: make(map[course.ID]bool),
		log:      o.logger,
	}
	for _, id := range course.Dedupe(required) {
		b.g.AddRoot(id)
		b.expand(id)
	}
	b.log.Debug().
		Int("nodes", b.g.Len()).
		Int("choices", len(b.g.Choices())).
		Int("warnings", len(b.warnings)).
		Msg("dependency graph built")
	return b.g, b.warnings
}

func (b *builder) expand(id course.ID) {
	if b.expanded[id] {
		return
	}
	b.expanded[id] = true
	var rec *catalog.Record
	var ok bool
	if b.cat != nil {
		rec, ok = b.cat.Lookup(id)
	}
	if !ok {
		b.warn(apperrors.Warnf(apperrors.KindUnknownCourse, string(id), "course is not in the catalog; scheduled without requirements"))
		return
	}
	owner := CourseNode(id)
	reqs := []struct {
		expr *requirement.Expr
		rel  Relation
	}{
		{rec.Prerequisite, Prerequisite},
		{rec.Corequisite, Corequisite},
		{rec.PrerequisiteOrCorequisite, PrerequisiteOrCorequisite},
	}
	for _, r := range reqs {
		if r.expr == nil || r.expr.IsZero() {
			continue
		}
		b.attach(owner, id, *r.expr, r.rel, NoBranch)
	}
}

// attach wires expr under parent. owner is the course whose requirement is
// being expanded; branch is the alternative index when parent is a choice.
func (b *builder) attach(parent NodeKey, owner course.ID, expr requirement.Expr, rel Relation, branch int) {
	switch expr.Kind {
	case requirement.KindLeaf:
		id := expr.Course
		if id == owner {
			b.warn(apperrors.Warnf(apperrors.KindSelfReference, string(owner), "%s lists itself as a %s", owner, rel))
			return
		}
		target := b.g.AddCourse(id)
		b.g.AddEdge(Edge{From: parent, To: target, Relation: rel, Branch: branch})
		if rel == Corequisite {
			b.g.AddEdge(Edge{From: target, To: CourseNode(owner), Relation: Corequisite, Branch: NoBranch})
		}
		b.expand(id)
	case requirement.KindAnd:
		for _, child := range expr.Children {
			b.attach(parent, owner, child, rel, branch)
		}
	case requirement.KindOr:
		if len(expr.Children) == 0 {
			return
		}
		if len(expr.Children) == 1 {
			b.attach(parent, owner, expr.Children[0], rel, branch)
			return
		}
		choice := b.g.NewChoice()
		b.g.AddEdge(Edge{From: parent, To: choice, Relation: rel, Branch: branch})
		b.log.Debug().Str("course", string(owner)).Str("choice", choice.String()).
			Int("branches", len(expr.Children)).Msg("choice allocated")
		for i, child := range expr.Children {
			b.attach(choice, owner, child, rel, i)
		}
	}
}

func (b *builder) warn(w apperrors.Warning) {
	b.log.Warn().Str("kind", string(w.Kind)).Str("subject", w.Subject).Msg(w.Message)
	b.warnings = append(b.warnings, w)
}
