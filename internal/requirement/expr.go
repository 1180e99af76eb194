// Package requirement parses and represents boolean course requirements such
// as "(MATH 2A and MATH 2B) or MATH 5A".
package requirement

import (
	"strings"

	"github.com/kingrea/coursenobi/internal/course"
)

// Kind tags the variant held by an Expr.
type Kind uint8

const (
	KindLeaf Kind = iota
	KindAnd
	KindOr
)

// String returns the keyword used for the kind in requirement text.
func (k Kind) String() string {
	switch k {
	case KindAnd:
		return "and"
	case KindOr:
		return "or"
	default:
		return "leaf"
	}
}

// Expr is a requirement tree. Leaves name a course; And/Or nodes hold one or
// more children in source order.
type Expr struct {
	Kind     Kind
	Course   course.ID
	Children []Expr
}

// Leaf builds a single-course requirement.
func Leaf(id course.ID) Expr {
	return Expr{Kind: KindLeaf, Course: id}
}

// And builds a conjunction.
func And(children ...Expr) Expr {
	return Expr{Kind: KindAnd, Children: children}
}

// Or builds a disjunction.
func Or(children ...Expr) Expr {
	return Expr{Kind: KindOr, Children: children}
}

// IsZero reports whether e is the empty value.
func (e Expr) IsZero() bool {
	return e.Kind == KindLeaf && e.Course == "" && len(e.Children) == 0
}

// String renders the canonical form. Groups are always parenthesized so the
// output re-parses to the same tree.
func (e Expr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e Expr) write(b *strings.Builder) {
	if e.Kind == KindLeaf {
		b.WriteString(string(e.Course))
		return
	}
	b.WriteByte('(')
	for i, child := range e.Children {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteString(e.Kind.String())
			b.WriteByte(' ')
		}
		child.write(b)
	}
	b.WriteByte(')')
}

// Courses lists every course named in the tree, first occurrence first.
func (e Expr) Courses() []course.ID {
	seen := map[course.ID]struct{}{}
	var out []course.ID
	var walk func(Expr)
	walk = func(x Expr) {
		if x.Kind == KindLeaf {
			if x.Course == "" {
				return
			}
			if _, ok := seen[x.Course]; !ok {
				seen[x.Course] = struct{}{}
				out = append(out, x.Course)
			}
			return
		}
		for _, child := range x.Children {
			walk(child)
		}
	}
	walk(e)
	return out
}

// Equal reports structural equality.
func (e Expr) Equal(other Expr) bool {
	if e.Kind != other.Kind || e.Course != other.Course || len(e.Children) != len(other.Children) {
		return false
	}
	for i := range e.Children {
		if !e.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}
