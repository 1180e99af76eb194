package requirement

import (
	"strings"

	"github.com/kingrea/coursenobi/internal/apperrors"
	"github.com/kingrea/coursenobi/internal/course"
)

// Validator checks a course token and returns its canonical identifier. It
// returns false when the token is not a course the catalog can know about.
type Validator func(token string) (course.ID, bool)

const (
	tokenOpen  = "("
	tokenClose = ")"
	tokenAnd   = "and"
	tokenOr    = "or"
)

// frame is one parenthesized level under construction.
type frame struct {
	op        Kind
	hasOp     bool
	operators int
	children  []Expr
}

// Parse turns requirement text into an Expr. Mixing "and" and "or" at one
// level without parentheses is an error rather than a precedence guess.
func Parse(text string, v Validator) (Expr, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Expr{}, apperrors.New(apperrors.KindMalformedExpression, text, "requirement is empty")
	}
	stack := []*frame{{}}
	for _, tok := range tokens {
		top := stack[len(stack)-1]
		switch tok {
		case tokenOpen:
			stack = append(stack, &frame{})
		case tokenClose:
			if len(stack) == 1 {
				return Expr{}, apperrors.New(apperrors.KindMalformedExpression, text, "unexpected %q", tokenClose)
			}
			stack = stack[:len(stack)-1]
			expr, err := top.finish(text)
			if err != nil {
				return Expr{}, err
			}
			parent := stack[len(stack)-1]
			parent.children = append(parent.children, expr)
		case tokenAnd, tokenOr:
			op := KindAnd
			if tok == tokenOr {
				op = KindOr
			}
			if len(top.children) == 0 {
				return Expr{}, apperrors.New(apperrors.KindMalformedExpression, text, "%q has no left operand", tok)
			}
			if top.hasOp && top.op != op {
				return Expr{}, apperrors.New(apperrors.KindAmbiguousOperator, text,
					"%q and %q mixed at one level without parentheses", top.op, op)
			}
			top.op, top.hasOp = op, true
			top.operators++
		default:
			id, ok := validate(v, tok)
			if !ok {
				return Expr{}, apperrors.New(apperrors.KindInvalidToken, tok, "%q is not a known course", tok)
			}
			top.children = append(top.children, Leaf(id))
		}
	}
	if len(stack) != 1 {
		return Expr{}, apperrors.New(apperrors.KindMalformedExpression, text, "unclosed %q", tokenOpen)
	}
	return stack[0].finish(text)
}

// ParseStatement parses the first sentence of a catalog paragraph. Anything
// after the first period is free text (restrictions, notes) and is ignored.
func ParseStatement(text string, v Validator) (Expr, error) {
	for _, statement := range strings.Split(text, ".") {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		return Parse(statement, v)
	}
	return Expr{}, apperrors.New(apperrors.KindMalformedExpression, text, "requirement is empty")
}

func (f *frame) finish(text string) (Expr, error) {
	switch {
	case len(f.children) == 0:
		return Expr{}, apperrors.New(apperrors.KindMalformedExpression, text, "empty group")
	case f.operators >= len(f.children):
		return Expr{}, apperrors.New(apperrors.KindMalformedExpression, text, "%q has no right operand", f.op)
	case f.operators+1 < len(f.children):
		return Expr{}, apperrors.New(apperrors.KindMalformedExpression, text, "operands without an operator")
	case !f.hasOp:
		return f.children[0], nil
	}
	return Expr{Kind: f.op, Children: f.children}, nil
}

func validate(v Validator, token string) (course.ID, bool) {
	if v == nil {
		return course.ID(course.Normalize(token)), true
	}
	return v(token)
}

// tokenize splits on parentheses and the two keywords. Consecutive other words
// form one token so "I&C SCI 33" stays whole.
func tokenize(text string) []string {
	text = strings.ReplaceAll(text, tokenOpen, " "+tokenOpen+" ")
	text = strings.ReplaceAll(text, tokenClose, " "+tokenClose+" ")
	var tokens []string
	var item []string
	flush := func() {
		if len(item) > 0 {
			tokens = append(tokens, strings.Join(item, " "))
			item = item[:0]
		}
	}
	for _, word := range strings.Fields(text) {
		switch word {
		case tokenOpen, tokenClose, tokenAnd, tokenOr:
			flush()
			tokens = append(tokens, word)
		default:
			item = append(item, word)
		}
	}
	flush()
	return tokens
}
