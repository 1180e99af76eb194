package requirement

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/coursenobi/internal/course"
)

// The catalog stores parsed trees in list form: a leaf is a string and a
// group is a two-element list ["and"|"or", [children...]].

// MarshalYAML implements yaml.Marshaler.
func (e Expr) MarshalYAML() (interface{}, error) {
	return e.listForm(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Expr) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := fromYAMLNode(value)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// MarshalJSON implements json.Marshaler. Department codes such as "I&C SCI"
// are written without HTML escaping.
func (e Expr) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e.listForm()); err != nil {
		return nil, fmt.Errorf("requirement: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("requirement: %w", err)
	}
	parsed, err := fromList(raw)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

func (e Expr) listForm() interface{} {
	if e.Kind == KindLeaf {
		return string(e.Course)
	}
	children := make([]interface{}, len(e.Children))
	for i, child := range e.Children {
		children[i] = child.listForm()
	}
	return []interface{}{e.Kind.String(), children}
}

func fromYAMLNode(node *yaml.Node) (Expr, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) != 1 {
			return Expr{}, fmt.Errorf("requirement: line %d: empty document", node.Line)
		}
		return fromYAMLNode(node.Content[0])
	case yaml.ScalarNode:
		return leafFromString(node.Value)
	case yaml.SequenceNode:
		if len(node.Content) != 2 || node.Content[0].Kind != yaml.ScalarNode || node.Content[1].Kind != yaml.SequenceNode {
			return Expr{}, fmt.Errorf("requirement: line %d: expected [operator, [children...]]", node.Line)
		}
		kind, err := kindFromString(node.Content[0].Value)
		if err != nil {
			return Expr{}, fmt.Errorf("requirement: line %d: %w", node.Line, err)
		}
		items := node.Content[1].Content
		if len(items) == 0 {
			return Expr{}, fmt.Errorf("requirement: line %d: %s group has no children", node.Line, kind)
		}
		children := make([]Expr, 0, len(items))
		for _, item := range items {
			child, err := fromYAMLNode(item)
			if err != nil {
				return Expr{}, err
			}
			children = append(children, child)
		}
		return Expr{Kind: kind, Children: children}, nil
	default:
		return Expr{}, fmt.Errorf("requirement: line %d: unsupported node", node.Line)
	}
}

func fromList(raw interface{}) (Expr, error) {
	switch v := raw.(type) {
	case string:
		return leafFromString(v)
	case []interface{}:
		if len(v) != 2 {
			return Expr{}, fmt.Errorf("requirement: expected [operator, [children...]], got %d elements", len(v))
		}
		op, ok := v[0].(string)
		if !ok {
			return Expr{}, fmt.Errorf("requirement: operator must be a string")
		}
		kind, err := kindFromString(op)
		if err != nil {
			return Expr{}, fmt.Errorf("requirement: %w", err)
		}
		items, ok := v[1].([]interface{})
		if !ok || len(items) == 0 {
			return Expr{}, fmt.Errorf("requirement: %s group needs a non-empty child list", kind)
		}
		children := make([]Expr, 0, len(items))
		for _, item := range items {
			child, err := fromList(item)
			if err != nil {
				return Expr{}, err
			}
			children = append(children, child)
		}
		return Expr{Kind: kind, Children: children}, nil
	default:
		return Expr{}, fmt.Errorf("requirement: unsupported value %T", raw)
	}
}

func leafFromString(value string) (Expr, error) {
	id := course.Normalize(value)
	if id == "" {
		return Expr{}, fmt.Errorf("requirement: empty course identifier")
	}
	return Leaf(course.ID(id)), nil
}

func kindFromString(op string) (Kind, error) {
	switch op {
	case tokenAnd:
		return KindAnd, nil
	case tokenOr:
		return KindOr, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", op)
	}
}
