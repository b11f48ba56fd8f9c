package suite

import (
	"fmt"
	"sort"

	"github.com/onsi/gomega/types"
	"gopkg.in/yaml.v3"

	"github.com/tansive/restspec/pkg/matchers"
)

// Check is a body expectation: a path and one or more matcher keys, for example
//
//	path: workspaces
//	size: 2
//	has_items: [myFirstWorkspace]
//
// Several matcher keys on one check must all hold.
type Check struct {
	Path     string
	Matchers map[string]any
}

func (c *Check) UnmarshalYAML(n *yaml.Node) error {
	var raw map[string]any
	if err := n.Decode(&raw); err != nil {
		return err
	}
	path, ok := raw["path"].(string)
	if !ok {
		return fmt.Errorf("line %d: body check needs a path", n.Line)
	}
	delete(raw, "path")
	if len(raw) == 0 {
		return fmt.Errorf("line %d: body check on %q has no matcher", n.Line, path)
	}
	c.Path = path
	c.Matchers = raw
	return nil
}

// matcher builds the matcher for c. expand is applied to every string operand.
func (c Check) matcher(expand func(string) (string, error)) (types.GomegaMatcher, error) {
	keys := make([]string, 0, len(c.Matchers))
	for k := range c.Matchers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ms := make([]types.GomegaMatcher, 0, len(keys))
	for _, k := range keys {
		arg, err := expandValue(c.Matchers[k], expand)
		if err != nil {
			return nil, err
		}
		m, err := buildMatcher(k, arg)
		if err != nil {
			return nil, fmt.Errorf("body check on %q: %w", c.Path, err)
		}
		ms = append(ms, m)
	}
	if len(ms) == 1 {
		return ms[0], nil
	}
	return matchers.AllOf(ms...), nil
}

func buildMatcher(name string, arg any) (types.GomegaMatcher, error) {
	switch name {
	case "equals":
		return matchers.EqualTo(arg), nil
	case "not_equals":
		return matchers.Not(matchers.EqualTo(arg)), nil
	case "equals_json":
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("equals_json expects a JSON string")
		}
		return matchers.EqualToJSON(s), nil
	case "matches":
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("matches expects a pattern")
		}
		return matchers.MatchesPattern(s), nil
	case "contains":
		return listMatcher(name, arg, matchers.Contains)
	case "contains_in_any_order":
		return listMatcher(name, arg, matchers.ContainsInAnyOrder)
	case "has_items":
		return listMatcher(name, arg, matchers.HasItems)
	case "has_item":
		return matchers.HasItem(arg), nil
	case "has_key":
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("has_key expects a key name")
		}
		return matchers.HasKey(s), nil
	case "size":
		n, ok := arg.(int)
		if !ok {
			return nil, fmt.Errorf("size expects an integer")
		}
		return matchers.HasSize(n), nil
	case "empty", "not_empty", "null":
		b, ok := arg.(bool)
		if !ok {
			return nil, fmt.Errorf("%s expects true or false", name)
		}
		var m types.GomegaMatcher
		switch name {
		case "empty":
			m = matchers.Empty()
		case "not_empty":
			m = matchers.NotEmpty()
		default:
			m = matchers.NilValue()
		}
		if !b {
			m = matchers.Not(m)
		}
		return m, nil
	case "greater_than", "less_than":
		switch arg.(type) {
		case int, float64:
		default:
			return nil, fmt.Errorf("%s expects a number", name)
		}
		if name == "greater_than" {
			return matchers.GreaterThan(arg), nil
		}
		return matchers.LessThan(arg), nil
	}
	return nil, fmt.Errorf("unknown matcher %q", name)
}

func listMatcher(name string, arg any, build func(...any) matchers.Matcher) (types.GomegaMatcher, error) {
	elems, ok := arg.([]any)
	if !ok {
		return nil, fmt.Errorf("%s expects a list", name)
	}
	return build(elems...), nil
}

// expandValue applies expand to every string inside v.
func expandValue(v any, expand func(string) (string, error)) (any, error) {
	switch t := v.(type) {
	case string:
		return expand(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			x, err := expandValue(e, expand)
			if err != nil {
				return nil, err
			}
			out[i] = x
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			x, err := expandValue(e, expand)
			if err != nil {
				return nil, err
			}
			out[k] = x
		}
		return out, nil
	}
	return v, nil
}
