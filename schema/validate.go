package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ValidationError describes the first mismatch found by Validate.
type ValidationError struct {
	// Path is the dotted location of the offending value ("" for the root).
	Path     string
	Expected string
	Actual   string
	Missing  bool
}

func (e *ValidationError) Error() string {
	if e.Missing {
		return fmt.Sprintf("missing required argument %q: expected %s, got %s", e.Path, e.Expected, e.Actual)
	}
	return fmt.Sprintf("invalid argument %q: expected %s, got %s", displayPath(e.Path), e.Expected, e.Actual)
}

// Validate checks value, a decoded JSON document, against n. It returns a
// *ValidationError describing the first mismatch, or nil.
func Validate(n *Node, value any) error {
	return validate(n, value, "")
}

func validate(n *Node, value any, path string) error {
	if n == nil {
		return nil
	}

	switch n.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return mismatch(path, "string", value)
		}
	case TypeNumber:
		if _, ok := toFloat(value); !ok {
			return mismatch(path, "number", value)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return mismatch(path, "boolean", value)
		}
	case TypeEnum:
		for _, allowed := range n.EnumValues {
			if enumEqual(allowed, value) {
				return nil
			}
		}
		return mismatch(path, "one of "+formatEnum(n.EnumValues), value)
	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			return mismatch(path, "array", value)
		}
		for i, item := range items {
			if err := validate(n.Items, item, path+"["+strconv.Itoa(i)+"]"); err != nil {
				return err
			}
		}
	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return mismatch(path, "object", value)
		}
		for _, name := range n.Required {
			if v, present := obj[name]; !present || v == nil {
				actual := "null"
				if !present {
					actual = "nothing"
				}
				expected := "value"
				if prop, ok := n.Property(name); ok && prop != nil {
					expected = prop.kindName()
				}
				return &ValidationError{Path: join(path, name), Expected: expected, Actual: actual, Missing: true}
			}
		}
		for _, p := range n.Properties {
			v, present := obj[p.Name]
			if !present {
				continue
			}
			if v == nil && !n.IsRequired(p.Name) {
				// Optional members may be sent as null.
				continue
			}
			if err := validate(p.Schema, v, join(path, p.Name)); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedSchema, n.Type)
	}
	return nil
}

func (n *Node) kindName() string {
	if n.Type == TypeEnum {
		return "one of " + formatEnum(n.EnumValues)
	}
	return string(n.Type)
}

func mismatch(path, expected string, value any) *ValidationError {
	return &ValidationError{Path: path, Expected: expected, Actual: describe(value)}
}

// describe renders the JSON kind of a decoded value, quoting strings so enum
// mismatches show what was sent.
func describe(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	if _, ok := toFloat(value); ok {
		return "number"
	}
	return fmt.Sprintf("%T", value)
}

func formatEnum(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			parts = append(parts, strconv.Quote(s))
			continue
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func enumEqual(allowed, value any) bool {
	if s, ok := allowed.(string); ok {
		vs, ok := value.(string)
		return ok && vs == s
	}
	a, ok := toFloat(allowed)
	if !ok {
		return false
	}
	b, ok := toFloat(value)
	return ok && a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
