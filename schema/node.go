package schema

import (
	"errors"
	"fmt"
)

// Type identifies the kind of a Node.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeEnum    Type = "enum"
)

// Node is a recursive description of an expected JSON value.
type Node struct {
	Type        Type
	Description string

	// Object
	Properties []Property
	Required   []string

	// Array
	Items *Node

	// Enum
	EnumValues []any

	// Default is advertised to clients only; validation never fills it in.
	Default any
}

// Property is a named member of an object node.
type Property struct {
	Name   string
	Schema *Node
}

// ErrMalformedSchema is returned by Check for structurally invalid nodes.
var ErrMalformedSchema = errors.New("schema: malformed")

func String(description string) *Node {
	return &Node{Type: TypeString, Description: description}
}

func Number(description string) *Node {
	return &Node{Type: TypeNumber, Description: description}
}

func Boolean(description string) *Node {
	return &Node{Type: TypeBoolean, Description: description}
}

// Enum accepts exactly one of values. Values must be strings or numbers.
func Enum(description string, values ...any) *Node {
	return &Node{Type: TypeEnum, Description: description, EnumValues: values}
}

// Array accepts a list whose elements all match items. A nil items node
// accepts any element.
func Array(description string, items *Node) *Node {
	return &Node{Type: TypeArray, Description: description, Items: items}
}

// Object accepts a JSON object with the given properties.
func Object(props ...Property) *Node {
	return &Node{Type: TypeObject, Properties: props}
}

// Prop pairs a property name with its node.
func Prop(name string, n *Node) Property {
	return Property{Name: name, Schema: n}
}

// Require marks object properties as required and returns the node.
func (n *Node) Require(names ...string) *Node {
	n.Required = append(n.Required, names...)
	return n
}

// WithDefault sets the advertised default value and returns the node.
func (n *Node) WithDefault(v any) *Node {
	n.Default = v
	return n
}

// Property looks up an object property by name.
func (n *Node) Property(name string) (*Node, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Schema, true
		}
	}
	return nil, false
}

// IsRequired reports whether name is listed as required on an object node.
func (n *Node) IsRequired(name string) bool {
	for _, r := range n.Required {
		if r == name {
			return true
		}
	}
	return false
}

// Check verifies the node tree is well formed: known types, no duplicate or
// nil properties, required names that exist, and non-empty enums holding
// only strings and numbers.
func (n *Node) Check() error {
	return n.check("")
}

func (n *Node) check(path string) error {
	if n == nil {
		return fmt.Errorf("%w: nil node at %s", ErrMalformedSchema, displayPath(path))
	}

	switch n.Type {
	case TypeString, TypeNumber, TypeBoolean:
		return nil
	case TypeArray:
		if n.Items == nil {
			return nil
		}
		return n.Items.check(path + "[]")
	case TypeEnum:
		if len(n.EnumValues) == 0 {
			return fmt.Errorf("%w: enum at %s has no values", ErrMalformedSchema, displayPath(path))
		}
		for _, v := range n.EnumValues {
			if _, ok := v.(string); ok {
				continue
			}
			if _, ok := toFloat(v); !ok {
				return fmt.Errorf("%w: enum at %s has unsupported literal %v", ErrMalformedSchema, displayPath(path), v)
			}
		}
		return nil
	case TypeObject:
		seen := make(map[string]struct{}, len(n.Properties))
		for _, p := range n.Properties {
			if p.Name == "" {
				return fmt.Errorf("%w: unnamed property at %s", ErrMalformedSchema, displayPath(path))
			}
			if _, dup := seen[p.Name]; dup {
				return fmt.Errorf("%w: duplicate property %q at %s", ErrMalformedSchema, p.Name, displayPath(path))
			}
			seen[p.Name] = struct{}{}
			if err := p.Schema.check(join(path, p.Name)); err != nil {
				return err
			}
		}
		for _, r := range n.Required {
			if _, ok := seen[r]; !ok {
				return fmt.Errorf("%w: required property %q at %s is not declared", ErrMalformedSchema, r, displayPath(path))
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown type %q at %s", ErrMalformedSchema, n.Type, displayPath(path))
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func displayPath(path string) string {
	if path == "" {
		return "arguments"
	}
	return path
}
