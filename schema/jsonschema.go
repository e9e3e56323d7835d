package schema

import "github.com/invopop/jsonschema"

// JSONSchema renders n as a JSON Schema document. Object properties keep
// their declaration order. Enums are typed "string" or "number" when all of
// their literals share that kind.
func (n *Node) JSONSchema() *jsonschema.Schema {
	if n == nil {
		return &jsonschema.Schema{}
	}

	s := &jsonschema.Schema{
		Description: n.Description,
		Default:     n.Default,
	}

	switch n.Type {
	case TypeObject:
		s.Type = "object"
		s.Properties = jsonschema.NewProperties()
		for _, p := range n.Properties {
			s.Properties.Set(p.Name, p.Schema.JSONSchema())
		}
		if len(n.Required) > 0 {
			s.Required = append([]string(nil), n.Required...)
		}
	case TypeArray:
		s.Type = "array"
		if n.Items != nil {
			s.Items = n.Items.JSONSchema()
		}
	case TypeEnum:
		s.Type = enumType(n.EnumValues)
		s.Enum = append([]any(nil), n.EnumValues...)
	default:
		s.Type = string(n.Type)
	}
	return s
}

func enumType(values []any) string {
	allStrings, allNumbers := true, true
	for _, v := range values {
		if _, ok := v.(string); !ok {
			allStrings = false
		}
		if _, ok := toFloat(v); !ok {
			allNumbers = false
		}
	}
	switch {
	case allStrings:
		return "string"
	case allNumbers:
		return "number"
	default:
		return ""
	}
}
