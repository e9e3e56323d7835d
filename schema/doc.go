// Package schema describes tool argument contracts as a small recursive
// Node type and validates decoded JSON values against them.
//
// A Node is one of six kinds: string, number, boolean, object, array or
// enum. Objects list their properties in declaration order and name the
// subset that is required; arrays carry an item node; enums carry the
// ordered literals they accept.
//
//	args := schema.Object(
//	    schema.Prop("stock_name", schema.String("Company name")),
//	    schema.Prop("period", schema.Enum("Range", "1m", "6m", "1yr").WithDefault("1yr")),
//	).Require("stock_name")
//
//	err := schema.Validate(args, decoded)
//
// Validation rules:
//   - a required property must be present and non-null
//   - a present property must match its declared kind; objects and arrays recurse
//   - enum values must equal one of the literals exactly (case-sensitive)
//   - properties the node does not declare are ignored
//
// Node.JSONSchema renders the node as a JSON Schema document for tools/list,
// keeping property order stable.
package schema
