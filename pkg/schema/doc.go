// Package schema describes the value types carried by plugs.
//
// Types are written as short tags in process declarations: "string", "int",
// "float", "bool", "file", "any", and sequences such as "[int]". Iterative
// plugs use the sequence form at the iteration boundary and the element type
// on the wrapped process.
//
// Override values are written as text in pipeline documents and parsed with
// YAML flow syntax:
//
//	v, err := schema.ParseValue("[1, 2, 3]")   // []any{1, 2, 3}
//	t, _ := schema.ParseType("[int]")
//	err = t.Validate(v)
//
// The literals "None" and "null" parse to a nil value, meaning "no value".
package schema
