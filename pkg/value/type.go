// Package value defines the runtime type tags and tagged values that flow
// through the script engine.
package value

import "fmt"

// Type is the tag carried by every runtime value.
type Type string

const (
	Boolean Type = "boolean"
	String  Type = "string"
	Integer Type = "integer"
	Double  Type = "double"
	// VoidType only ever describes the absence of a function result.
	// A variable can never hold a void value.
	VoidType Type = "void"
	Object   Type = "object"
	Array    Type = "array"
)

// ParseType converts a wire type tag into a Type.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Boolean, String, Integer, Double, VoidType, Object, Array:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown type tag %q", s)
}

// IsNumeric reports whether t is integer or double.
func (t Type) IsNumeric() bool {
	return t == Integer || t == Double
}

// ComparableWith reports whether values of t and u may be ordered
// against each other (<, >, <=, >=). Only numeric-vs-numeric,
// string-vs-string and boolean-vs-boolean pairs qualify; booleans
// still reject ordering at evaluation time but are equality-comparable.
func (t Type) ComparableWith(u Type) bool {
	if t.IsNumeric() && u.IsNumeric() {
		return true
	}
	return t == u
}

func (t Type) String() string {
	return string(t)
}
