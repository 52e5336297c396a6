package models

import (
	"github.com/mcncl/serdegen/jsonv"
)

// IntermediateRepresentation holds a parsed sample document for the analyzer.
type IntermediateRepresentation struct {
	Root        jsonv.Value
	RootIsArray bool // True if the root of the JSON is an array vs an object
}

// AbsentPolicy controls how a generated encoder writes nil fields.
type AbsentPolicy string

const (
	// AbsentOmit leaves nil pointers, slices, maps and values out of the object.
	AbsentOmit AbsentPolicy = "omit"
	// AbsentNull writes them as JSON null.
	AbsentNull AbsentPolicy = "null"
)

// Valid reports whether p is a known policy.
func (p AbsentPolicy) Valid() bool {
	return p == AbsentOmit || p == AbsentNull
}

// UnknownPolicy controls how a generated decoder treats undeclared members.
type UnknownPolicy string

const (
	// UnknownSkip consumes and ignores undeclared members.
	UnknownSkip UnknownPolicy = "skip"
	// UnknownReject fails with a codec failure naming the member.
	UnknownReject UnknownPolicy = "reject"
)

// Valid reports whether p is a known policy.
func (p UnknownPolicy) Valid() bool {
	return p == UnknownSkip || p == UnknownReject
}

// FieldDescriptor describes one field of a generated type.
type FieldDescriptor struct {
	Name     string  // Go field name
	Key      string  // JSON member name
	Type     TypeRef // field type
	Required bool    // decoding fails when the member is absent
	Default  string  // JSON literal used when the member is absent
	Doc      string
}

// HasDefault reports whether the field carries a default literal.
func (f FieldDescriptor) HasDefault() bool { return f.Default != "" }

// TypeDescriptor describes a record type to generate a codec for.
type TypeDescriptor struct {
	Name    string
	Doc     string
	Fields  []FieldDescriptor
	Absent  AbsentPolicy
	Unknown UnknownPolicy
}

// Field returns the field decoded from key.
func (t *TypeDescriptor) Field(key string) (*FieldDescriptor, bool) {
	for i := range t.Fields {
		if t.Fields[i].Key == key {
			return &t.Fields[i], true
		}
	}
	return nil, false
}

// DescriptorSet is the input of the generator: the types of one Go package,
// in output order.
type DescriptorSet struct {
	Package string
	Types   []TypeDescriptor
	// RootSlice, when set, names a slice alias of the first type. Documents
	// whose root is an array decode through it.
	RootSlice string
}

// Lookup finds a type by name.
func (s *DescriptorSet) Lookup(name string) (*TypeDescriptor, bool) {
	for i := range s.Types {
		if s.Types[i].Name == name {
			return &s.Types[i], true
		}
	}
	return nil, false
}
