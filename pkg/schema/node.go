// Package schema implements the restricted JSON-Schema subset used to describe
// tool arguments, and the validator that checks call arguments against it.
package schema

import "slices"

// Type is a JSON value type name.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
	TypeNull    Type = "null"
)

// Node describes the accepted shape of one value. Constraints are grouped by the
// value kind they apply to; the validator only consults the group matching the
// runtime kind of the value being checked.
type Node struct {
	Types       []Type
	Description string
	Default     any
	Enum        []any

	String *StringConstraints
	Number *NumberConstraints
	Array  *ArrayConstraints
	Object *ObjectConstraints
}

// StringConstraints apply to string values.
type StringConstraints struct {
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string
}

// NumberConstraints apply to integer and number values.
type NumberConstraints struct {
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64
}

// ArrayConstraints apply to array values.
type ArrayConstraints struct {
	MinItems    *int
	MaxItems    *int
	Items       *Node
	UniqueItems bool
}

// ObjectConstraints apply to object values, including the top-level argument map.
type ObjectConstraints struct {
	MinProperties        *int
	MaxProperties        *int
	Required             []string
	Properties           map[string]*Node
	AdditionalProperties *bool
}

const (
	FormatURI   = "uri"
	FormatEmail = "email"
)

// Accepts reports whether t is among the declared types. An untyped node accepts anything.
func (n *Node) Accepts(t Type) bool {
	if n == nil || len(n.Types) == 0 {
		return true
	}
	return slices.Contains(n.Types, t)
}

// Nullable reports whether null is explicitly declared.
func (n *Node) Nullable() bool {
	return n != nil && slices.Contains(n.Types, TypeNull)
}

// Property returns the nested schema declared for name.
func (o *ObjectConstraints) Property(name string) (*Node, bool) {
	if o == nil {
		return nil, false
	}
	prop, ok := o.Properties[name]
	return prop, ok
}

// allowsAdditional resolves additionalProperties, falling back to def when unset.
func (o *ObjectConstraints) allowsAdditional(def bool) bool {
	if o == nil || o.AdditionalProperties == nil {
		return def
	}
	return *o.AdditionalProperties
}

// PropertyNames returns the declared property names in sorted order.
func (o *ObjectConstraints) PropertyNames() []string {
	if o == nil {
		return nil
	}
	names := make([]string, 0, len(o.Properties))
	for name := range o.Properties {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
