package schema

import (
	"encoding/json"
	"fmt"
)

type wireNode struct {
	Type                 json.RawMessage  `json:"type,omitempty"`
	Description          string           `json:"description,omitempty"`
	Default              any              `json:"default,omitempty"`
	Enum                 []any            `json:"enum,omitempty"`
	MinLength            *int             `json:"minLength,omitempty"`
	MaxLength            *int             `json:"maxLength,omitempty"`
	Pattern              string           `json:"pattern,omitempty"`
	Format               string           `json:"format,omitempty"`
	Minimum              *float64         `json:"minimum,omitempty"`
	Maximum              *float64         `json:"maximum,omitempty"`
	ExclusiveMinimum     *float64         `json:"exclusiveMinimum,omitempty"`
	ExclusiveMaximum     *float64         `json:"exclusiveMaximum,omitempty"`
	MultipleOf           *float64         `json:"multipleOf,omitempty"`
	MinItems             *int             `json:"minItems,omitempty"`
	MaxItems             *int             `json:"maxItems,omitempty"`
	Items                *Node            `json:"items,omitempty"`
	UniqueItems          bool             `json:"uniqueItems,omitempty"`
	MinProperties        *int             `json:"minProperties,omitempty"`
	MaxProperties        *int             `json:"maxProperties,omitempty"`
	Properties           map[string]*Node `json:"properties,omitempty"`
	Required             []string         `json:"required,omitempty"`
	AdditionalProperties *bool            `json:"additionalProperties,omitempty"`
}

// MarshalJSON renders the node in JSON-Schema form.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n == nil {
		return []byte("{}"), nil
	}
	w := wireNode{
		Description: n.Description,
		Default:     n.Default,
		Enum:        n.Enum,
	}
	switch len(n.Types) {
	case 0:
	case 1:
		w.Type, _ = json.Marshal(n.Types[0])
	default:
		w.Type, _ = json.Marshal(n.Types)
	}
	if s := n.String; s != nil {
		w.MinLength, w.MaxLength, w.Pattern, w.Format = s.MinLength, s.MaxLength, s.Pattern, s.Format
	}
	if num := n.Number; num != nil {
		w.Minimum, w.Maximum = num.Minimum, num.Maximum
		w.ExclusiveMinimum, w.ExclusiveMaximum = num.ExclusiveMinimum, num.ExclusiveMaximum
		w.MultipleOf = num.MultipleOf
	}
	if a := n.Array; a != nil {
		w.MinItems, w.MaxItems, w.Items, w.UniqueItems = a.MinItems, a.MaxItems, a.Items, a.UniqueItems
	}
	if o := n.Object; o != nil {
		w.MinProperties, w.MaxProperties = o.MinProperties, o.MaxProperties
		w.Properties, w.Required = o.Properties, o.Required
		w.AdditionalProperties = o.AdditionalProperties
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses a JSON-Schema document into a node. Constraint groups
// are only allocated when at least one of their keywords is present.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	types, err := parseTypes(w.Type)
	if err != nil {
		return err
	}
	*n = Node{
		Types:       types,
		Description: w.Description,
		Default:     w.Default,
		Enum:        w.Enum,
	}
	if w.MinLength != nil || w.MaxLength != nil || w.Pattern != "" || w.Format != "" {
		n.String = &StringConstraints{MinLength: w.MinLength, MaxLength: w.MaxLength, Pattern: w.Pattern, Format: w.Format}
	}
	if w.Minimum != nil || w.Maximum != nil || w.ExclusiveMinimum != nil || w.ExclusiveMaximum != nil || w.MultipleOf != nil {
		n.Number = &NumberConstraints{
			Minimum:          w.Minimum,
			Maximum:          w.Maximum,
			ExclusiveMinimum: w.ExclusiveMinimum,
			ExclusiveMaximum: w.ExclusiveMaximum,
			MultipleOf:       w.MultipleOf,
		}
	}
	if w.MinItems != nil || w.MaxItems != nil || w.Items != nil || w.UniqueItems {
		n.Array = &ArrayConstraints{MinItems: w.MinItems, MaxItems: w.MaxItems, Items: w.Items, UniqueItems: w.UniqueItems}
	}
	if w.MinProperties != nil || w.MaxProperties != nil || w.Properties != nil || w.Required != nil || w.AdditionalProperties != nil {
		n.Object = &ObjectConstraints{
			MinProperties:        w.MinProperties,
			MaxProperties:        w.MaxProperties,
			Required:             w.Required,
			Properties:           w.Properties,
			AdditionalProperties: w.AdditionalProperties,
		}
	}
	return nil
}

func parseTypes(raw json.RawMessage) ([]Type, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var single Type
	if err := json.Unmarshal(raw, &single); err == nil {
		return []Type{single}, nil
	}
	var many []Type
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("schema type must be a string or an array of strings: %s", raw)
	}
	return many, nil
}
