package schema

// String returns a string node.
func String(desc string) *Node {
	return &Node{Types: []Type{TypeString}, Description: desc}
}

// Integer returns an integer node.
func Integer(desc string) *Node {
	return &Node{Types: []Type{TypeInteger}, Description: desc}
}

// Number returns a number node.
func Number(desc string) *Node {
	return &Node{Types: []Type{TypeNumber}, Description: desc}
}

// Boolean returns a boolean node.
func Boolean(desc string) *Node {
	return &Node{Types: []Type{TypeBoolean}, Description: desc}
}

// Union returns a node accepting any of the given types.
func Union(desc string, types ...Type) *Node {
	return &Node{Types: types, Description: desc}
}

// Array returns an array node. items may be nil.
func Array(desc string, items *Node) *Node {
	n := &Node{Types: []Type{TypeArray}, Description: desc}
	if items != nil {
		n.array().Items = items
	}
	return n
}

// Object returns an object node with the given properties and required names.
func Object(props map[string]*Node, required ...string) *Node {
	if props == nil {
		props = map[string]*Node{}
	}
	return &Node{
		Types: []Type{TypeObject},
		Object: &ObjectConstraints{
			Properties: props,
			Required:   required,
		},
	}
}

func (n *Node) WithDescription(desc string) *Node {
	n.Description = desc
	return n
}

func (n *Node) WithDefault(v any) *Node {
	n.Default = v
	return n
}

func (n *Node) WithEnum(values ...any) *Node {
	n.Enum = values
	return n
}

func (n *Node) WithMinLength(v int) *Node {
	n.str().MinLength = &v
	return n
}

func (n *Node) WithMaxLength(v int) *Node {
	n.str().MaxLength = &v
	return n
}

func (n *Node) WithPattern(p string) *Node {
	n.str().Pattern = p
	return n
}

func (n *Node) WithFormat(f string) *Node {
	n.str().Format = f
	return n
}

func (n *Node) WithMinimum(v float64) *Node {
	n.num().Minimum = &v
	return n
}

func (n *Node) WithMaximum(v float64) *Node {
	n.num().Maximum = &v
	return n
}

func (n *Node) WithExclusiveMinimum(v float64) *Node {
	n.num().ExclusiveMinimum = &v
	return n
}

func (n *Node) WithExclusiveMaximum(v float64) *Node {
	n.num().ExclusiveMaximum = &v
	return n
}

func (n *Node) WithMultipleOf(v float64) *Node {
	n.num().MultipleOf = &v
	return n
}

func (n *Node) WithMinItems(v int) *Node {
	n.array().MinItems = &v
	return n
}

func (n *Node) WithMaxItems(v int) *Node {
	n.array().MaxItems = &v
	return n
}

func (n *Node) WithUniqueItems() *Node {
	n.array().UniqueItems = true
	return n
}

func (n *Node) WithMinProperties(v int) *Node {
	n.object().MinProperties = &v
	return n
}

func (n *Node) WithMaxProperties(v int) *Node {
	n.object().MaxProperties = &v
	return n
}

// WithAdditionalProperties records an explicit additionalProperties policy.
func (n *Node) WithAdditionalProperties(allow bool) *Node {
	n.object().AdditionalProperties = &allow
	return n
}

func (n *Node) str() *StringConstraints {
	if n.String == nil {
		n.String = &StringConstraints{}
	}
	return n.String
}

func (n *Node) num() *NumberConstraints {
	if n.Number == nil {
		n.Number = &NumberConstraints{}
	}
	return n.Number
}

func (n *Node) array() *ArrayConstraints {
	if n.Array == nil {
		n.Array = &ArrayConstraints{}
	}
	return n.Array
}

func (n *Node) object() *ObjectConstraints {
	if n.Object == nil {
		n.Object = &ObjectConstraints{Properties: map[string]*Node{}}
	}
	return n.Object
}
