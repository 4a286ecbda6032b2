// Package catalog holds the immutable set of tool descriptors advertised to
// callers.
package catalog

import (
	"fmt"

	"github.com/sameehj/officemcp/pkg/schema"
)

// Descriptor is the immutable (name, description, schema) triple for one tool.
type Descriptor struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	InputSchema *schema.Node `json:"inputSchema"`
}

// Catalog is an ordered, read-only set of descriptors. It is safe for
// concurrent use once constructed.
type Catalog struct {
	tools []Descriptor
	index map[string]int
}

// New builds a catalog, rejecting empty and duplicate names.
func New(descriptors ...Descriptor) (*Catalog, error) {
	c := &Catalog{
		tools: make([]Descriptor, 0, len(descriptors)),
		index: make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("tool descriptor missing name")
		}
		if _, exists := c.index[d.Name]; exists {
			return nil, fmt.Errorf("duplicate tool %q", d.Name)
		}
		if d.InputSchema == nil {
			d.InputSchema = schema.Object(nil)
		}
		c.index[d.Name] = len(c.tools)
		c.tools = append(c.tools, d)
	}
	return c, nil
}

// MustNew is New for static descriptor sets.
func MustNew(descriptors ...Descriptor) *Catalog {
	c, err := New(descriptors...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the descriptor registered under name.
func (c *Catalog) Get(name string) (Descriptor, bool) {
	if c == nil {
		return Descriptor{}, false
	}
	i, ok := c.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return c.tools[i], true
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// List returns the descriptors in catalog order.
func (c *Catalog) List() []Descriptor {
	if c == nil {
		return nil
	}
	out := make([]Descriptor, len(c.tools))
	copy(out, c.tools)
	return out
}

// Names returns the tool names in catalog order.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.tools))
	for i, d := range c.tools {
		names[i] = d.Name
	}
	return names
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.tools)
}
