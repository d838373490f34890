// Package catalog tracks the variables a flow declares and answers which of them
// are guaranteed to be set when the conversation reaches a given node.
package catalog

import (
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/graph"
)

// Variable is one declared name.
type Variable struct {
	Name       string
	Type       domain.VariableType
	DeclaredAt string
	// Dynamic variables are injected by the platform when the call starts.
	Dynamic bool
}

// Catalog is the variable namespace of one flow. It is not safe for concurrent
// mutation; build it, bind it, then query it.
type Catalog struct {
	vars   []Variable
	byName map[string]int

	flow *domain.Flow
	dom  *graph.Dominators
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{byName: make(map[string]int)}
}

// FromFlow declares the dynamic variables of f and then the variables of every
// extraction node in node order. It stops at the first duplicate.
func FromFlow(f *domain.Flow) (*Catalog, error) {
	c := New()
	for _, v := range f.DynamicVariables {
		if err := c.DeclareDynamic(v.Name, v.Type, f.StartNodeID); err != nil {
			return nil, err
		}
	}
	for _, n := range f.Nodes {
		p, ok := n.Payload.(domain.ExtractionPayload)
		if !ok {
			continue
		}
		for _, v := range p.Variables {
			if err := c.Declare(v.Name, v.Type, n.ID); err != nil {
				return nil, err
			}
		}
	}
	c.Bind(f)
	return c, nil
}

// Declare registers name as extracted at nodeID.
func (c *Catalog) Declare(name string, typ domain.VariableType, nodeID string) error {
	return c.declare(Variable{Name: name, Type: typ, DeclaredAt: nodeID})
}

// DeclareDynamic registers a variable injected at call start. startID is the
// flow's start node.
func (c *Catalog) DeclareDynamic(name string, typ domain.VariableType, startID string) error {
	return c.declare(Variable{Name: name, Type: typ, DeclaredAt: startID, Dynamic: true})
}

func (c *Catalog) declare(v Variable) error {
	if i, dup := c.byName[v.Name]; dup {
		return &domain.DuplicateVariableError{
			Name:       v.Name,
			FirstNode:  c.vars[i].DeclaredAt,
			SecondNode: v.DeclaredAt,
		}
	}
	if v.Type == "" {
		v.Type = domain.VariableString
	}
	c.byName[v.Name] = len(c.vars)
	c.vars = append(c.vars, v)
	return nil
}

// IsDeclared reports whether name is declared anywhere in the flow.
func (c *Catalog) IsDeclared(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Lookup returns the declaration of name.
func (c *Catalog) Lookup(name string) (Variable, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Variable{}, false
	}
	return c.vars[i], true
}

// Variables returns all declarations in declaration order.
func (c *Catalog) Variables() []Variable {
	out := make([]Variable, len(c.vars))
	copy(out, c.vars)
	return out
}

// Len returns the number of declared variables.
func (c *Catalog) Len() int { return len(c.vars) }

// Bind attaches the flow whose graph answers the dominance queries.
// Any cached dominator tree is dropped.
func (c *Catalog) Bind(f *domain.Flow) {
	c.flow = f
	c.dom = nil
}

func (c *Catalog) dominators() *graph.Dominators {
	if c.dom == nil && c.flow != nil {
		c.dom = graph.FromFlow(c.flow).Dominators(c.flow.StartNodeID)
	}
	return c.dom
}

// AllDeclaredBefore returns the variables guaranteed to be set on every path
// from the start node to nodeID, not counting nodeID's own extractions.
// Dynamic variables count for every reachable node. Unreachable nodes and an
// unbound catalog yield nil.
func (c *Catalog) AllDeclaredBefore(nodeID string) []string {
	return c.declaredAt(nodeID, false)
}

// AllDeclaredAt is AllDeclaredBefore plus the variables nodeID itself extracts.
func (c *Catalog) AllDeclaredAt(nodeID string) []string {
	return c.declaredAt(nodeID, true)
}

func (c *Catalog) declaredAt(nodeID string, inclusive bool) []string {
	d := c.dominators()
	if d == nil || !d.Reachable(nodeID) {
		return nil
	}
	var out []string
	for _, v := range c.vars {
		switch {
		case v.Dynamic:
		case v.DeclaredAt == nodeID:
			if !inclusive {
				continue
			}
		case !d.StrictlyDominates(v.DeclaredAt, nodeID):
			continue
		}
		out = append(out, v.Name)
	}
	return out
}

// GuaranteedAt reports whether name is set on every path to nodeID.
func (c *Catalog) GuaranteedAt(name, nodeID string) bool {
	for _, v := range c.AllDeclaredBefore(nodeID) {
		if v == name {
			return true
		}
	}
	return false
}
