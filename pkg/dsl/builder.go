package dsl

import (
	"fmt"

	"github.com/aretw0/switchboard/pkg/catalog"
	"github.com/aretw0/switchboard/pkg/domain"
)

// Builder manages the graph construction.
// Nodes keep the order in which they were first added.
type Builder struct {
	flow    domain.Flow
	order   []*NodeBuilder
	nodes   map[string]*NodeBuilder
	catalog *catalog.Catalog
	err     error
}

// New creates a new flow builder.
func New(name string) *Builder {
	return &Builder{
		flow:    domain.Flow{Name: name, StartSpeaker: domain.SpeakerAgent},
		nodes:   make(map[string]*NodeBuilder),
		catalog: catalog.New(),
	}
}

// Start sets the start node. Without it the first added node is the start.
// Call it before Dynamic so that dynamic variables record the right node.
func (b *Builder) Start(id string) *Builder {
	b.flow.StartNodeID = id
	return b
}

// Speaker sets who talks first.
func (b *Builder) Speaker(s string) *Builder {
	b.flow.StartSpeaker = s
	return b
}

// Global sets the instruction shared by every node.
func (b *Builder) Global(text string) *Builder {
	b.flow.GlobalInstruction = text
	return b
}

// Model selects the LLM and its temperature.
func (b *Builder) Model(typ, model string, temperature float64) *Builder {
	b.flow.ModelChoice = domain.ModelChoice{Type: typ, Model: model, Temperature: temperature}
	return b
}

// Dynamic declares a variable the platform injects at call start.
func (b *Builder) Dynamic(name, description string) *Builder {
	b.fail(b.catalog.DeclareDynamic(name, domain.VariableString, b.flow.StartNodeID))
	b.flow.DynamicVariables = append(b.flow.DynamicVariables, domain.VariableSpec{
		Name: name, Type: domain.VariableString, Description: description,
	})
	return b
}

// Default sets the fallback value of a dynamic variable.
func (b *Builder) Default(name, value string) *Builder {
	if b.flow.DefaultVariables == nil {
		b.flow.DefaultVariables = make(map[string]string)
	}
	b.flow.DefaultVariables[name] = value
	return b
}

// Tools registers custom tools on the flow.
func (b *Builder) Tools(tools ...domain.Tool) *Builder {
	b.flow.Tools = append(b.flow.Tools, tools...)
	return b
}

// Add creates a new node in the graph.
// Adding an id twice records a DuplicateNodeError and returns a detached
// builder, so the first node is left untouched and Build fails.
func (b *Builder) Add(id string) *NodeBuilder {
	nb := &NodeBuilder{id: id, builder: b}
	if _, ok := b.nodes[id]; ok {
		b.fail(&domain.DuplicateNodeError{ID: id})
		return nb
	}
	b.nodes[id] = nb
	b.order = append(b.order, nb)
	if b.flow.StartNodeID == "" {
		b.flow.StartNodeID = id
	}
	return nb
}

// Err returns the first error recorded while building, if any.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) {
	if err != nil && b.err == nil {
		b.err = err
	}
}

// Build assembles the flow. The returned catalog holds every declared variable
// and is bound to the flow for dominance queries.
func (b *Builder) Build() (*domain.Flow, *catalog.Catalog, error) {
	if b.err != nil {
		return nil, nil, b.err
	}

	f := b.flow
	f.Nodes = make([]*domain.Node, 0, len(b.order))
	f.DynamicVariables = append([]domain.VariableSpec(nil), b.flow.DynamicVariables...)
	f.Tools = append([]domain.Tool(nil), b.flow.Tools...)
	if b.flow.DefaultVariables != nil {
		f.DefaultVariables = make(map[string]string, len(b.flow.DefaultVariables))
		for k, v := range b.flow.DefaultVariables {
			f.DefaultVariables[k] = v
		}
	}

	for _, nb := range b.order {
		n, err := nb.build()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build node %q: %w", nb.id, err)
		}
		f.AddNode(n)
	}

	b.catalog.Bind(&f)
	return &f, b.catalog, nil
}
