package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	id      string
	name    string
	kind    domain.NodeKind
	builder *Builder

	instruction domain.Instruction
	variables   []domain.VariableSpec
	toolID      string
	wait, speak bool
	destination string
	mode        domain.TransferMode
	edges       []domain.Edge
}

// Name sets the display name.
func (n *NodeBuilder) Name(name string) *NodeBuilder {
	n.name = name
	return n
}

// Say marks the node as a dialogue turn driven by an LLM prompt.
func (n *NodeBuilder) Say(prompt string) *NodeBuilder {
	n.kind = domain.KindDialogue
	n.instruction = domain.Prompt(prompt)
	return n
}

// Text marks the node as a dialogue turn spoken verbatim.
func (n *NodeBuilder) Text(content string) *NodeBuilder {
	n.kind = domain.KindDialogue
	n.instruction = domain.Static(content)
	return n
}

// Prompt replaces the instruction with an LLM prompt without changing the kind.
func (n *NodeBuilder) Prompt(text string) *NodeBuilder {
	n.instruction = domain.Prompt(text)
	return n
}

// Static replaces the instruction with verbatim text without changing the kind.
func (n *NodeBuilder) Static(text string) *NodeBuilder {
	n.instruction = domain.Static(text)
	return n
}

// Extract marks the node as an extraction step and declares a variable on it.
// A name already declared in the flow is recorded as the builder's error.
func (n *NodeBuilder) Extract(name, description string) *NodeBuilder {
	n.kind = domain.KindExtraction
	n.builder.fail(n.builder.catalog.Declare(name, domain.VariableString, n.id))
	n.variables = append(n.variables, domain.VariableSpec{
		Name: name, Type: domain.VariableString, Description: description,
	})
	return n
}

// Call marks the node as a function call to the registered tool.
func (n *NodeBuilder) Call(toolID string) *NodeBuilder {
	n.kind = domain.KindFunctionCall
	n.toolID = toolID
	return n
}

// Wait makes a function call block until the tool answers.
func (n *NodeBuilder) Wait() *NodeBuilder {
	n.wait = true
	return n
}

// Speak lets the agent keep talking while a function call runs.
func (n *NodeBuilder) Speak() *NodeBuilder {
	n.speak = true
	return n
}

// SMS marks the node as a text message send with the given template.
func (n *NodeBuilder) SMS(message string) *NodeBuilder {
	n.kind = domain.KindSmsSend
	n.instruction = domain.Prompt(message)
	return n
}

// Transfer marks the node as a call transfer to number.
func (n *NodeBuilder) Transfer(number string, mode domain.TransferMode) *NodeBuilder {
	n.kind = domain.KindTransfer
	n.destination = number
	n.mode = mode
	return n
}

// Terminal marks the node as the end of the call and drops any edges.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.kind = domain.KindTerminal
	n.edges = nil
	return n
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.edge(target, domain.Always())
}

// Branch adds a prompt-guarded transition to the target node.
// Branches are evaluated in the order they are added.
func (n *NodeBuilder) Branch(condition, target string) *NodeBuilder {
	return n.edge(target, domain.When(condition))
}

// OnSuccess adds the success outcome transition.
func (n *NodeBuilder) OnSuccess(target string) *NodeBuilder {
	return n.edge(target, domain.On(domain.OutcomeSuccess))
}

// OnFailure adds the failure outcome transition.
func (n *NodeBuilder) OnFailure(target string) *NodeBuilder {
	return n.edge(target, domain.On(domain.OutcomeFailure))
}

// Describe sets the description of the last added edge.
func (n *NodeBuilder) Describe(description string) *NodeBuilder {
	if len(n.edges) > 0 {
		n.edges[len(n.edges)-1].Description = description
	}
	return n
}

func (n *NodeBuilder) edge(target string, p domain.Predicate) *NodeBuilder {
	id := fmt.Sprintf("%s_to_%s", n.id, target)
	for i, taken := 2, n.hasEdge(id); taken; i, taken = i+1, n.hasEdge(id) {
		id = fmt.Sprintf("%s_to_%s_%d", n.id, target, i)
	}
	n.edges = append(n.edges, domain.Edge{ID: id, Source: n.id, Destination: target, Predicate: p})
	return n
}

func (n *NodeBuilder) hasEdge(id string) bool {
	for _, e := range n.edges {
		if e.ID == id {
			return true
		}
	}
	return false
}

var errNoKind = errors.New("node kind not set")

func (n *NodeBuilder) build() (*domain.Node, error) {
	node := &domain.Node{ID: n.id, Name: n.name, Edges: append([]domain.Edge(nil), n.edges...)}
	if node.Name == "" {
		node.Name = n.id
	}
	switch n.kind {
	case domain.KindDialogue:
		node.Payload = domain.DialoguePayload{Instruction: n.instruction}
	case domain.KindExtraction:
		node.Payload = domain.ExtractionPayload{Variables: append([]domain.VariableSpec(nil), n.variables...)}
	case domain.KindFunctionCall:
		node.Payload = domain.FunctionCallPayload{
			ToolID:               n.toolID,
			WaitForResult:        n.wait,
			SpeakDuringExecution: n.speak,
			Instruction:          n.instruction,
		}
	case domain.KindSmsSend:
		node.Payload = domain.SmsPayload{Instruction: n.instruction}
	case domain.KindTransfer:
		node.Payload = domain.TransferPayload{DestinationNumber: n.destination, Mode: n.mode, Instruction: n.instruction}
	case domain.KindTerminal:
		node.Payload = domain.TerminalPayload{Instruction: n.instruction}
	default:
		return nil, errNoKind
	}
	return node, nil
}
