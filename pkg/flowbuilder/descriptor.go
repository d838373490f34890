package flowbuilder

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/switchboard/pkg/domain"
)

// Descriptor is the YAML form of a template.
// String fields may contain [[ ]] placeholders over the business configuration.
type Descriptor struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Direction   string `yaml:"direction"`
	// AgentName is the display name of the agent created for this flow.
	AgentName string `yaml:"agent_name"`

	Requires []string       `yaml:"requires"`
	Defaults map[string]any `yaml:"defaults"`
	// Locals are rendered first and exposed to every other field as .Local.
	Locals map[string]string `yaml:"locals"`

	Start        string            `yaml:"start"`
	StartSpeaker string            `yaml:"start_speaker"`
	Model        ModelSpec         `yaml:"model"`
	Global       string            `yaml:"global"`
	Dynamic      []VarSpec         `yaml:"dynamic"`
	Variables    map[string]string `yaml:"default_variables"`
	Tools        []domain.Tool     `yaml:"tools"`
	Nodes        []NodeSpec        `yaml:"nodes"`
}

// ModelSpec selects the LLM. An empty Model takes the configured one.
type ModelSpec struct {
	Type        string  `yaml:"type"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

// VarSpec names a variable with its description.
type VarSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// NodeSpec describes one node. When and Unless gate the node on a
// configuration field being set or unset.
type NodeSpec struct {
	ID     string `yaml:"id"`
	Kind   string `yaml:"kind"`
	Name   string `yaml:"name"`
	When   string `yaml:"when"`
	Unless string `yaml:"unless"`

	Prompt string `yaml:"prompt"`
	Text   string `yaml:"text"`

	Variables []VarSpec     `yaml:"variables"`
	Tool      string        `yaml:"tool"`
	Wait      bool          `yaml:"wait"`
	Speak     bool          `yaml:"speak"`
	Transfer  *TransferSpec `yaml:"transfer"`
	Edges     []EdgeSpec    `yaml:"edges"`
}

// TransferSpec is the destination of a transfer node.
type TransferSpec struct {
	Number string `yaml:"number"`
	Mode   string `yaml:"mode"`
}

// EdgeSpec is a transition. Condition makes it a prompt edge, On an outcome
// edge; with neither it is unconditional.
type EdgeSpec struct {
	To          string `yaml:"to"`
	Condition   string `yaml:"condition"`
	On          string `yaml:"on"`
	Description string `yaml:"description"`
}

// ParseDescriptor decodes a template descriptor. Unknown keys are rejected.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("template missing name")
	}
	if len(d.Nodes) == 0 {
		return nil, fmt.Errorf("template %q has no nodes", d.Name)
	}
	gated := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("template %q: node %d missing id", d.Name, i)
		}
		// An id may repeat only across variants gated by when or unless.
		isGated := n.When != "" || n.Unless != ""
		if prev, seen := gated[n.ID]; seen && !(prev && isGated) {
			return nil, fmt.Errorf("template %q: %w", d.Name, &domain.DuplicateNodeError{ID: n.ID})
		}
		gated[n.ID] = isGated
		if _, err := domain.ParseNodeKind(n.Kind); err != nil {
			return nil, fmt.Errorf("template %q: node %q: %w", d.Name, n.ID, err)
		}
		if n.When != "" && n.Unless != "" {
			return nil, fmt.Errorf("template %q: node %q sets both when and unless", d.Name, n.ID)
		}
	}
	return &d, nil
}
