package domain

// VariableType is the value type of an extracted variable.
// The platform only extracts strings today.
type VariableType string

const VariableString VariableType = "string"

// VariableSpec declares one variable captured by an extraction node
// or injected by the platform at call start.
type VariableSpec struct {
	Name        string       `json:"name" yaml:"name" mapstructure:"name"`
	Type        VariableType `json:"type" yaml:"type" mapstructure:"type"`
	Description string       `json:"description" yaml:"description" mapstructure:"description"`
}

// ModelChoice selects the LLM driving the flow.
type ModelChoice struct {
	Type        string  `json:"type" yaml:"type"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
}

// Speaker values for Flow.StartSpeaker.
const (
	SpeakerAgent = "agent"
	SpeakerUser  = "user"
)

// Flow is the complete graph for one agent deployment.
// Nodes keep insertion order; serialization and validation depend on it.
type Flow struct {
	Name              string
	StartNodeID       string
	StartSpeaker      string
	GlobalInstruction string
	ModelChoice       ModelChoice
	Nodes             []*Node
	// DynamicVariables are injected by the platform when the call starts,
	// so they count as declared at the start node.
	DynamicVariables []VariableSpec
	DefaultVariables map[string]string
	Tools            []Tool
}

// Node returns the first node with the given ID.
func (f *Flow) Node(id string) (*Node, bool) {
	for _, n := range f.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// AddNode appends a node. Duplicate IDs are kept so that validation can report them.
func (f *Flow) AddNode(n *Node) {
	f.Nodes = append(f.Nodes, n)
}

// Index maps each node ID to the position of its first occurrence.
func (f *Flow) Index() map[string]int {
	idx := make(map[string]int, len(f.Nodes))
	for i, n := range f.Nodes {
		if _, dup := idx[n.ID]; !dup {
			idx[n.ID] = i
		}
	}
	return idx
}

// Edges returns every edge in node order, then edge order.
func (f *Flow) Edges() []Edge {
	var out []Edge
	for _, n := range f.Nodes {
		out = append(out, n.Edges...)
	}
	return out
}

// Terminals returns the IDs of all terminal nodes.
func (f *Flow) Terminals() []string {
	var ids []string
	for _, n := range f.Nodes {
		if n.Kind() == KindTerminal {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
