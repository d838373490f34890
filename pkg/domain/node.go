package domain

import "fmt"

// NodeKind is the discriminator of a node's payload.
type NodeKind int

const (
	// KindDialogue is a spoken agent turn.
	KindDialogue NodeKind = iota + 1
	// KindExtraction captures named variables from the conversation so far.
	KindExtraction
	// KindFunctionCall invokes a registered tool.
	KindFunctionCall
	// KindSmsSend sends a text message to the caller.
	KindSmsSend
	// KindTransfer hands the call to a human. Success ends the call.
	KindTransfer
	// KindTerminal ends the call.
	KindTerminal
)

var kindNames = map[NodeKind]string{
	KindDialogue:     "dialogue",
	KindExtraction:   "extraction",
	KindFunctionCall: "function_call",
	KindSmsSend:      "sms_send",
	KindTransfer:     "transfer",
	KindTerminal:     "terminal",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// ParseNodeKind maps a kind name (as used in template descriptors) to a NodeKind.
func ParseNodeKind(s string) (NodeKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownNodeKind, s)
}

// InstructionMode tells the platform whether text is spoken verbatim or used as an LLM prompt.
type InstructionMode string

const (
	InstructionPrompt InstructionMode = "prompt"
	InstructionStatic InstructionMode = "static_text"
)

// Instruction is the text attached to a node.
// Text may reference variables with {{var}}, {{#var}}...{{/var}} and {{^var}}...{{/var}}.
type Instruction struct {
	Mode InstructionMode `json:"type" yaml:"type" mapstructure:"type"`
	Text string          `json:"text" yaml:"text" mapstructure:"text"`
}

// Prompt builds a prompt-mode instruction.
func Prompt(text string) Instruction {
	return Instruction{Mode: InstructionPrompt, Text: text}
}

// Static builds a static-text instruction.
func Static(text string) Instruction {
	return Instruction{Mode: InstructionStatic, Text: text}
}

// Node is one step of the dialogue graph.
type Node struct {
	ID      string
	Name    string
	Payload Payload
	// Edges are evaluated by the platform in declaration order.
	Edges []Edge
}

// Kind returns the kind of the node's payload, or zero when the payload is nil.
func (n *Node) Kind() NodeKind {
	if n.Payload == nil {
		return 0
	}
	return n.Payload.Kind()
}

// Instruction returns the node's instruction, if its kind carries one.
func (n *Node) Instruction() (Instruction, bool) {
	switch p := n.Payload.(type) {
	case DialoguePayload:
		return p.Instruction, true
	case FunctionCallPayload:
		return p.Instruction, true
	case SmsPayload:
		return p.Instruction, true
	case TransferPayload:
		return p.Instruction, true
	case TerminalPayload:
		return p.Instruction, true
	default:
		return Instruction{}, false
	}
}

// Payload is the kind-specific content of a node.
// The set of implementations is closed to this package; they are stored by value.
type Payload interface {
	Kind() NodeKind
	sealed()
}

// DialoguePayload is a spoken turn.
type DialoguePayload struct {
	Instruction Instruction
}

// ExtractionPayload declares the variables captured at this node.
type ExtractionPayload struct {
	Variables []VariableSpec
}

// FunctionCallPayload invokes the tool registered under ToolID.
type FunctionCallPayload struct {
	ToolID               string
	WaitForResult        bool
	SpeakDuringExecution bool
	Instruction          Instruction
}

// SmsPayload holds the message template.
type SmsPayload struct {
	Instruction Instruction
}

// TransferMode selects how the call is handed over.
type TransferMode string

const (
	TransferWarm TransferMode = "warm"
	TransferCold TransferMode = "cold"
)

// TransferPayload routes the caller to DestinationNumber (E.164).
type TransferPayload struct {
	DestinationNumber string
	Mode              TransferMode
	Instruction       Instruction
}

// TerminalPayload holds the closing line.
type TerminalPayload struct {
	Instruction Instruction
}

func (DialoguePayload) Kind() NodeKind     { return KindDialogue }
func (ExtractionPayload) Kind() NodeKind   { return KindExtraction }
func (FunctionCallPayload) Kind() NodeKind { return KindFunctionCall }
func (SmsPayload) Kind() NodeKind          { return KindSmsSend }
func (TransferPayload) Kind() NodeKind     { return KindTransfer }
func (TerminalPayload) Kind() NodeKind     { return KindTerminal }

func (DialoguePayload) sealed()     {}
func (ExtractionPayload) sealed()   {}
func (FunctionCallPayload) sealed() {}
func (SmsPayload) sealed()          {}
func (TransferPayload) sealed()     {}
func (TerminalPayload) sealed()     {}
