package retell

import "github.com/aretw0/switchboard/pkg/domain"

// Node type discriminators on the wire.
const (
	typeConversation = "conversation"
	typeExtract      = "extract_dynamic_variables"
	typeFunction     = "function"
	typeSMS          = "sms"
	typeTransfer     = "transfer_call"
	typeEnd          = "end"
)

var kindToType = map[domain.NodeKind]string{
	domain.KindDialogue:     typeConversation,
	domain.KindExtraction:   typeExtract,
	domain.KindFunctionCall: typeFunction,
	domain.KindSmsSend:      typeSMS,
	domain.KindTransfer:     typeTransfer,
	domain.KindTerminal:     typeEnd,
}

// Fixed transition prompts of SMS and transfer outcome edges.
const (
	smsSentPrompt     = "Sent successfully"
	smsFailedPrompt   = "Failed to send"
	transferFailedMsg = "Transfer failed"
)

// document is the conversation flow as the platform stores it.
// Field order here is the canonical output order.
type document struct {
	Name             string                `json:"name,omitempty"`
	GlobalPrompt     string                `json:"global_prompt,omitempty"`
	ModelChoice      *modelChoice          `json:"model_choice,omitempty"`
	ModelTemperature float64               `json:"model_temperature,omitempty"`
	StartNodeID      string                `json:"start_node_id"`
	StartSpeaker     string                `json:"start_speaker,omitempty"`
	Nodes            []node                `json:"nodes"`
	Tools            []domain.Tool         `json:"tools,omitempty"`
	DynamicVariables []domain.VariableSpec `json:"dynamic_variables,omitempty"`
	DefaultVariables map[string]string     `json:"default_dynamic_variables,omitempty"`
}

type modelChoice struct {
	Type  string `json:"type,omitempty"`
	Model string `json:"model,omitempty"`
}

type node struct {
	ID          string              `json:"id"`
	Type        string              `json:"type"`
	Name        string              `json:"name,omitempty"`
	Instruction *domain.Instruction `json:"instruction,omitempty"`

	Variables []domain.VariableSpec `json:"variables,omitempty"`

	ToolID               string `json:"tool_id,omitempty"`
	ToolType             string `json:"tool_type,omitempty"`
	WaitForResult        *bool  `json:"wait_for_result,omitempty"`
	SpeakDuringExecution *bool  `json:"speak_during_execution,omitempty"`

	TransferDestination *transferDestination `json:"transfer_destination,omitempty"`
	TransferOption      *transferOption      `json:"transfer_option,omitempty"`

	Edges       []edge `json:"edges,omitempty"`
	AlwaysEdge  *edge  `json:"always_edge,omitempty"`
	SuccessEdge *edge  `json:"success_edge,omitempty"`
	FailedEdge  *edge  `json:"failed_edge,omitempty"`
	Edge        *edge  `json:"edge,omitempty"`
}

type edge struct {
	ID                  string     `json:"id"`
	Description         string     `json:"description,omitempty"`
	DestinationNodeID   string     `json:"destination_node_id"`
	TransitionCondition *condition `json:"transition_condition,omitempty"`
}

type condition struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

type transferDestination struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type transferOption struct {
	Type string `json:"type"`
}
