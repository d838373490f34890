package domain

// Tool is a custom webhook tool registered on a flow.
// Function-call nodes refer to it by ToolID.
type Tool struct {
	Type        string         `json:"type" yaml:"type" mapstructure:"type"` // always "custom" today
	ToolID      string         `json:"tool_id" yaml:"tool_id" mapstructure:"tool_id"`
	Name        string         `json:"name" yaml:"name" mapstructure:"name"`
	Description string         `json:"description" yaml:"description" mapstructure:"description"`
	URL         string         `json:"url" yaml:"url" mapstructure:"url"`
	Method      string         `json:"method" yaml:"method" mapstructure:"method"`
	Parameters  ToolParameters `json:"parameters" yaml:"parameters" mapstructure:"parameters"`
}

// ToolParameters is the JSON-schema object describing a tool's arguments.
type ToolParameters struct {
	Type       string                  `json:"type" yaml:"type" mapstructure:"type"`
	Properties map[string]ToolProperty `json:"properties,omitempty" yaml:"properties,omitempty" mapstructure:"properties"`
	Required   []string                `json:"required,omitempty" yaml:"required,omitempty" mapstructure:"required"`
}

// ToolProperty describes one argument.
type ToolProperty struct {
	Type        string `json:"type" yaml:"type" mapstructure:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Const       string `json:"const,omitempty" yaml:"const,omitempty" mapstructure:"const"`
}

// ToolCall is a function_call invocation received from the platform.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}
