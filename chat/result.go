package chat

import "encoding/json"

// ToolCall is the executed record of one model-requested tool invocation.
// Result carries the tool's structured output, or an error-shaped value
// ({"error": ...}) when argument parsing or execution failed. One ToolCall
// is produced per request, with the same ID, even on failure.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    any             `json:"result"`
}

// TurnResult is the assistant's reply for one user turn.
// ToolCalls is non-empty iff the model requested at least one tool.
type TurnResult struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"toolCalls,omitempty"`
}
