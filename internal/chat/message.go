// Package chat holds the conversation wire types shared by the reasoning
// engines, the tool layer and the dialogue orchestrator. They follow the
// OpenAI chat-completions shape so a remote model can consume them as-is.
package chat

import (
	"github.com/lithammer/shortuuid/v4"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one conversation entry. Content holds serialized JSON when the
// role is tool. ToolCalls is only set on assistant messages and ToolCallID
// only on tool messages.
type Message struct {
	Role       string     `json:"role" validate:"required,oneof=system user assistant tool"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a reasoner's request to invoke a named tool.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its arguments as a JSON object string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewToolCall builds a function tool call with a fresh id. Empty arguments
// become "{}".
func NewToolCall(name, arguments string) ToolCall {
	if arguments == "" {
		arguments = "{}"
	}
	return ToolCall{
		ID:       "call_" + shortuuid.New(),
		Type:     "function",
		Function: FunctionCall{Name: name, Arguments: arguments},
	}
}

// ToolDef describes a callable tool in the function-calling schema.
type ToolDef struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// WithSystem returns history with a system prompt first, unless it already
// starts with one.
func WithSystem(history []Message, prompt string) []Message {
	if len(history) > 0 && history[0].Role == RoleSystem {
		return history
	}
	out := make([]Message, 0, len(history)+1)
	out = append(out, Message{Role: RoleSystem, Content: prompt})
	return append(out, history...)
}
