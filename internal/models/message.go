package models

// MessageRole discriminates the message union.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleHuman     MessageRole = "human"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// ToolCall is a pending tool invocation issued by an assistant message.
type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"args,omitempty"`
}

// Message is one entry in a workstream's conversation history.
//
// Assistant messages may carry pending tool calls; tool messages answer a
// specific call via ToolCallID. Every retained tool message must be
// preceded somewhere by the assistant message that issued the matching
// call; the conversation trimmer protects that pairing when history is
// truncated.
type Message struct {
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	ToolCalls  []ToolCall  `json:"toolCalls,omitempty"`
	ToolCallID string      `json:"toolCallId,omitempty"`
}

// IsToolResponse reports whether the message answers a tool call.
func (m *Message) IsToolResponse() bool {
	return m.Role == RoleTool
}

// HasPendingCalls reports whether the message is an assistant message
// that issued one or more tool calls.
func (m *Message) HasPendingCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}
