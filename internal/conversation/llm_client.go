package conversation

import "context"

// Turn roles. Tool turns carry results back to the model after a dispatch.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a model-issued request to run one registered tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the outcome of one dispatched call, correlated by CallID.
// Payload carries structured fields the orchestrator extracts from; Error is
// a short operator-readable message when Success is false.
type ToolResult struct {
	CallID  string         `json:"call_id"`
	Name    string         `json:"name"`
	Success bool           `json:"success"`
	Payload map[string]any `json:"payload,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Turn is one entry in a conversation transcript.
type Turn struct {
	Role       string      `json:"role"`
	Content    string      `json:"content,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ParamSchema describes one tool parameter.
type ParamSchema struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// ObjectSchema is the JSON-schema object each provider receives for a tool.
type ObjectSchema struct {
	Properties map[string]ParamSchema `json:"properties"`
	Required   []string               `json:"required,omitempty"`
}

// ToolSchema is the provider-neutral declaration of a callable tool.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  ObjectSchema
}

// JSONSchema renders the schema as the generic map shape every backend's
// tool wire format accepts.
func (s ObjectSchema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[name] = prop
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(s.Required) > 0 {
		schema["required"] = s.Required
	}
	return schema
}

// LLMRequest is a provider-neutral completion request.
type LLMRequest struct {
	Turns       []Turn
	Tools       []ToolSchema
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// LLMResponse is the assistant turn a provider produced. When the model
// wants tools run, ToolCalls is non-empty and Content may be blank.
type LLMResponse struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      TokenUsage
}

// TokenUsage mirrors provider token accounting.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMClient is one model backend.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// AssistantTurn converts a response into a transcript turn.
func (r LLMResponse) AssistantTurn() Turn {
	return Turn{Role: RoleAssistant, Content: r.Content, ToolCalls: r.ToolCalls}
}
