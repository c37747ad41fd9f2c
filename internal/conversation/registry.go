package conversation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/premiumdental/dental-ai-platform/internal/observability/metrics"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

var registryTracer = otel.Tracer("dental.internal.conversation.registry")

// Handler runs one tool call and returns structured fields for the model.
// A handler error becomes a failed ToolResult; it never aborts the turn.
type Handler func(ctx context.Context, args map[string]any) (map[string]any, error)

// Tool couples a schema with its handler.
type Tool struct {
	Schema  ToolSchema
	Handler Handler
}

// Registry holds the callable tools in registration order. Registration
// happens once at startup; Dispatch is safe for concurrent use afterwards.
type Registry struct {
	tools   []Tool
	byName  map[string]int
	metrics *metrics.ConversationMetrics
	logger  *logging.Logger
}

// NewRegistry creates an empty registry. m may be nil.
func NewRegistry(m *metrics.ConversationMetrics, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{byName: make(map[string]int), metrics: m, logger: logger}
}

// Register adds a tool. Duplicate names are a programming error.
func (r *Registry) Register(tool Tool) {
	if tool.Schema.Name == "" {
		panic("conversation: tool name required")
	}
	if tool.Handler == nil {
		panic(fmt.Sprintf("conversation: tool %s has no handler", tool.Schema.Name))
	}
	if _, exists := r.byName[tool.Schema.Name]; exists {
		panic(fmt.Sprintf("conversation: tool %s already registered", tool.Schema.Name))
	}
	r.byName[tool.Schema.Name] = len(r.tools)
	r.tools = append(r.tools, tool)
}

// Schemas returns the tool declarations in registration order.
func (r *Registry) Schemas() []ToolSchema {
	out := make([]ToolSchema, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.Schema
	}
	return out
}

// Dispatch runs one call. Unknown tools and handler errors produce a failed
// result so the model can recover; only the returned payload reaches it.
func (r *Registry) Dispatch(ctx context.Context, call ToolCall) ToolResult {
	ctx, span := registryTracer.Start(ctx, "conversation.tool.dispatch")
	defer span.End()
	span.SetAttributes(attribute.String("tool.name", call.Name))

	idx, ok := r.byName[call.Name]
	if !ok {
		r.metrics.ObserveToolCall(call.Name, "unknown")
		r.logger.Warn("model requested unknown tool", "tool", call.Name)
		return ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Success: false,
			Error:   fmt.Sprintf("unknown tool %q", call.Name),
		}
	}

	payload, err := r.tools[idx].Handler(ctx, call.Arguments)
	if err != nil {
		span.RecordError(err)
		r.metrics.ObserveToolCall(call.Name, "error")
		r.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		return ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Success: false,
			Error:   err.Error(),
		}
	}
	r.metrics.ObserveToolCall(call.Name, "ok")
	return ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Success: true,
		Payload: payload,
	}
}
