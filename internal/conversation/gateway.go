package conversation

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/premiumdental/dental-ai-platform/internal/observability/metrics"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

var gatewayTracer = otel.Tracer("dental.internal.conversation.gateway")

// ErrAllProvidersExhausted signals that every configured backend failed for
// one request. The gateway still returns a usable apology response so the
// caller never surfaces a raw error to the patient.
var ErrAllProvidersExhausted = errors.New("conversation: all llm providers exhausted")

// ExhaustedFallbackReply is served when no provider can answer.
const ExhaustedFallbackReply = "I'm having trouble connecting to our AI service right now. Please try again in a moment, or call our office directly at +1-555-0123 for immediate assistance."

// Provider pairs a backend with the name used in logs and metrics.
type Provider struct {
	Name   string
	Client LLMClient
}

// Gateway tries providers strictly in order, returning the first success.
// The chain is fixed at construction; per-request state never reorders it.
type Gateway struct {
	providers []Provider
	metrics   *metrics.ConversationMetrics
	logger    *logging.Logger
}

var _ LLMClient = (*Gateway)(nil)

// NewGateway builds a fallback chain over the given providers. m may be nil.
func NewGateway(providers []Provider, m *metrics.ConversationMetrics, logger *logging.Logger) *Gateway {
	if len(providers) == 0 {
		panic("conversation: at least one provider required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{providers: providers, metrics: m, logger: logger}
}

// Providers lists the chain order, primarily for startup logging.
func (g *Gateway) Providers() []string {
	names := make([]string, len(g.providers))
	for i, p := range g.providers {
		names[i] = p.Name
	}
	return names
}

// Complete walks the provider chain. On total failure it returns the
// apology response together with ErrAllProvidersExhausted; callers that only
// need a reply can use the response as-is, callers that track health check
// the error.
func (g *Gateway) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	ctx, span := gatewayTracer.Start(ctx, "conversation.gateway.complete")
	defer span.End()

	var causes []error
	for _, p := range g.providers {
		if err := ctx.Err(); err != nil {
			causes = append(causes, err)
			break
		}
		resp, err := p.Client.Complete(ctx, req)
		if err == nil {
			span.SetAttributes(attribute.String("llm.provider", p.Name))
			g.metrics.ObserveLLMRequest(p.Name, "ok")
			return resp, nil
		}
		g.metrics.ObserveLLMRequest(p.Name, "error")
		g.logger.Warn("llm provider failed, trying next",
			"provider", p.Name,
			"error", err,
		)
		causes = append(causes, fmt.Errorf("%s: %w", p.Name, err))
	}

	joined := errors.Join(causes...)
	span.RecordError(joined)
	g.metrics.ObserveProvidersExhausted()
	g.logger.Error("all llm providers exhausted", "providers", g.Providers(), "error", joined)
	return LLMResponse{Content: ExhaustedFallbackReply, StopReason: "fallback"},
		fmt.Errorf("%w: %w", ErrAllProvidersExhausted, joined)
}
