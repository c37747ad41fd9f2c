package conversation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/premiumdental/dental-ai-platform/internal/observability/metrics"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

var orchestratorTracer = otel.Tracer("dental.internal.conversation.orchestrator")

// ErrLoopBudgetExceeded signals that the model kept requesting tools past
// the iteration cap. A safe reply is still returned alongside it.
var ErrLoopBudgetExceeded = errors.New("conversation: tool loop budget exceeded")

// LoopBudgetReply is served when the tool loop is cut off.
const LoopBudgetReply = "I'm sorry, I wasn't able to finish that request. A member of our staff will follow up with you shortly, or you can call us at +1-555-0123."

const (
	defaultMaxIterations = 8
	defaultMaxTokens     = 1024
	defaultTemperature   = 0.8
)

// Orchestrator drives the model/tool loop for one user message.
type Orchestrator struct {
	llm           LLMClient
	registry      *Registry
	metrics       *metrics.ConversationMetrics
	logger        *logging.Logger
	maxIterations int
	maxTokens     int32
	temperature   float32
}

// NewOrchestrator wires the loop. maxIterations <= 0 selects the default.
func NewOrchestrator(llm LLMClient, registry *Registry, maxIterations int, m *metrics.ConversationMetrics, logger *logging.Logger) *Orchestrator {
	if llm == nil {
		panic("conversation: llm client required")
	}
	if registry == nil {
		panic("conversation: tool registry required")
	}
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		llm:           llm,
		registry:      registry,
		metrics:       m,
		logger:        logger,
		maxIterations: maxIterations,
		maxTokens:     defaultMaxTokens,
		temperature:   defaultTemperature,
	}
}

// Run settles one user message: it annotates context, loops model rounds
// dispatching any requested tools, and stops at the first text-only reply.
// The returned reply is always safe to show the patient; the error, when
// non-nil, is one of the sentinels callers use for logging and the
// human-handoff flag.
func (o *Orchestrator) Run(ctx context.Context, state *State, userMessage string) (string, error) {
	ctx, span := orchestratorTracer.Start(ctx, "conversation.run")
	defer span.End()

	state.Append(Turn{Role: RoleUser, Content: annotateContext(userMessage, state.Context)})

	for round := 1; round <= o.maxIterations; round++ {
		resp, err := o.llm.Complete(ctx, LLMRequest{
			Turns:       o.withSystemPrompt(state.Turns),
			Tools:       o.registry.Schemas(),
			MaxTokens:   o.maxTokens,
			Temperature: o.temperature,
		})
		if err != nil {
			if errors.Is(err, ErrAllProvidersExhausted) {
				state.FlagHuman()
				state.Append(Turn{Role: RoleAssistant, Content: resp.Content})
				span.RecordError(err)
				return resp.Content, err
			}
			// Providers besides the gateway can be plugged in directly;
			// treat any other failure the same way the gateway reports
			// exhaustion.
			state.FlagHuman()
			state.Append(Turn{Role: RoleAssistant, Content: ExhaustedFallbackReply})
			span.RecordError(err)
			return ExhaustedFallbackReply, fmt.Errorf("%w: %w", ErrAllProvidersExhausted, err)
		}

		if len(resp.ToolCalls) == 0 {
			state.Append(resp.AssistantTurn())
			o.metrics.ObserveRounds(round)
			span.SetAttributes(attribute.Int("conversation.rounds", round))
			return resp.Content, nil
		}

		state.Append(resp.AssistantTurn())
		for _, call := range resp.ToolCalls {
			result := o.registry.Dispatch(ctx, call)
			state.Absorb(result)
			r := result
			state.Append(Turn{Role: RoleTool, ToolResult: &r})
		}
	}

	o.metrics.ObserveLoopBudgetExceeded()
	o.logger.Error("tool loop budget exceeded", "max_iterations", o.maxIterations)
	state.FlagHuman()
	state.Append(Turn{Role: RoleAssistant, Content: LoopBudgetReply})
	span.RecordError(ErrLoopBudgetExceeded)
	return LoopBudgetReply, ErrLoopBudgetExceeded
}

// withSystemPrompt guarantees exactly one system turn, at position zero.
func (o *Orchestrator) withSystemPrompt(turns []Turn) []Turn {
	if len(turns) > 0 && turns[0].Role == RoleSystem {
		return turns
	}
	out := make([]Turn, 0, len(turns)+1)
	out = append(out, Turn{Role: RoleSystem, Content: systemPrompt})
	return append(out, turns...)
}

// annotateContext appends contextual hints to the user's message so the
// model sees them alongside the text, in stable key order.
func annotateContext(message string, context map[string]string) string {
	if len(context) == 0 {
		return message
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+context[k])
	}
	return message + "\n\n[Context: " + strings.Join(pairs, ", ") + "]"
}
