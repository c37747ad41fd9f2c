package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for the chat pipeline.
// All observe methods are nil-safe so wiring stays optional in tests.
type ConversationMetrics struct {
	llmRequestsTotal   *prometheus.CounterVec
	toolCallsTotal     *prometheus.CounterVec
	exhaustedTotal     prometheus.Counter
	loopBudgetTotal    prometheus.Counter
	orchestratorRounds prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		llmRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Total completion attempts per provider",
		}, []string{"provider", "status"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "tools",
			Name:      "calls_total",
			Help:      "Total tool dispatches",
		}, []string{"tool", "status"}),
		exhaustedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "llm",
			Name:      "providers_exhausted_total",
			Help:      "Requests for which every provider failed",
		}),
		loopBudgetTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dental",
			Subsystem: "conversation",
			Name:      "loop_budget_exceeded_total",
			Help:      "Conversations cut off at the tool-loop iteration cap",
		}),
		orchestratorRounds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dental",
			Subsystem: "conversation",
			Name:      "rounds",
			Help:      "Model round-trips taken to settle one user message",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.llmRequestsTotal, m.toolCallsTotal, m.exhaustedTotal, m.loopBudgetTotal, m.orchestratorRounds)
	return m
}

func (m *ConversationMetrics) ObserveLLMRequest(provider, status string) {
	if m == nil {
		return
	}
	m.llmRequestsTotal.WithLabelValues(provider, status).Inc()
}

func (m *ConversationMetrics) ObserveToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func (m *ConversationMetrics) ObserveProvidersExhausted() {
	if m == nil {
		return
	}
	m.exhaustedTotal.Inc()
}

func (m *ConversationMetrics) ObserveLoopBudgetExceeded() {
	if m == nil {
		return
	}
	m.loopBudgetTotal.Inc()
}

func (m *ConversationMetrics) ObserveRounds(rounds int) {
	if m == nil {
		return
	}
	m.orchestratorRounds.Observe(float64(rounds))
}
