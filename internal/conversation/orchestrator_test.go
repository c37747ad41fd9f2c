package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

// recordingClient replays scripted responses and captures every request.
type recordingClient struct {
	responses []LLMResponse
	requests  []LLMRequest
}

func (c *recordingClient) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	c.requests = append(c.requests, req)
	idx := len(c.requests) - 1
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	return c.responses[idx], nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry(nil, logging.New("error"))
	reg.Register(Tool{
		Schema: ToolSchema{Name: "create_patient", Parameters: ObjectSchema{Properties: map[string]ParamSchema{}}},
		Handler: func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{"patient_id": "pat_abc12345"}, nil
		},
	})
	return reg
}

func newTestOrchestrator(client LLMClient, reg *Registry, maxIterations int) *Orchestrator {
	return NewOrchestrator(client, reg, maxIterations, nil, logging.New("error"))
}

func TestRunPlainReply(t *testing.T) {
	client := &recordingClient{responses: []LLMResponse{textResponse("Hello! How can I help?")}}
	o := newTestOrchestrator(client, testRegistry(t), 0)

	state := NewState(nil)
	reply, err := o.Run(context.Background(), state, "hi there")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply != "Hello! How can I help?" {
		t.Errorf("reply = %q", reply)
	}
	if len(client.requests) != 1 {
		t.Errorf("model called %d times, want 1", len(client.requests))
	}
	// user turn then assistant turn
	if len(state.Turns) != 2 || state.Turns[0].Role != RoleUser || state.Turns[1].Role != RoleAssistant {
		t.Errorf("transcript shape wrong: %+v", state.Turns)
	}
}

func TestRunInjectsSystemPromptOnce(t *testing.T) {
	client := &recordingClient{responses: []LLMResponse{
		{ToolCalls: []ToolCall{{ID: "call_1", Name: "create_patient"}}},
		textResponse("You're registered!"),
	}}
	o := newTestOrchestrator(client, testRegistry(t), 0)

	if _, err := o.Run(context.Background(), NewState(nil), "register me"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.requests) != 2 {
		t.Fatalf("model called %d times, want 2", len(client.requests))
	}
	for i, req := range client.requests {
		systems := 0
		for _, turn := range req.Turns {
			if turn.Role == RoleSystem {
				systems++
			}
		}
		if systems != 1 {
			t.Errorf("request %d has %d system turns, want 1", i, systems)
		}
		if req.Turns[0].Role != RoleSystem {
			t.Errorf("request %d system turn not first", i)
		}
	}
}

func TestRunAnnotatesContext(t *testing.T) {
	client := &recordingClient{responses: []LLMResponse{textResponse("noted")}}
	o := newTestOrchestrator(client, testRegistry(t), 0)

	state := NewState(nil)
	state.SetContext("channel", "webchat")
	state.SetContext("after_hours", "true")
	if _, err := o.Run(context.Background(), state, "do you have anything tomorrow?"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	userTurn := client.requests[0].Turns[1]
	if userTurn.Role != RoleUser {
		t.Fatalf("expected user turn, got %s", userTurn.Role)
	}
	if !strings.Contains(userTurn.Content, "[Context: after_hours=true, channel=webchat]") {
		t.Errorf("context annotation missing or unordered: %q", userTurn.Content)
	}
	if !strings.HasPrefix(userTurn.Content, "do you have anything tomorrow?") {
		t.Errorf("original message mangled: %q", userTurn.Content)
	}
}

func TestRunDispatchesToolsAndAbsorbsResults(t *testing.T) {
	client := &recordingClient{responses: []LLMResponse{
		{ToolCalls: []ToolCall{{ID: "call_1", Name: "create_patient", Arguments: map[string]any{}}}},
		textResponse("All set, John!"),
	}}
	o := newTestOrchestrator(client, testRegistry(t), 0)

	state := NewState(nil)
	reply, err := o.Run(context.Background(), state, "register me")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reply != "All set, John!" {
		t.Errorf("reply = %q", reply)
	}
	if state.PatientID != "pat_abc12345" {
		t.Errorf("patient id not absorbed: %q", state.PatientID)
	}

	// Second request must carry the tool result turn back to the model.
	second := client.requests[1]
	var sawResult bool
	for _, turn := range second.Turns {
		if turn.Role == RoleTool && turn.ToolResult != nil && turn.ToolResult.CallID == "call_1" {
			sawResult = true
		}
	}
	if !sawResult {
		t.Error("tool result turn missing from follow-up request")
	}
}

func TestRunLoopBudget(t *testing.T) {
	// The model never stops asking for tools.
	client := &recordingClient{responses: []LLMResponse{
		{ToolCalls: []ToolCall{{ID: "call_x", Name: "create_patient"}}},
	}}
	o := newTestOrchestrator(client, testRegistry(t), 3)

	state := NewState(nil)
	reply, err := o.Run(context.Background(), state, "register me")
	if !errors.Is(err, ErrLoopBudgetExceeded) {
		t.Fatalf("err = %v, want ErrLoopBudgetExceeded", err)
	}
	if reply != LoopBudgetReply {
		t.Errorf("reply = %q", reply)
	}
	if !state.RequiresHuman {
		t.Error("RequiresHuman should be set after budget cutoff")
	}
	if len(client.requests) != 3 {
		t.Errorf("model called %d times, want 3", len(client.requests))
	}
}

func TestRunProvidersExhausted(t *testing.T) {
	failing := &scriptedClient{err: errors.New("rate limited")}
	gw := NewGateway([]Provider{{Name: "deepseek", Client: failing}}, nil, logging.New("error"))
	o := newTestOrchestrator(gw, testRegistry(t), 0)

	state := NewState(nil)
	reply, err := o.Run(context.Background(), state, "hello?")
	if !errors.Is(err, ErrAllProvidersExhausted) {
		t.Fatalf("err = %v, want ErrAllProvidersExhausted", err)
	}
	if reply != ExhaustedFallbackReply {
		t.Errorf("reply = %q", reply)
	}
	if !state.RequiresHuman {
		t.Error("RequiresHuman should be set when every provider fails")
	}
}
