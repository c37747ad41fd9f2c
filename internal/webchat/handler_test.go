package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/premiumdental/dental-ai-platform/internal/conversation"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

type echoClient struct{}

func (echoClient) Complete(_ context.Context, req conversation.LLMRequest) (conversation.LLMResponse, error) {
	last := req.Turns[len(req.Turns)-1]
	return conversation.LLMResponse{Content: "You said: " + last.Content}, nil
}

func newTestHandler(t *testing.T, checkOrigin func(string) bool) *Handler {
	t.Helper()
	logger := logging.New("error")
	reg := conversation.NewRegistry(nil, logger)
	orch := conversation.NewOrchestrator(echoClient{}, reg, 0, nil, logger)
	svc := conversation.NewService(orch, nil, nil, logger)
	return NewHandler(svc, checkOrigin, logger)
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func TestWebSocketSessionAndMessage(t *testing.T) {
	handler := newTestHandler(t, nil)
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, "/webchat/ws")
	defer conn.Close()

	var session OutboundFrame
	if err := conn.ReadJSON(&session); err != nil {
		t.Fatalf("read session frame: %v", err)
	}
	if session.Type != "session" {
		t.Fatalf("frame type = %q", session.Type)
	}
	if !strings.HasPrefix(session.ConversationID, "conv_") {
		t.Errorf("conversation id = %q", session.ConversationID)
	}

	if err := conn.WriteJSON(InboundFrame{Type: "message", Text: "hello"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var reply OutboundFrame
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read reply frame: %v", err)
	}
	if reply.Type != "message" {
		t.Fatalf("frame type = %q", reply.Type)
	}
	if !strings.Contains(reply.Text, "hello") {
		t.Errorf("reply text = %q", reply.Text)
	}
	if reply.ConversationID != session.ConversationID {
		t.Errorf("conversation id changed: %q vs %q", reply.ConversationID, session.ConversationID)
	}
}

func TestWebSocketKeepsRequestedConversationID(t *testing.T) {
	handler := newTestHandler(t, nil)
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, "/webchat/ws?conversation=conv_resume1")
	defer conn.Close()

	var session OutboundFrame
	if err := conn.ReadJSON(&session); err != nil {
		t.Fatalf("read session frame: %v", err)
	}
	if session.ConversationID != "conv_resume1" {
		t.Fatalf("conversation id = %q", session.ConversationID)
	}
}

func TestWebSocketPingPong(t *testing.T) {
	handler := newTestHandler(t, nil)
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, "/webchat/ws")
	defer conn.Close()

	var session OutboundFrame
	if err := conn.ReadJSON(&session); err != nil {
		t.Fatalf("read session frame: %v", err)
	}
	if err := conn.WriteJSON(InboundFrame{Type: "ping"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var pong OutboundFrame
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != "pong" {
		t.Fatalf("frame type = %q", pong.Type)
	}
}

func TestWebSocketUnknownFrameType(t *testing.T) {
	handler := newTestHandler(t, nil)
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	conn := dial(t, server, "/webchat/ws")
	defer conn.Close()

	var session OutboundFrame
	if err := conn.ReadJSON(&session); err != nil {
		t.Fatalf("read session frame: %v", err)
	}
	if err := conn.WriteJSON(InboundFrame{Type: "typing"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var frame OutboundFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read error frame: %v", err)
	}
	if frame.Type != "error" {
		t.Fatalf("frame type = %q", frame.Type)
	}
}

func TestHandleMessageFallback(t *testing.T) {
	handler := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webchat/message?conversation=conv_post1",
		strings.NewReader(`{"type":"message","text":"hello"}`))
	rec := httptest.NewRecorder()
	handler.HandleMessage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var frame OutboundFrame
	if err := json.Unmarshal(rec.Body.Bytes(), &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame.Type != "message" || !strings.Contains(frame.Text, "hello") {
		t.Fatalf("frame = %+v", frame)
	}
	if frame.ConversationID != "conv_post1" {
		t.Errorf("conversation id = %q", frame.ConversationID)
	}
}

func TestHandleMessageRejectsEmptyText(t *testing.T) {
	handler := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/webchat/message",
		strings.NewReader(`{"type":"message","text":"  "}`))
	rec := httptest.NewRecorder()
	handler.HandleMessage(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestWebSocketRejectsDisallowedOrigin(t *testing.T) {
	handler := newTestHandler(t, func(origin string) bool {
		return origin == "https://premiumdental.example"
	})
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/webchat/ws"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("resp = %+v", resp)
	}
}
