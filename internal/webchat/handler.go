package webchat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/premiumdental/dental-ai-platform/internal/conversation"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

// Handler serves the practice-website chat widget over WebSocket. Each
// socket maps to one conversation; messages are settled synchronously, so
// the widget shows a typing indicator until the reply frame arrives.
type Handler struct {
	service  *conversation.Service
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// InboundFrame is what the widget sends.
type InboundFrame struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text,omitempty"`
}

// OutboundFrame is what the widget receives.
type OutboundFrame struct {
	Type           string `json:"type"` // "session", "message", "pong", "error"
	Text           string `json:"text,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	RequiresHuman  bool   `json:"requires_human,omitempty"`
	Timestamp      string `json:"timestamp,omitempty"`
}

// NewHandler creates the webchat handler. checkOrigin receives the request
// Origin header and decides whether the socket may open; nil allows all.
func NewHandler(service *conversation.Service, checkOrigin func(origin string) bool, logger *logging.Logger) *Handler {
	if service == nil {
		panic("webchat: conversation service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{service: service, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
	if checkOrigin != nil {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return checkOrigin(r.Header.Get("Origin"))
		}
	} else {
		h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return h
}

// HandleWebSocket upgrades the connection and pumps frames until the
// client disconnects.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conversationID := r.URL.Query().Get("conversation")
	if conversationID == "" {
		conversationID = "conv_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	if err := conn.WriteJSON(OutboundFrame{
		Type:           "session",
		ConversationID: conversationID,
	}); err != nil {
		return
	}

	for {
		var frame InboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "conversation_id", conversationID, "error", err)
			}
			return
		}

		switch frame.Type {
		case "ping":
			if err := conn.WriteJSON(OutboundFrame{Type: "pong"}); err != nil {
				return
			}
		case "message":
			h.handleMessage(conn, r, conversationID, frame.Text)
		default:
			if err := conn.WriteJSON(OutboundFrame{Type: "error", Text: "unknown frame type"}); err != nil {
				return
			}
		}
	}
}

// HandleMessage is the plain-HTTP fallback for widgets that cannot hold a
// socket open. POST /webchat/message with an InboundFrame body; the
// conversation id rides in the "conversation" query parameter.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var frame InboundFrame
	if err := json.NewDecoder(r.Body).Decode(&frame); err != nil {
		writeFrame(w, http.StatusBadRequest, OutboundFrame{Type: "error", Text: "invalid request body"})
		return
	}

	conversationID := r.URL.Query().Get("conversation")
	resp, err := h.service.Process(r.Context(), conversation.ChatRequest{
		Message:        frame.Text,
		ConversationID: conversationID,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, conversation.ErrEmptyMessage) {
			status = http.StatusBadRequest
		}
		writeFrame(w, status, OutboundFrame{Type: "error", Text: "please enter a message"})
		return
	}

	writeFrame(w, http.StatusOK, OutboundFrame{
		Type:           "message",
		Text:           resp.Reply,
		ConversationID: resp.ConversationID,
		RequiresHuman:  resp.RequiresHuman,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

func writeFrame(w http.ResponseWriter, status int, frame OutboundFrame) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(frame)
}

func (h *Handler) handleMessage(conn *websocket.Conn, r *http.Request, conversationID, text string) {
	resp, err := h.service.Process(r.Context(), conversation.ChatRequest{
		Message:        text,
		ConversationID: conversationID,
	})
	if err != nil {
		_ = conn.WriteJSON(OutboundFrame{Type: "error", Text: "please enter a message"})
		return
	}

	_ = conn.WriteJSON(OutboundFrame{
		Type:           "message",
		Text:           resp.Reply,
		ConversationID: resp.ConversationID,
		RequiresHuman:  resp.RequiresHuman,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}
