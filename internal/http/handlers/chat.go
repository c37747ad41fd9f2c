package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/premiumdental/dental-ai-platform/internal/conversation"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

// ChatHandler serves the REST chat endpoint.
type ChatHandler struct {
	service *conversation.Service
	logger  *logging.Logger
}

// NewChatHandler creates the handler.
func NewChatHandler(service *conversation.Service, logger *logging.Logger) *ChatHandler {
	if service == nil {
		panic("handlers: conversation service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{service: service, logger: logger}
}

// ServeHTTP handles POST /api/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req conversation.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Process(r.Context(), req)
	if errors.Is(err, conversation.ErrEmptyMessage) {
		writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}
	if err != nil {
		h.logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
