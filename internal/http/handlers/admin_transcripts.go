package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/premiumdental/dental-ai-platform/internal/conversation"
	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

// AdminTranscriptsHandler lets staff review settled exchanges for a
// conversation, including ones flagged for human follow-up.
type AdminTranscriptsHandler struct {
	store  conversation.TranscriptStore
	logger *logging.Logger
}

// NewAdminTranscriptsHandler creates the handler.
func NewAdminTranscriptsHandler(store conversation.TranscriptStore, logger *logging.Logger) *AdminTranscriptsHandler {
	if store == nil {
		panic("handlers: transcript store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminTranscriptsHandler{store: store, logger: logger}
}

// TranscriptResponse wraps the exchanges for one conversation.
type TranscriptResponse struct {
	ConversationID string                        `json:"conversation_id"`
	Exchanges      []conversation.ExchangeRecord `json:"exchanges"`
}

// GetTranscript handles GET /admin/transcripts/{conversationID}.
func (h *AdminTranscriptsHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation id required")
		return
	}

	records, err := h.store.List(r.Context(), conversationID)
	if errors.Is(err, conversation.ErrTranscriptNotFound) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	if err != nil {
		h.logger.Error("transcript lookup failed", "conversation_id", conversationID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, TranscriptResponse{
		ConversationID: conversationID,
		Exchanges:      records,
	})
}
