package conversation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

var serviceTracer = otel.Tracer("dental.internal.conversation")

// ErrEmptyMessage rejects requests with nothing to answer.
var ErrEmptyMessage = errors.New("conversation: message must not be empty")

// ChatRequest is one inbound patient message. History is optional: when
// empty and a ConversationID is supplied, prior turns are loaded from the
// history store.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	History        []Turn `json:"history,omitempty"`
}

// ChatResponse is what the channel layer renders back to the patient.
// Reply is always present and always safe to display.
type ChatResponse struct {
	Reply          string   `json:"reply"`
	PatientID      string   `json:"patient_id,omitempty"`
	AppointmentIDs []string `json:"appointment_ids,omitempty"`
	RequiresHuman  bool     `json:"requires_human"`
	ConversationID string   `json:"conversation_id"`
}

// Service is the chat entry point used by every channel (REST, webchat,
// queue worker). Model failures never escape it as errors: the patient
// gets a safe reply and RequiresHuman marks the exchange for follow-up.
type Service struct {
	orchestrator *Orchestrator
	history      *HistoryStore
	transcripts  TranscriptStore
	logger       *logging.Logger
}

// NewService wires the adapter. history and transcripts may be nil; the
// service then relies on caller-supplied history and skips audit records.
func NewService(orchestrator *Orchestrator, history *HistoryStore, transcripts TranscriptStore, logger *logging.Logger) *Service {
	if orchestrator == nil {
		panic("conversation: orchestrator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		orchestrator: orchestrator,
		history:      history,
		transcripts:  transcripts,
		logger:       logger,
	}
}

// Process settles one user message and returns the assistant's reply with
// everything the exchange established. The only errors it returns are
// request validation failures; model-side trouble is absorbed into the
// response.
func (s *Service) Process(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, span := serviceTracer.Start(ctx, "conversation.process")
	defer span.End()

	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = "conv_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	}
	span.SetAttributes(attribute.String("dental.conversation_id", conversationID))

	history := req.History
	if len(history) == 0 && s.history != nil && req.ConversationID != "" {
		loaded, err := s.history.Load(ctx, conversationID)
		if err != nil {
			s.logger.Warn("history load failed, starting fresh", "conversation_id", conversationID, "error", err)
		} else {
			history = loaded
		}
	}

	state := NewState(history)
	reply, err := s.orchestrator.Run(ctx, state, req.Message)
	if err != nil {
		// Run already produced a safe reply and flagged the handoff;
		// the error is recorded for operators only.
		s.logger.Error("conversation settled degraded",
			"conversation_id", conversationID,
			"error", err,
		)
		span.RecordError(err)
	}

	if s.history != nil {
		if err := s.history.Save(ctx, conversationID, state.Turns); err != nil {
			s.logger.Warn("history save failed", "conversation_id", conversationID, "error", err)
		}
	}
	if s.transcripts != nil {
		rec := &ExchangeRecord{
			ConversationID: conversationID,
			ExchangeAt:     time.Now().UTC().Format(time.RFC3339Nano),
			UserMessage:    req.Message,
			Reply:          reply,
			PatientID:      state.PatientID,
			AppointmentIDs: state.AppointmentIDs,
			RequiresHuman:  state.RequiresHuman,
		}
		if err := s.transcripts.Append(ctx, rec); err != nil {
			s.logger.Warn("transcript append failed", "conversation_id", conversationID, "error", err)
		}
	}

	return &ChatResponse{
		Reply:          reply,
		PatientID:      state.PatientID,
		AppointmentIDs: state.AppointmentIDs,
		RequiresHuman:  state.RequiresHuman,
		ConversationID: conversationID,
	}, nil
}
