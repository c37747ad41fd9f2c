package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const conversationTTL = 24 * time.Hour

// HistoryStore keeps per-conversation transcripts in Redis so follow-up
// messages in the same conversation see prior turns.
type HistoryStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

// NewHistoryStore wraps a Redis client.
func NewHistoryStore(redisClient *redis.Client) *HistoryStore {
	if redisClient == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &HistoryStore{
		redis:  redisClient,
		tracer: otel.Tracer("dental.internal.conversation.history"),
	}
}

// Save persists the transcript with a sliding TTL.
func (s *HistoryStore) Save(ctx context.Context, conversationID string, turns []Turn) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_history")
	defer span.End()

	data, err := json.Marshal(turns)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, conversationKey(conversationID), data, conversationTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist history: %w", err)
	}
	return nil
}

// Load returns the stored transcript, or nil when the conversation is new
// or expired.
func (s *HistoryStore) Load(ctx context.Context, conversationID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, conversationKey(conversationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load history: %w", err)
	}

	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode history: %w", err)
	}
	return turns, nil
}

func conversationKey(id string) string {
	return fmt.Sprintf("conversation:%s", id)
}
