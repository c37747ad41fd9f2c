package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// chatJob is the queued form of one inbound message, used by channels that
// accept messages faster than the model settles them (SMS, voicemail
// transcripts).
type chatJob struct {
	ID      string      `json:"id"`
	Request ChatRequest `json:"request"`
}

func encodeChatJob(req ChatRequest) (chatJob, string, error) {
	job := chatJob{ID: uuid.NewString(), Request: req}
	body, err := json.Marshal(job)
	if err != nil {
		return chatJob{}, "", fmt.Errorf("conversation: failed to encode chat job: %w", err)
	}
	return job, string(body), nil
}

func decodeChatJob(body string) (chatJob, error) {
	var job chatJob
	if err := json.Unmarshal([]byte(body), &job); err != nil {
		return chatJob{}, fmt.Errorf("conversation: failed to decode chat job: %w", err)
	}
	return job, nil
}
