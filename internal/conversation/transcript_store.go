package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

const transcriptTTL = 90 * 24 * time.Hour

// ErrTranscriptNotFound indicates no exchanges exist for a conversation.
var ErrTranscriptNotFound = errors.New("conversation: transcript not found")

// ExchangeRecord is one settled user message with its outcome, kept for
// audit beyond the Redis history TTL.
type ExchangeRecord struct {
	ConversationID string   `dynamodbav:"conversationId" json:"conversationId"`
	ExchangeAt     string   `dynamodbav:"exchangeAt" json:"exchangeAt"`
	UserMessage    string   `dynamodbav:"userMessage" json:"userMessage"`
	Reply          string   `dynamodbav:"reply" json:"reply"`
	PatientID      string   `dynamodbav:"patientId,omitempty" json:"patientId,omitempty"`
	AppointmentIDs []string `dynamodbav:"appointmentIds,omitempty" json:"appointmentIds,omitempty"`
	RequiresHuman  bool     `dynamodbav:"requiresHuman" json:"requiresHuman"`
	ExpiresAt      int64    `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// TranscriptStore records settled exchanges.
type TranscriptStore interface {
	Append(ctx context.Context, rec *ExchangeRecord) error
	List(ctx context.Context, conversationID string) ([]ExchangeRecord, error)
}

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoTranscriptStore persists exchanges to DynamoDB, keyed by
// conversation id with the exchange timestamp as sort key.
type DynamoTranscriptStore struct {
	client    dynamoAPI
	tableName string
	logger    *logging.Logger
}

var _ TranscriptStore = (*DynamoTranscriptStore)(nil)

// NewDynamoTranscriptStore builds a store backed by the provided client.
func NewDynamoTranscriptStore(client dynamoAPI, tableName string, logger *logging.Logger) *DynamoTranscriptStore {
	if client == nil {
		panic("conversation: dynamodb client cannot be nil")
	}
	if tableName == "" {
		panic("conversation: table name cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DynamoTranscriptStore{client: client, tableName: tableName, logger: logger}
}

// Append writes one exchange record.
func (s *DynamoTranscriptStore) Append(ctx context.Context, rec *ExchangeRecord) error {
	if rec == nil {
		return errors.New("conversation: exchange record cannot be nil")
	}
	now := time.Now().UTC()
	if rec.ExchangeAt == "" {
		rec.ExchangeAt = now.Format(time.RFC3339Nano)
	}
	if rec.ExpiresAt == 0 {
		rec.ExpiresAt = now.Add(transcriptTTL).Unix()
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal exchange: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("conversation: failed to persist exchange: %w", err)
	}
	return nil
}

// List returns a conversation's exchanges in chronological order.
func (s *DynamoTranscriptStore) List(ctx context.Context, conversationID string) ([]ExchangeRecord, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("conversationId = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: conversationID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to query transcript: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, ErrTranscriptNotFound
	}

	records := make([]ExchangeRecord, 0, len(out.Items))
	for _, item := range out.Items {
		var rec ExchangeRecord
		if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
			return nil, fmt.Errorf("conversation: failed to decode exchange: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// MemoryTranscriptStore keeps exchanges in memory for tests and deployments
// without DynamoDB.
type MemoryTranscriptStore struct {
	mu      sync.RWMutex
	records map[string][]ExchangeRecord
}

var _ TranscriptStore = (*MemoryTranscriptStore)(nil)

// NewMemoryTranscriptStore returns an empty in-memory store.
func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{records: make(map[string][]ExchangeRecord)}
}

func (s *MemoryTranscriptStore) Append(_ context.Context, rec *ExchangeRecord) error {
	if rec == nil {
		return errors.New("conversation: exchange record cannot be nil")
	}
	cp := *rec
	if cp.ExchangeAt == "" {
		cp.ExchangeAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[cp.ConversationID] = append(s.records[cp.ConversationID], cp)
	return nil
}

func (s *MemoryTranscriptStore) List(_ context.Context, conversationID string) ([]ExchangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, ok := s.records[conversationID]
	if !ok {
		return nil, ErrTranscriptNotFound
	}
	out := make([]ExchangeRecord, len(records))
	copy(out, records)
	return out, nil
}
