package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/premiumdental/dental-ai-platform/pkg/logging"
)

// ErrDispatcherClosed settles outstanding jobs when Shutdown runs and
// rejects Enqueue calls made afterwards.
var ErrDispatcherClosed = errors.New("conversation: dispatcher closed")

type jobResult struct {
	resp *ChatResponse
	err  error
}

// Dispatcher moves chat jobs through a queue to worker goroutines. Channels
// that cannot hold a connection open (SMS gateways, voicemail transcripts)
// enqueue here instead of calling Service.Process inline. Callers that do
// want the reply correlate on the job id via Await.
type Dispatcher struct {
	queue   queueClient
	service *Service
	logger  *logging.Logger
	workers int

	mu      sync.Mutex
	pending map[string]chan jobResult
	closed  bool
}

// NewDispatcher wires the queue consumer. workers <= 0 selects one worker.
func NewDispatcher(queue queueClient, service *Service, workers int, logger *logging.Logger) *Dispatcher {
	if queue == nil {
		panic("conversation: queue required")
	}
	if service == nil {
		panic("conversation: service required")
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		queue:   queue,
		service: service,
		logger:  logger,
		workers: workers,
		pending: make(map[string]chan jobResult),
	}
}

// Enqueue publishes one message for asynchronous processing and returns the
// job id for correlation. Returns ErrDispatcherClosed after Shutdown.
func (d *Dispatcher) Enqueue(ctx context.Context, req ChatRequest) (string, error) {
	job, body, err := encodeChatJob(req)
	if err != nil {
		return "", err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrDispatcherClosed
	}
	// Buffered so a worker settling the job never blocks on a caller that
	// gave up waiting.
	d.pending[job.ID] = make(chan jobResult, 1)
	d.mu.Unlock()

	if err := d.queue.Send(ctx, body); err != nil {
		d.forget(job.ID)
		return "", err
	}
	d.logger.Info("chat job enqueued", "job_id", job.ID, "conversation_id", req.ConversationID)
	return job.ID, nil
}

// Await blocks until the job settles, Shutdown fails it, or ctx ends. Each
// job's result is collected at most once.
func (d *Dispatcher) Await(ctx context.Context, jobID string) (*ChatResponse, error) {
	d.mu.Lock()
	ch, ok := d.pending[jobID]
	closed := d.closed
	d.mu.Unlock()
	if !ok {
		if closed {
			return nil, ErrDispatcherClosed
		}
		return nil, fmt.Errorf("conversation: unknown job %q", jobID)
	}
	select {
	case res := <-ch:
		d.forget(jobID)
		return res.resp, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops accepting new jobs and settles every pending one with
// ErrDispatcherClosed. Cancel the Run context first so workers stop
// consuming; messages mid-flight stay on the queue for redelivery.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	outstanding := d.pending
	d.pending = make(map[string]chan jobResult)
	d.mu.Unlock()

	for id, ch := range outstanding {
		ch <- jobResult{err: ErrDispatcherClosed}
		d.logger.Warn("failing outstanding chat job", "job_id", id)
	}
}

// Run consumes jobs until ctx is cancelled. Malformed messages are deleted
// and logged; processing failures leave the message for redelivery.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.consume(ctx)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) consume(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		messages, err := d.queue.Receive(ctx, 10, 5)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("queue receive failed", "error", err)
			continue
		}
		for _, msg := range messages {
			d.handle(ctx, msg)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, msg queueMessage) {
	job, err := decodeChatJob(msg.Body)
	if err != nil {
		d.logger.Error("dropping malformed chat job", "message_id", msg.ID, "error", err)
		if err := d.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
			d.logger.Warn("failed to delete malformed message", "message_id", msg.ID, "error", err)
		}
		return
	}

	resp, err := d.service.Process(ctx, job.Request)
	if err != nil {
		d.logger.Error("chat job failed, leaving for redelivery", "job_id", job.ID, "error", err)
		return
	}
	// A cancelled context makes the gateway answer with its outage apology.
	// That is a fine reply for a live caller but a wrong one to settle a
	// queued job with, so leave the message for redelivery instead.
	if ctx.Err() != nil {
		d.logger.Warn("shutdown interrupted chat job, leaving for redelivery", "job_id", job.ID)
		return
	}

	d.deliver(job.ID, jobResult{resp: resp})
	d.logger.Info("chat job settled",
		"job_id", job.ID,
		"conversation_id", resp.ConversationID,
		"requires_human", resp.RequiresHuman,
	)
	if err := d.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		d.logger.Warn("failed to delete processed message", "job_id", job.ID, "error", err)
	}
}

// deliver parks the result in the job's buffered channel. The entry stays
// registered until a waiter collects it or Shutdown clears the map, so Await
// works whether it is called before or after the worker finishes.
func (d *Dispatcher) deliver(jobID string, res jobResult) {
	d.mu.Lock()
	ch, ok := d.pending[jobID]
	d.mu.Unlock()
	if ok {
		ch <- res
	}
}

func (d *Dispatcher) forget(jobID string) {
	d.mu.Lock()
	delete(d.pending, jobID)
	d.mu.Unlock()
}
