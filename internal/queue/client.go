package queue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/shelfscan/ocrparse/internal/pipeline"
)

// Enqueuer submits parse tasks to the background queue.
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer creates a queue client against the given Redis URL.
func NewEnqueuer(redisURL string) (*Enqueuer, error) {
	opts, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &Enqueuer{client: asynq.NewClient(opts)}, nil
}

// Enqueue submits one parse request and returns the queue task id.
func (e *Enqueuer) Enqueue(ctx context.Context, requestID string, req pipeline.Request) (string, error) {
	task, err := NewParseTask(requestID, req)
	if err != nil {
		return "", err
	}
	info, err := e.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue parse task: %w", err)
	}
	return info.ID, nil
}

// Close releases the queue connection.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}
