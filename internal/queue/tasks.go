/**
 * Async parse tasks
 *
 * Task definitions for the background parse queue. The HTTP layer
 * enqueues a task and returns the request id immediately; the worker
 * runs the same pipeline and persists the result.
 */

package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shelfscan/ocrparse/internal/pipeline"
)

// TypeParse is the task type for one async parse request.
const TypeParse = "ocrparse:parse"

// ParsePayload is the serialized body of a parse task.
type ParsePayload struct {
	RequestID string           `json:"request_id"`
	Request   pipeline.Request `json:"request"`
}

// NewParseTask builds an asynq task for one parse request.
func NewParseTask(requestID string, req pipeline.Request) (*asynq.Task, error) {
	payload, err := json.Marshal(ParsePayload{
		RequestID: requestID,
		Request:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse payload: %w", err)
	}
	return asynq.NewTask(TypeParse, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}
