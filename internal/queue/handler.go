package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/shelfscan/ocrparse/internal/logging"
	"github.com/shelfscan/ocrparse/internal/pipeline"
)

// Handler processes queued parse tasks through the shared pipeline.
type Handler struct {
	pipeline *pipeline.Pipeline
	logger   *logging.Logger
}

// NewHandler creates a task handler.
func NewHandler(p *pipeline.Pipeline, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewLogger("queue")
	}
	return &Handler{pipeline: p, logger: logger}
}

// Register attaches the handler to an asynq mux.
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeParse, h.ProcessTask)
}

// ProcessTask runs one queued parse request. A malformed payload is not
// retried; pipeline errors are, up to the task's retry limit.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var payload ParsePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		h.logger.Error("dropping malformed parse task", "error", err)
		return fmt.Errorf("unmarshal parse payload: %v: %w", err, asynq.SkipRetry)
	}

	h.logger.Info("processing parse task", "request_id", payload.RequestID)
	resp, err := h.pipeline.Process(ctx, payload.Request, payload.RequestID)
	if err != nil {
		h.logger.Error("parse task failed", "request_id", payload.RequestID, "error", err)
		return fmt.Errorf("parse task %s: %w", payload.RequestID, err)
	}

	h.logger.Info("parse task complete",
		"request_id", payload.RequestID,
		"title", resp.Title,
		"confidence", resp.Confidence)
	return nil
}
