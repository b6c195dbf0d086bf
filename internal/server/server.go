/**
 * HTTP transport for the OCR parse service
 *
 * Routes:
 *   POST /parse        - parse one OCR payload synchronously
 *   POST /parse/batch  - parse up to MaxBatchItems payloads in order
 *   POST /parse/async  - enqueue a parse for the background worker
 *   POST /parse/image  - OCR an uploaded image, then parse it
 *   GET  /healthz      - liveness and dependency status
 *   GET  /version      - build identification
 */

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shelfscan/ocrparse/internal/config"
	apperrors "github.com/shelfscan/ocrparse/internal/errors"
	"github.com/shelfscan/ocrparse/internal/logging"
	"github.com/shelfscan/ocrparse/internal/ocr"
	"github.com/shelfscan/ocrparse/internal/parser"
	"github.com/shelfscan/ocrparse/internal/pipeline"
	"github.com/shelfscan/ocrparse/internal/queue"
)

// Version identifies the service build.
const Version = "1.2.0"

// Server wires the HTTP surface to the parse pipeline.
type Server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	enqueuer *queue.Enqueuer // nil when Redis is not configured
	engine   *ocr.Engine     // nil when Tesseract is disabled
	logger   *logging.Logger
	router   *mux.Router

	healthChecks []healthCheck
}

type healthCheck struct {
	name  string
	check func(context.Context) error
}

// New builds the server and its routes. enqueuer and engine are optional.
func New(cfg *config.Config, p *pipeline.Pipeline, enqueuer *queue.Enqueuer, engine *ocr.Engine, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewLogger("server")
	}
	s := &Server{
		cfg:      cfg,
		pipeline: p,
		enqueuer: enqueuer,
		engine:   engine,
		logger:   logger,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	r.HandleFunc("/parse", s.handleParse).Methods(http.MethodPost)
	r.HandleFunc("/parse/batch", s.handleParseBatch).Methods(http.MethodPost)
	r.HandleFunc("/parse/async", s.handleParseAsync).Methods(http.MethodPost)
	r.HandleFunc("/parse/image", s.handleParseImage).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	return r
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	var req pipeline.Request
	if err := s.decodeBody(w, r, &req); err != nil {
		apperrors.NewBadRequestError(requestID, "Invalid request body", err).WriteHTTP(w)
		return
	}

	resp := s.processItem(r, req, requestID)
	writeJSON(w, http.StatusOK, resp)
}

type batchRequest struct {
	Items []pipeline.Request `json:"items"`
}

type batchResponse struct {
	RequestID string               `json:"request_id"`
	Items     []*pipeline.Response `json:"items"`
}

func (s *Server) handleParseBatch(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	var req batchRequest
	if err := s.decodeBody(w, r, &req); err != nil {
		apperrors.NewBadRequestError(requestID, "Invalid request body", err).WriteHTTP(w)
		return
	}
	if len(req.Items) == 0 {
		apperrors.NewBadRequestError(requestID, "Batch must contain at least one item", nil).WriteHTTP(w)
		return
	}
	if len(req.Items) > s.cfg.MaxBatchItems {
		apperrors.NewBatchTooLargeError(requestID, len(req.Items), s.cfg.MaxBatchItems).WriteHTTP(w)
		return
	}

	// Items process sequentially; a failing item degrades to an error
	// placeholder and never takes the batch down with it.
	items := make([]*pipeline.Response, len(req.Items))
	for i, item := range req.Items {
		itemID := fmt.Sprintf("%s-%d", requestID, i)
		items[i] = s.processItem(r, item, itemID)
	}

	writeJSON(w, http.StatusOK, batchResponse{RequestID: requestID, Items: items})
}

type asyncResponse struct {
	RequestID string `json:"request_id"`
	TaskID    string `json:"task_id"`
	Status    string `json:"status"`
}

func (s *Server) handleParseAsync(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	if s.enqueuer == nil {
		apperrors.NewBadRequestError(requestID, "Async parsing is not enabled on this deployment", nil).WriteHTTP(w)
		return
	}

	var req pipeline.Request
	if err := s.decodeBody(w, r, &req); err != nil {
		apperrors.NewBadRequestError(requestID, "Invalid request body", err).WriteHTTP(w)
		return
	}
	if req.OCR == nil {
		apperrors.NewBadRequestError(requestID, "Missing ocr payload", nil).WriteHTTP(w)
		return
	}

	taskID, err := s.enqueuer.Enqueue(r.Context(), requestID, req)
	if err != nil {
		s.logger.Error("failed to enqueue parse task", "request_id", requestID, "error", err)
		apperrors.NewInternalError(requestID, err).WriteHTTP(w)
		return
	}

	writeJSON(w, http.StatusAccepted, asyncResponse{
		RequestID: requestID,
		TaskID:    taskID,
		Status:    "queued",
	})
}

func (s *Server) handleParseImage(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFromContext(r.Context())

	if s.engine == nil {
		apperrors.NewBadRequestError(requestID, "Image OCR is not enabled on this deployment", nil).WriteHTTP(w)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	imageData, err := io.ReadAll(r.Body)
	if err != nil {
		apperrors.NewBadRequestError(requestID, "Failed to read image body", err).WriteHTTP(w)
		return
	}
	if len(imageData) == 0 {
		apperrors.NewBadRequestError(requestID, "Empty image body", nil).WriteHTTP(w)
		return
	}

	doc, err := s.engine.Extract(r.Context(), imageData)
	if err != nil {
		s.logger.Error("image OCR failed", "request_id", requestID, "error", err)
		apperrors.NewOCRFailedError(requestID, err).WriteHTTP(w)
		return
	}

	resp := s.processItem(r, pipeline.Request{OCR: doc}, requestID)
	writeJSON(w, http.StatusOK, resp)
}

// AddHealthCheck registers a named dependency probe run by /healthz.
func (s *Server) AddHealthCheck(name string, check func(context.Context) error) {
	s.healthChecks = append(s.healthChecks, healthCheck{name: name, check: check})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	httpStatus := http.StatusOK
	deps := make(map[string]string, len(s.healthChecks))
	for _, hc := range s.healthChecks {
		if err := hc.check(ctx); err != nil {
			deps[hc.name] = "unavailable"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			s.logger.Warn("health check failed", "dependency", hc.name, "error", err)
		} else {
			deps[hc.name] = "ok"
		}
	}

	body := map[string]interface{}{
		"status":  status,
		"version": Version,
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	writeJSON(w, httpStatus, body)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "ocrparse",
		"version": Version,
	})
}

// processItem runs one request through the pipeline, converting any
// failure into the error placeholder shape instead of an HTTP error.
func (s *Server) processItem(r *http.Request, req pipeline.Request, requestID string) (resp *pipeline.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("pipeline panic", "request_id", requestID, "panic", rec)
			resp = errorPlaceholder(requestID, "internal error during parsing")
		}
	}()

	resp, err := s.pipeline.Process(r.Context(), req, requestID)
	if err != nil {
		s.logger.Warn("parse failed", "request_id", requestID, "error", err)
		return errorPlaceholder(requestID, err.Error())
	}
	return resp
}

// errorPlaceholder is the per-item failure shape: confidence 0 and the
// ranker marked as errored.
func errorPlaceholder(requestID, message string) *pipeline.Response {
	return &pipeline.Response{
		RequestID:  requestID,
		Confidence: 0,
		Method: parser.MethodInfo{
			Ranker:   "error",
			Verifier: "none",
			Fallback: "none",
		},
		Warnings: []string{message},
	}
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
