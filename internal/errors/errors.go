package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

/**
 * Custom error types for the OCR parse service
 *
 * Every user-visible failure carries a stable code, a human-readable
 * message, and the request id. Causes are kept for logs and never
 * serialized into responses.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Request errors
	ErrorBadRequest    ErrorCode = "bad_request"
	ErrorBatchTooLarge ErrorCode = "batch_too_large"

	// Pipeline errors
	ErrorParseFailed ErrorCode = "parse_failed"
	ErrorOCRFailed   ErrorCode = "ocr_failed"

	// Everything else
	ErrorInternal ErrorCode = "internal_error"
)

// httpStatus maps error codes to response status codes.
func (c ErrorCode) httpStatus() int {
	switch c {
	case ErrorBadRequest:
		return http.StatusBadRequest
	case ErrorBatchTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorParseFailed, ErrorOCRFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ParseError represents a structured service error
type ParseError struct {
	Code      ErrorCode
	Message   string
	RequestID string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Factory functions for common errors

func NewBadRequestError(requestID, message string, cause error) *ParseError {
	return &ParseError{
		Code:      ErrorBadRequest,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewBatchTooLargeError(requestID string, items, limit int) *ParseError {
	return &ParseError{
		Code:      ErrorBatchTooLarge,
		Message:   fmt.Sprintf("Batch of %d items exceeds the limit of %d", items, limit),
		RequestID: requestID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"items": items,
			"limit": limit,
		},
	}
}

func NewParseFailedError(requestID string, cause error) *ParseError {
	return &ParseError{
		Code:      ErrorParseFailed,
		Message:   "Failed to parse the OCR payload",
		RequestID: requestID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewOCRFailedError(requestID string, cause error) *ParseError {
	return &ParseError{
		Code:      ErrorOCRFailed,
		Message:   "OCR extraction failed",
		RequestID: requestID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewInternalError(requestID string, cause error) *ParseError {
	return &ParseError{
		Code:      ErrorInternal,
		Message:   "Internal error",
		RequestID: requestID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// errorBody is the wire shape of a failure response. The cause is
// deliberately absent.
type errorBody struct {
	RequestID string `json:"request_id,omitempty"`
	Error     struct {
		Code    ErrorCode              `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details,omitempty"`
	} `json:"error"`
}

// WriteHTTP serializes the error as a JSON response with the status
// implied by its code.
func (e *ParseError) WriteHTTP(w http.ResponseWriter) {
	body := errorBody{RequestID: e.RequestID}
	body.Error.Code = e.Code
	body.Error.Message = e.Message
	body.Error.Details = e.Details

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Code.httpStatus())
	_ = json.NewEncoder(w).Encode(body)
}

// ToMap converts the error to a map for persistence and logs.
func (e *ParseError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}
