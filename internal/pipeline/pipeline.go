/**
 * Parse Pipeline
 *
 * Sequences the parse stages for one request: normalize the OCR
 * hierarchy, rank candidates, optionally verify against bibliographic
 * catalogs, then assemble the response envelope with stage timings.
 */

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/shelfscan/ocrparse/internal/logging"
	"github.com/shelfscan/ocrparse/internal/ocr"
	"github.com/shelfscan/ocrparse/internal/parser"
	"github.com/shelfscan/ocrparse/internal/storage"
	"github.com/shelfscan/ocrparse/internal/verify"
)

// verifiedConfidenceBoost scales the provider match confidence into the
// final confidence: min(1, ranker + match*0.3).
const verifiedConfidenceBoost = 0.3

// Request is one parse invocation: the OCR payload plus optional
// per-request settings overrides.
type Request struct {
	OCR      *ocr.Document         `json:"ocr"`
	Settings *parser.ParseSettings `json:"settings,omitempty"`
}

// Timings reports per-stage wall time in milliseconds.
type Timings struct {
	ParseMs  int64 `json:"parse_ms"`
	RankMs   int64 `json:"rank_ms"`
	VerifyMs int64 `json:"verify_ms"`
	TotalMs  int64 `json:"total_ms"`
}

// Response is the full parse result envelope.
type Response struct {
	RequestID    string              `json:"request_id"`
	Title        string              `json:"title,omitempty"`
	Author       string              `json:"author,omitempty"`
	Confidence   float64             `json:"confidence"`
	Method       parser.MethodInfo   `json:"method"`
	Candidates   parser.Candidates   `json:"candidates"`
	Verification verify.Verification `json:"verification"`
	Warnings     []string            `json:"warnings"`
	Timings      Timings             `json:"timings"`
}

// ResultStore persists finished parse results.
type ResultStore interface {
	SaveResult(ctx context.Context, rec *storage.ParseRecord) error
}

// Options are the deployment-level knobs the pipeline enforces on every
// request.
type Options struct {
	VerifyDefault bool // used when a request leaves verify unset
	MaxLinesCap   int  // global ceiling on max_lines_considered, 0 = no cap
}

// Pipeline wires the stages together. Verifier and store are optional;
// a nil verifier disables verification, a nil store disables persistence.
type Pipeline struct {
	verifier *verify.Verifier
	store    ResultStore
	opts     Options
	logger   *logging.Logger
}

// New creates a pipeline.
func New(verifier *verify.Verifier, store ResultStore, opts Options, logger *logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.NewLogger("pipeline")
	}
	return &Pipeline{
		verifier: verifier,
		store:    store,
		opts:     opts,
		logger:   logger,
	}
}

// Process runs one request through the pipeline. requestID must be
// non-empty; it threads through logs, the response, and persistence.
func (p *Pipeline) Process(ctx context.Context, req Request, requestID string) (*Response, error) {
	if req.OCR == nil {
		return nil, fmt.Errorf("missing ocr payload")
	}

	settings := p.effectiveSettings(req.Settings)
	start := time.Now()

	lines := parser.Normalize(req.OCR, settings)
	parseDone := time.Now()

	var image *ocr.ImageInfo
	if req.OCR != nil {
		image = req.OCR.Image
	}
	ranked := parser.Rank(lines, image, settings)
	rankDone := time.Now()

	verification := verify.Verification{Attempted: false}
	method := parser.MethodInfo{
		Ranker:   parser.RankerVersion,
		Verifier: "none",
		Fallback: "none",
	}
	if p.verifier != nil && settings.VerifyEnabled(p.opts.VerifyDefault) {
		verification = p.verifier.Verify(ctx, ranked.Title, ranked.Author, settings)
		if verification.Matched {
			method.Verifier = verification.Provider
		}
	}
	verifyDone := time.Now()

	confidence := ranked.Confidence
	if verification.Matched {
		confidence = confidence + verification.MatchConfidence*verifiedConfidenceBoost
		if confidence > 1 {
			confidence = 1
		}
	}

	resp := &Response{
		RequestID:    requestID,
		Title:        ranked.Title,
		Author:       ranked.Author,
		Confidence:   confidence,
		Method:       method,
		Candidates:   ranked.Candidates,
		Verification: verification,
		Warnings:     ranked.Warnings,
		Timings: Timings{
			ParseMs:  parseDone.Sub(start).Milliseconds(),
			RankMs:   rankDone.Sub(parseDone).Milliseconds(),
			VerifyMs: verifyDone.Sub(rankDone).Milliseconds(),
			TotalMs:  verifyDone.Sub(start).Milliseconds(),
		},
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}

	p.persist(ctx, resp)

	p.logger.Info("parse complete",
		"request_id", requestID,
		"title", resp.Title,
		"author", resp.Author,
		"confidence", resp.Confidence,
		"verified", verification.Matched,
		"provider", verification.Provider,
		"warnings", len(resp.Warnings),
		"total_ms", resp.Timings.TotalMs)

	return resp, nil
}

// effectiveSettings resolves request overrides against the defaults and
// clamps them to deployment ceilings.
func (p *Pipeline) effectiveSettings(override *parser.ParseSettings) parser.ParseSettings {
	settings := parser.DefaultSettings()
	if override != nil {
		settings = *override
	}
	if p.opts.MaxLinesCap > 0 &&
		(settings.MaxLinesConsidered <= 0 || settings.MaxLinesConsidered > p.opts.MaxLinesCap) {
		settings.MaxLinesConsidered = p.opts.MaxLinesCap
	}
	if len(settings.VerifyProviderOrder) == 0 {
		settings.VerifyProviderOrder = parser.DefaultSettings().VerifyProviderOrder
	}
	return settings
}

// persist writes the result best-effort: a storage failure is logged and
// never fails the request.
func (p *Pipeline) persist(ctx context.Context, resp *Response) {
	if p.store == nil {
		return
	}
	rec := &storage.ParseRecord{
		RequestID:        resp.RequestID,
		Title:            resp.Title,
		Author:           resp.Author,
		Confidence:       resp.Confidence,
		Verified:         resp.Verification.Matched,
		Provider:         resp.Verification.Provider,
		Warnings:         resp.Warnings,
		ProcessingTimeMs: resp.Timings.TotalMs,
	}
	if resp.Verification.Canonical != nil {
		rec.ISBN13 = resp.Verification.Canonical.ISBN13
	}
	if err := p.store.SaveResult(ctx, rec); err != nil {
		p.logger.Warn("failed to persist parse result",
			"request_id", resp.RequestID, "error", err)
	}
}
