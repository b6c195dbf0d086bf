/**
 * Parse Pipeline Tests
 *
 * End-to-end runs through normalize, rank, and verify with a scripted
 * provider, plus settings clamping and confidence boosting.
 */

package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/shelfscan/ocrparse/internal/ocr"
	"github.com/shelfscan/ocrparse/internal/parser"
	"github.com/shelfscan/ocrparse/internal/storage"
	"github.com/shelfscan/ocrparse/internal/verify"
)

type scriptedProvider struct {
	result *verify.ProviderResult
	calls  int
}

func (s *scriptedProvider) Name() string { return "google_books" }

func (s *scriptedProvider) Query(ctx context.Context, title, author string, budget int) (*verify.ProviderResult, error) {
	s.calls++
	return s.result, nil
}

type captureStore struct {
	saved []*storage.ParseRecord
}

func (c *captureStore) SaveResult(ctx context.Context, rec *storage.ParseRecord) error {
	c.saved = append(c.saved, rec)
	return nil
}

func coverDocument() *ocr.Document {
	return &ocr.Document{
		Image: &ocr.ImageInfo{Width: 1000, Height: 1000},
		Chunks: &ocr.Chunks{
			Blocks: []ocr.Block{{
				Paragraphs: []ocr.Paragraph{{
					Lines: []ocr.Line{
						{Text: "THE GREAT GATSBY", BBox: []float64{300, 200, 700, 350}},
						{Text: "by F. Scott Fitzgerald", BBox: []float64{350, 800, 650, 840}},
					},
				}},
			}},
		},
	}
}

func TestProcessWithoutVerification(t *testing.T) {
	p := New(nil, nil, Options{}, nil)

	resp, err := p.Process(context.Background(), Request{OCR: coverDocument()}, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Title != "THE GREAT GATSBY" {
		t.Errorf("title = %q", resp.Title)
	}
	if resp.Author != "F. Scott Fitzgerald" {
		t.Errorf("author = %q", resp.Author)
	}
	if resp.Verification.Attempted {
		t.Error("verification should not have been attempted without a verifier")
	}
	if resp.Method.Ranker != parser.RankerVersion {
		t.Errorf("method.ranker = %q", resp.Method.Ranker)
	}
	if resp.Method.Verifier != "none" {
		t.Errorf("method.verifier = %q, want none", resp.Method.Verifier)
	}
	if resp.RequestID != "req-1" {
		t.Errorf("request id = %q", resp.RequestID)
	}
}

func TestProcessBoostsConfidenceOnMatch(t *testing.T) {
	provider := &scriptedProvider{result: &verify.ProviderResult{
		Matched:         true,
		MatchConfidence: 0.9,
		QueriesMade:     1,
		Canonical: &verify.Canonical{
			Title: "The Great Gatsby", Author: "F. Scott Fitzgerald", ISBN13: "9780743273565",
		},
	}}
	verifier := verify.NewVerifier(verify.NewRegistry(provider), nil, nil)
	store := &captureStore{}
	p := New(verifier, store, Options{VerifyDefault: true}, nil)

	baseline, err := New(nil, nil, Options{}, nil).Process(context.Background(), Request{OCR: coverDocument()}, "req-base")
	if err != nil {
		t.Fatalf("baseline error: %v", err)
	}
	resp, err := p.Process(context.Background(), Request{OCR: coverDocument()}, "req-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.Verification.Matched {
		t.Fatal("expected a verification match")
	}
	want := baseline.Confidence + 0.9*verifiedConfidenceBoost
	if want > 1 {
		want = 1
	}
	if diff := resp.Confidence - want; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("confidence = %v, want %v", resp.Confidence, want)
	}
	if resp.Method.Verifier != "google_books" {
		t.Errorf("method.verifier = %q, want google_books", resp.Method.Verifier)
	}

	if len(store.saved) != 1 {
		t.Fatalf("store writes = %d, want 1", len(store.saved))
	}
	saved := store.saved[0]
	if saved.RequestID != "req-2" || !saved.Verified || saved.ISBN13 != "9780743273565" {
		t.Errorf("persisted record = %+v", saved)
	}
}

func TestProcessVerifyOptOut(t *testing.T) {
	provider := &scriptedProvider{result: &verify.ProviderResult{QueriesMade: 1}}
	verifier := verify.NewVerifier(verify.NewRegistry(provider), nil, nil)
	p := New(verifier, nil, Options{VerifyDefault: true}, nil)

	off := false
	settings := parser.DefaultSettings()
	settings.Verify = &off
	_, err := p.Process(context.Background(), Request{OCR: coverDocument(), Settings: &settings}, "req-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.calls != 0 {
		t.Errorf("provider calls = %d, want 0 (request opted out)", provider.calls)
	}
}

func TestProcessClampsLineCap(t *testing.T) {
	settings := parser.DefaultSettings()
	settings.MaxLinesConsidered = 10000

	p := New(nil, nil, Options{MaxLinesCap: 50}, nil)
	effective := p.effectiveSettings(&settings)
	if effective.MaxLinesConsidered != 50 {
		t.Errorf("max lines = %d, want clamped 50", effective.MaxLinesConsidered)
	}

	settings.MaxLinesConsidered = 20
	effective = p.effectiveSettings(&settings)
	if effective.MaxLinesConsidered != 20 {
		t.Errorf("max lines = %d, want 20 (below cap)", effective.MaxLinesConsidered)
	}
}

func TestProcessMissingOCR(t *testing.T) {
	p := New(nil, nil, Options{}, nil)
	_, err := p.Process(context.Background(), Request{}, "req-4")
	if err == nil {
		t.Fatal("expected an error for a missing OCR payload")
	}
	if !strings.Contains(err.Error(), "ocr") {
		t.Errorf("error should mention the missing payload: %v", err)
	}
}

func TestProcessEmptyDocument(t *testing.T) {
	p := New(nil, nil, Options{}, nil)
	resp, err := p.Process(context.Background(), Request{OCR: &ocr.Document{}}, "req-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", resp.Confidence)
	}
	if len(resp.Warnings) == 0 {
		t.Error("expected a no-valid-lines warning")
	}
}
