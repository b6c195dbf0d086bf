/**
 * Catalog Provider Tests
 *
 * Runs the Google Books and Open Library clients against local test
 * servers: match scoring, title-only fallback, budget discipline, and
 * error surfacing.
 */

package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func googleBooksJSON(id, title string, authors []string, isbn13 string) string {
	quoted := make([]string, len(authors))
	for i, a := range authors {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	identifiers := ""
	if isbn13 != "" {
		identifiers = fmt.Sprintf(`, "industryIdentifiers": [{"type": "ISBN_13", "identifier": %q}]`, isbn13)
	}
	return fmt.Sprintf(`{"items": [{"id": %q, "volumeInfo": {"title": %q, "authors": [%s]%s}}]}`,
		id, title, strings.Join(quoted, ", "), identifiers)
}

func TestGoogleBooksMatch(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, googleBooksJSON("vol1", "1984", []string{"George Orwell"}, "9780451524935"))
	}))
	defer server.Close()

	p := NewGoogleBooksProvider(server.URL, time.Second)
	result, err := p.Query(context.Background(), "1984", "George Orwell", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Matched {
		t.Fatalf("expected a match, got %+v", result)
	}
	if result.MatchConfidence < MatchThreshold {
		t.Errorf("confidence %v below match threshold", result.MatchConfidence)
	}
	if result.Canonical == nil || result.Canonical.ISBN13 != "9780451524935" {
		t.Errorf("canonical = %+v, want ISBN 9780451524935", result.Canonical)
	}
	if result.Canonical.SourceID != "vol1" {
		t.Errorf("source id = %q, want vol1", result.Canonical.SourceID)
	}
	// A perfect strict hit should not trigger the title-only fallback.
	if requests != 1 || result.QueriesMade != 1 {
		t.Errorf("requests = %d, queries made = %d, want 1 and 1", requests, result.QueriesMade)
	}
}

func TestGoogleBooksTitleOnlyFallback(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		q := r.URL.Query().Get("q")
		if strings.Contains(q, "inauthor") {
			fmt.Fprint(w, googleBooksJSON("weak", "Cooking Basics", []string{"Someone Else"}, ""))
			return
		}
		fmt.Fprint(w, googleBooksJSON("good", "1984", []string{"George Orwell"}, "9780451524935"))
	}))
	defer server.Close()

	p := NewGoogleBooksProvider(server.URL, time.Second)
	result, err := p.Query(context.Background(), "1984", "George Orwell", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if requests != 2 || result.QueriesMade != 2 {
		t.Fatalf("requests = %d, queries made = %d, want 2 and 2", requests, result.QueriesMade)
	}
	if !result.Matched || result.Canonical == nil || result.Canonical.SourceID != "good" {
		t.Errorf("expected the title-only hit to win, got %+v", result.Canonical)
	}
	kinds := make([]string, 0, len(result.Queries))
	for _, q := range result.Queries {
		kinds = append(kinds, q.Kind)
	}
	if len(kinds) != 2 || kinds[0] != "strict" || kinds[1] != "title_only" {
		t.Errorf("query kinds = %v, want [strict title_only]", kinds)
	}
}

func TestGoogleBooksRespectsBudget(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, googleBooksJSON("weak", "Cooking Basics", []string{"Someone Else"}, ""))
	}))
	defer server.Close()

	p := NewGoogleBooksProvider(server.URL, time.Second)
	result, err := p.Query(context.Background(), "1984", "George Orwell", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Budget of 1 forbids the fallback even though the strict hit is weak.
	if requests != 1 || result.QueriesMade != 1 {
		t.Errorf("requests = %d, queries made = %d, want 1 and 1", requests, result.QueriesMade)
	}
	if result.Matched {
		t.Error("weak hit should not match")
	}
}

func TestGoogleBooksZeroBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be issued with zero budget")
	}))
	defer server.Close()

	p := NewGoogleBooksProvider(server.URL, time.Second)
	result, err := p.Query(context.Background(), "1984", "George Orwell", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.QueriesMade != 0 {
		t.Errorf("queries made = %d, want 0", result.QueriesMade)
	}
}

func TestGoogleBooksServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewGoogleBooksProvider(server.URL, time.Second)
	result, err := p.Query(context.Background(), "1984", "George Orwell", 6)
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	// The failed query still counts against the budget.
	if result == nil || result.QueriesMade != 1 {
		t.Errorf("queries made = %+v, want 1", result)
	}
}

func TestOpenLibraryMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"docs": [{"key": "/works/OL1168083W", "title": "1984",
			"author_name": ["George Orwell"], "isbn": ["0451524934", "9780451524935"]}]}`)
	}))
	defer server.Close()

	p := NewOpenLibraryProvider(server.URL, time.Second)
	result, err := p.Query(context.Background(), "1984", "George Orwell", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Matched {
		t.Fatalf("expected a match, got %+v", result)
	}
	if result.Canonical == nil || result.Canonical.ISBN13 != "9780451524935" {
		t.Errorf("canonical = %+v, want the 13-digit ISBN", result.Canonical)
	}
	if result.Canonical.SourceID != "/works/OL1168083W" {
		t.Errorf("source id = %q", result.Canonical.SourceID)
	}
}

func TestOpenLibraryTitleOnlyFallbackDropsAuthorParam(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		if r.URL.Query().Get("author") != "" {
			fmt.Fprint(w, `{"docs": []}`)
			return
		}
		fmt.Fprint(w, `{"docs": [{"key": "/works/OL1W", "title": "1984", "author_name": ["George Orwell"]}]}`)
	}))
	defer server.Close()

	p := NewOpenLibraryProvider(server.URL, time.Second)
	result, err := p.Query(context.Background(), "1984", "George Orwell", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(queries) != 2 {
		t.Fatalf("server saw %d queries, want 2", len(queries))
	}
	if !strings.Contains(queries[0], "author=") {
		t.Errorf("strict query missing author param: %q", queries[0])
	}
	if strings.Contains(queries[1], "author=") {
		t.Errorf("title-only query still carries author param: %q", queries[1])
	}
	if !result.Matched {
		t.Errorf("expected the fallback hit to match, got %+v", result)
	}
}

func TestOpenLibraryRateLimitNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewOpenLibraryProvider(server.URL, time.Second)
	result, err := p.Query(context.Background(), "1984", "George Orwell", 6)
	if err == nil {
		t.Fatal("expected an error when rate limited")
	}
	found := false
	for _, note := range result.Notes {
		if strings.Contains(note, "rate limited") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a rate-limit note, got %v", result.Notes)
	}
}
