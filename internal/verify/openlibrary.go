/**
 * Open Library provider
 *
 * Queries the Open Library search API with separate title/author fields,
 * falling back to a title-only search when the strict query scores below
 * the fallback threshold and budget remains.
 */

package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultOpenLibraryBaseURL is the production search endpoint.
const DefaultOpenLibraryBaseURL = "https://openlibrary.org"

const providerOpenLibrary = "open_library"

// OpenLibraryProvider searches the Open Library catalog.
type OpenLibraryProvider struct {
	baseURL    string
	httpClient *http.Client
}

type openLibraryResponse struct {
	Docs []openLibraryDoc `json:"docs"`
}

type openLibraryDoc struct {
	Key        string   `json:"key"`
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	ISBN       []string `json:"isbn"`
}

// NewOpenLibraryProvider creates a provider against the given base URL,
// falling back to the production endpoint when empty.
func NewOpenLibraryProvider(baseURL string, timeout time.Duration) *OpenLibraryProvider {
	if baseURL == "" {
		baseURL = DefaultOpenLibraryBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OpenLibraryProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the registry name for this provider.
func (p *OpenLibraryProvider) Name() string {
	return providerOpenLibrary
}

// Query searches for the title/author pair, spending at most two queries
// and never more than budget.
func (p *OpenLibraryProvider) Query(ctx context.Context, title, author string, budget int) (*ProviderResult, error) {
	result := &ProviderResult{}
	if budget <= 0 {
		result.Notes = append(result.Notes, "open_library: no query budget remaining")
		return result, nil
	}

	hits, err := p.search(ctx, title, author, false, result)
	if err != nil {
		return result, err
	}
	best := bestHit(hits)

	if (best == nil || best.Score < titleOnlyFallbackThreshold) && title != "" && author != "" && result.QueriesMade < budget {
		fallbackHits, err := p.search(ctx, title, author, true, result)
		if err != nil {
			result.Notes = append(result.Notes, fmt.Sprintf("open_library: title-only query failed: %v", err))
		} else if fb := bestHit(fallbackHits); fb != nil && (best == nil || fb.Score > best.Score) {
			best = fb
		}
	}

	if best == nil {
		result.Notes = append(result.Notes, "open_library: no results")
		return result, nil
	}
	result.MatchConfidence = best.Score
	if best.Score >= MatchThreshold {
		result.Matched = true
		result.Canonical = best.canonical
	}
	return result, nil
}

func (p *OpenLibraryProvider) search(ctx context.Context, title, author string, titleOnly bool, result *ProviderResult) ([]scoredCandidate, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", maxHitsPerQuery))
	if title != "" {
		params.Set("title", title)
	}
	if author != "" && !titleOnly {
		params.Set("author", author)
	}

	kind := "strict"
	if titleOnly {
		kind = "title_only"
	}
	result.Queries = append(result.Queries, QueryRecord{
		Provider: providerOpenLibrary,
		Query:    params.Encode(),
		Kind:     kind,
	})
	result.QueriesMade++

	endpoint := p.baseURL + "/search.json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		result.Notes = append(result.Notes, "open_library: rate limited")
		return nil, fmt.Errorf("rate limited (status %d)", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed openLibraryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// The original author string still drives scoring on title-only
	// fallback queries; only the outbound query drops it.
	weight := queryWeight(author, titleOnly)
	hits := make([]scoredCandidate, 0, len(parsed.Docs))
	for _, doc := range parsed.Docs {
		hitAuthor := strings.Join(doc.AuthorName, ", ")
		score := scoreHit(title, author, doc.Title, hitAuthor, weight)
		hits = append(hits, scoredCandidate{
			Score: score,
			canonical: &Canonical{
				Title:    doc.Title,
				Author:   hitAuthor,
				ISBN13:   openLibraryISBN13(doc),
				SourceID: doc.Key,
			},
		})
		result.Hits = append(result.Hits, Hit{
			Provider: providerOpenLibrary,
			Title:    doc.Title,
			Author:   hitAuthor,
			Score:    score,
			SourceID: doc.Key,
		})
	}
	return hits, nil
}

// openLibraryISBN13 picks the first 13-digit ISBN from a doc's
// identifier list.
func openLibraryISBN13(doc openLibraryDoc) string {
	for _, isbn := range doc.ISBN {
		if len(isbn) == 13 {
			return isbn
		}
	}
	return ""
}
