/**
 * Google Books provider
 *
 * Queries the Google Books volumes API. Issues a strict title+author
 * query first; if the best hit scores below the fallback threshold and
 * budget remains, retries with a title-only query weighted toward title
 * similarity.
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

// DefaultGoogleBooksBaseURL is the production volumes API endpoint.
const DefaultGoogleBooksBaseURL = "https://www.googleapis.com/books/v1"

const providerGoogleBooks = "google_books"

const maxHitsPerQuery = 5

// GoogleBooksProvider searches the Google Books catalog.
type GoogleBooksProvider struct {
	baseURL    string
	httpClient *http.Client
}

type googleBooksResponse struct {
	Items []googleBooksItem `json:"items"`
}

type googleBooksItem struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
	} `json:"volumeInfo"`
}

// NewGoogleBooksProvider creates a provider against the given base URL,
// falling back to the production endpoint when empty.
func NewGoogleBooksProvider(baseURL string, timeout time.Duration) *GoogleBooksProvider {
	if baseURL == "" {
		baseURL = DefaultGoogleBooksBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GoogleBooksProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns the registry name for this provider.
func (p *GoogleBooksProvider) Name() string {
	return providerGoogleBooks
}

// Query searches for the title/author pair, spending at most two queries
// and never more than budget.
func (p *GoogleBooksProvider) Query(ctx context.Context, title, author string, budget int) (*ProviderResult, error) {
	result := &ProviderResult{}
	if budget <= 0 {
		result.Notes = append(result.Notes, "google_books: no query budget remaining")
		return result, nil
	}

	strict := buildGoogleBooksQuery(title, author)
	hits, err := p.search(ctx, strict, title, author, false, result)
	if err != nil {
		return result, err
	}
	best := bestHit(hits)

	if (best == nil || best.Score < titleOnlyFallbackThreshold) && title != "" && author != "" && result.QueriesMade < budget {
		titleOnly := buildGoogleBooksQuery(title, "")
		fallbackHits, err := p.search(ctx, titleOnly, title, author, true, result)
		if err != nil {
			// The strict query already produced hits; keep them.
			result.Notes = append(result.Notes, fmt.Sprintf("google_books: title-only query failed: %v", err))
		} else if fb := bestHit(fallbackHits); fb != nil && (best == nil || fb.Score > best.Score) {
			best = fb
		}
	}

	if best == nil {
		result.Notes = append(result.Notes, "google_books: no results")
		return result, nil
	}
	result.MatchConfidence = best.Score
	if best.Score >= MatchThreshold {
		result.Matched = true
		result.Canonical = best.canonical
	}
	return result, nil
}

func (p *GoogleBooksProvider) search(ctx context.Context, query, queryTitle, queryAuthor string, titleOnly bool, result *ProviderResult) ([]scoredCandidate, error) {
	kind := "strict"
	if titleOnly {
		kind = "title_only"
	}
	result.Queries = append(result.Queries, QueryRecord{
		Provider: providerGoogleBooks,
		Query:    query,
		Kind:     kind,
	})
	result.QueriesMade++

	endpoint := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d", p.baseURL, url.QueryEscape(query), maxHitsPerQuery)
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
		result.Notes = append(result.Notes, "google_books: rate limited")
		return nil, fmt.Errorf("rate limited (status %d)", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed googleBooksResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	weight := queryWeight(queryAuthor, titleOnly)
	hits := make([]scoredCandidate, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		hitAuthor := strings.Join(item.VolumeInfo.Authors, ", ")
		score := scoreHit(queryTitle, queryAuthor, item.VolumeInfo.Title, hitAuthor, weight)
		hits = append(hits, scoredCandidate{
			Score: score,
			canonical: &Canonical{
				Title:    item.VolumeInfo.Title,
				Author:   hitAuthor,
				ISBN13:   googleBooksISBN13(item),
				SourceID: item.ID,
			},
		})
		result.Hits = append(result.Hits, Hit{
			Provider: providerGoogleBooks,
			Title:    item.VolumeInfo.Title,
			Author:   hitAuthor,
			Score:    score,
			SourceID: item.ID,
		})
	}
	return hits, nil
}

func buildGoogleBooksQuery(title, author string) string {
	var parts []string
	if title != "" {
		parts = append(parts, fmt.Sprintf("intitle:%q", title))
	}
	if author != "" {
		parts = append(parts, fmt.Sprintf("inauthor:%q", author))
	}
	return strings.Join(parts, " ")
}

func googleBooksISBN13(item googleBooksItem) string {
	for _, id := range item.VolumeInfo.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			return id.Identifier
		}
	}
	return ""
}

