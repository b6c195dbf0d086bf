/**
 * Verification result types
 *
 * Wire shapes for the bibliographic cross-check: what was attempted,
 * whether a catalog matched, the canonical record on a match, and a
 * debug trail of every query issued and hit scored.
 */

package verify

// MatchThreshold is the minimum similarity for a provider hit to count
// as a match.
const MatchThreshold = 0.6

// Canonical is the authoritative record returned by a matched provider.
type Canonical struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	ISBN13   string `json:"isbn13,omitempty"`
	SourceID string `json:"source_id,omitempty"`
}

// Hit is one scored search result from a provider.
type Hit struct {
	Provider string  `json:"provider"`
	Title    string  `json:"title"`
	Author   string  `json:"author"`
	Score    float64 `json:"score"`
	SourceID string  `json:"source_id,omitempty"`
}

// QueryRecord logs a single outbound catalog query.
type QueryRecord struct {
	Provider string `json:"provider"`
	Query    string `json:"query"`
	Kind     string `json:"kind"` // "strict" or "title_only"
}

// Debug carries the full query and hit trail for one verification call.
type Debug struct {
	Queries []QueryRecord `json:"queries"`
	TopHits []Hit         `json:"top_hits"`
}

// Verification is the outcome of one cross-check against the configured
// providers. Matched implies Canonical is present and MatchConfidence
// is at least MatchThreshold.
type Verification struct {
	Attempted       bool       `json:"attempted"`
	Matched         bool       `json:"matched"`
	Provider        string     `json:"provider,omitempty"`
	MatchConfidence float64    `json:"match_confidence,omitempty"`
	Canonical       *Canonical `json:"canonical,omitempty"`
	Notes           []string   `json:"notes"`
	Debug           *Debug     `json:"debug,omitempty"`
}
