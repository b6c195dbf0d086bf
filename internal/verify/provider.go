package verify

import (
	"context"

	"github.com/shelfscan/ocrparse/internal/similarity"
)

// titleOnlyFallbackThreshold: when a strict query's best hit scores below
// this, a provider spends a second query on a title-only search.
const titleOnlyFallbackThreshold = 0.7

// ProviderResult is what one provider reports back to the orchestrator.
// A provider never returns an error for "no match"; errors are reserved
// for transport-level failures.
type ProviderResult struct {
	Matched         bool
	Canonical       *Canonical
	MatchConfidence float64
	QueriesMade     int
	Notes           []string
	Hits            []Hit
	Queries         []QueryRecord
}

// Provider is one bibliographic catalog. Query may issue up to two
// searches (strict, then title-only) but never more than budget allows.
type Provider interface {
	Name() string
	Query(ctx context.Context, title, author string, budget int) (*ProviderResult, error)
}

// Registry maps provider names to implementations. Order of use is
// dictated by the request settings, not the registry.
type Registry map[string]Provider

// NewRegistry builds a registry from the given providers, keyed by name.
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

// scoredCandidate pairs a similarity score with the canonical record a
// match would return.
type scoredCandidate struct {
	Score     float64
	canonical *Canonical
}

func bestHit(hits []scoredCandidate) *scoredCandidate {
	var best *scoredCandidate
	for i := range hits {
		if best == nil || hits[i].Score > best.Score {
			best = &hits[i]
		}
	}
	return best
}

// scoreHit rates a catalog hit against the queried title/author using
// token-set similarity blended by titleWeight.
func scoreHit(queryTitle, queryAuthor, hitTitle, hitAuthor string, titleWeight float64) float64 {
	titleSim := similarity.TokenSetRatio(queryTitle, hitTitle)
	authorSim := similarity.TokenSetRatio(queryAuthor, hitAuthor)
	return similarity.Weighted(titleSim, authorSim, titleWeight)
}

// queryWeight picks the similarity blend for a query: title-only
// searches lean harder on the title, as do queries with no author
// signal at all.
func queryWeight(author string, titleOnly bool) float64 {
	if titleOnly || author == "" {
		return similarity.TitleOnlyWeight
	}
	return similarity.DefaultTitleWeight
}
