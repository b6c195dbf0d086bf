/**
 * Verification Orchestrator
 *
 * Walks the configured provider order under a shared query budget,
 * stopping at the first match. Provider failures are recorded as notes
 * and never abort the verification; a caller deadline degrades the
 * result instead of failing the parse.
 */

package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/shelfscan/ocrparse/internal/logging"
	"github.com/shelfscan/ocrparse/internal/parser"
)

// ResultCache stores finished verification results keyed by the queried
// title/author pair. Implementations must be safe for concurrent use.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Verification, bool)
	Set(ctx context.Context, key string, result *Verification)
}

// Verifier orchestrates catalog lookups across registered providers.
type Verifier struct {
	registry Registry
	cache    ResultCache // optional
	logger   *logging.Logger
}

// NewVerifier creates an orchestrator over the given registry. cache may
// be nil to disable result caching.
func NewVerifier(registry Registry, cache ResultCache, logger *logging.Logger) *Verifier {
	if logger == nil {
		logger = logging.NewLogger("verify")
	}
	return &Verifier{
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

// Verify cross-checks the proposed title/author against the providers
// named in the settings, in order, under the shared query budget.
func (v *Verifier) Verify(ctx context.Context, title, author string, settings parser.ParseSettings) Verification {
	if title == "" && author == "" {
		return Verification{
			Attempted: false,
			Notes:     []string{"nothing to verify: no title or author"},
		}
	}

	cacheKey := verificationKey(title, author)
	if v.cache != nil {
		if cached, ok := v.cache.Get(ctx, cacheKey); ok && cached != nil {
			v.logger.Debug("verification cache hit", "title", title, "author", author)
			return *cached
		}
	}

	budget := settings.QueryBudget()
	result := Verification{
		Attempted: true,
		Debug:     &Debug{},
	}

	queriesUsed := 0
	anyCompleted := false
	seen := make(map[string]struct{})
	for _, name := range settings.VerifyProviderOrder {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		provider, ok := v.registry[name]
		if !ok {
			v.logger.Debug("skipping unknown provider", "provider", name)
			continue
		}
		if queriesUsed >= budget {
			result.Notes = append(result.Notes, "query budget exhausted")
			break
		}

		pr, err := provider.Query(ctx, title, author, budget-queriesUsed)
		if pr != nil {
			queriesUsed += pr.QueriesMade
			result.Debug.Queries = append(result.Debug.Queries, pr.Queries...)
			result.Debug.TopHits = append(result.Debug.TopHits, pr.Hits...)
			result.Notes = append(result.Notes, pr.Notes...)
		}
		if err != nil {
			if ctx.Err() != nil {
				result.Notes = append(result.Notes, "verification timed out")
				v.logger.Warn("verification deadline elapsed", "provider", name)
				break
			}
			result.Notes = append(result.Notes, fmt.Sprintf("provider %s failed: %v", name, err))
			v.logger.Warn("provider query failed", "provider", name, "error", err)
			continue
		}
		if pr == nil {
			continue
		}
		anyCompleted = true

		if pr.Matched && pr.Canonical != nil && pr.MatchConfidence >= MatchThreshold {
			result.Matched = true
			result.Provider = name
			result.MatchConfidence = pr.MatchConfidence
			result.Canonical = pr.Canonical
			v.logger.Info("verification matched",
				"provider", name,
				"confidence", pr.MatchConfidence,
				"queries_used", queriesUsed)
			v.storeCache(ctx, cacheKey, &result)
			return result
		}
	}

	if !result.Matched {
		result.Notes = append(result.Notes, "no match found")
	}
	// A no-match built only from provider failures is transient; caching
	// it would suppress verification for the whole TTL.
	if anyCompleted {
		v.storeCache(ctx, cacheKey, &result)
	}
	return result
}

func (v *Verifier) storeCache(ctx context.Context, key string, result *Verification) {
	if v.cache == nil || ctx.Err() != nil {
		return
	}
	v.cache.Set(ctx, key, result)
}

func verificationKey(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(author))
}
