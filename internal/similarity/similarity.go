/**
 * String Similarity Engine
 *
 * Case-insensitive similarity primitives shared by ranking and
 * verification: normalized edit ratio, fuzzy token-set ratio, and a
 * weighted title/author blend. All functions are pure and symmetric.
 */

package similarity

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// DefaultTitleWeight balances title vs author similarity for combined
// queries.
const DefaultTitleWeight = 0.6

// TitleOnlyWeight is used when no author signal exists and the title must
// carry most of the decision.
const TitleOnlyWeight = 0.8

// EditRatio is the normalized Levenshtein similarity of two strings,
// case-insensitive. Returns 0 when either string is empty.
func EditRatio(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(maxLen)
}

// TokenSetRatio compares the unique token sets of two strings, tolerating
// reordering and one-sided extra tokens. The intersection is compared
// against each full set and the best alignment wins. Returns 0 when
// either side has no tokens.
func TokenSetRatio(a, b string) float64 {
	tokensA := uniqueTokens(a)
	tokensB := uniqueTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	var common, onlyA, onlyB []string
	setB := make(map[string]struct{}, len(tokensB))
	for _, tok := range tokensB {
		setB[tok] = struct{}{}
	}
	inCommon := make(map[string]struct{})
	for _, tok := range tokensA {
		if _, ok := setB[tok]; ok {
			common = append(common, tok)
			inCommon[tok] = struct{}{}
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for _, tok := range tokensB {
		if _, ok := inCommon[tok]; !ok {
			onlyB = append(onlyB, tok)
		}
	}

	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := 0.0
	if base != "" {
		// A non-empty intersection against a superset scores high, which
		// is the point: "1984" vs "1984 (Signet Classics)" should match.
		best = maxFloat(EditRatio(base, withA), EditRatio(base, withB))
	}
	return maxFloat(best, EditRatio(withA, withB))
}

// Weighted blends title and author similarity into one score:
// titleWeight*titleSim + (1-titleWeight)*authorSim.
func Weighted(titleSim, authorSim, titleWeight float64) float64 {
	if titleWeight < 0 {
		titleWeight = 0
	}
	if titleWeight > 1 {
		titleWeight = 1
	}
	return titleWeight*titleSim + (1-titleWeight)*authorSim
}

// uniqueTokens lowercases, splits on whitespace, dedupes, and sorts, so
// token order never affects the comparison.
func uniqueTokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	seen := make(map[string]struct{}, len(fields))
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
