package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var byPrefixPattern = regexp.MustCompile(`(?i)^by\s+`)

var nameStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {},
}

// HasByPrefix reports whether the text starts with a "by " attribution
// prefix (or is just "by").
func HasByPrefix(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(lower, "by ") || lower == "by"
}

// StripByPrefix removes a leading "by " from the text, case-insensitively.
func StripByPrefix(text string) string {
	return strings.TrimSpace(byPrefixPattern.ReplaceAllString(text, ""))
}

// PersonLikeScore estimates how much a string resembles a personal name,
// clamped to [0, 1].
func PersonLikeScore(text string, tokens []string) float64 {
	if text == "" || len(tokens) == 0 {
		return 0
	}

	var score float64

	// 2-5 words is typical for names; single names happen but are rarer.
	switch {
	case len(tokens) >= 2 && len(tokens) <= 5:
		score += 0.3
	case len(tokens) == 1:
		score += 0.1
	}

	var alpha int
	for _, r := range text {
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if float64(alpha)/float64(utf8.RuneCountInString(text)) > 0.8 {
		score += 0.2
	}

	if allTokensCapitalizedOrInitial(tokens) {
		score += 0.3
	}

	if isAllUpper(text) && utf8.RuneCountInString(text) > 5 {
		score -= 0.1
	}

	if strings.ContainsFunc(text, unicode.IsDigit) {
		score -= 0.2
	}

	for _, token := range tokens {
		if _, ok := nameStopwords[strings.ToLower(token)]; ok {
			score -= 0.2
			break
		}
	}

	return clamp01(score)
}

// allTokensCapitalizedOrInitial accepts "J. K. Rowling" style initials as
// well as capitalized words.
func allTokensCapitalizedOrInitial(tokens []string) bool {
	for _, token := range tokens {
		if token == "" {
			continue
		}
		first, _ := utf8.DecodeRuneInString(token)
		if unicode.IsUpper(first) {
			continue
		}
		if utf8.RuneCountInString(token) == 2 && strings.HasSuffix(token, ".") {
			continue
		}
		return false
	}
	return true
}

func isAllUpper(text string) bool {
	hasLetter := false
	for _, r := range text {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TitleScore rates how title-like a line is. Additive heuristic weights,
// floored at zero.
func TitleScore(line LineRecord, maxHeight float64) float64 {
	var score float64

	if maxHeight > 0 {
		score += line.Height / maxHeight * 0.3
	}

	center := 1.0 - 2*abs(line.CenterX-0.5)
	if center > 0 {
		score += center * 0.2
	}

	switch {
	case line.CenterY < 0.33:
		score += 0.15
	case line.CenterY <= 0.67:
		score += 0.2
	default:
		score += 0.05
	}

	switch {
	case line.WordCount >= 1 && line.WordCount <= 10:
		score += 0.15
	case line.WordCount > 15:
		score -= 0.1
	}

	score -= PersonLikeScore(line.Text, line.Tokens) * 0.1

	if IsJunk(line.Text) {
		score -= 0.5
	}

	if line.LineConf != nil && *line.LineConf > 50 {
		score += 0.1
	}

	if score < 0 {
		return 0
	}
	return score
}

// AuthorScore rates how author-like a line is. The "by " prefix is a
// strong signal; the text itself is never modified here.
func AuthorScore(line LineRecord, maxHeight float64) float64 {
	var score float64

	score += PersonLikeScore(line.Text, line.Tokens) * 0.4

	if HasByPrefix(line.Text) {
		score += 0.3
	}

	if maxHeight > 0 {
		sizeNorm := line.Height / maxHeight
		if sizeNorm >= 0.3 && sizeNorm <= 1.2 {
			score += 0.15
		}
	}

	switch {
	case line.CenterY > 0.67:
		score += 0.15
	case line.CenterY < 0.33:
		score += 0.1
	}

	switch {
	case line.WordCount >= 1 && line.WordCount <= 5:
		score += 0.15
	case line.WordCount > 8:
		score -= 0.1
	}

	if IsJunk(line.Text) {
		score -= 0.5
	}

	if line.LineConf != nil && *line.LineConf > 50 {
		score += 0.1
	}

	if score < 0 {
		return 0
	}
	return score
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
