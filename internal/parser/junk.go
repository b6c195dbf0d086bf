package parser

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Promotional and bibliographic boilerplate that never belongs in a
// title/author answer. Matched against the uppercased line text.
var junkKeywords = []string{
	"A NOVEL",
	"NEW YORK TIMES",
	"BESTSELLER",
	"WINNER",
	"NOW A MAJOR MOTION PICTURE",
	"FOREWORD",
	"INTRODUCTION",
	"VOLUME",
	"BOOK ONE",
	"BOOK TWO",
	"BOOK THREE",
	"EDITION",
	"REVISED",
	"UPDATED",
	"COPYRIGHT",
	"PUBLISHED BY",
	"ISBN",
	"WWW.",
	"HTTP://",
	"HTTPS://",
}

var (
	urlPattern   = regexp.MustCompile(`(?i)https?://|www\.|\.com|\.org|\.net`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

const junkMaxChars = 200

// IsJunk reports whether a line is promotional/bibliographic boilerplate,
// a URL or email, or too long to plausibly be a title or author.
func IsJunk(text string) bool {
	upper := strings.ToUpper(text)
	for _, keyword := range junkKeywords {
		if strings.Contains(upper, keyword) {
			return true
		}
	}
	if urlPattern.MatchString(text) || emailPattern.MatchString(text) {
		return true
	}
	return utf8.RuneCountInString(text) > junkMaxChars
}
