package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shelfscan/ocrparse/internal/ocr"
)

// Fallback dimensions when the OCR payload carries no image metadata.
const defaultImageDim = 1000.0

// LineRecord is a flattened OCR text line annotated with the features the
// ranker scores on. Records are immutable once built; merging produces a
// fresh record instead of mutating either parent.
type LineRecord struct {
	Text      string
	BBox      []float64
	LineConf  *float64 // 0-100 scale, nil when unknown
	Height    float64
	CenterX   float64 // normalized to [0,1]
	CenterY   float64 // normalized to [0,1]
	WordCount int
	CharLen   int
	Tokens    []string
	CapsRatio float64
}

// Normalize flattens the OCR hierarchy into ordered line records,
// preserving document order (depth-first over blocks → paragraphs → lines).
// Malformed entries are skipped, never rejected.
func Normalize(doc *ocr.Document, settings ParseSettings) []LineRecord {
	var lines []LineRecord
	if doc == nil || doc.Chunks == nil {
		return lines
	}

	imageWidth, imageHeight := imageDims(doc.Image)

	for _, block := range doc.Chunks.Blocks {
		for _, paragraph := range block.Paragraphs {
			for _, line := range paragraph.Lines {
				rec, ok := newLineRecord(line, imageWidth, imageHeight)
				if !ok {
					continue
				}
				lines = append(lines, rec)
			}
		}
	}

	if settings.MaxLinesConsidered > 0 && len(lines) > settings.MaxLinesConsidered {
		lines = lines[:settings.MaxLinesConsidered]
	}

	return lines
}

func imageDims(info *ocr.ImageInfo) (float64, float64) {
	width, height := defaultImageDim, defaultImageDim
	if info != nil {
		if info.Width > 0 {
			width = float64(info.Width)
		}
		if info.Height > 0 {
			height = float64(info.Height)
		}
	}
	return width, height
}

func newLineRecord(line ocr.Line, imageWidth, imageHeight float64) (LineRecord, bool) {
	text := line.Text
	if strings.TrimSpace(text) == "" {
		text = joinWordTexts(line.Words)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return LineRecord{}, false
	}

	if len(line.BBox) < 4 {
		return LineRecord{}, false
	}
	x1, y1, x2, y2 := line.BBox[0], line.BBox[1], line.BBox[2], line.BBox[3]
	if x2 < x1 || y2 < y1 {
		return LineRecord{}, false
	}

	lineConf := line.Confidence
	if lineConf == nil {
		lineConf = averageWordConfidence(line.Words)
	}

	tokens := strings.Fields(text)

	return LineRecord{
		Text:      text,
		BBox:      line.BBox[:4],
		LineConf:  lineConf,
		Height:    y2 - y1,
		CenterX:   normalizeCenter((x1+x2)/2, imageWidth),
		CenterY:   normalizeCenter((y1+y2)/2, imageHeight),
		WordCount: len(tokens),
		CharLen:   utf8.RuneCountInString(text),
		Tokens:    tokens,
		CapsRatio: capsRatio(text),
	}, true
}

// joinWordTexts reconstructs line text by space-joining non-empty word
// texts in word order.
func joinWordTexts(words []ocr.Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w.Text != "" {
			parts = append(parts, w.Text)
		}
	}
	return strings.Join(parts, " ")
}

// averageWordConfidence averages the confidences of words that carry one,
// or returns nil when none do.
func averageWordConfidence(words []ocr.Word) *float64 {
	var sum float64
	var n int
	for _, w := range words {
		if w.Confidence != nil {
			sum += *w.Confidence
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func normalizeCenter(center, dim float64) float64 {
	if dim <= 0 {
		return 0.5
	}
	return center / dim
}

// capsRatio is uppercase letters over total letters, 0 when the text has
// no letters.
func capsRatio(text string) float64 {
	var letters, upper int
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}
