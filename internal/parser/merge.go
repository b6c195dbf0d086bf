package parser

import "unicode/utf8"

// Merge thresholds: lines closer than mergeGapFactor × mean line height
// vertically, aligned within mergeCenterTolerance horizontally, and short
// enough on both sides, are treated as one wrapped title/author fragment.
const (
	mergeGapFactor       = 0.6
	mergeCenterTolerance = 0.1
	mergeMaxTokens       = 5
)

// MergeAdjacentLines performs a single top-to-bottom sweep absorbing runs
// of short, vertically adjacent, center-aligned lines into one record.
func MergeAdjacentLines(lines []LineRecord, imageWidth, imageHeight float64) []LineRecord {
	if len(lines) == 0 {
		return lines
	}

	var totalHeight float64
	for _, line := range lines {
		totalHeight += line.Height
	}
	avgHeight := totalHeight / float64(len(lines))

	merged := make([]LineRecord, 0, len(lines))
	i := 0
	for i < len(lines) {
		current := lines[i]
		j := i + 1
		for j < len(lines) {
			next := lines[j]
			if !canMerge(current, next, avgHeight) {
				break
			}
			current = mergeRecords(current, next, imageWidth, imageHeight)
			j++
		}
		merged = append(merged, current)
		i = j
	}

	return merged
}

func canMerge(current, next LineRecord, avgHeight float64) bool {
	gap := abs(next.BBox[1] - current.BBox[3])
	if gap > mergeGapFactor*avgHeight {
		return false
	}
	if abs(next.CenterX-current.CenterX) > mergeCenterTolerance {
		return false
	}
	return current.WordCount <= mergeMaxTokens && next.WordCount <= mergeMaxTokens
}

// mergeRecords builds a fresh record covering both parents: bbox union,
// confidence averaged over the parents that have one, and every derived
// feature recomputed from the merged values.
func mergeRecords(a, b LineRecord, imageWidth, imageHeight float64) LineRecord {
	text := a.Text + " " + b.Text
	bbox := []float64{
		min64(a.BBox[0], b.BBox[0]),
		min64(a.BBox[1], b.BBox[1]),
		max64(a.BBox[2], b.BBox[2]),
		max64(a.BBox[3], b.BBox[3]),
	}

	var conf *float64
	switch {
	case a.LineConf != nil && b.LineConf != nil:
		avg := (*a.LineConf + *b.LineConf) / 2
		conf = &avg
	case a.LineConf != nil:
		c := *a.LineConf
		conf = &c
	case b.LineConf != nil:
		c := *b.LineConf
		conf = &c
	}

	tokens := make([]string, 0, len(a.Tokens)+len(b.Tokens))
	tokens = append(tokens, a.Tokens...)
	tokens = append(tokens, b.Tokens...)

	return LineRecord{
		Text:      text,
		BBox:      bbox,
		LineConf:  conf,
		Height:    bbox[3] - bbox[1],
		CenterX:   normalizeCenter((bbox[0]+bbox[2])/2, imageWidth),
		CenterY:   normalizeCenter((bbox[1]+bbox[3])/2, imageHeight),
		WordCount: len(tokens),
		CharLen:   utf8.RuneCountInString(text),
		Tokens:    tokens,
		CapsRatio: capsRatio(text),
	}
}
