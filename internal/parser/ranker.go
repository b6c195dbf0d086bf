/**
 * Candidate Ranker
 *
 * Scores normalized line records for title-likeness and author-likeness,
 * merges wrapped fragments, and resolves the best title/author pair with
 * identity, overlap, and swap guards. Pure computation, no I/O.
 */

package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shelfscan/ocrparse/internal/ocr"
)

// RankerVersion identifies the heuristic set in use.
const RankerVersion = "heuristic_v1"

// topCandidates is how many scored lines are kept per category.
const topCandidates = 5

// overlapIoUThreshold is the maximum bbox overlap tolerated between the
// chosen title and author.
const overlapIoUThreshold = 0.2

type scoredLine struct {
	line  LineRecord
	score float64
}

// Rank scores the lines and selects the best title/author pair. Stages run
// in a fixed order: validity filter, junk filter, adjacent-line merge,
// scoring, top-K selection, guard resolution, confidence.
func Rank(lines []LineRecord, image *ocr.ImageInfo, settings ParseSettings) RankResult {
	var warnings []string

	valid := lines[:0:0]
	for _, line := range lines {
		if strings.TrimSpace(line.Text) != "" {
			valid = append(valid, line)
		}
	}
	lines = valid

	if len(lines) == 0 {
		return RankResult{
			Warnings: []string{"no valid lines found in OCR input"},
		}
	}

	if settings.JunkFilter {
		kept := lines[:0:0]
		for _, line := range lines {
			if !IsJunk(line.Text) {
				kept = append(kept, line)
			}
		}
		if dropped := len(lines) - len(kept); dropped > 0 {
			warnings = append(warnings, fmt.Sprintf("filtered %d junk lines", dropped))
		}
		lines = kept
	}

	imageWidth, imageHeight := imageDims(image)
	if settings.MergeAdjacentLines {
		lines = MergeAdjacentLines(lines, imageWidth, imageHeight)
	}

	maxHeight := 0.0
	for _, line := range lines {
		if line.Height > maxHeight {
			maxHeight = line.Height
		}
	}
	if maxHeight <= 0 {
		maxHeight = 1.0
	}

	titleScored := make([]scoredLine, 0, len(lines))
	authorScored := make([]scoredLine, 0, len(lines))
	for _, line := range lines {
		titleScored = append(titleScored, scoredLine{line, TitleScore(line, maxHeight)})
		authorScored = append(authorScored, scoredLine{line, AuthorScore(line, maxHeight)})
	}

	// Stable sorts keep scan order as the tie-break.
	sort.SliceStable(titleScored, func(i, j int) bool { return titleScored[i].score > titleScored[j].score })
	sort.SliceStable(authorScored, func(i, j int) bool { return authorScored[i].score > authorScored[j].score })

	if len(titleScored) > topCandidates {
		titleScored = titleScored[:topCandidates]
	}
	if len(authorScored) > topCandidates {
		authorScored = authorScored[:topCandidates]
	}

	candidates := Candidates{
		Title:  make([]Candidate, 0, len(titleScored)),
		Author: make([]Candidate, 0, len(authorScored)),
	}
	for _, sc := range titleScored {
		candidates.Title = append(candidates.Title, Candidate{
			Text:     sc.line.Text,
			Score:    sc.score,
			BBox:     sc.line.BBox,
			Features: buildFeatures(sc.line, maxHeight),
		})
	}
	for _, sc := range authorScored {
		candidates.Author = append(candidates.Author, Candidate{
			Text:     StripByPrefix(sc.line.Text),
			Score:    sc.score,
			BBox:     sc.line.BBox,
			Features: buildFeatures(sc.line, maxHeight),
		})
	}

	bestTitle, bestAuthor, guardWarnings := resolveBestPair(titleScored, authorScored)
	warnings = append(warnings, guardWarnings...)

	confidence := combinedConfidence(titleScored, authorScored, bestTitle, bestAuthor)

	result := RankResult{
		Confidence: confidence,
		Candidates: candidates,
		Warnings:   warnings,
	}
	if bestTitle != nil {
		result.Title = bestTitle.Text
	}
	if bestAuthor != nil {
		result.Author = StripByPrefix(bestAuthor.Text)
	}
	return result
}

// resolveBestPair applies the identity, overlap, and swap guards, in that
// fixed order. The swap result is deliberately not re-checked for overlap.
func resolveBestPair(titleScored, authorScored []scoredLine) (*LineRecord, *LineRecord, []string) {
	var warnings []string

	var bestTitle, bestAuthor *LineRecord
	if len(titleScored) > 0 {
		bestTitle = &titleScored[0].line
	}
	if len(authorScored) > 0 {
		bestAuthor = &authorScored[0].line
	}

	// Identity guard: the same line cannot win both categories. The loser
	// category falls back to its runner-up, or stays unset.
	if bestTitle != nil && bestAuthor != nil &&
		strings.EqualFold(bestTitle.Text, StripByPrefix(bestAuthor.Text)) {
		if titleScored[0].score > authorScored[0].score {
			bestAuthor = nil
			if len(authorScored) > 1 {
				bestAuthor = &authorScored[1].line
			}
		} else {
			bestTitle = nil
			if len(titleScored) > 1 {
				bestTitle = &titleScored[1].line
			}
		}
	}

	// Overlap guard: look for a runner-up pair whose boxes do not overlap
	// beyond the IoU threshold, preferring a title replacement first.
	if bestTitle != nil && bestAuthor != nil &&
		BBoxIoU(bestTitle.BBox, bestAuthor.BBox) > overlapIoUThreshold {
		for i := 1; i < len(titleScored); i++ {
			if BBoxIoU(titleScored[i].line.BBox, bestAuthor.BBox) <= overlapIoUThreshold {
				bestTitle = &titleScored[i].line
				break
			}
		}
		if BBoxIoU(bestTitle.BBox, bestAuthor.BBox) > overlapIoUThreshold {
			for i := 1; i < len(authorScored); i++ {
				if BBoxIoU(bestTitle.BBox, authorScored[i].line.BBox) <= overlapIoUThreshold {
					bestAuthor = &authorScored[i].line
					break
				}
			}
		}
	}

	// Swap heuristic: a clearly person-like title opposite a clearly
	// non-person author suggests the categories are reversed.
	if bestTitle != nil && bestAuthor != nil {
		titlePerson := PersonLikeScore(bestTitle.Text, bestTitle.Tokens)
		authorText := StripByPrefix(bestAuthor.Text)
		authorPerson := PersonLikeScore(authorText, strings.Fields(authorText))
		if titlePerson > 0.6 && authorPerson < 0.3 &&
			authorScored[0].score >= titleScored[0].score*0.8 {
			bestTitle, bestAuthor = bestAuthor, bestTitle
			warnings = append(warnings, "applied swap heuristic: title/author may be reversed")
		}
	}

	return bestTitle, bestAuthor, warnings
}

// combinedConfidence averages the per-category margin confidences,
// blending in OCR line confidence when the winning line carries one.
func combinedConfidence(titleScored, authorScored []scoredLine, bestTitle, bestAuthor *LineRecord) float64 {
	titleConf := categoryConfidence(titleScored, bestTitle)
	authorConf := categoryConfidence(authorScored, bestAuthor)
	return (titleConf + authorConf) / 2
}

func categoryConfidence(scored []scoredLine, best *LineRecord) float64 {
	if len(scored) == 0 {
		return 0
	}
	margin := scored[0].score
	if len(scored) > 1 {
		margin = scored[0].score - scored[1].score
	}
	conf := margin * 2
	if conf > 1 {
		conf = 1
	}
	if best != nil && best.LineConf != nil {
		conf = (conf + *best.LineConf/100) / 2
	}
	return conf
}
