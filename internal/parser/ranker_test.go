/**
 * Candidate Ranker Tests
 *
 * Covers the scoring scenarios, guard resolution, merge behavior, and the
 * IoU and junk primitives the ranker is built on.
 */

package parser

import (
	"strings"
	"testing"

	"github.com/shelfscan/ocrparse/internal/ocr"
)

func testImage() *ocr.ImageInfo {
	return &ocr.ImageInfo{Width: 1000, Height: 1000}
}

func lineRecord(text string, bbox []float64) LineRecord {
	rec, ok := newLineRecord(ocr.Line{Text: text, BBox: bbox}, 1000, 1000)
	if !ok {
		panic("invalid test line: " + text)
	}
	return rec
}

func TestRankGatsbyCover(t *testing.T) {
	lines := []LineRecord{
		lineRecord("THE GREAT GATSBY", []float64{300, 200, 700, 350}),
		lineRecord("by F. Scott Fitzgerald", []float64{350, 800, 650, 840}),
	}

	result := Rank(lines, testImage(), DefaultSettings())

	if result.Title != "THE GREAT GATSBY" {
		t.Errorf("title = %q, want %q", result.Title, "THE GREAT GATSBY")
	}
	if result.Author != "F. Scott Fitzgerald" {
		t.Errorf("author = %q, want %q (by prefix stripped)", result.Author, "F. Scott Fitzgerald")
	}
	if result.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", result.Confidence)
	}
	if len(result.Candidates.Title) == 0 || len(result.Candidates.Author) == 0 {
		t.Error("expected candidate lists for both categories")
	}
}

func TestRankSubPixelHeightsScaleToTallestLine(t *testing.T) {
	lines := []LineRecord{
		lineRecord("THE GREAT GATSBY", []float64{300, 200, 700, 200.5}),
		lineRecord("by F. Scott Fitzgerald", []float64{350, 800, 650, 800.25}),
	}

	result := Rank(lines, testImage(), DefaultSettings())

	if len(result.Candidates.Title) == 0 {
		t.Fatal("expected title candidates")
	}
	// Size is relative to the tallest line present, however short it is.
	top := result.Candidates.Title[0]
	if top.Text != "THE GREAT GATSBY" {
		t.Fatalf("top title candidate = %q", top.Text)
	}
	if top.Features.SizeNorm != 1.0 {
		t.Errorf("tallest line size_norm = %v, want 1.0", top.Features.SizeNorm)
	}
}

func TestRankJunkFilterDropsBoilerplate(t *testing.T) {
	lines := []LineRecord{
		lineRecord("NEW YORK TIMES BESTSELLER", []float64{200, 50, 800, 100}),
		lineRecord("1984", []float64{350, 300, 650, 450}),
		lineRecord("by George Orwell", []float64{380, 700, 620, 740}),
	}

	settings := DefaultSettings()
	settings.JunkFilter = true
	result := Rank(lines, testImage(), settings)

	if result.Title != "1984" {
		t.Errorf("title = %q, want %q", result.Title, "1984")
	}
	if result.Author != "George Orwell" {
		t.Errorf("author = %q, want %q", result.Author, "George Orwell")
	}
	for _, cand := range result.Candidates.Title {
		if strings.Contains(cand.Text, "BESTSELLER") {
			t.Error("junk line survived into the candidate list")
		}
	}
	found := false
	for _, w := range result.Warnings {
		if strings.Contains(w, "junk") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a junk drop warning, got %v", result.Warnings)
	}
}

func TestRankNoValidLines(t *testing.T) {
	result := Rank(nil, testImage(), DefaultSettings())

	if result.Title != "" || result.Author != "" {
		t.Errorf("expected empty result, got title=%q author=%q", result.Title, result.Author)
	}
	if result.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", result.Confidence)
	}
	if len(result.Warnings) == 0 {
		t.Error("expected a no-valid-lines warning")
	}
}

func TestRankTitleAuthorNeverIdentical(t *testing.T) {
	// The same text appears twice; the guard must not pick it for both.
	lines := []LineRecord{
		lineRecord("John Grisham", []float64{300, 100, 700, 250}),
		lineRecord("The Firm", []float64{350, 500, 650, 560}),
	}

	settings := DefaultSettings()
	settings.MergeAdjacentLines = false
	result := Rank(lines, testImage(), settings)

	if result.Title != "" && result.Author != "" &&
		strings.EqualFold(result.Title, result.Author) {
		t.Errorf("title and author are identical: %q", result.Title)
	}
}

func TestIdentityGuardFallsBackToRunnerUp(t *testing.T) {
	shared := lineRecord("Ursula K. Le Guin", []float64{300, 100, 700, 200})
	other := lineRecord("The Dispossessed", []float64{300, 400, 700, 480})

	titleScored := []scoredLine{{shared, 0.9}, {other, 0.5}}
	authorScored := []scoredLine{{shared, 0.7}, {other, 0.4}}

	bestTitle, bestAuthor, _ := resolveBestPair(titleScored, authorScored)
	if bestTitle == nil || bestTitle.Text != shared.Text {
		t.Fatalf("title should keep the higher-scoring line, got %v", bestTitle)
	}
	if bestAuthor == nil || bestAuthor.Text != other.Text {
		t.Fatalf("author should fall back to the runner-up, got %v", bestAuthor)
	}
}

func TestOverlapGuardPrefersTitleRunnerUp(t *testing.T) {
	overlapping := lineRecord("MOBY DICK", []float64{300, 100, 700, 200})
	author := lineRecord("Herman Melville", []float64{310, 110, 690, 190})
	clear := lineRecord("MOBY-DICK", []float64{300, 400, 700, 480})

	titleScored := []scoredLine{{overlapping, 0.9}, {clear, 0.8}}
	authorScored := []scoredLine{{author, 0.7}}

	bestTitle, bestAuthor, _ := resolveBestPair(titleScored, authorScored)
	if bestTitle == nil || bestTitle.Text != clear.Text {
		t.Fatalf("expected non-overlapping title runner-up, got %v", bestTitle)
	}
	if bestAuthor == nil || bestAuthor.Text != author.Text {
		t.Fatalf("author should be unchanged, got %v", bestAuthor)
	}
	if BBoxIoU(bestTitle.BBox, bestAuthor.BBox) > overlapIoUThreshold {
		t.Error("resolved pair still overlaps beyond the threshold")
	}
}

func TestSwapHeuristicReversesCategories(t *testing.T) {
	personLike := lineRecord("John Grisham", []float64{300, 100, 700, 250})
	nonPerson := lineRecord("REVISED 2ND PRINTING", []float64{300, 700, 700, 780})

	titleScored := []scoredLine{{personLike, 0.7}}
	authorScored := []scoredLine{{nonPerson, 0.6}}

	bestTitle, bestAuthor, warnings := resolveBestPair(titleScored, authorScored)
	if bestTitle == nil || bestTitle.Text != nonPerson.Text {
		t.Errorf("title after swap = %v, want %q", bestTitle, nonPerson.Text)
	}
	if bestAuthor == nil || bestAuthor.Text != personLike.Text {
		t.Errorf("author after swap = %v, want %q", bestAuthor, personLike.Text)
	}
	if len(warnings) == 0 {
		t.Error("swap should emit a warning")
	}
}

func TestSwapHeuristicRespectsScoreGap(t *testing.T) {
	personLike := lineRecord("John Grisham", []float64{300, 100, 700, 250})
	nonPerson := lineRecord("REVISED 2ND PRINTING", []float64{300, 700, 700, 780})

	// Author top score below 0.8x of the title top score: no swap.
	titleScored := []scoredLine{{personLike, 0.9}}
	authorScored := []scoredLine{{nonPerson, 0.5}}

	bestTitle, bestAuthor, warnings := resolveBestPair(titleScored, authorScored)
	if bestTitle == nil || bestTitle.Text != personLike.Text {
		t.Errorf("title should be unchanged, got %v", bestTitle)
	}
	if bestAuthor == nil || bestAuthor.Text != nonPerson.Text {
		t.Errorf("author should be unchanged, got %v", bestAuthor)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
}

func TestMergeAdjacentShortLines(t *testing.T) {
	lines := []LineRecord{
		lineRecord("THE", []float64{400, 100, 600, 150}),
		lineRecord("ROAD", []float64{420, 160, 580, 210}),
	}

	merged := MergeAdjacentLines(lines, 1000, 1000)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(merged))
	}
	rec := merged[0]
	if rec.Text != "THE ROAD" {
		t.Errorf("merged text = %q, want %q", rec.Text, "THE ROAD")
	}
	wantBBox := []float64{400, 100, 600, 210}
	for i := range wantBBox {
		if rec.BBox[i] != wantBBox[i] {
			t.Errorf("merged bbox = %v, want %v", rec.BBox, wantBBox)
			break
		}
	}
	if rec.Height != 110 {
		t.Errorf("merged height = %v, want 110", rec.Height)
	}
	if rec.WordCount != 2 {
		t.Errorf("merged word count = %d, want 2", rec.WordCount)
	}
}

func TestMergeCharLenCountsRunes(t *testing.T) {
	lines := []LineRecord{
		lineRecord("CIEN AÑOS", []float64{400, 100, 600, 150}),
		lineRecord("DE SOLEDAD", []float64{420, 160, 580, 210}),
	}

	merged := MergeAdjacentLines(lines, 1000, 1000)
	if len(merged) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(merged))
	}
	// "CIEN AÑOS DE SOLEDAD" is 20 characters but 21 bytes.
	if merged[0].CharLen != 20 {
		t.Errorf("merged char len = %d, want 20", merged[0].CharLen)
	}
}

func TestMergeStopsAtMisalignedLine(t *testing.T) {
	lines := []LineRecord{
		lineRecord("THE", []float64{400, 100, 600, 150}),
		lineRecord("ROAD", []float64{420, 160, 580, 210}),
		lineRecord("Cormac McCarthy", []float64{100, 220, 400, 270}),
	}

	merged := MergeAdjacentLines(lines, 1000, 1000)
	if len(merged) != 2 {
		t.Fatalf("expected 2 records, got %d", len(merged))
	}
	if merged[1].Text != "Cormac McCarthy" {
		t.Errorf("misaligned line was absorbed: %q", merged[1].Text)
	}
}

func TestMergeIdempotent(t *testing.T) {
	lines := []LineRecord{
		lineRecord("THE", []float64{400, 100, 600, 150}),
		lineRecord("ROAD", []float64{420, 160, 580, 210}),
		lineRecord("Cormac McCarthy", []float64{380, 800, 620, 850}),
	}

	once := MergeAdjacentLines(lines, 1000, 1000)
	twice := MergeAdjacentLines(once, 1000, 1000)
	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d then %d records", len(once), len(twice))
	}
	for i := range once {
		if once[i].Text != twice[i].Text {
			t.Errorf("record %d changed on re-merge: %q vs %q", i, once[i].Text, twice[i].Text)
		}
	}
}

func TestBBoxIoU(t *testing.T) {
	box := []float64{100, 100, 200, 200}
	if got := BBoxIoU(box, box); got != 1.0 {
		t.Errorf("IoU(a,a) = %v, want 1.0", got)
	}

	disjoint := []float64{300, 300, 400, 400}
	if got := BBoxIoU(box, disjoint); got != 0 {
		t.Errorf("IoU of disjoint boxes = %v, want 0", got)
	}

	if got := BBoxIoU(box, []float64{100, 100}); got != 0 {
		t.Errorf("IoU with malformed box = %v, want 0", got)
	}

	degenerate := []float64{100, 100, 100, 200}
	if got := BBoxIoU(box, degenerate); got != 0 {
		t.Errorf("IoU with zero-width box = %v, want 0", got)
	}

	// Half overlap: intersection 50x100, union 150x100.
	half := []float64{150, 100, 250, 200}
	got := BBoxIoU(box, half)
	want := 5000.0 / 15000.0
	if abs(got-want) > 1e-9 {
		t.Errorf("IoU = %v, want %v", got, want)
	}
}

func TestIsJunk(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"NEW YORK TIMES BESTSELLER", true},
		{"Visit www.example.com today", true},
		{"contact@publisher.com", true},
		{strings.Repeat("a", 201), true},
		{strings.Repeat("é", 200), false},
		{strings.Repeat("é", 201), true},
		{"Winner of the Pulitzer Prize", true},
		{"The Great Gatsby", false},
		{"1984", false},
		{"by George Orwell", false},
	}
	for _, tc := range cases {
		if got := IsJunk(tc.text); got != tc.want {
			t.Errorf("IsJunk(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestPersonLikeScore(t *testing.T) {
	cases := []struct {
		text string
		min  float64
		max  float64
	}{
		{"F. Scott Fitzgerald", 0.7, 1.0},
		{"John Grisham", 0.7, 1.0},
		{"1984", 0.0, 0.1},
		{"THE COMPLETE ILLUSTRATED ENCYCLOPEDIA OF GARDENING", 0.0, 0.3},
		{"", 0.0, 0.0},
	}
	for _, tc := range cases {
		got := PersonLikeScore(tc.text, strings.Fields(tc.text))
		if got < tc.min || got > tc.max {
			t.Errorf("PersonLikeScore(%q) = %v, want in [%v, %v]", tc.text, got, tc.min, tc.max)
		}
		if got < 0 || got > 1 {
			t.Errorf("PersonLikeScore(%q) = %v out of [0,1]", tc.text, got)
		}
	}
}

func TestStripByPrefix(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"by George Orwell", "George Orwell"},
		{"BY GEORGE ORWELL", "GEORGE ORWELL"},
		{"Byron Katie", "Byron Katie"},
		{"George Orwell", "George Orwell"},
	}
	for _, tc := range cases {
		if got := StripByPrefix(tc.in); got != tc.want {
			t.Errorf("StripByPrefix(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
