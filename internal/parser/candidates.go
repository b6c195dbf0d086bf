package parser

// CandidateFeatures is a frozen snapshot of the scoring inputs for one
// line, emitted for observability. It is never recomputed downstream.
type CandidateFeatures struct {
	SizeNorm    float64  `json:"size_norm"`
	CenterNorm  float64  `json:"center_norm"`
	UpperThird  float64  `json:"upper_third"`
	LowerThird  float64  `json:"lower_third"`
	CharLen     int      `json:"char_len"`
	WordCount   int      `json:"word_count"`
	CapsRatio   float64  `json:"caps_ratio"`
	HasByPrefix bool     `json:"has_by_prefix"`
	PersonLike  float64  `json:"person_like"`
	JunkLike    float64  `json:"junk_like"`
	LineConf    *float64 `json:"line_conf,omitempty"`
}

// Candidate is a scored line proposed as a title or author.
type Candidate struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	BBox     []float64         `json:"bbox"`
	Features CandidateFeatures `json:"features"`
}

// Candidates holds the top scored lines per category.
type Candidates struct {
	Title  []Candidate `json:"title"`
	Author []Candidate `json:"author"`
}

// MethodInfo identifies which mechanisms produced a result.
type MethodInfo struct {
	Ranker   string `json:"ranker"`
	Verifier string `json:"verifier"`
	Fallback string `json:"fallback"`
}

// RankResult is the ranking stage output: the chosen title/author, the
// combined confidence, and the candidate lists behind the choice.
type RankResult struct {
	Title      string
	Author     string
	Confidence float64
	Candidates Candidates
	Warnings   []string
}

func buildFeatures(line LineRecord, maxHeight float64) CandidateFeatures {
	sizeNorm := 0.0
	if maxHeight > 0 {
		sizeNorm = line.Height / maxHeight
	}
	upperThird := 0.0
	if line.CenterY < 0.33 {
		upperThird = 1.0
	}
	lowerThird := 0.0
	if line.CenterY > 0.67 {
		lowerThird = 1.0
	}
	junkLike := 0.0
	if IsJunk(line.Text) {
		junkLike = 1.0
	}
	return CandidateFeatures{
		SizeNorm:    sizeNorm,
		CenterNorm:  1.0 - 2*abs(line.CenterX-0.5),
		UpperThird:  upperThird,
		LowerThird:  lowerThird,
		CharLen:     line.CharLen,
		WordCount:   line.WordCount,
		CapsRatio:   line.CapsRatio,
		HasByPrefix: HasByPrefix(line.Text),
		PersonLike:  PersonLikeScore(line.Text, line.Tokens),
		JunkLike:    junkLike,
		LineConf:    line.LineConf,
	}
}
