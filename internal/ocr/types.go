/**
 * OCR input contract
 *
 * The block → paragraph → line → word hierarchy produced by an upstream
 * OCR engine. Bounding boxes are [x1, y1, x2, y2] in image pixel space.
 * The parse pipeline treats this structure as read-only input.
 */

package ocr

// ImageInfo carries the source image dimensions used to normalize
// geometric features.
type ImageInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Word is a single recognized word with its bounding box and an optional
// confidence on a 0-100 scale.
type Word struct {
	WordNum    int       `json:"word_num"`
	BBox       []float64 `json:"bbox"`
	Confidence *float64  `json:"confidence,omitempty"`
	Text       string    `json:"text"`
}

// Line is a recognized text line. Text may be empty, in which case it is
// reconstructed from the words during normalization.
type Line struct {
	LineNum    int       `json:"line_num"`
	BBox       []float64 `json:"bbox"`
	Confidence *float64  `json:"confidence,omitempty"`
	Text       string    `json:"text,omitempty"`
	Words      []Word    `json:"words,omitempty"`
}

// Paragraph groups consecutive lines.
type Paragraph struct {
	ParNum int       `json:"par_num"`
	BBox   []float64 `json:"bbox"`
	Lines  []Line    `json:"lines,omitempty"`
}

// Block is a top-level layout region.
type Block struct {
	BlockNum   int         `json:"block_num"`
	BBox       []float64   `json:"bbox"`
	Paragraphs []Paragraph `json:"paragraphs,omitempty"`
}

// Chunks holds the layout hierarchy of a document.
type Chunks struct {
	Blocks []Block `json:"blocks,omitempty"`
}

// Document is the full OCR payload for one image.
type Document struct {
	RequestID string     `json:"request_id,omitempty"`
	Image     *ImageInfo `json:"image,omitempty"`
	Chunks    *Chunks    `json:"chunks,omitempty"`
	Text      string     `json:"text,omitempty"`
	Warnings  []string   `json:"warnings,omitempty"`
}
