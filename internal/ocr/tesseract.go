/**
 * Tesseract OCR adapter
 *
 * Turns a raw image into the Document hierarchy using local Tesseract.
 * Serves the image upload surface; callers that already have OCR output
 * bypass this entirely.
 */

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Engine runs Tesseract against uploaded images.
type Engine struct {
	languages []string
}

// NewEngine creates an engine for the given languages ("eng", "eng+deu").
func NewEngine(langs string) *Engine {
	languages := strings.FieldsFunc(langs, func(r rune) bool {
		return r == '+' || r == ','
	})
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Engine{languages: languages}
}

// Extract runs OCR on the image bytes and assembles the block →
// paragraph → line → word hierarchy from word-level bounding boxes.
func (e *Engine) Extract(ctx context.Context, imageData []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return nil, fmt.Errorf("failed to set tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract text extraction failed: %w", err)
	}

	doc := assembleDocument(boxes, cfg.Width, cfg.Height)
	doc.Text = text
	return doc, nil
}

// assembleDocument groups word boxes by their block/paragraph/line
// numbers, relying on Tesseract's reading order.
func assembleDocument(boxes []gosseract.BoundingBox, width, height int) *Document {
	doc := &Document{
		Image:  &ImageInfo{Width: width, Height: height},
		Chunks: &Chunks{},
	}

	var block *Block
	var paragraph *Paragraph
	var line *Line
	blockNum, parNum, lineNum := -1, -1, -1

	flushLine := func() {
		if line == nil {
			return
		}
		line.BBox = unionWordBoxes(line.Words)
		paragraph.Lines = append(paragraph.Lines, *line)
		line = nil
	}
	flushParagraph := func() {
		flushLine()
		if paragraph == nil {
			return
		}
		paragraph.BBox = unionLineBoxes(paragraph.Lines)
		block.Paragraphs = append(block.Paragraphs, *paragraph)
		paragraph = nil
	}
	flushBlock := func() {
		flushParagraph()
		if block == nil {
			return
		}
		block.BBox = unionParagraphBoxes(block.Paragraphs)
		doc.Chunks.Blocks = append(doc.Chunks.Blocks, *block)
		block = nil
	}

	for _, box := range boxes {
		word := strings.TrimSpace(box.Word)
		if word == "" {
			continue
		}

		if block == nil || box.BlockNum != blockNum {
			flushBlock()
			block = &Block{BlockNum: box.BlockNum}
			blockNum = box.BlockNum
			parNum, lineNum = -1, -1
		}
		if paragraph == nil || box.ParNum != parNum {
			flushParagraph()
			paragraph = &Paragraph{ParNum: box.ParNum}
			parNum = box.ParNum
			lineNum = -1
		}
		if line == nil || box.LineNum != lineNum {
			flushLine()
			line = &Line{LineNum: box.LineNum}
			lineNum = box.LineNum
		}

		conf := box.Confidence
		line.Words = append(line.Words, Word{
			WordNum: box.WordNum,
			BBox: []float64{
				float64(box.Box.Min.X), float64(box.Box.Min.Y),
				float64(box.Box.Max.X), float64(box.Box.Max.Y),
			},
			Confidence: &conf,
			Text:       word,
		})
	}
	flushBlock()

	return doc
}

func unionWordBoxes(words []Word) []float64 {
	boxes := make([][]float64, 0, len(words))
	for _, w := range words {
		boxes = append(boxes, w.BBox)
	}
	return unionBoxes(boxes)
}

func unionLineBoxes(lines []Line) []float64 {
	boxes := make([][]float64, 0, len(lines))
	for _, l := range lines {
		boxes = append(boxes, l.BBox)
	}
	return unionBoxes(boxes)
}

func unionParagraphBoxes(paragraphs []Paragraph) []float64 {
	boxes := make([][]float64, 0, len(paragraphs))
	for _, p := range paragraphs {
		boxes = append(boxes, p.BBox)
	}
	return unionBoxes(boxes)
}

func unionBoxes(boxes [][]float64) []float64 {
	var out []float64
	for _, b := range boxes {
		if len(b) < 4 {
			continue
		}
		if out == nil {
			out = []float64{b[0], b[1], b[2], b[3]}
			continue
		}
		if b[0] < out[0] {
			out[0] = b[0]
		}
		if b[1] < out[1] {
			out[1] = b[1]
		}
		if b[2] > out[2] {
			out[2] = b[2]
		}
		if b[3] > out[3] {
			out[3] = b[3]
		}
	}
	return out
}
