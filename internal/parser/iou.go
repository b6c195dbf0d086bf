package parser

// BBoxIoU computes the intersection-over-union of two [x1,y1,x2,y2]
// boxes. Returns 0 for malformed boxes, disjoint boxes, or boxes with
// non-positive area.
func BBoxIoU(a, b []float64) float64 {
	if len(a) < 4 || len(b) < 4 {
		return 0
	}

	ix1 := max64(a[0], b[0])
	iy1 := max64(a[1], b[1])
	ix2 := min64(a[2], b[2])
	iy2 := min64(a[3], b[3])

	if ix2 <= ix1 || iy2 <= iy1 {
		return 0
	}
	intersection := (ix2 - ix1) * (iy2 - iy1)

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
