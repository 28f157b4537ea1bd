package compress

import (
	"errors"
	"image"

	"github.com/local/docpress/internal/imageops"
)

var errEmptyLadder = errors.New("search needs at least one scale and one quality")

// SearchResult is the outcome of a budget search.
type SearchResult struct {
	Encoded []byte
	Content *image.NRGBA
	Canvas  *image.NRGBA
	Scale   float64
	Quality int
	// Met is false when no grid point fit the budget; Encoded is then the smallest seen.
	Met      bool
	Attempts int
}

// Size is the achieved encoded size in bytes.
func (r SearchResult) Size() int { return len(r.Encoded) }

// Search walks the scale ladder (outer) and quality ladder (inner) in order and
// returns the first encoding that fits budget. Content is re-centered on a
// canvas of the given size at every scale. A scale whose long edge would drop
// below 75% of minLongEdge is replaced by 0.8 of the unscaled content.
func Search(content image.Image, canvas image.Point, budget int, scales []float64, qualities []int, minLongEdge int) (SearchResult, error) {
	if len(scales) == 0 || len(qualities) == 0 {
		return SearchResult{}, errEmptyLadder
	}
	b := content.Bounds()
	w, h := b.Dx(), b.Dy()
	guard := int(0.75 * float64(minLongEdge))

	base, ok := content.(*image.NRGBA)
	if !ok {
		base = imageops.ResizeTo(content, w, h)
	}

	var best SearchResult
	for _, s := range scales {
		scaled := base
		if s != 1.0 {
			sw, sh := int(float64(w)*s), int(float64(h)*s)
			if max(sw, sh) < guard {
				sw, sh = int(float64(w)*0.8), int(float64(h)*0.8)
			}
			scaled = imageops.ResizeTo(content, sw, sh)
		}
		cv := imageops.Center(scaled, canvas.X, canvas.Y)
		for _, q := range qualities {
			enc, err := imageops.EncodeJPEG(cv, q)
			if err != nil {
				return SearchResult{}, err
			}
			best.Attempts++
			if best.Encoded == nil || len(enc) < len(best.Encoded) {
				best.Encoded, best.Content, best.Canvas, best.Scale, best.Quality = enc, scaled, cv, s, q
			}
			if len(enc) <= budget {
				return SearchResult{Encoded: enc, Content: scaled, Canvas: cv, Scale: s, Quality: q, Met: true, Attempts: best.Attempts}, nil
			}
		}
	}
	return best, nil
}
