package compress

import (
	"image"

	"github.com/local/docpress/internal/imageops"
)

// PageItem is one page as the budget controller sees it. Every item of a job
// shares the same canvas dimensions.
type PageItem struct {
	Index      int
	Category   Category
	Importance float64
	Quality    int
	// Content is the processed, unpadded page.
	Content *image.NRGBA
	// Canvas is Content centered on the job-wide canvas.
	Canvas  *image.NRGBA
	Encoded []byte
}

// Size is the encoded size in bytes.
func (p *PageItem) Size() int { return len(p.Encoded) }

// CanvasSize returns the job canvas: the largest width and the largest height
// over all contents. With no contents it is floor x floor.
func CanvasSize(contents []*image.NRGBA, floor int) image.Point {
	if len(contents) == 0 {
		return image.Pt(floor, floor)
	}
	var size image.Point
	for _, c := range contents {
		b := c.Bounds()
		size.X = max(size.X, b.Dx())
		size.Y = max(size.Y, b.Dy())
	}
	return size
}

// Compose centers content on a white canvas and encodes it at quality.
func Compose(content *image.NRGBA, canvas image.Point, quality int) (*image.NRGBA, []byte, error) {
	cv := imageops.Center(content, canvas.X, canvas.Y)
	enc, err := imageops.EncodeJPEG(cv, quality)
	if err != nil {
		return nil, nil, err
	}
	return cv, enc, nil
}

func totalSize(items []*PageItem) int64 {
	var total int64
	for _, it := range items {
		total += int64(it.Size())
	}
	return total
}
