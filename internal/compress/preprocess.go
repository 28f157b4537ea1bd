package compress

import (
	"image"

	"github.com/local/docpress/internal/imageops"
)

// Preprocess applies a category profile to a normalized page and returns its content image.
// Pages whose long edge exceeds max(MinLongEdge, MaxDimension) are shrunk so the long
// edge lands exactly on that bound; smaller pages are never enlarged.
func Preprocess(img *image.NRGBA, p Profile, t Tuning) *image.NRGBA {
	out := img
	bound := max(t.MinLongEdge, p.MaxDimension)
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if long := max(w, h); long > bound {
		scale := float64(bound) / float64(long)
		if w >= h {
			out = imageops.ResizeTo(out, bound, int(float64(h)*scale))
		} else {
			out = imageops.ResizeTo(out, int(float64(w)*scale), bound)
		}
	}
	if p.ColorReduction {
		out = imageops.ReduceColors(out, t.PaletteColors)
	}
	if p.Sharpen {
		out = imageops.UnsharpMask(out, t.SharpenRadius, t.SharpenPercent, t.SharpenThreshold)
	}
	return out
}
