package compress

import (
	"image"

	"github.com/local/docpress/internal/imageops"
)

// Features are the scalar measurements a page is classified by.
type Features struct {
	EdgeDensity     float64
	ColorComplexity float64
}

// Measure computes edge density over the full page and color complexity over a thumbnail.
func Measure(img image.Image, t Tuning) Features {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Features{}
	}
	f := Features{EdgeDensity: imageops.BrightShare(imageops.EdgeMap(img), t.EdgeBright)}

	thumb := imageops.Thumbnail(img, t.ClassifyThumb)
	distinct := imageops.DistinctColors(imageops.Quantize(thumb, t.PaletteColors))
	f.ColorComplexity = imageops.ChannelVarianceSum(thumb) + float64(distinct)/float64(t.PaletteColors)*100
	return f
}

// Classify applies the rules in order; the first match wins.
func (r Rules) Classify(f Features) Category {
	switch {
	case f.EdgeDensity > r.TextEdgeMin && f.ColorComplexity < r.TextComplexityMax:
		return TextDense
	case f.ColorComplexity > r.ImageComplexityMin:
		return ImageHeavy
	case f.EdgeDensity > r.MixedEdgeMin:
		return MixedContent
	}
	return ComplexBackground
}

// Classify measures img and scores it into a category.
func Classify(img image.Image, t Tuning) (Category, Features) {
	f := Measure(img, t)
	return t.Rules.Classify(f), f
}
