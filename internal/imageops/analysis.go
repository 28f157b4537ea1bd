// Package imageops holds the pixel-level primitives the compression pipeline is built from.
package imageops

import (
	"image"

	"github.com/disintegration/imaging"
)

// findEdges is the classic 3x3 Laplacian edge kernel.
var findEdges = [9]float64{
	-1, -1, -1,
	-1, 8, -1,
	-1, -1, -1,
}

// EdgeMap returns the edge-filtered grayscale of img. Responses are clamped to 0..255.
func EdgeMap(img image.Image) *image.Gray {
	conv := imaging.Convolve3x3(imaging.Grayscale(img), findEdges, &imaging.ConvolveOptions{})
	out := image.NewGray(conv.Bounds())
	for i := range out.Pix {
		out.Pix[i] = conv.Pix[i*4]
	}
	return out
}

// Thumbnail shrinks img to fit within max x max preserving aspect ratio. It never upscales.
func Thumbnail(img image.Image, max int) *image.NRGBA {
	return imaging.Fit(img, max, max, imaging.Box)
}

// BrightShare returns the share of the luminance histogram of img at or above threshold.
func BrightShare(img image.Image, threshold int) float64 {
	hist := imaging.Histogram(img)
	share := 0.0
	for i := threshold; i < len(hist); i++ {
		share += hist[i]
	}
	return share
}

// ProjectionVariance sums intensities along each row and each column and
// returns the population variance of the row sums and of the column sums.
func ProjectionVariance(g *image.Gray) (rowVar, colVar float64) {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	if w == 0 || h == 0 {
		return 0, 0
	}
	rows := make([]float64, h)
	cols := make([]float64, w)
	for y := 0; y < h; y++ {
		line := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range line {
			rows[y] += float64(v)
			cols[x] += float64(v)
		}
	}
	return variance(rows), variance(cols)
}

// ChannelVarianceSum returns the sum of the population variances of the R, G and B channels.
func ChannelVarianceSum(img image.Image) float64 {
	src := imaging.Clone(img)
	n := len(src.Pix) / 4
	if n == 0 {
		return 0
	}
	var sum, sq [3]float64
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := float64(src.Pix[i+c])
			sum[c] += v
			sq[c] += v * v
		}
	}
	total := 0.0
	for c := 0; c < 3; c++ {
		mean := sum[c] / float64(n)
		v := sq[c]/float64(n) - mean*mean
		if v < 0 {
			v = 0
		}
		total += v
	}
	return total
}

func variance(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		d := x - mean
		v += d * d
	}
	return v / float64(len(xs))
}
