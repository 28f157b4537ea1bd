package imageops

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/soniakeys/quant/median"
)

// Quantize maps img onto an adaptive palette of at most colors entries chosen by median cut.
func Quantize(img image.Image, colors int) *image.Paletted {
	src := imaging.Clone(img)
	pal := median.Quantizer(colors).Quantize(make(color.Palette, 0, colors), src)
	dst := image.NewPaletted(src.Bounds(), pal)
	if len(pal) == 0 {
		return dst
	}

	// Scanned pages repeat a small set of colors, so nearest-entry lookups are memoized.
	seen := make(map[uint32]uint8)
	for y := 0; y < src.Rect.Dy(); y++ {
		for x := 0; x < src.Rect.Dx(); x++ {
			i := y*src.Stride + x*4
			r, g, b := src.Pix[i], src.Pix[i+1], src.Pix[i+2]
			key := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
			idx, ok := seen[key]
			if !ok {
				idx = uint8(pal.Index(color.NRGBA{R: r, G: g, B: b, A: 255}))
				seen[key] = idx
			}
			dst.Pix[y*dst.Stride+x] = idx
		}
	}
	return dst
}

// ReduceColors quantizes img to an adaptive palette and converts it back to full color.
func ReduceColors(img image.Image, colors int) *image.NRGBA {
	return imaging.Clone(Quantize(img, colors))
}

// DistinctColors counts the palette entries actually used by p.
func DistinctColors(p *image.Paletted) int {
	var used [256]bool
	n := 0
	for _, idx := range p.Pix {
		if !used[idx] {
			used[idx] = true
			n++
		}
	}
	return n
}
