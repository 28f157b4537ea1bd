package imageops

import (
	"image"

	"github.com/disintegration/imaging"
)

// UnsharpMask sharpens img by adding percent% of the difference between the
// image and its gaussian blur. Channel differences below threshold are left alone.
func UnsharpMask(img image.Image, radius float64, percent, threshold int) *image.NRGBA {
	src := imaging.Clone(img)
	blur := imaging.Blur(src, radius)
	out := image.NewNRGBA(src.Bounds())
	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := int(src.Pix[i+c])
			d := v - int(blur.Pix[i+c])
			if abs(d) >= threshold {
				v = clamp(v + d*percent/100)
			}
			out.Pix[i+c] = uint8(v)
		}
		out.Pix[i+3] = src.Pix[i+3]
	}
	return out
}

// Scale resizes img by factor, truncating the target dimensions. Dimensions never drop below 1px.
func Scale(img image.Image, factor float64) *image.NRGBA {
	b := img.Bounds()
	w := int(float64(b.Dx()) * factor)
	h := int(float64(b.Dy()) * factor)
	return ResizeTo(img, w, h)
}

// ResizeTo resizes img to exactly w x h with a Lanczos filter.
func ResizeTo(img image.Image, w, h int) *image.NRGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	b := img.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return imaging.Clone(img)
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
