package imageops

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

// Center places content in the middle of a white w x h canvas. Offsets are integer-divided.
func Center(content image.Image, w, h int) *image.NRGBA {
	canvas := imaging.New(w, h, color.White)
	cb := content.Bounds()
	return imaging.Paste(canvas, content, image.Pt((w-cb.Dx())/2, (h-cb.Dy())/2))
}

// EncodeJPEG encodes img as baseline JPEG at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode decodes an encoded raster, applying its EXIF orientation, and returns it as RGB.
func Decode(data []byte) (*image.NRGBA, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return Opaque(img), nil
}

// Opaque copies img onto white, dropping any transparency.
func Opaque(img image.Image) *image.NRGBA {
	b := img.Bounds()
	return imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1.0)
}

// Dimensions reads only the header of an encoded raster.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
