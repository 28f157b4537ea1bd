package imageops

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func checkerboard(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{255, 255, 255, 255}
			if (x+y)%2 == 1 {
				c = color.NRGBA{0, 0, 0, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestEdgeMapBrightShare(t *testing.T) {
	tests := []struct {
		name    string
		img     image.Image
		wantMin float64
		wantMax float64
	}{
		{"uniform white has no edges", solid(40, 40, color.NRGBA{255, 255, 255, 255}), 0, 0},
		{"checkerboard is half edges", checkerboard(40, 40), 0.4, 0.6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BrightShare(EdgeMap(tt.img), 200)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("Expected share in [%v, %v], got %v", tt.wantMin, tt.wantMax, got)
			}
		})
	}
}

func TestProjectionVarianceFollowsLines(t *testing.T) {
	img := solid(100, 100, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < 100; y += 10 {
		for x := 0; x < 100; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	rv, cv := ProjectionVariance(EdgeMap(img))
	if rv <= 1.25*cv {
		t.Errorf("Expected row variance to dominate, got rv=%v cv=%v", rv, cv)
	}
}

func TestChannelVarianceSum(t *testing.T) {
	if got := ChannelVarianceSum(solid(8, 8, color.NRGBA{10, 20, 30, 255})); got != 0 {
		t.Errorf("Expected 0 for a solid image, got %v", got)
	}

	img := solid(8, 8, color.NRGBA{255, 255, 255, 255})
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 255})
		}
	}
	want := 3 * 127.5 * 127.5
	if got := ChannelVarianceSum(img); math.Abs(got-want) > 1e-6 {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestQuantizeKeepsDistinctColors(t *testing.T) {
	p := Quantize(checkerboard(16, 16), 256)
	if n := DistinctColors(p); n != 2 {
		t.Errorf("Expected 2 distinct colors, got %d", n)
	}
	out := ReduceColors(checkerboard(16, 16), 256)
	if out.Bounds().Dx() != 16 || out.Bounds().Dy() != 16 {
		t.Errorf("Expected 16x16, got %v", out.Bounds())
	}
}

func TestUnsharpMaskLeavesFlatAreas(t *testing.T) {
	src := solid(20, 20, color.NRGBA{120, 130, 140, 255})
	out := UnsharpMask(src, 1.2, 80, 2)
	if !bytes.Equal(out.Pix, src.Pix) {
		t.Error("Expected flat image to be unchanged")
	}
}

func TestScaleTruncates(t *testing.T) {
	out := Scale(solid(100, 50, color.NRGBA{0, 0, 0, 255}), 0.95)
	if out.Bounds().Dx() != 95 || out.Bounds().Dy() != 47 {
		t.Errorf("Expected 95x47, got %dx%d", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestCenter(t *testing.T) {
	content := solid(10, 10, color.NRGBA{0, 0, 0, 255})
	canvas := Center(content, 21, 21)

	if c := canvas.NRGBAAt(0, 0); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white margin, got %v", c)
	}
	if c := canvas.NRGBAAt(5, 5); c != (color.NRGBA{0, 0, 0, 255}) {
		t.Errorf("Expected content at offset 5, got %v", c)
	}
	if c := canvas.NRGBAAt(4, 4); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected white before offset, got %v", c)
	}
}

func TestEncodeAndDimensions(t *testing.T) {
	data, err := EncodeJPEG(checkerboard(30, 20), 75)
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	w, h, err := Dimensions(data)
	if err != nil {
		t.Fatalf("Dimensions failed: %v", err)
	}
	if w != 30 || h != 20 {
		t.Errorf("Expected 30x20, got %dx%d", w, h)
	}
}

func TestDecodeFlattensAlpha(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(4, 4, color.NRGBA{0, 0, 0, 0})); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	img, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if c := img.NRGBAAt(1, 1); c != (color.NRGBA{255, 255, 255, 255}) {
		t.Errorf("Expected transparent pixels on white, got %v", c)
	}
}
