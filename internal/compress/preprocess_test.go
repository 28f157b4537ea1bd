package compress

import (
	"image"
	"image/color"
	"testing"
)

func TestPreprocessBounds(t *testing.T) {
	tu := DefaultTuning()
	white := color.NRGBA{255, 255, 255, 255}
	tests := []struct {
		name  string
		img   *image.NRGBA
		cat   Category
		wantW int
		wantH int
	}{
		{"text page shrinks to 1600", solid(3000, 2000, white), TextDense, 1600, 1066},
		{"image page shrinks to 1200", solid(1000, 2400, white), ImageHeavy, 500, 1200},
		{"small page never enlarged", solid(800, 600, white), ImageHeavy, 800, 600},
		{"exactly on bound is kept", solid(700, 1400, white), MixedContent, 700, 1400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Preprocess(tt.img, tu.Spec(tt.cat).Profile, tu)
			w, h := dims(out)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestPreprocessMinLongEdgeFloor(t *testing.T) {
	tu := DefaultTuning()
	p := Profile{MaxDimension: 600, Quality: 60}
	// bound is max(1000, 600), so a 900px page stays put
	out := Preprocess(solid(600, 900, color.NRGBA{255, 255, 255, 255}), p, tu)
	if w, h := dims(out); w != 600 || h != 900 {
		t.Errorf("Expected 600x900, got %dx%d", w, h)
	}
	out = Preprocess(solid(800, 1600, color.NRGBA{255, 255, 255, 255}), p, tu)
	if w, h := dims(out); w != 500 || h != 1000 {
		t.Errorf("Expected 500x1000, got %dx%d", w, h)
	}
}

func TestPreprocessColorReduction(t *testing.T) {
	tu := DefaultTuning()
	p := Profile{MaxDimension: 1400, Quality: 65, ColorReduction: true}
	out := Preprocess(noise(64, 64, 3), p, tu)

	seen := make(map[[3]uint8]bool)
	for i := 0; i < len(out.Pix); i += 4 {
		seen[[3]uint8{out.Pix[i], out.Pix[i+1], out.Pix[i+2]}] = true
	}
	if len(seen) > tu.PaletteColors {
		t.Errorf("Expected at most %d colors, got %d", tu.PaletteColors, len(seen))
	}
}

func TestCanvasSize(t *testing.T) {
	tests := []struct {
		name     string
		contents []*image.NRGBA
		want     image.Point
	}{
		{"no pages falls back to floor", nil, image.Pt(1000, 1000)},
		{"max of each axis", []*image.NRGBA{solid(300, 500, color.NRGBA{}), solid(400, 200, color.NRGBA{})}, image.Pt(400, 500)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanvasSize(tt.contents, 1000); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestComposeCentersOnWhite(t *testing.T) {
	content := solid(10, 10, color.NRGBA{0, 0, 0, 255})
	cv, enc, err := Compose(content, image.Pt(31, 20), 90)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if w, h := dims(cv); w != 31 || h != 20 {
		t.Fatalf("Expected 31x20 canvas, got %dx%d", w, h)
	}
	if len(enc) == 0 {
		t.Fatal("Expected encoded bytes")
	}
	// offsets are (31-10)/2 = 10 and (20-10)/2 = 5
	if c := cv.NRGBAAt(9, 5); c.R != 255 {
		t.Errorf("Expected white left of content, got %v", c)
	}
	if c := cv.NRGBAAt(10, 5); c.R != 0 {
		t.Errorf("Expected content at offset, got %v", c)
	}
	if c := cv.NRGBAAt(20, 15); c.R != 255 {
		t.Errorf("Expected white below content, got %v", c)
	}
}
