package compress

import (
	"image"
	"image/color"
	"testing"
)

func TestDetectOrientation(t *testing.T) {
	tu := DefaultTuning()
	tests := []struct {
		name string
		img  image.Image
		want Orientation
	}{
		{"wide page", solid(300, 200, color.NRGBA{255, 255, 255, 255}), Landscape},
		{"tall page", solid(200, 300, color.NRGBA{255, 255, 255, 255}), Portrait},
		{"square with text lines", stripes(100, 100, 10, true), Portrait},
		{"square with columns", stripes(100, 100, 10, false), Landscape},
		{"blank square defaults to portrait", solid(100, 100, color.NRGBA{255, 255, 255, 255}), Portrait},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectOrientation(tt.img, tu); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeRotatesWideRegardlessOfLabel(t *testing.T) {
	tu := DefaultTuning()
	tests := []struct {
		name        string
		img         *image.NRGBA
		wantRotated bool
		wantW       int
		wantH       int
	}{
		{"clearly landscape", solid(300, 200, color.NRGBA{255, 255, 255, 255}), true, 200, 300},
		// aspect 1.05 is labelled from the projections, yet any width > height rotates
		{"near square with text lines", stripes(105, 100, 10, true), true, 100, 105},
		{"portrait untouched", solid(200, 300, color.NRGBA{255, 255, 255, 255}), false, 200, 300},
		{"square untouched", solid(100, 100, color.NRGBA{255, 255, 255, 255}), false, 100, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, rotated := Normalize(tt.img, tu)
			w, h := dims(out)
			if rotated != tt.wantRotated || w != tt.wantW || h != tt.wantH {
				t.Errorf("Expected rotated=%v %dx%d, got rotated=%v %dx%d", tt.wantRotated, tt.wantW, tt.wantH, rotated, w, h)
			}
		})
	}
}

func TestNormalizeNearSquareLabelIsAdvisory(t *testing.T) {
	_, label, rotated := Normalize(stripes(105, 100, 10, true), DefaultTuning())
	if label != Portrait || !rotated {
		t.Errorf("Expected portrait label with rotation, got %v rotated=%v", label, rotated)
	}
}
