package compress

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/local/docpress/internal/imageops"
)

// Orientation is the reading direction a page appears to have.
type Orientation int

const (
	Uncertain Orientation = iota
	Portrait
	Landscape
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case Landscape:
		return "landscape"
	default:
		return "uncertain"
	}
}

// aspectOrientation decides from the bounding box alone.
func aspectOrientation(w, h int, t Tuning) Orientation {
	if w <= 0 || h <= 0 {
		return Uncertain
	}
	ar := float64(w) / float64(h)
	switch {
	case ar > t.LandscapeAspect:
		return Landscape
	case ar < t.PortraitAspect:
		return Portrait
	}
	return Uncertain
}

// projectionOrientation compares how edge energy is spread across rows versus columns.
func projectionOrientation(img image.Image, t Tuning) Orientation {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Uncertain
	}
	rv, cv := imageops.ProjectionVariance(imageops.EdgeMap(imageops.Thumbnail(img, t.OrientationThumb)))
	switch {
	case rv > t.ProjectionFactor*cv:
		return Portrait
	case cv > t.ProjectionFactor*rv:
		return Landscape
	}
	return Uncertain
}

// DetectOrientation labels a page. Near-square pages fall back to edge
// projections and then to portrait; the result is never Uncertain.
func DetectOrientation(img image.Image, t Tuning) Orientation {
	b := img.Bounds()
	if o := aspectOrientation(b.Dx(), b.Dy(), t); o != Uncertain {
		return o
	}
	if o := projectionOrientation(img, t); o != Uncertain {
		return o
	}
	return Portrait
}

// Normalize rotates img 90 degrees counter-clockwise whenever it is wider than
// tall. The detected label is returned for reporting; it does not drive the rotation.
func Normalize(img *image.NRGBA, t Tuning) (*image.NRGBA, Orientation, bool) {
	label := DetectOrientation(img, t)
	b := img.Bounds()
	if b.Dx() > b.Dy() {
		return imaging.Rotate90(img), label, true
	}
	return img, label, false
}
