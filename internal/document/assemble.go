// Package document turns final page encodings into the delivered artifacts:
// a fixed-geometry PDF and a capped run of JPEG previews.
package document

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/docpress/internal/imageops"
)

// A4 portrait in points.
const (
	PageWidth     = 595.0
	PageHeight    = 842.0
	RotateQuality = 95
)

// Rect is a placement rectangle in points, origin top-left.
type Rect struct {
	X, Y, W, H float64
}

// FitRect fits an image into the page preserving aspect ratio and centers it.
// Images at least as wide (relative to height) as the page span the full width.
func FitRect(imgW, imgH int, pageW, pageH float64) Rect {
	ar := float64(imgW) / float64(imgH)
	var w, h float64
	if ar >= pageW/pageH {
		w, h = pageW, pageW/ar
	} else {
		w, h = pageH*ar, pageH
	}
	return Rect{X: (pageW - w) / 2, Y: (pageH - h) / 2, W: w, H: h}
}

// Assembler writes encoded pages into a single PDF of fixed page size.
type Assembler struct {
	PageWidth     float64
	PageHeight    float64
	RotateQuality int
	// Validate runs the written file through pdfcpu before it replaces the destination.
	Validate bool
}

// NewAssembler returns an A4 assembler with validation enabled.
func NewAssembler() *Assembler {
	return &Assembler{PageWidth: PageWidth, PageHeight: PageHeight, RotateQuality: RotateQuality, Validate: true}
}

// Upright returns data unchanged when it is not wider than tall; otherwise it is
// rotated 90 degrees and re-encoded. The returned dimensions describe the result.
func (a *Assembler) Upright(data []byte) ([]byte, int, int, error) {
	w, h, err := imageops.Dimensions(data)
	if err != nil {
		return nil, 0, 0, err
	}
	if w <= h {
		return data, w, h, nil
	}
	img, err := imageops.Decode(data)
	if err != nil {
		return nil, 0, 0, err
	}
	out, err := imageops.EncodeJPEG(imaging.Rotate90(img), a.RotateQuality)
	if err != nil {
		return nil, 0, 0, err
	}
	return out, h, w, nil
}

// Assemble appends one page per encoding, in order, and atomically replaces dest.
func (a *Assembler) Assemble(pages [][]byte, dest string) error {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: a.PageWidth, Ht: a.PageHeight},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("docpress", false)

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	for i, data := range pages {
		up, w, h, err := a.Upright(data)
		if err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}
		name := fmt.Sprintf("page-%d", i+1)
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(up))
		pdf.AddPage()
		r := FitRect(w, h, a.PageWidth, a.PageHeight)
		pdf.ImageOptions(name, r.X, r.Y, r.W, r.H, false, opts, 0, "")
		if pdf.Err() {
			return fmt.Errorf("place page %d: %w", i+1, pdf.Error())
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create document dir: %w", err)
	}
	tmp := dest + ".tmp"
	if err := pdf.OutputFileAndClose(tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write document: %w", err)
	}
	if a.Validate {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		if err := api.ValidateFile(tmp, conf); err != nil {
			_ = os.Remove(tmp)
			return fmt.Errorf("validate document: %w", err)
		}
	}
	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace document: %w", err)
	}
	log.Debug().Str("path", dest).Int("pages", len(pages)).Msg("document assembled")
	return nil
}
