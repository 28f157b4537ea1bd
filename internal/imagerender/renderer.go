package imagerender

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog/log"

	"github.com/local/docpress/internal/filetype"
	"github.com/local/docpress/internal/imageops"
)

// RenderDPI renders PDF pages at twice their native 72 DPI resolution.
const RenderDPI = 144.0

// Rasterizer validates inputs and decodes them into RGB pages.
type Rasterizer struct {
	limits   Limits
	detector *filetype.Detector
	dpi      float64
}

// New creates a rasterizer enforcing the given limits.
func New(limits Limits) *Rasterizer {
	return &Rasterizer{limits: limits, detector: filetype.New(limits.AllowedMIMETypes), dpi: RenderDPI}
}

// RenderAll decodes every source in order, preserving intra-document page order.
func (r *Rasterizer) RenderAll(sources []Source) ([]RasterPage, error) {
	var pages []RasterPage
	for _, src := range sources {
		out, err := r.Render(src)
		if err != nil {
			return nil, err
		}
		pages = append(pages, out...)
	}
	return pages, nil
}

// Render decodes a single source. PDFs yield one page per document page,
// images exactly one page after EXIF transpose.
func (r *Rasterizer) Render(src Source) ([]RasterPage, error) {
	if src.Kind == filetype.KindPDF {
		return r.renderPDF(src)
	}
	img, err := imageops.Decode(src.Input.Data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Input.Filename, err)
	}
	log.Debug().
		Str("file", src.Input.Filename).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("decoded image input")
	return []RasterPage{{Input: src.Index, Page: 0, Image: img}}, nil
}

func (r *Rasterizer) renderPDF(src Source) ([]RasterPage, error) {
	doc, err := fitz.NewFromMemory(src.Input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", src.Input.Filename, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	pages := make([]RasterPage, 0, n)
	for i := 0; i < n; i++ {
		// go-fitz uses 0-based indexing
		img, err := doc.ImageDPI(i, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d of %s: %w", i+1, src.Input.Filename, err)
		}
		rgb := imageops.Opaque(img)
		log.Debug().
			Str("file", src.Input.Filename).
			Int("page", i+1).
			Int("width", rgb.Bounds().Dx()).
			Int("height", rgb.Bounds().Dy()).
			Msg("rendered pdf page")
		pages = append(pages, RasterPage{Input: src.Index, Page: i, Image: rgb})
	}
	return pages, nil
}
