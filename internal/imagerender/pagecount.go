package imagerender

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"

	"github.com/local/docpress/internal/filetype"
)

// CountPages returns how many raster pages src will produce without rendering anything.
// pdfcpu reads the page tree; MuPDF is the fallback for files pdfcpu rejects.
func CountPages(src Source) (int, error) {
	if src.Kind != filetype.KindPDF {
		return 1, nil
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(src.Input.Data), conf)
	if err == nil {
		return n, nil
	}
	log.Debug().Err(err).Str("file", src.Input.Filename).Msg("pdfcpu page count failed; trying mupdf")

	doc, ferr := fitz.NewFromMemory(src.Input.Data)
	if ferr != nil {
		return 0, fmt.Errorf("pdf page count failed for %s: %w", src.Input.Filename, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// TotalPages sums CountPages over all sources.
func TotalPages(sources []Source) (int, error) {
	total := 0
	for _, src := range sources {
		n, err := CountPages(src)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
