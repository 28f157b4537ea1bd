package imagerender

import (
	"errors"
	"fmt"
	"image"

	"github.com/local/docpress/internal/filetype"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrTotalTooLarge   = errors.New("total upload size exceeds limit")
)

// InputError reports which input failed validation.
type InputError struct {
	Index    int
	Filename string
	Err      error
}

func (e *InputError) Error() string {
	if e.Filename == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Filename)
}

func (e *InputError) Unwrap() error { return e.Err }

// RawInput is one uploaded file as handed over by the caller.
type RawInput struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Limits bounds a single job's inputs.
type Limits struct {
	MaxFileBytes     int64
	MaxTotalBytes    int64
	AllowedMIMETypes []string
}

// Source is a validated input with its resolved decoding kind.
type Source struct {
	Index int
	Input RawInput
	Kind  filetype.Kind
}

// RasterPage is one decoded RGB page. Input and Page are 0-based positions.
type RasterPage struct {
	Input int
	Page  int
	Image *image.NRGBA
}

// Validate checks every input in order and stops at the first violation.
// The cumulative cap is evaluated against the running sum, so later inputs are
// never inspected once it is exceeded.
func (r *Rasterizer) Validate(inputs []RawInput) ([]Source, error) {
	sources := make([]Source, 0, len(inputs))
	var total int64
	for i, in := range inputs {
		if !r.detector.Allowed(in.MIMEType, in.Filename) {
			return nil, &InputError{Index: i, Filename: in.Filename, Err: ErrUnsupportedType}
		}
		size := int64(len(in.Data))
		if size > r.limits.MaxFileBytes {
			return nil, &InputError{Index: i, Filename: in.Filename, Err: ErrFileTooLarge}
		}
		total += size
		if total > r.limits.MaxTotalBytes {
			return nil, &InputError{Index: i, Filename: in.Filename, Err: ErrTotalTooLarge}
		}
		info := r.detector.Detect(in.Data, in.MIMEType, in.Filename)
		sources = append(sources, Source{Index: i, Input: in, Kind: info.Kind})
	}
	return sources, nil
}
