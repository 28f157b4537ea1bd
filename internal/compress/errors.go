package compress

import (
	"errors"
	"fmt"
)

// ValidationKind names the caller-input problem behind a ValidationError.
type ValidationKind string

const (
	UnsupportedType   ValidationKind = "unsupported_type"
	FileTooLarge      ValidationKind = "file_too_large"
	TotalTooLarge     ValidationKind = "total_too_large"
	PageLimitExceeded ValidationKind = "page_limit_exceeded"
	NoPages           ValidationKind = "no_pages"
	InvalidTarget     ValidationKind = "invalid_target"
)

var (
	ErrPageLimit = errors.New("page count exceeds limit for target size")
	ErrNoPages   = errors.New("no pages to compress")
)

// ValidationError represents a rejected job input. No artifacts are written for it.
type ValidationError struct {
	Kind ValidationKind
	// Input is the 0-based position of the offending input, or -1 for job-level problems.
	Input   int
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ProcessingError represents an unexpected decode, encode or assembly failure.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed during %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// IsValidation reports whether err was caused by caller input.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func processing(stage string, err error) error {
	if err == nil {
		return nil
	}
	var p *ProcessingError
	if errors.As(err, &p) {
		return err
	}
	return &ProcessingError{Stage: stage, Err: err}
}
