package dispatcher

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/local/docpress/internal/compress"
)

// classify decides what happens to a job that returned err. reason is recorded
// on the DLQ entry and in the status message.
func classify(err error) (reason string, retry bool) {
	if err == nil {
		return "", false
	}

	var valErr *compress.ValidationError
	if errors.As(err, &valErr) {
		return "validation:" + string(valErr.Kind), false
	}

	var fatal *FatalError
	if errors.As(err, &fatal) {
		return fatal.Reason, false
	}

	// Inputs vanished from shared storage; another attempt sees the same thing.
	var inErr *InputError
	if errors.As(err, &inErr) {
		if errors.Is(err, fs.ErrNotExist) {
			return "input_missing", false
		}
		return "input_read", true
	}

	if isTimeoutError(err) {
		return "timeout", true
	}

	var procErr *compress.ProcessingError
	if errors.As(err, &procErr) {
		return "processing:" + procErr.Stage, true
	}
	return "error", true
}

// isTimeoutError checks if error is specifically a timeout
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}

// backoff doubles base per attempt: base, 2*base, 4*base, capped at max.
func backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if max > 0 && d >= max {
			return max
		}
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
