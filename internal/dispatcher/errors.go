package dispatcher

import "fmt"

// FatalError marks a job that must go to the DLQ without another attempt.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal (%s): %v", e.Reason, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// InputError represents a queued input file that could not be read back.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("read input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
