package chunkflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions
var (
	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// Write errors
	ErrChunkWrite    = errors.New("chunk write failed")
	ErrUnrecoverable = errors.New("chunk unrecoverable after retry")

	// Ledger errors
	ErrRunNotFound = errors.New("run not found")
)

// WriteError wraps an I/O failure for a single chunk attempt.
type WriteError struct {
	Cause   error
	Chunk   int
	Attempt int
}

func (e *WriteError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("chunk %d attempt %d: %v", e.Chunk, e.Attempt, e.Cause)
}

func (e *WriteError) Unwrap() []error { return []error{ErrChunkWrite, e.Cause} }
