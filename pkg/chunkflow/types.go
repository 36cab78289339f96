package chunkflow

import (
	"fmt"
	"time"
)

// Chunk is a contiguous row range [Start, End) of a dataset.
// EmitHeader is part of the chunk's metadata so that retries reuse the flag
// of the original attempt instead of re-deriving it.
type Chunk struct {
	Index      int  `json:"index"`
	Start      int  `json:"start"`
	End        int  `json:"end"`
	EmitHeader bool `json:"emit_header"`
}

// Len returns the number of rows covered by the chunk
func (c Chunk) Len() int {
	return c.End - c.Start
}

func (c Chunk) String() string {
	return fmt.Sprintf("chunk %d [%d, %d)", c.Index, c.Start, c.End)
}

// ByteRange is a [Start, End) byte window of an existing file. Start is 0 or
// immediately follows a record delimiter.
type ByteRange struct {
	Index int   `json:"index"`
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the number of bytes in the range
func (r ByteRange) Len() int64 {
	return r.End - r.Start
}

// Status is the terminal state of a single write attempt
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the result of one chunk write attempt.
type Outcome struct {
	Err      error
	Status   Status
	Index    int
	Attempt  int
	Bytes    int
	Duration time.Duration
}

// Success builds a successful outcome for a chunk
func Success(index, attempt, n int, d time.Duration) Outcome {
	return Outcome{Index: index, Status: StatusSuccess, Attempt: attempt, Bytes: n, Duration: d}
}

// Failure builds a failed outcome carrying the reason
func Failure(index, attempt int, err error, d time.Duration) Outcome {
	return Outcome{Index: index, Status: StatusFailure, Attempt: attempt, Err: err, Duration: d}
}

// OK reports whether the attempt succeeded
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Reason returns the failure message, or "" for a success
func (o Outcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Report summarizes a write pipeline run.
// Outcomes holds the final outcome of every chunk, indexed by chunk index.
type Report struct {
	RunID         string
	Output        string
	Outcomes      []Outcome
	Retried       []int
	Unrecoverable []Outcome
	Elapsed       time.Duration
}

// Complete reports whether every chunk ended up in the output artifact.
// An artifact with unrecoverable chunks must be treated as incomplete.
func (r *Report) Complete() bool {
	return len(r.Unrecoverable) == 0
}

// UnrecoverableIndexes lists the chunk indexes that failed twice
func (r *Report) UnrecoverableIndexes() []int {
	out := make([]int, 0, len(r.Unrecoverable))
	for _, o := range r.Unrecoverable {
		out = append(out, o.Index)
	}
	return out
}
