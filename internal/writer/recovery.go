package writer

import (
	"fmt"
	"log"
	"slices"

	"pkg.jsn.cam/chunkflow/internal/runutil"
	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
)

// retryAttempts is the number of extra attempts a failed chunk gets
const retryAttempts = 1

// Recovery re-attempts failed chunks after the concurrent phase
type Recovery struct {
	writer  *ChunkWriter
	encode  func(chunkflow.Chunk) ([]byte, error)
	logger  *log.Logger
	observe func(chunkflow.Outcome)
}

// NewRecovery creates a recovery pass writing through w. encode rebuilds a
// chunk's payload; observe, if set, sees every retry outcome.
func NewRecovery(w *ChunkWriter, encode func(chunkflow.Chunk) ([]byte, error), logger *log.Logger, observe func(chunkflow.Outcome)) *Recovery {
	return &Recovery{writer: w, encode: encode, logger: logger, observe: observe}
}

// Run retries each failed chunk once, sequentially, in index order.
// The returned outcomes are in the same order as the sorted input.
func (r *Recovery) Run(failed []chunkflow.Chunk) []chunkflow.Outcome {
	if len(failed) == 0 {
		return nil
	}

	chunks := slices.Clone(failed)
	slices.SortFunc(chunks, func(a, b chunkflow.Chunk) int { return a.Index - b.Index })

	ids := make([]int, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Index
	}
	r.announce(ids)

	outcomes := make([]chunkflow.Outcome, 0, len(chunks))
	for _, c := range chunks {
		outcomes = append(outcomes, r.Retry(c))
	}

	return outcomes
}

func (r *Recovery) announce(ids []int) {
	r.logger.Printf("[RECOVERY] The following chunks failed to process: %v", ids)
	r.logger.Printf("[RECOVERY] Retrying failed chunks...")
}

// Retry gives chunk c its single retry. The chunk keeps its original
// EmitHeader flag and destination. A second failure is logged, wrapped with
// chunkflow.ErrUnrecoverable and never retried again.
func (r *Recovery) Retry(c chunkflow.Chunk) chunkflow.Outcome {
	var outcome chunkflow.Outcome

	// the first attempt happened during the concurrent phase
	_ = runutil.Retry(func(attempt int) error {
		outcome = r.attempt(c, attempt+1)
		return outcome.Err
	}, retryAttempts, runutil.Always)

	if outcome.OK() {
		r.logger.Printf("[RECOVERY] Chunk %d successfully written on retry", c.Index)
	} else {
		outcome.Err = fmt.Errorf("%w: %w", chunkflow.ErrUnrecoverable, outcome.Err)
		r.logger.Printf("[RECOVERY] ERROR: retry failed for chunk %d, chunk is unrecoverable: %v", c.Index, outcome.Err)
	}

	if r.observe != nil {
		r.observe(outcome)
	}

	return outcome
}

func (r *Recovery) attempt(c chunkflow.Chunk, attempt int) chunkflow.Outcome {
	payload, err := r.encode(c)
	if err != nil {
		werr := &chunkflow.WriteError{Chunk: c.Index, Attempt: attempt, Cause: err}
		return chunkflow.Failure(c.Index, attempt, werr, 0)
	}

	return r.writer.Write(c, payload, attempt)
}
