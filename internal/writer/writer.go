package writer

import (
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
)

// ChunkWriter appends encoded chunks to a shared sink.
// Physical appends are serialized so two chunks never interleave.
type ChunkWriter struct {
	sink   Sink
	logger *log.Logger
	header []byte
	mu     sync.Mutex
}

// NewChunkWriter creates a writer. header is the encoded header line written
// in front of any chunk whose EmitHeader flag is set.
func NewChunkWriter(sink Sink, header []byte, logger *log.Logger) *ChunkWriter {
	return &ChunkWriter{
		sink:   sink,
		header: header,
		logger: logger,
	}
}

// Write appends payload for chunk c. Errors never propagate: they are logged
// with the chunk index and returned as a Failure outcome.
func (w *ChunkWriter) Write(c chunkflow.Chunk, payload []byte, attempt int) chunkflow.Outcome {
	start := time.Now()

	buf := payload
	if c.EmitHeader {
		buf = make([]byte, 0, len(w.header)+len(payload))
		buf = append(buf, w.header...)
		buf = append(buf, payload...)
	}

	w.mu.Lock()
	err := w.sink.Append(buf)
	w.mu.Unlock()

	elapsed := time.Since(start)

	if err != nil {
		werr := &chunkflow.WriteError{Chunk: c.Index, Attempt: attempt, Cause: err}
		w.logger.Printf("[CHUNK:%d] Error writing chunk (attempt %d): %v", c.Index, attempt, err)
		return chunkflow.Failure(c.Index, attempt, werr, elapsed)
	}

	w.logger.Printf("[CHUNK:%d] Written successfully (%d rows, %s)", c.Index, c.Len(), humanize.Bytes(uint64(len(buf))))

	return chunkflow.Success(c.Index, attempt, len(buf), elapsed)
}
