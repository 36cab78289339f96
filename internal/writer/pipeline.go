// Package writer implements the write pipeline: a dataset is split into
// chunks, chunk 0 (which carries the header) is written synchronously, the
// remaining chunks are written by a bounded pool, and failed chunks get one
// sequential retry. Chunks whose turn comes after a failure are held in
// memory and appended once the failed chunk has been retried.
package writer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"pkg.jsn.cam/chunkflow/internal/dispatch"
	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
	"pkg.jsn.cam/chunkflow/pkg/dataset"
	"pkg.jsn.cam/chunkflow/pkg/partition"
)

const (
	// DefaultNumChunks is the number of chunks a dataset is split into
	DefaultNumChunks = 10

	// DefaultWorkers bounds concurrent chunk writes
	DefaultWorkers = 6
)

// ErrOutputExists is returned when the destination already has content.
// Appending a second run would duplicate the header.
var ErrOutputExists = errors.New("output file already exists and is not empty")

// Recorder persists run progress. internal/ledger implements it.
type Recorder interface {
	BeginRun(runID, output string, chunks []chunkflow.Chunk) error
	RecordOutcome(runID string, o chunkflow.Outcome) error
	FinishRun(runID string, report *chunkflow.Report) error
}

// Config holds write pipeline configuration
type Config struct {
	// Output is the destination CSV path. Required unless Sink is set.
	Output string

	// NumChunks is the number of chunks (default: DefaultNumChunks)
	NumChunks int

	// Workers bounds concurrent writes (default: DefaultWorkers)
	Workers int

	// Logger receives progress and failure messages (default: stderr)
	Logger *log.Logger

	// Sink overrides the file sink built from Output
	Sink Sink

	// Recorder, if set, persists every attempt
	Recorder Recorder

	// OnOutcome is called after every write attempt, from any goroutine
	OnOutcome func(chunkflow.Outcome)

	// RunID identifies the run (default: random UUID)
	RunID string

	// Sync fsyncs the output after every append
	Sync bool
}

// Pipeline writes a dataset to a single CSV artifact
type Pipeline struct {
	sink   Sink
	logger *log.Logger
	config Config
}

// NewPipeline validates cfg, fills in defaults and builds the pipeline
func NewPipeline(cfg Config) (*Pipeline, error) {
	if cfg.NumChunks < 0 {
		return nil, fmt.Errorf("%w: negative chunk count %d", chunkflow.ErrInvalidConfig, cfg.NumChunks)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("%w: negative worker count %d", chunkflow.ErrInvalidConfig, cfg.Workers)
	}
	if cfg.NumChunks == 0 {
		cfg.NumChunks = DefaultNumChunks
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	sink := cfg.Sink
	if sink == nil {
		if cfg.Output == "" {
			return nil, fmt.Errorf("%w: output path is required", chunkflow.ErrInvalidConfig)
		}

		if info, err := os.Stat(cfg.Output); err == nil && info.Size() > 0 {
			return nil, fmt.Errorf("%s: %w", cfg.Output, ErrOutputExists)
		}

		fs, err := NewFileSink(cfg.Output, cfg.Sync)
		if err != nil {
			return nil, err
		}
		sink = fs
	}

	return &Pipeline{sink: sink, logger: cfg.Logger, config: cfg}, nil
}

// Config returns the resolved configuration
func (p *Pipeline) Config() Config {
	return p.config
}

// Run writes ds and returns the report. The artifact is complete only when
// report.Complete() is true; unrecoverable chunks are listed in the report
// and logged, they do not make Run return an error.
func (p *Pipeline) Run(ctx context.Context, ds *dataset.Dataset) (*chunkflow.Report, error) {
	start := time.Now()

	runID := p.config.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	report := &chunkflow.Report{RunID: runID, Output: p.config.Output}

	chunks := partition.Rows(ds.Len(), p.config.NumChunks)
	if len(chunks) == 0 {
		p.logger.Printf("[WRITER:%s] Nothing to write (%d rows)", runID, ds.Len())
		report.Elapsed = time.Since(start)
		return report, nil
	}

	p.logger.Printf("[WRITER:%s] Writing %d rows in %d chunks with %d workers",
		runID, ds.Len(), len(chunks), p.config.Workers)

	p.begin(runID, chunks)

	w := NewChunkWriter(p.sink, ds.HeaderLine(), p.logger)
	seq := newSequencer()
	held := newHoldback()

	task := func(_ context.Context, i int, c chunkflow.Chunk) chunkflow.Outcome {
		// encoding runs concurrently; only the append waits its turn
		payload, encErr := ds.EncodeChunk(c)

		seq.wait(i)
		appended := false
		defer func() {
			// successors must not append past a chunk that is not on disk
			if !appended {
				held.block()
			}
			seq.done(i)
		}()

		var o chunkflow.Outcome
		switch {
		case encErr != nil:
			o = chunkflow.Failure(c.Index, 1, &chunkflow.WriteError{Chunk: c.Index, Attempt: 1, Cause: encErr}, 0)
			p.logger.Printf("[CHUNK:%d] Error preparing chunk: %v", c.Index, encErr)
		case held.hold(c.Index, payload):
			return chunkflow.Outcome{Index: c.Index}
		default:
			o = w.Write(c, payload, 1)
			appended = o.OK()
		}

		p.observe(runID, o)
		return o
	}

	safe := dispatch.Safe(task, func(i int, perr *dispatch.PanicError) chunkflow.Outcome {
		held.block()
		seq.done(i)
		p.logger.Printf("[CHUNK:%d] Error writing chunk: %v", i, perr)
		o := chunkflow.Failure(i, 1, &chunkflow.WriteError{Chunk: i, Attempt: 1, Cause: perr}, 0)
		p.observe(runID, o)
		return o
	})

	outcomes := dispatch.Run(ctx, chunks, dispatch.Options{
		Workers:   p.config.Workers,
		SyncFirst: true,
	}, safe)

	p.settle(runID, chunks, outcomes, held, w, ds, report)

	report.Outcomes = outcomes
	report.Elapsed = time.Since(start)

	if report.Complete() {
		p.logger.Printf("[WRITER:%s] All %d chunks written in %v", runID, len(chunks), report.Elapsed)
	} else {
		p.logger.Printf("[WRITER:%s] ERROR: output is incomplete, unrecoverable chunks: %v",
			runID, report.UnrecoverableIndexes())
	}

	p.finish(runID, report)

	return report, nil
}

// settle walks the chunks in index order after the concurrent phase. Failed
// chunks get their single retry and held chunks are appended behind them, so
// the artifact keeps chunk order whenever every retry succeeds.
func (p *Pipeline) settle(runID string, chunks []chunkflow.Chunk, outcomes []chunkflow.Outcome, held *holdback, w *ChunkWriter, ds *dataset.Dataset, report *chunkflow.Report) {
	var failed []int
	for _, o := range outcomes {
		if !o.OK() && !held.held(o.Index) {
			p.logger.Printf("[WRITER:%s] Failed to write chunk %d: %v", runID, o.Index, o.Err)
			failed = append(failed, o.Index)
		}
	}
	if len(failed) == 0 {
		return
	}

	rec := NewRecovery(w, ds.EncodeChunk, p.logger, func(o chunkflow.Outcome) { p.observe(runID, o) })
	rec.announce(failed)

	for _, c := range chunks {
		if payload, ok := held.take(c.Index); ok {
			o := w.Write(c, payload, 1)
			p.observe(runID, o)
			outcomes[c.Index] = o
			if o.OK() {
				continue
			}
		} else if outcomes[c.Index].OK() {
			continue
		}

		o := rec.Retry(c)
		report.Retried = append(report.Retried, c.Index)
		outcomes[c.Index] = o
		if !o.OK() {
			report.Unrecoverable = append(report.Unrecoverable, o)
		}
	}
}

func (p *Pipeline) observe(runID string, o chunkflow.Outcome) {
	if p.config.Recorder != nil {
		if err := p.config.Recorder.RecordOutcome(runID, o); err != nil {
			p.logger.Printf("[WRITER:%s] Failed to record outcome for chunk %d: %v", runID, o.Index, err)
		}
	}

	if p.config.OnOutcome != nil {
		p.config.OnOutcome(o)
	}
}

func (p *Pipeline) begin(runID string, chunks []chunkflow.Chunk) {
	if p.config.Recorder == nil {
		return
	}
	if err := p.config.Recorder.BeginRun(runID, p.config.Output, chunks); err != nil {
		p.logger.Printf("[WRITER:%s] Failed to record run start: %v", runID, err)
	}
}

func (p *Pipeline) finish(runID string, report *chunkflow.Report) {
	if p.config.Recorder == nil {
		return
	}
	if err := p.config.Recorder.FinishRun(runID, report); err != nil {
		p.logger.Printf("[WRITER:%s] Failed to record run result: %v", runID, err)
	}
}
