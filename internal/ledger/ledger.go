// Package ledger persists write-pipeline runs and every chunk attempt so that
// unrecoverable chunks remain discoverable after the process exits.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
	"pkg.jsn.cam/chunkflow/pkg/storage"
)

var runsBucket = []byte("runs")

const attemptsPrefix = "run_"

// Run states
const (
	StateRunning    = "running"
	StateComplete   = "complete"
	StateIncomplete = "incomplete"
)

// RunInfo describes one write-pipeline run
type RunInfo struct {
	StartedAt     time.Time         `json:"started_at"`
	FinishedAt    time.Time         `json:"finished_at,omitzero"`
	ID            string            `json:"id"`
	Output        string            `json:"output"`
	State         string            `json:"state"`
	Chunks        []chunkflow.Chunk `json:"chunks"`
	Retried       []int             `json:"retried,omitempty"`
	Unrecoverable []int             `json:"unrecoverable,omitempty"`
}

// Entry is one recorded chunk attempt
type Entry struct {
	RecordedAt time.Time        `json:"recorded_at"`
	Status     chunkflow.Status `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	Index      int              `json:"index"`
	Attempt    int              `json:"attempt"`
	Bytes      int              `json:"bytes"`
	DurationMS int64            `json:"duration_ms"`
}

// Ledger stores runs in a storage.Backend
type Ledger struct {
	backend storage.Backend
	now     func() time.Time
	mu      sync.Mutex
}

// Open opens a bbolt-backed ledger at path
func Open(path string) (*Ledger, error) {
	backend, err := storage.NewBboltBackend(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	l, err := New(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return l, nil
}

// New wraps an existing backend
func New(backend storage.Backend) (*Ledger, error) {
	if err := backend.CreateBucket(runsBucket); err != nil {
		return nil, fmt.Errorf("create runs bucket: %w", err)
	}

	return &Ledger{backend: backend, now: time.Now}, nil
}

// Close closes the underlying backend
func (l *Ledger) Close() error {
	return l.backend.Close()
}

func attemptsBucket(runID string) []byte {
	return []byte(attemptsPrefix + runID)
}

func attemptKey(index, attempt int) string {
	return fmt.Sprintf("chunk_%06d_attempt_%02d", index, attempt)
}

// BeginRun records a new run and its chunk layout, including each chunk's
// header flag.
func (l *Ledger) BeginRun(runID, output string, chunks []chunkflow.Chunk) error {
	info := RunInfo{
		ID:        runID,
		Output:    output,
		State:     StateRunning,
		StartedAt: l.now(),
		Chunks:    chunks,
	}

	if err := l.backend.CreateBucket(attemptsBucket(runID)); err != nil {
		return fmt.Errorf("create attempts bucket: %w", err)
	}

	return l.putRun(info)
}

// RecordOutcome stores a single chunk attempt. Safe for concurrent use.
func (l *Ledger) RecordOutcome(runID string, o chunkflow.Outcome) error {
	entry := Entry{
		Index:      o.Index,
		Attempt:    o.Attempt,
		Status:     o.Status,
		Reason:     o.Reason(),
		Bytes:      o.Bytes,
		DurationMS: o.Duration.Milliseconds(),
		RecordedAt: l.now(),
	}

	data, err := storage.EncodeJSON(entry)
	if err != nil {
		return err
	}

	return l.backend.Batch(attemptsBucket(runID), map[string][]byte{
		attemptKey(o.Index, o.Attempt): data,
	})
}

// FinishRun stores the final state of a run
func (l *Ledger) FinishRun(runID string, report *chunkflow.Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	info, err := l.getRun(runID)
	if err != nil {
		return err
	}

	info.FinishedAt = l.now()
	info.Retried = report.Retried
	info.Unrecoverable = report.UnrecoverableIndexes()
	info.State = StateComplete
	if !report.Complete() {
		info.State = StateIncomplete
	}

	return l.putRun(info)
}

// Run returns a run and all of its recorded attempts, ordered by chunk index
// then attempt.
func (l *Ledger) Run(runID string) (RunInfo, []Entry, error) {
	info, err := l.getRun(runID)
	if err != nil {
		return RunInfo{}, nil, err
	}

	var entries []Entry
	err = l.backend.ForEach(attemptsBucket(runID), func(_, v []byte) error {
		var e Entry
		if err := storage.DecodeJSON(v, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil && !errors.Is(err, storage.ErrBucketNotFound) {
		return RunInfo{}, nil, fmt.Errorf("read attempts: %w", err)
	}

	return info, entries, nil
}

// Runs lists every run, newest first
func (l *Ledger) Runs() ([]RunInfo, error) {
	var runs []RunInfo

	err := l.backend.ForEach(runsBucket, func(_, v []byte) error {
		var info RunInfo
		if err := storage.DecodeJSON(v, &info); err != nil {
			return err
		}
		runs = append(runs, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	return runs, nil
}

// Latest returns the most recently started run
func (l *Ledger) Latest() (RunInfo, error) {
	runs, err := l.Runs()
	if err != nil {
		return RunInfo{}, err
	}
	if len(runs) == 0 {
		return RunInfo{}, chunkflow.ErrRunNotFound
	}
	return runs[0], nil
}

// Unrecoverable returns, per run id, the chunks that ended unrecoverable.
// Runs that are complete are omitted.
func (l *Ledger) Unrecoverable() (map[string][]int, error) {
	runs, err := l.Runs()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]int)
	for _, r := range runs {
		if r.State == StateIncomplete {
			out[r.ID] = r.Unrecoverable
		}
	}
	return out, nil
}

func (l *Ledger) getRun(runID string) (RunInfo, error) {
	data, err := l.backend.Get(runsBucket, []byte(runID))
	if err != nil {
		return RunInfo{}, fmt.Errorf("read run: %w", err)
	}
	if data == nil {
		return RunInfo{}, fmt.Errorf("%w: %s", chunkflow.ErrRunNotFound, runID)
	}

	var info RunInfo
	if err := storage.DecodeJSON(data, &info); err != nil {
		return RunInfo{}, err
	}
	return info, nil
}

func (l *Ledger) putRun(info RunInfo) error {
	data, err := storage.EncodeJSON(info)
	if err != nil {
		return err
	}
	return l.backend.Put(runsBucket, []byte(info.ID), data)
}
