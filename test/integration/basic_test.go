package integration

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkg.jsn.cam/chunkflow/internal/ledger"
	"pkg.jsn.cam/chunkflow/internal/reader"
	"pkg.jsn.cam/chunkflow/internal/writer"
	"pkg.jsn.cam/chunkflow/pkg/dataset"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// flakySink fails the first append whose payload starts with prefix
type flakySink struct {
	next   writer.Sink
	prefix string
	mu     sync.Mutex
	failed bool
}

func (s *flakySink) Append(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.failed && bytes.HasPrefix(p, []byte(s.prefix)) {
		s.failed = true
		return errors.New("injected failure")
	}
	return s.next.Append(p)
}

// TestWriteThenRead writes a dataset with the chunked writer, reads the
// artifact back with the parallel reader and checks nothing was lost.
func TestWriteThenRead(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	output := filepath.Join(dir, "large_data.csv")

	l, err := ledger.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	defer l.Close()

	ds := dataset.Materialize(500, 6)

	p, err := writer.NewPipeline(writer.Config{
		Output:    output,
		NumChunks: 10,
		Workers:   4,
		Logger:    quietLogger(),
		Recorder:  l,
	})
	require.NoError(t, err)

	report, err := p.Run(context.Background(), ds)
	require.NoError(t, err)
	require.True(t, report.Complete())

	var want bytes.Buffer
	require.NoError(t, ds.EncodeCSV(&want, 0, ds.Len(), true))

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	require.Equal(t, want.String(), string(got))

	parts, err := reader.ReadParallel(context.Background(), output, reader.Options{
		Workers: 7,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	require.Len(t, parts, 7)

	outDir := filepath.Join(dir, "parts")
	paths, err := reader.WritePartitions(outDir, output, parts)
	require.NoError(t, err)
	require.Len(t, paths, 7)

	var rebuilt bytes.Buffer
	records := 0
	for i, path := range paths {
		assert.Equal(t, filepath.Join(outDir, "large_data"+string(rune('0'+i))+".csv"), path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		rebuilt.Write(data)
		records += len(parts[i].Records)
	}

	assert.Equal(t, string(got), rebuilt.String())
	assert.Equal(t, ds.Len()+1, records)

	info, err := l.Latest()
	require.NoError(t, err)
	assert.Equal(t, report.RunID, info.ID)
	assert.Equal(t, ledger.StateComplete, info.State)
	assert.Len(t, info.Chunks, 10)
}

// TestWriteRecoversFailedChunk injects a single failed append and checks the
// recovery pass lands the chunk, the reader sees every row and the ledger
// records both attempts.
func TestWriteRecoversFailedChunk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	output := filepath.Join(dir, "data.csv")

	l, err := ledger.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	defer l.Close()

	sink, err := writer.NewFileSink(output, false)
	require.NoError(t, err)

	ds := dataset.Materialize(40, 4)

	// chunk 2 of 4 covers rows 21..30
	p, err := writer.NewPipeline(writer.Config{
		Output:    output,
		NumChunks: 4,
		Workers:   2,
		Logger:    quietLogger(),
		Recorder:  l,
		Sink:      &flakySink{next: sink, prefix: "21,"},
	})
	require.NoError(t, err)

	report, err := p.Run(context.Background(), ds)
	require.NoError(t, err)
	assert.True(t, report.Complete())
	assert.Equal(t, []int{2}, report.Retried)

	parts, err := reader.ReadParallel(context.Background(), output, reader.Options{
		Workers: 3,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)

	seen := make(map[string]int)
	headers := 0
	for _, part := range parts {
		for _, rec := range part.Records {
			line := strings.TrimSuffix(string(rec), "\n")
			if strings.HasPrefix(line, dataset.RowIDColumn) {
				headers++
				continue
			}
			seen[strings.SplitN(line, ",", 2)[0]]++
		}
	}

	assert.Equal(t, 1, headers)
	assert.Len(t, seen, ds.Len())
	for id, n := range seen {
		assert.Equal(t, 1, n, "row %s", id)
	}

	info, entries, err := l.Run(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateComplete, info.State)
	assert.Equal(t, []int{2}, info.Retried)

	attempts := 0
	for _, e := range entries {
		if e.Index == 2 {
			attempts++
		}
	}
	assert.Equal(t, 2, attempts)
}
