// Package reader splits an existing file into record-aligned byte ranges and
// reads them in parallel, each range on its own goroutine with its own file
// handle.
package reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"pkg.jsn.cam/chunkflow/internal/dispatch"
	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
	"pkg.jsn.cam/chunkflow/pkg/partition"
)

// DefaultDelimiter terminates records
const DefaultDelimiter byte = '\n'

// Options configures a parallel read
type Options struct {
	// Logger receives progress messages (default: stderr)
	Logger *log.Logger

	// ProcessRecord transforms each record; identity when nil.
	// The returned slice may alias the input.
	ProcessRecord func(rec []byte) []byte

	// OnPartition is called as each range finishes, from any goroutine
	OnPartition func(p Partition)

	// Workers is the number of ranges and concurrent readers
	// (default: runtime.NumCPU())
	Workers int

	// Delimiter ends a record (default: '\n')
	Delimiter byte
}

// Partition holds the records read from one byte range, in file order
type Partition struct {
	Err     error
	Records [][]byte
	Range   chunkflow.ByteRange
}

// Bytes returns the total size of the partition's records
func (p Partition) Bytes() int {
	n := 0
	for _, r := range p.Records {
		n += len(r)
	}
	return n
}

func (o *Options) withDefaults() {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Delimiter == 0 {
		o.Delimiter = DefaultDelimiter
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
}

// ReadParallel partitions path into opts.Workers ranges and reads them
// concurrently. It returns one Partition per range, in range order. Setup
// failures (missing file, unreadable boundaries) are returned as an error;
// a failure inside one range is recorded on that Partition and does not
// affect the others.
func ReadParallel(ctx context.Context, path string, opts Options) ([]Partition, error) {
	opts.withDefaults()

	ranges, err := Plan(path, opts.Workers, opts.Delimiter)
	if err != nil {
		return nil, err
	}
	if len(ranges) == 0 {
		opts.Logger.Printf("[READER] %s is empty, nothing to read", path)
		return nil, nil
	}

	opts.Logger.Printf("[READER] Reading %s in %d ranges (window %s)",
		path, len(ranges), humanize.Bytes(uint64(ranges[0].Len())))

	task := func(ctx context.Context, i int, br chunkflow.ByteRange) Partition {
		recs, err := ReadRange(ctx, path, br, opts.Delimiter, opts.ProcessRecord)
		part := Partition{Range: br, Records: recs, Err: err}

		if err != nil {
			opts.Logger.Printf("[READER:%d] Error reading range [%d, %d): %v", i, br.Start, br.End, err)
		}
		if opts.OnPartition != nil {
			opts.OnPartition(part)
		}
		return part
	}

	parts := dispatch.Run(ctx, ranges, dispatch.Options{Workers: opts.Workers}, task)

	var failed []error
	for _, p := range parts {
		if p.Err != nil {
			failed = append(failed, fmt.Errorf("range %d: %w", p.Range.Index, p.Err))
		}
	}

	if len(failed) > 0 {
		return parts, errors.Join(failed...)
	}

	return parts, nil
}

// Plan computes the record-aligned byte ranges for path
func Plan(path string, workers int, delim byte) ([]chunkflow.ByteRange, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	ranges, err := partition.Bytes(f, info.Size(), workers, delim)
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", path, err)
	}

	return ranges, nil
}

// ReadRange opens path independently and reads every record that starts
// inside br. A record that starts before br.End is consumed in full even if
// it crosses the boundary.
func ReadRange(ctx context.Context, path string, br chunkflow.ByteRange, delim byte, process func([]byte) []byte) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}

	r := bufio.NewReader(io.NewSectionReader(f, br.Start, info.Size()-br.Start))

	var records [][]byte
	pos := br.Start

	for pos < br.End {
		if err := ctx.Err(); err != nil {
			return records, err
		}

		rec, err := r.ReadBytes(delim)
		if len(rec) > 0 {
			pos += int64(len(rec))
			if process != nil {
				rec = process(rec)
			}
			records = append(records, rec)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return records, fmt.Errorf("read at offset %d: %w", pos, err)
		}
	}

	return records, nil
}
