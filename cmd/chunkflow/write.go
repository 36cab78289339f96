package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"pkg.jsn.cam/chunkflow/internal/ledger"
	"pkg.jsn.cam/chunkflow/internal/runutil"
	"pkg.jsn.cam/chunkflow/internal/writer"
	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
	"pkg.jsn.cam/chunkflow/pkg/dataset"
)

// writeOptions holds the parsed write flags
type writeOptions struct {
	filename       string
	outputLocation string
	ledgerPath     string
	rows           int
	cols           int
	chunks         int
	workers        int
	progress       bool
}

func runWrite(logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("write", flag.ExitOnError)

	var opts writeOptions
	fs.StringVar(&opts.filename, "filename", "large_data.csv", "Output file name")
	fs.StringVar(&opts.outputLocation, "output_location", ".", "Output directory (created if absent)")
	fs.IntVar(&opts.rows, "rows", 1_000_000, "Number of rows to generate")
	fs.IntVar(&opts.cols, "cols", 10, "Number of data columns (excluding row_id)")
	fs.IntVar(&opts.chunks, "chunks", writer.DefaultNumChunks, "Number of chunks")
	fs.IntVar(&opts.workers, "workers", writer.DefaultWorkers, "Concurrent chunk writers")
	fs.StringVar(&opts.ledgerPath, "ledger", "", "Path to a run ledger database (optional)")
	fs.BoolVar(&opts.progress, "progress", true, "Show a progress bar")
	parseFlags(fs, args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := write(ctx, logger, opts, os.Stderr)
	if err != nil {
		stop()
		logger.Fatalf("Write failed: %v", err)
	}

	printReport(report)
}

// write runs the write pipeline. Every resource it opens is released before
// it returns, including on error.
func write(ctx context.Context, logger *log.Logger, opts writeOptions, progressOut io.Writer) (*chunkflow.Report, error) {
	if opts.filename == "" {
		return nil, fmt.Errorf("%w: --filename is required", chunkflow.ErrInvalidConfig)
	}

	if err := os.MkdirAll(opts.outputLocation, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	cfg := writer.Config{
		Output:    filepath.Join(opts.outputLocation, opts.filename),
		NumChunks: opts.chunks,
		Workers:   opts.workers,
		Logger:    logger,
	}

	if opts.ledgerPath != "" {
		l, err := ledger.Open(opts.ledgerPath)
		if err != nil {
			return nil, err
		}
		defer l.Close()
		cfg.Recorder = l
	}

	var bar *progressbar.ProgressBar
	if opts.progress {
		cfg.OnOutcome = func(o chunkflow.Outcome) {
			if bar != nil && o.Attempt == 1 {
				_ = bar.Add(1)
			}
		}
	}

	pipeline, err := writer.NewPipeline(cfg)
	if err != nil {
		return nil, fmt.Errorf("set up writer: %w", err)
	}

	if opts.progress {
		bar = newChunkBar(pipeline, progressOut)
		defer func() { _ = bar.Finish() }()
	}

	var report *chunkflow.Report
	err = runutil.Timed(logger, "write", func() error {
		ds, err := runutil.TimedValue(logger, "materialize", func() (*dataset.Dataset, error) {
			return dataset.Materialize(opts.rows, opts.cols), nil
		})
		if err != nil {
			return err
		}

		report, err = pipeline.Run(ctx, ds)
		return err
	})

	return report, err
}

// newChunkBar sizes a progress bar from the pipeline's resolved chunk count
func newChunkBar(p *writer.Pipeline, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(p.Config().NumChunks,
		progressbar.OptionSetDescription("writing chunks"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func printReport(report *chunkflow.Report) {
	written := 0
	for _, o := range report.Outcomes {
		if o.OK() {
			written += o.Bytes
		}
	}

	fmt.Printf("Run %s\n", report.RunID)
	fmt.Printf("  Output:   %s\n", report.Output)
	fmt.Printf("  Chunks:   %d\n", len(report.Outcomes))
	fmt.Printf("  Written:  %s\n", humanize.Bytes(uint64(written)))
	fmt.Printf("  Elapsed:  %v\n", report.Elapsed)

	if len(report.Retried) > 0 {
		fmt.Printf("  Retried:  %v\n", report.Retried)
	}

	if report.Complete() {
		fmt.Println("  Status:   complete")
		return
	}

	fmt.Println("  Status:   INCOMPLETE")
	for _, o := range report.Unrecoverable {
		fmt.Printf("    chunk %d: %v\n", o.Index, o.Err)
	}
}
