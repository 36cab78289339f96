package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"pkg.jsn.cam/chunkflow/internal/reader"
	"pkg.jsn.cam/chunkflow/internal/runutil"
)

func runRead(logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	workers := fs.Int("workers", runtime.NumCPU(), "Number of partitions and concurrent readers")
	progress := fs.Bool("progress", true, "Show a progress bar")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "Usage: chunkflow read [flags] filename output_location")
		fs.PrintDefaults()
	}
	parseFlags(fs, args)

	if fs.NArg() != 2 {
		fs.Usage()
		os.Exit(2)
	}
	filename, outputLocation := fs.Arg(0), fs.Arg(1)

	info, err := os.Stat(filename)
	if err != nil {
		logger.Fatalf("Failed to open input: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := reader.Options{Workers: *workers, Logger: logger}

	var bar *progressbar.ProgressBar
	if *progress {
		bar = progressbar.DefaultBytes(info.Size(), "reading")
		opts.OnPartition = func(p reader.Partition) {
			_ = bar.Add64(p.Range.Len())
		}
	}

	err = runutil.Timed(logger, "read", func() error {
		parts, err := reader.ReadParallel(ctx, filename, opts)
		if err != nil {
			return err
		}

		paths, err := reader.WritePartitions(outputLocation, filename, parts)
		if err != nil {
			return err
		}

		for i, p := range paths {
			logger.Printf("[READER] Chunk %d written to %s (%d records, %s)",
				i, p, len(parts[i].Records), humanize.Bytes(uint64(parts[i].Bytes())))
		}
		return nil
	})
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		logger.Fatalf("Read failed: %v", err)
	}
}
