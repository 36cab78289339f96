package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"pkg.jsn.cam/chunkflow/internal/ledger"
	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
)

func runReport(logger *log.Logger, args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	ledgerPath := fs.String("ledger", "", "Path to the run ledger database")
	runID := fs.String("run-id", "", "Show attempts for one run (default: list runs)")
	parseFlags(fs, args)

	if err := report(os.Stdout, *ledgerPath, *runID); err != nil {
		logger.Fatalf("Report failed: %v", err)
	}
}

// report prints the runs in the ledger, or one run's attempts when runID is set
func report(out io.Writer, ledgerPath, runID string) error {
	if ledgerPath == "" {
		return fmt.Errorf("%w: --ledger is required", chunkflow.ErrInvalidConfig)
	}

	l, err := ledger.Open(ledgerPath)
	if err != nil {
		return err
	}
	defer l.Close()

	if runID == "" {
		return listRuns(out, l)
	}

	return showRun(out, l, runID)
}

func listRuns(out io.Writer, l *ledger.Ledger) error {
	runs, err := l.Runs()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found")
		return nil
	}

	fmt.Fprintf(out, "%-36s %-11s %-7s %-20s %s\n", "RUN ID", "STATE", "CHUNKS", "STARTED", "OUTPUT")
	fmt.Fprintln(out, "─────────────────────────────────────────────────────────────────────────────────────────")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s %-11s %-7d %-20s %s\n",
			r.ID,
			r.State,
			len(r.Chunks),
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Output)
	}

	return nil
}

func showRun(out io.Writer, l *ledger.Ledger, runID string) error {
	info, entries, err := l.Run(runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run Details:\n")
	fmt.Fprintf(out, "  ID:       %s\n", info.ID)
	fmt.Fprintf(out, "  State:    %s\n", info.State)
	fmt.Fprintf(out, "  Output:   %s\n", info.Output)
	fmt.Fprintf(out, "  Chunks:   %d\n", len(info.Chunks))
	fmt.Fprintf(out, "  Started:  %s\n", info.StartedAt.Format("2006-01-02 15:04:05"))

	if !info.FinishedAt.IsZero() {
		fmt.Fprintf(out, "  Finished: %s (%s)\n", info.FinishedAt.Format("2006-01-02 15:04:05"),
			humanize.RelTime(info.StartedAt, info.FinishedAt, "", "later"))
	}
	if len(info.Retried) > 0 {
		fmt.Fprintf(out, "  Retried:  %v\n", info.Retried)
	}
	if len(info.Unrecoverable) > 0 {
		fmt.Fprintf(out, "  Unrecoverable: %v\n", info.Unrecoverable)
	}

	fmt.Fprintf(out, "\n%-6s %-8s %-8s %-10s %s\n", "CHUNK", "ATTEMPT", "STATUS", "SIZE", "REASON")
	for _, e := range entries {
		fmt.Fprintf(out, "%-6d %-8d %-8s %-10s %s\n",
			e.Index, e.Attempt, e.Status, humanize.Bytes(uint64(e.Bytes)), e.Reason)
	}

	return nil
}
