package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

const usage = `chunkflow - chunked parallel file writing and reading

Usage:
  chunkflow write  --filename NAME --output_location DIR [flags]
  chunkflow read   [flags] FILENAME OUTPUT_LOCATION
  chunkflow report --ledger PATH [--run-id ID]

Run 'chunkflow <command> -h' for command flags.
`

func main() {
	logger := log.New(os.Stderr, "", log.LstdFlags)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "write":
		runWrite(logger, args)
	case "read":
		runRead(logger, args)
	case "report":
		runReport(logger, args)
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

// parseFlags parses args for a subcommand, exiting on error
func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
}
