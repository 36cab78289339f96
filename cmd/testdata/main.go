package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"pkg.jsn.cam/chunkflow/cmd/testdata/generator"
)

/*generates seeded line-oriented input files for chunkflow read*/

var (
	Generator  = flag.String("generator", "dataset", "Generator to use (see -list)")
	Count      = flag.Int64("count", 0, "Number of lines to generate (0 uses the generator default)")
	Cols       = flag.Int("cols", 10, "Data columns for the dataset generator")
	Seed       = flag.Uint64("seed", 0, "Random seed")
	OutputPath = flag.String("output", "var/testdata.csv", "Output file path")
	ListOnly   = flag.Bool("list", false, "List generators and exit")
)

func main() {
	flag.Parse()

	if *ListOnly {
		for _, name := range generator.List() {
			g, _ := generator.Get(name)
			fmt.Printf("%-10s %s (default %d lines)\n", name, g.Description(), g.DefaultCount())
		}
		return
	}

	generator.SetCols(*Cols)

	gen, err := generator.Get(*Generator)
	if err != nil {
		log.Fatalf("%v (available: %v)", err, generator.List())
	}
	gen.Init(rand.New(rand.NewPCG(*Seed, *Seed)))

	count := *Count
	if count <= 0 {
		count = gen.DefaultCount()
	}

	if err := os.MkdirAll(filepath.Dir(*OutputPath), 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}
	file, err := os.Create(*OutputPath)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	bar := progressbar.Default(count, "generating")

	for i := int64(0); i < count; i++ {
		if err := gen.WriteLine(w); err != nil {
			log.Fatalf("Failed to write line %d: %v", i, err)
		}
		_ = bar.Add(1)
	}

	if err := w.Flush(); err != nil {
		log.Fatalf("Failed to flush output: %v", err)
	}

	info, err := file.Stat()
	if err == nil {
		log.Printf("Wrote %d lines (%s) to %s", count, humanize.Bytes(uint64(info.Size())), *OutputPath)
	}
}
