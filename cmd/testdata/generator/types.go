package generator

import (
	"io"
	"math/rand/v2"
)

// Generator produces line-oriented input files for the reader
type Generator interface {
	// Init sets the seeded random source the generator draws from
	Init(r *rand.Rand)

	// WriteLine writes a single record, including its terminator
	WriteLine(w io.Writer) error

	// Description returns a human-readable description of the data format
	Description() string

	// DefaultCount returns the suggested default number of lines to generate
	DefaultCount() int64
}
