// Package dataset materializes the deterministic synthetic table consumed by
// the write pipeline.
package dataset

import (
	"math/rand/v2"
	"strconv"

	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
)

// DefaultSeed is the fixed seed used by Materialize
const DefaultSeed uint64 = 0

// RowIDColumn is the leading 1-indexed row identifier column
const RowIDColumn = "row_id"

// Categories is the alphabet categorical columns draw from
var Categories = []string{"A", "B", "C", "D", "E"}

// Kind tags the type of a column
type Kind int

const (
	KindID Kind = iota
	KindNumeric
	KindCategorical
)

// Column describes one column of the dataset
type Column struct {
	Name string
	Kind Kind
}

// Row is a single record. Numeric values are uniform in [0, 1).
type Row struct {
	Numeric     []float64
	Categorical []string
	ID          int
}

// Dataset is an immutable synthetic table
type Dataset struct {
	columns []Column
	rows    []Row
	seed    uint64
}

// Materialize builds numRows rows with numCols data columns using DefaultSeed
func Materialize(numRows, numCols int) *Dataset {
	return MaterializeSeed(numRows, numCols, DefaultSeed)
}

// MaterializeSeed builds a dataset from an explicit seed. numCols counts data
// columns only; numeric columns get the extra one when numCols is odd.
// Values are drawn row-major from a single PCG source so identical arguments
// always produce identical data.
func MaterializeSeed(numRows, numCols int, seed uint64) *Dataset {
	if numRows < 0 {
		numRows = 0
	}
	if numCols < 0 {
		numCols = 0
	}

	numNumeric := (numCols + 1) / 2
	numCategorical := numCols / 2

	columns := make([]Column, 0, numCols+1)
	columns = append(columns, Column{Name: RowIDColumn, Kind: KindID})
	for i := 0; i < numNumeric; i++ {
		columns = append(columns, Column{Name: "num_" + strconv.Itoa(i), Kind: KindNumeric})
	}
	for i := 0; i < numCategorical; i++ {
		columns = append(columns, Column{Name: "cat_" + strconv.Itoa(i), Kind: KindCategorical})
	}

	r := rand.New(rand.NewPCG(seed, seed))

	rows := make([]Row, numRows)
	for i := range rows {
		row := Row{
			ID:          i + 1,
			Numeric:     make([]float64, numNumeric),
			Categorical: make([]string, numCategorical),
		}
		for j := range row.Numeric {
			row.Numeric[j] = r.Float64()
		}
		for j := range row.Categorical {
			row.Categorical[j] = Categories[r.IntN(len(Categories))]
		}
		rows[i] = row
	}

	return &Dataset{columns: columns, rows: rows, seed: seed}
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.rows)
}

// Seed returns the generation seed
func (d *Dataset) Seed() uint64 {
	return d.seed
}

// Columns returns a copy of the column descriptors, row_id first
func (d *Dataset) Columns() []Column {
	return append([]Column(nil), d.columns...)
}

// Header returns the column names in output order
func (d *Dataset) Header() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Row returns row i
func (d *Dataset) Row(i int) Row {
	return d.rows[i]
}

// Record formats row i as CSV fields
func (d *Dataset) Record(i int) []string {
	return d.record(d.rows[i])
}

func (d *Dataset) record(row Row) []string {
	rec := make([]string, 0, len(d.columns))
	rec = append(rec, strconv.Itoa(row.ID))
	for _, v := range row.Numeric {
		rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
	}
	rec = append(rec, row.Categorical...)

	return rec
}

// Slice returns the rows covered by a chunk. It panics if the chunk is out
// of range.
func (d *Dataset) Slice(c chunkflow.Chunk) []Row {
	return d.rows[c.Start:c.End]
}
