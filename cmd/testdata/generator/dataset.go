package generator

import (
	"encoding/csv"
	"io"
	"math/rand/v2"
	"strconv"

	"pkg.jsn.cam/chunkflow/pkg/dataset"
)

// DatasetGenerator streams CSV rows shaped like the materialized dataset.
// The first line written is the header.
type DatasetGenerator struct {
	rand   *rand.Rand
	header []string
	Cols   int
	next   int
}

func (g *DatasetGenerator) Init(r *rand.Rand) {
	g.rand = r
	g.header = dataset.MaterializeSeed(0, g.Cols, dataset.DefaultSeed).Header()
	g.next = 0
}

func (g *DatasetGenerator) WriteLine(w io.Writer) error {
	cw := csv.NewWriter(w)

	var rec []string
	if g.next == 0 {
		rec = g.header
	} else {
		rec = make([]string, 0, len(g.header))
		rec = append(rec, strconv.Itoa(g.next))
		for _, name := range g.header[1:] {
			if name[:4] == "num_" {
				rec = append(rec, strconv.FormatFloat(g.rand.Float64(), 'f', -1, 64))
			} else {
				rec = append(rec, dataset.Categories[g.rand.IntN(len(dataset.Categories))])
			}
		}
	}
	g.next++

	if err := cw.Write(rec); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

func (g *DatasetGenerator) Description() string {
	return "CSV rows: row_id,num_0..,cat_0.. (header first)"
}

func (g *DatasetGenerator) DefaultCount() int64 {
	return 1e5
}
