// Package partition splits work into contiguous units: row ranges of an
// in-memory dataset, or record-aligned byte ranges of an existing file.
package partition

import "pkg.jsn.cam/chunkflow/pkg/chunkflow"

// Rows splits [0, totalUnits) into numPartitions disjoint chunks.
// Every chunk gets floor(total/n) rows; the remainder is spread one row at a
// time over the final partitions. Only chunk 0 emits the header.
// Degenerate input returns nil.
func Rows(totalUnits, numPartitions int) []chunkflow.Chunk {
	if numPartitions <= 0 || totalUnits <= 0 {
		return nil
	}

	base := totalUnits / numPartitions
	rem := totalUnits % numPartitions
	firstLong := numPartitions - rem

	chunks := make([]chunkflow.Chunk, numPartitions)
	start := 0

	for i := range chunks {
		size := base
		if i >= firstLong {
			size++
		}

		chunks[i] = chunkflow.Chunk{
			Index:      i,
			Start:      start,
			End:        start + size,
			EmitHeader: i == 0,
		}
		start += size
	}

	return chunks
}
