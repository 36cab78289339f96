package partition

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
)

// scanBufSize bounds each forward read when looking for the end of a record
const scanBufSize = 4096

// Windows returns the n+1 raw boundaries of n evenly sized windows over size
// bytes. The last boundary is always size.
func Windows(size int64, n int) []int64 {
	if n <= 0 || size <= 0 {
		return nil
	}

	bounds := make([]int64, n+1)
	for i := 1; i < n; i++ {
		bounds[i] = size * int64(i) / int64(n)
	}
	bounds[n] = size

	return bounds
}

// Bytes partitions size bytes of r into numWorkers ranges aligned to record
// boundaries. Each interior boundary is moved backward until the byte before
// it is delim. If that collapses the range to zero width (a single record
// spans the whole window) the boundary advances to the end of the current
// record instead. Ranges may be empty when there are fewer records than
// workers. Degenerate input returns nil.
func Bytes(r io.ReaderAt, size int64, numWorkers int, delim byte) ([]chunkflow.ByteRange, error) {
	bounds := Windows(size, numWorkers)
	if bounds == nil {
		return nil, nil
	}

	ranges := make([]chunkflow.ByteRange, 0, numWorkers)
	start := int64(0)

	for i := 1; i <= numWorkers; i++ {
		end := bounds[i]
		if end < start {
			// previous boundary advanced past this window
			end = start
		}

		if end < size {
			aligned, err := alignBackward(r, start, end, delim)
			if err != nil {
				return nil, fmt.Errorf("align boundary %d: %w", i, err)
			}

			if aligned == start && start < size {
				aligned, err = nextRecord(r, start, size, delim)
				if err != nil {
					return nil, fmt.Errorf("advance boundary %d: %w", i, err)
				}
			}
			end = aligned
		}

		ranges = append(ranges, chunkflow.ByteRange{Index: i - 1, Start: start, End: end})
		start = end
	}

	return ranges, nil
}

// IsRecordStart reports whether pos is 0 or immediately follows delim
func IsRecordStart(r io.ReaderAt, pos int64, delim byte) (bool, error) {
	if pos == 0 {
		return true, nil
	}

	var b [1]byte
	if _, err := r.ReadAt(b[:], pos-1); err != nil {
		return false, err
	}

	return b[0] == delim, nil
}

// alignBackward walks pos back one byte at a time until it is a record start
// or reaches floor.
func alignBackward(r io.ReaderAt, floor, pos int64, delim byte) (int64, error) {
	for pos > floor {
		ok, err := IsRecordStart(r, pos, delim)
		if err != nil {
			return 0, err
		}
		if ok {
			return pos, nil
		}
		pos--
	}

	return floor, nil
}

// nextRecord returns the offset just past the first delim at or after pos,
// or size if the record runs to the end of the file.
func nextRecord(r io.ReaderAt, pos, size int64, delim byte) (int64, error) {
	buf := make([]byte, scanBufSize)

	for pos < size {
		n, err := r.ReadAt(buf, pos)
		if i := bytes.IndexByte(buf[:n], delim); i >= 0 {
			return pos + int64(i) + 1, nil
		}
		pos += int64(n)

		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
	}

	return size, nil
}
