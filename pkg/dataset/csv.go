package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
)

// EncodeCSV writes rows [start, end) as comma separated lines, preceded by
// the header line when header is true.
func (d *Dataset) EncodeCSV(w io.Writer, start, end int, header bool) error {
	if err := d.checkRange(start, end); err != nil {
		return err
	}
	return d.encode(w, d.rows[start:end], header)
}

// EncodeChunk returns the CSV payload for a chunk, without the header
func (d *Dataset) EncodeChunk(c chunkflow.Chunk) ([]byte, error) {
	if err := d.checkRange(c.Start, c.End); err != nil {
		return nil, fmt.Errorf("encode %s: %w", c, err)
	}

	var buf bytes.Buffer
	if err := d.encode(&buf, d.Slice(c), false); err != nil {
		return nil, fmt.Errorf("encode %s: %w", c, err)
	}
	return buf.Bytes(), nil
}

func (d *Dataset) checkRange(start, end int) error {
	if start < 0 || end > len(d.rows) || start > end {
		return fmt.Errorf("row range [%d, %d) out of bounds for %d rows", start, end, len(d.rows))
	}
	return nil
}

func (d *Dataset) encode(w io.Writer, rows []Row, header bool) error {
	cw := csv.NewWriter(w)

	if header {
		if err := cw.Write(d.Header()); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for _, row := range rows {
		if err := cw.Write(d.record(row)); err != nil {
			return fmt.Errorf("write row %d: %w", row.ID, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// HeaderLine returns the encoded header line including its terminator
func (d *Dataset) HeaderLine() []byte {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write(d.Header())
	cw.Flush()
	return buf.Bytes()
}
