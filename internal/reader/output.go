package reader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OutputName returns <stem><part><ext> for the base name of filename
func OutputName(filename string, part int) string {
	base := filepath.Base(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	return stem + strconv.Itoa(part) + ext
}

// WritePartitions writes each partition's records, concatenated in read
// order, to its own numbered file under outputDir. The directory is created
// when absent. Existing partition files are replaced. It returns the written
// paths in partition order.
func WritePartitions(outputDir, filename string, parts []Partition) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	paths := make([]string, 0, len(parts))

	for i, p := range parts {
		path := filepath.Join(outputDir, OutputName(filename, i))
		if err := writeRecords(path, p.Records); err != nil {
			return paths, fmt.Errorf("write partition %d: %w", i, err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

func writeRecords(path string, records [][]byte) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(f)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			return err
		}
	}

	return w.Flush()
}
