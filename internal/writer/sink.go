package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink is an append-only destination for encoded chunks
type Sink interface {
	Append(p []byte) error
}

// FileSink appends to a file on disk. The file is opened in append mode for
// every call. A failed append is rolled back to the size the file had before
// it, so existing content is never touched and a retry cannot duplicate a
// partially written payload. Appends must not run concurrently.
type FileSink struct {
	write func(f *os.File, p []byte) (int, error)
	path  string
	sync  bool
}

// NewFileSink creates a sink for path, creating its directory if needed.
// When sync is true every append is followed by an fsync.
func NewFileSink(path string, sync bool) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &FileSink{path: path, sync: sync, write: (*os.File).Write}, nil
}

// Path returns the destination path
func (s *FileSink) Path() string {
	return s.path
}

// Append writes p at the end of the file
func (s *FileSink) Append(p []byte) (err error) {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", s.path, cerr)
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.path, err)
	}
	prev := info.Size()

	if _, err := s.write(f, p); err != nil {
		return s.rollback(f, prev, fmt.Errorf("append to %s: %w", s.path, err))
	}

	if s.sync {
		if err := f.Sync(); err != nil {
			return s.rollback(f, prev, fmt.Errorf("sync %s: %w", s.path, err))
		}
	}

	return nil
}

// rollback truncates f back to size and returns cause
func (s *FileSink) rollback(f *os.File, size int64, cause error) error {
	if err := f.Truncate(size); err != nil {
		return fmt.Errorf("%w (rollback to %d bytes failed: %v)", cause, size, err)
	}
	return cause
}
