package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

// backendTestSuite runs the same checks against any Backend implementation
func backendTestSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("CreateBucket", func(t *testing.T) {
		backend := newBackend(t)

		if err := backend.CreateBucket([]byte("runs")); err != nil {
			t.Fatalf("CreateBucket failed: %v", err)
		}

		exists, err := backend.BucketExists([]byte("runs"))
		if err != nil {
			t.Fatalf("BucketExists failed: %v", err)
		}
		if !exists {
			t.Error("Bucket should exist after creation")
		}

		// Idempotent
		if err := backend.CreateBucket([]byte("runs")); err != nil {
			t.Errorf("CreateBucket should be idempotent: %v", err)
		}
	})

	t.Run("PutAndGet", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket([]byte("b"))

		if err := backend.Put([]byte("b"), []byte("k"), []byte("v1")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		v, err := backend.Get([]byte("b"), []byte("k"))
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(v) != "v1" {
			t.Errorf("Get = %q, want %q", v, "v1")
		}

		missing, err := backend.Get([]byte("b"), []byte("absent"))
		if err != nil || missing != nil {
			t.Errorf("Get(absent) = %q, %v; want nil, nil", missing, err)
		}
	})

	t.Run("MissingBucket", func(t *testing.T) {
		backend := newBackend(t)

		if err := backend.Put([]byte("nope"), []byte("k"), []byte("v")); !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("Put on missing bucket: got %v, want ErrBucketNotFound", err)
		}
		if _, err := backend.Get([]byte("nope"), []byte("k")); !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("Get on missing bucket: got %v, want ErrBucketNotFound", err)
		}
		err := backend.ForEach([]byte("nope"), func(k, v []byte) error { return nil })
		if !errors.Is(err, ErrBucketNotFound) {
			t.Errorf("ForEach on missing bucket: got %v, want ErrBucketNotFound", err)
		}
	})

	t.Run("ForEachKeyOrder", func(t *testing.T) {
		backend := newBackend(t)

		err := backend.Batch([]byte("chunks"), map[string][]byte{
			"chunk_000002": []byte("c"),
			"chunk_000000": []byte("a"),
			"chunk_000001": []byte("b"),
		})
		if err != nil {
			t.Fatalf("Batch failed: %v", err)
		}

		var got string
		err = backend.ForEach([]byte("chunks"), func(k, v []byte) error {
			got += string(v)
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach failed: %v", err)
		}
		if got != "abc" {
			t.Errorf("ForEach visited %q, want key order %q", got, "abc")
		}
	})

	t.Run("ValuesAreCopied", func(t *testing.T) {
		backend := newBackend(t)
		backend.CreateBucket([]byte("b"))

		value := []byte("original")
		backend.Put([]byte("b"), []byte("k"), value)
		value[0] = 'X'

		v, _ := backend.Get([]byte("b"), []byte("k"))
		if string(v) != "original" {
			t.Errorf("stored value changed with caller's slice: %q", v)
		}
	})
}

func TestMemoryBackend(t *testing.T) {
	t.Parallel()

	backendTestSuite(t, func(t *testing.T) Backend {
		return NewMemoryBackend()
	})
}

func TestBboltBackend(t *testing.T) {
	t.Parallel()

	backendTestSuite(t, func(t *testing.T) Backend {
		backend, err := NewBboltBackend(filepath.Join(t.TempDir(), "db", "ledger.db"))
		if err != nil {
			t.Fatalf("failed to create backend: %v", err)
		}
		t.Cleanup(func() { backend.Close() })
		return backend
	})
}

func TestBboltBackend_Persists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ledger.db")

	backend, err := NewBboltBackend(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	backend.Batch([]byte("b"), map[string][]byte{"k": []byte("v")})
	backend.Close()

	reopened, err := NewBboltBackend(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	v, err := reopened.Get([]byte("b"), []byte("k"))
	if err != nil || string(v) != "v" {
		t.Errorf("after reopen Get = %q, %v; want %q", v, err, "v")
	}
}

func TestJSONHelpers(t *testing.T) {
	t.Parallel()

	type entry struct {
		Index  int    `json:"index"`
		Status string `json:"status"`
	}

	data, err := EncodeJSON(entry{Index: 3, Status: "failure"})
	if err != nil {
		t.Fatalf("EncodeJSON failed: %v", err)
	}

	var got entry
	if err := DecodeJSON(data, &got); err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if got.Index != 3 || got.Status != "failure" {
		t.Errorf("round trip = %+v", got)
	}

	if err := DecodeJSON([]byte("{"), &got); err == nil {
		t.Error("DecodeJSON should fail on truncated input")
	}
}
