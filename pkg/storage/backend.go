// Package storage provides the bucketed key-value backends the run ledger
// persists to.
package storage

import "errors"

// ErrBucketNotFound is returned when an operation targets a missing bucket
var ErrBucketNotFound = errors.New("bucket not found")

// Backend is a bucketed key-value store working on raw bytes.
// Keys within a bucket iterate in byte order.
type Backend interface {
	// Bucket operations
	CreateBucket(name []byte) error
	BucketExists(name []byte) (bool, error)

	// KV operations within buckets
	Put(bucket, key, value []byte) error
	Get(bucket, key []byte) ([]byte, error)

	// Iteration
	ForEach(bucket []byte, fn func(k, v []byte) error) error

	// Batch applies several puts atomically, creating the bucket if needed
	Batch(bucket []byte, entries map[string][]byte) error

	// Lifecycle
	Close() error
}
