// Package storage implements the ordered, persistent, crash-consistent
// key-value store shared by the Key-Space Manager and the Storage
// Container Manager.
//
// Earlier iterations of this storage layer kept one bbolt bucket per
// entity type with typed accessor methods. Ozone needs a single
// ordered byte-keyed namespace instead, because KSM's lexicographic
// key encoding and SCM's prefix scans both depend on total key order
// across the whole store, not per-bucket order.
package storage

import "errors"

// Sentinel errors. IO failures are surfaced, never swallowed.
var (
	ErrNotFound    = errors.New("storage: key not found")
	ErrOpenFailed  = errors.New("storage: open failed")
	ErrIOFailed    = errors.New("storage: io failed")
	ErrCorrupted   = errors.New("storage: corrupted")
)

// KV is one key/value pair returned by an Iterator.
type KV struct {
	Key   []byte
	Value []byte
}

// Iterator walks a snapshot of the store taken at Seek time, in
// ascending lexicographic key order. It does not observe writes that
// begin after the snapshot was taken.
type Iterator interface {
	// Next advances the iterator and returns false when exhausted or
	// on error (check Err after Next returns false).
	Next() bool
	// KV returns the current key/value. Only valid after a Next that
	// returned true.
	KV() KV
	// Err returns any error encountered during iteration.
	Err() error
	// Close releases the snapshot. Always call it, even after
	// exhaustion.
	Close() error
}

// Batch accumulates mutations applied atomically by Store.Batch.
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Store is the metadata store contract.
type Store interface {
	// Put durably writes a single entry; it returns only once the
	// write is fsynced (invariant: Put is followed by a durable
	// response).
	Put(key, value []byte) error
	// Get returns ErrNotFound if key is absent.
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	// IsEmpty reports whether the store holds zero entries.
	IsEmpty() (bool, error)
	// Iterator opens a restartable, snapshot-consistent scan over keys
	// sharing prefix. A nil or empty prefix scans the whole keyspace.
	Iterator(prefix []byte) (Iterator, error)
	// Batch applies fn's Put/Delete calls as a single atomic
	// transaction.
	Batch(fn func(Batch) error) error
	// ReadLock acquires a shared read lock over the store and returns
	// the function that releases it. Acquire/release is explicit so
	// callers can hold the lock across multiple Store calls (needed
	// for KSM's atomic multi-key reads).
	ReadLock() func()
	// WriteLock acquires the exclusive write lock and returns the
	// function that releases it.
	WriteLock() func()
	Close() error
}
