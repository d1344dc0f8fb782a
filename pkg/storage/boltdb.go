package storage

import (
	"fmt"
	"sync"

	"go.etcd.io/bbolt"
)

var bucketName = []byte("kv")

// BoltStore is the bbolt-backed MetadataStore. Keys are stored exactly
// as given, in bbolt's native byte-lexicographic order, inside a
// single bucket. An explicit sync.RWMutex sits above bbolt's own
// transaction locking so a caller can hold a logical read or write
// lock across several Store calls, which bbolt's per-call
// transactions alone cannot provide.
type BoltStore struct {
	db *bbolt.DB
	mu sync.RWMutex
}

// Open creates or opens a bbolt file at path and ensures the kv bucket
// exists.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Put(key, value []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return nil
}

func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return ErrNotFound
		}
		out = append(out, v...) // copy: v is only valid inside the tx
		return nil
	})
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return out, nil
}

func (s *BoltStore) Delete(key []byte) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return nil
}

func (s *BoltStore) IsEmpty() (bool, error) {
	empty := true
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		if k, _ := c.First(); k != nil {
			empty = false
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return empty, nil
}

// boltIterator holds its View transaction open from Iterator() until
// Close(), so every KV it returns belongs to one consistent snapshot
// taken at seek time.
type boltIterator struct {
	tx      *bbolt.Tx
	cursor  *bbolt.Cursor
	prefix  []byte
	started bool
	k, v    []byte
	err     error
}

func (it *boltIterator) Next() bool {
	if it.err != nil {
		return false
	}
	var k, v []byte
	if !it.started {
		it.started = true
		if len(it.prefix) == 0 {
			k, v = it.cursor.First()
		} else {
			k, v = it.cursor.Seek(it.prefix)
		}
	} else {
		k, v = it.cursor.Next()
	}
	if k == nil || (len(it.prefix) > 0 && !hasPrefix(k, it.prefix)) {
		it.k, it.v = nil, nil
		return false
	}
	it.k = append([]byte(nil), k...)
	it.v = append([]byte(nil), v...)
	return true
}

func (it *boltIterator) KV() KV {
	return KV{Key: it.k, Value: it.v}
}

func (it *boltIterator) Err() error {
	return it.err
}

func (it *boltIterator) Close() error {
	return it.tx.Rollback()
}

func hasPrefix(k, prefix []byte) bool {
	if len(k) < len(prefix) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (s *BoltStore) Iterator(prefix []byte) (Iterator, error) {
	tx, err := s.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return &boltIterator{
		tx:     tx,
		cursor: tx.Bucket(bucketName).Cursor(),
		prefix: prefix,
	}, nil
}

// boltBatch collects Put/Delete calls issued inside a Batch callback
// and applies them against the live bbolt bucket so later reads in the
// same callback observe earlier writes.
type boltBatch struct {
	bucket *bbolt.Bucket
}

func (b *boltBatch) Put(key, value []byte) error {
	return b.bucket.Put(key, value)
}

func (b *boltBatch) Delete(key []byte) error {
	return b.bucket.Delete(key)
}

func (s *BoltStore) Batch(fn func(Batch) error) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return fn(&boltBatch{bucket: tx.Bucket(bucketName)})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return nil
}

func (s *BoltStore) ReadLock() func() {
	s.mu.RLock()
	return s.mu.RUnlock
}

func (s *BoltStore) WriteLock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *BoltStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailed, err)
	}
	return nil
}
