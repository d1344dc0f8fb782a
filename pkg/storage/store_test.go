package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "meta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	v, err := s.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}

func TestGetNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get([]byte("missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	require.NoError(t, s.Delete([]byte("a")))
	_, err := s.Get([]byte("a"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIsEmpty(t *testing.T) {
	s := openTestStore(t)

	empty, err := s.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, s.Put([]byte("a"), []byte("1")))
	empty, err = s.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestIteratorOrderingAndPrefix(t *testing.T) {
	s := openTestStore(t)

	entries := map[string]string{
		"/volumes/alice":             "v1",
		"/volumes/bob":               "v2",
		"/containers/000001":         "c1",
		"/containers/000002":         "c2",
		"/buckets/alice/photos":      "b1",
	}
	for k, v := range entries {
		require.NoError(t, s.Put([]byte(k), []byte(v)))
	}

	it, err := s.Iterator([]byte("/containers/"))
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.KV().Key))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"/containers/000001", "/containers/000002"}, keys)
}

func TestIteratorIsSnapshotAtSeekTime(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("/k/1"), []byte("a")))

	it, err := s.Iterator([]byte("/k/"))
	require.NoError(t, err)
	defer it.Close()

	// A write that starts after Iterator() returned must not be
	// visible to this iterator.
	require.NoError(t, s.Put([]byte("/k/2"), []byte("b")))

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.KV().Key))
	}
	assert.Equal(t, []string{"/k/1"}, keys)
}

func TestBatchIsAtomic(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put([]byte("/x"), []byte("old")))

	err := s.Batch(func(b Batch) error {
		require.NoError(t, b.Put([]byte("/x"), []byte("new")))
		require.NoError(t, b.Put([]byte("/y"), []byte("new")))
		return nil
	})
	require.NoError(t, err)

	v, err := s.Get([]byte("/x"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)

	v, err = s.Get([]byte("/y"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestReadWriteLockRoundTrip(t *testing.T) {
	s := openTestStore(t)

	unlock := s.WriteLock()
	require.NoError(t, s.Put([]byte("/a"), []byte("1")))
	unlock()

	runlock := s.ReadLock()
	v, err := s.Get([]byte("/a"))
	runlock()
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)
}
