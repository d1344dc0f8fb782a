package consensus

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/cuemby/ozone/pkg/storage"
	"github.com/hashicorp/raft"
)

// Command is the wire shape of one Raft log entry: an opcode plus its
// JSON-encoded payload, kept deliberately generic (a string opcode
// rather than a closed Go type) so one FSM implementation serves both
// SCM's and KSM's independent opcode sets.
type Command struct {
	Op   string          `json:"op"`
	Data json.RawMessage `json:"data"`
}

func (c Command) marshal() ([]byte, error) {
	return json.Marshal(c)
}

// NewCommand builds a Command from an opcode and a payload that will
// be JSON-marshaled into Data.
func NewCommand(op string, payload interface{}) (Command, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Command{}, fmt.Errorf("failed to marshal command payload: %w", err)
	}
	return Command{Op: op, Data: data}, nil
}

// Applier executes one committed Command against the replicated
// store. It returns whatever value the caller of Node.Apply should
// see, or an error value (which Node.Apply surfaces as an error
// rather than a result).
type Applier interface {
	Apply(store storage.Store, cmd Command) interface{}
}

// FSM adapts an Applier to raft.FSM. Because every domain mutates the
// same storage.Store abstraction, Snapshot and Restore are implemented
// once, generically, as a full key/value dump and replay; neither SCM
// nor KSM needs its own snapshot struct.
type FSM struct {
	store   storage.Store
	applier Applier
}

// NewFSM builds an FSM delegating command application to applier and
// storing state in store.
func NewFSM(store storage.Store, applier Applier) *FSM {
	return &FSM{store: store, applier: applier}
}

// Apply implements raft.FSM.
func (f *FSM) Apply(log *raft.Log) interface{} {
	var cmd Command
	if err := json.Unmarshal(log.Data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}
	return f.applier.Apply(f.store, cmd)
}

// snapshotEntry is one key/value pair in a full-store snapshot.
type snapshotEntry struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// storeSnapshot implements raft.FSMSnapshot over a point-in-time dump
// of every key in the store.
type storeSnapshot struct {
	entries []snapshotEntry
}

// Snapshot implements raft.FSM. It walks the entire keyspace under
// the store's read lock so the dump is internally consistent.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	unlock := f.store.ReadLock()
	defer unlock()

	it, err := f.store.Iterator(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot iterator: %w", err)
	}
	defer it.Close()

	var entries []snapshotEntry
	for it.Next() {
		kv := it.KV()
		entries = append(entries, snapshotEntry{Key: kv.Key, Value: kv.Value})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to walk store for snapshot: %w", err)
	}
	return &storeSnapshot{entries: entries}, nil
}

// Persist implements raft.FSMSnapshot, writing the dump as JSON.
func (s *storeSnapshot) Persist(sink raft.SnapshotSink) error {
	enc := json.NewEncoder(sink)
	if err := enc.Encode(s.entries); err != nil {
		sink.Cancel()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return sink.Close()
}

// Release implements raft.FSMSnapshot.
func (s *storeSnapshot) Release() {}

// Restore implements raft.FSM. It clears nothing explicitly; it
// relies on the incoming dump being a full keyspace image written by
// a prior Snapshot and replays every pair under the store's write
// lock.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()

	var entries []snapshotEntry
	if err := json.NewDecoder(rc).Decode(&entries); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return f.store.Batch(func(b storage.Batch) error {
		for _, e := range entries {
			if err := b.Put(e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	})
}
