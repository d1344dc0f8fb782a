package consensus

import (
	"bytes"
	"io"
)

// memorySnapshotSink is a minimal in-memory raft.SnapshotSink for
// exercising FSM.Snapshot/Persist/Restore without a real raft node.
type memorySnapshotSink struct {
	buf *bytes.Buffer
}

func newMemorySnapshotSink() *memorySnapshotSink {
	return &memorySnapshotSink{buf: &bytes.Buffer{}}
}

func (s *memorySnapshotSink) Write(p []byte) (int, error) { return s.buf.Write(p) }
func (s *memorySnapshotSink) Close() error                { return nil }
func (s *memorySnapshotSink) ID() string                  { return "test-snapshot" }
func (s *memorySnapshotSink) Cancel() error                { return nil }

func (s *memorySnapshotSink) reader() io.ReadCloser {
	return io.NopCloser(bytes.NewReader(s.buf.Bytes()))
}
