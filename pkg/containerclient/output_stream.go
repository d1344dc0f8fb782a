package containerclient

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/types"
)

// ErrStreamClosed is returned by Write/Close once a stream has already
// been closed.
var ErrStreamClosed = errors.New("containerclient: stream closed")

// rpcTimeout bounds one chunk RPC.
const rpcTimeout = 15 * time.Second

// ChunkOutputStream buffers writes to chunkSize before issuing a
// writeChunk, and on Close emits a putKey with the accumulated chunk
// manifest. A payload that never exceeds the
// small-file threshold is sent as a single putSmallFile RPC instead.
type ChunkOutputStream struct {
	client        *Client
	containerName string
	blockKey      string
	keyName       string
	chunkSize     int64
	smallFileMax  int64

	buf      []byte
	offset   int64
	chunkSeq int
	chunks   []types.ChunkInfo
	closed   bool
	anyFlush bool // true once the first writeChunk has gone out; disqualifies small-file
}

// NewChunkOutputStream opens a write stream for keyName, backed by the
// container data-plane connection in client.
func NewChunkOutputStream(client *Client, containerName, blockKey, keyName string, cfg Config) *ChunkOutputStream {
	return &ChunkOutputStream{
		client:        client,
		containerName: containerName,
		blockKey:      blockKey,
		keyName:       keyName,
		chunkSize:     cfg.chunkSize(),
		smallFileMax:  cfg.smallFileMax(),
	}
}

// Write buffers p, flushing full chunks to the pipeline as the buffer
// fills. Writes within a stream are FIFO; there is no
// cross-stream ordering guarantee.
func (s *ChunkOutputStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}

	total := len(p)
	for int64(len(s.buf))+int64(len(p)) >= s.chunkSize {
		need := int(s.chunkSize) - len(s.buf)
		s.buf = append(s.buf, p[:need]...)
		p = p[need:]
		if err := s.flush(s.buf); err != nil {
			return total - len(p), err
		}
		s.buf = s.buf[:0]
	}
	s.buf = append(s.buf, p...)
	return total, nil
}

func (s *ChunkOutputStream) flush(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	chunk := types.ChunkInfo{
		Name:     fmt.Sprintf("%s_chunk_%d", s.keyName, s.chunkSeq),
		Offset:   s.offset,
		Len:      int64(len(data)),
		Checksum: checksum(data),
	}

	result, err := s.client.SendCommand("writeChunk", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		return s.client.RPC().WriteChunk(ctx, &rpc.WriteChunkRequest{
			ContainerName: s.containerName,
			BlockKey:      s.blockKey,
			Chunk:         chunk,
			Data:          append([]byte(nil), data...),
		})
	})
	if err != nil {
		return fmt.Errorf("containerclient: writeChunk: %w", err)
	}
	if resp := result.(*rpc.WriteChunkResponse); resp.ErrorCode != rpc.ScmSuccess {
		return fmt.Errorf("containerclient: writeChunk: %s", resp.ErrorCode)
	}

	s.chunks = append(s.chunks, chunk)
	s.offset += chunk.Len
	s.chunkSeq++
	s.anyFlush = true
	return nil
}

// Close flushes any remaining buffered bytes and commits the key's
// chunk manifest. A payload that fits in one chunk and never exceeded
// the small-file threshold is committed with a single putSmallFile RPC
// instead of writeChunk+putKey.
func (s *ChunkOutputStream) Close() error {
	if s.closed {
		return ErrStreamClosed
	}
	s.closed = true

	if !s.anyFlush && int64(len(s.buf)) <= s.smallFileMax {
		return s.putSmallFile()
	}

	if err := s.flush(s.buf); err != nil {
		return err
	}
	return s.putKey()
}

func (s *ChunkOutputStream) putSmallFile() error {
	chunk := types.ChunkInfo{
		Name:     fmt.Sprintf("%s_chunk_0", s.keyName),
		Offset:   0,
		Len:      int64(len(s.buf)),
		Checksum: checksum(s.buf),
	}
	keyData := types.KeyData{Name: s.keyName, Chunks: []types.ChunkInfo{chunk}}

	result, err := s.client.SendCommand("putSmallFile", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		return s.client.RPC().PutSmallFile(ctx, &rpc.PutSmallFileRequest{
			ContainerName: s.containerName,
			BlockKey:      s.blockKey,
			KeyData:       keyData,
			Chunk:         chunk,
			Data:          append([]byte(nil), s.buf...),
		})
	})
	if err != nil {
		return fmt.Errorf("containerclient: putSmallFile: %w", err)
	}
	if resp := result.(*rpc.PutSmallFileResponse); resp.ErrorCode != rpc.ScmSuccess {
		return fmt.Errorf("containerclient: putSmallFile: %s", resp.ErrorCode)
	}
	return nil
}

func (s *ChunkOutputStream) putKey() error {
	result, err := s.client.SendCommand("putKey", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		return s.client.RPC().PutKey(ctx, &rpc.PutKeyRequest{
			ContainerName: s.containerName,
			BlockKey:      s.blockKey,
			KeyData:       types.KeyData{Name: s.keyName, Chunks: s.chunks},
		})
	})
	if err != nil {
		return fmt.Errorf("containerclient: putKey: %w", err)
	}
	if resp := result.(*rpc.PutKeyResponse); resp.ErrorCode != rpc.ScmSuccess {
		return fmt.Errorf("containerclient: putKey: %s", resp.ErrorCode)
	}
	return nil
}

func checksum(data []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(data))
}
