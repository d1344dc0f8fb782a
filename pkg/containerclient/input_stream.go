package containerclient

import (
	"context"
	"fmt"
	"io"

	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/types"
)

// ChunkInputStream resolves a key's chunk manifest on open and serves
// reads by fetching one chunk at a time from the pipeline. Restartable only before the first read.
type ChunkInputStream struct {
	client        *Client
	containerName string
	blockKey      string

	opened  bool
	chunks  []types.ChunkInfo
	total   int64
	idx     int
	current []byte
	read    int64
}

// NewChunkInputStream constructs an unopened read stream; call Open
// before the first Read.
func NewChunkInputStream(client *Client, containerName, blockKey string) *ChunkInputStream {
	return &ChunkInputStream{client: client, containerName: containerName, blockKey: blockKey}
}

// Open issues getKey to fetch the chunk manifest.
func (s *ChunkInputStream) Open() error {
	if s.opened {
		return fmt.Errorf("containerclient: stream already opened")
	}

	result, err := s.client.SendCommand("getKey", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		return s.client.RPC().GetKey(ctx, &rpc.GetKeyRequest{ContainerName: s.containerName, BlockKey: s.blockKey})
	})
	if err != nil {
		return fmt.Errorf("containerclient: getKey: %w", err)
	}
	resp := result.(*rpc.GetKeyResponse)
	if resp.ErrorCode != rpc.ScmSuccess {
		return fmt.Errorf("containerclient: getKey: %s", resp.ErrorCode)
	}

	s.chunks = resp.KeyData.Chunks
	for _, c := range s.chunks {
		s.total += c.Len
	}
	s.opened = true
	return nil
}

// Read fills p, fetching further chunks as the cursor advances past
// the currently buffered one. Returns io.EOF once the sum of chunk
// lengths has been read.
func (s *ChunkInputStream) Read(p []byte) (int, error) {
	if !s.opened {
		return 0, fmt.Errorf("containerclient: stream not opened")
	}

	n := 0
	for len(p) > 0 {
		if len(s.current) == 0 {
			if s.idx >= len(s.chunks) {
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}
			data, err := s.fetchChunk(s.chunks[s.idx])
			if err != nil {
				return n, err
			}
			s.current = data
			s.idx++
		}
		copied := copy(p, s.current)
		s.current = s.current[copied:]
		s.read += int64(copied)
		n += copied
		p = p[copied:]
	}
	return n, nil
}

func (s *ChunkInputStream) fetchChunk(chunk types.ChunkInfo) ([]byte, error) {
	result, err := s.client.SendCommand("readChunk", func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		return s.client.RPC().ReadChunk(ctx, &rpc.ReadChunkRequest{
			ContainerName: s.containerName,
			BlockKey:      s.blockKey,
			Chunk:         chunk,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("containerclient: readChunk: %w", err)
	}
	resp := result.(*rpc.ReadChunkResponse)
	if resp.ErrorCode != rpc.ScmSuccess {
		return nil, fmt.Errorf("containerclient: readChunk: %s", resp.ErrorCode)
	}
	return resp.Data, nil
}

// Len returns the total byte length of the key, valid once Open has
// succeeded.
func (s *ChunkInputStream) Len() int64 { return s.total }
