package datanode

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/types"
)

// DefaultContainerDataPath is the base directory a datanode stores its
// container replicas under when none is configured.
const DefaultContainerDataPath = "/var/lib/ozone/datanode/containers"

// containerRecord is ContainerStorage's in-memory view of one
// container replica's lifecycle state and space usage.
type containerRecord struct {
	State     types.ContainerState
	UsedBytes int64
}

// ContainerStorage is the datanode-side implementation of the
// container data-plane protocol: one container maps to one directory
// holding a chunks/ subdirectory of raw chunk files and a keys/
// subdirectory of JSON chunk manifests, the same layout idea as a
// volume driver mapping one volume to one directory, but with two
// further subdirectories instead of a single flat tree.
type ContainerStorage struct {
	basePath string

	mu         sync.RWMutex
	containers map[string]*containerRecord
}

// NewContainerStorage creates the base directory (if it doesn't exist)
// and returns a ContainerStorage rooted there.
func NewContainerStorage(basePath string) (*ContainerStorage, error) {
	if basePath == "" {
		basePath = DefaultContainerDataPath
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("datanode: failed to create container data directory: %w", err)
	}
	return &ContainerStorage{
		basePath:   basePath,
		containers: make(map[string]*containerRecord),
	}, nil
}

func (s *ContainerStorage) containerDir(name string) string {
	return filepath.Join(s.basePath, name)
}

func (s *ContainerStorage) chunksDir(name string) string {
	return filepath.Join(s.containerDir(name), "chunks")
}

func (s *ContainerStorage) keysDir(name string) string {
	return filepath.Join(s.containerDir(name), "keys")
}

func (s *ContainerStorage) chunkPath(containerName, chunkName string) string {
	return filepath.Join(s.chunksDir(containerName), chunkName)
}

func (s *ContainerStorage) keyPath(containerName, blockKey string) string {
	return filepath.Join(s.keysDir(containerName), blockKey+".json")
}

// CreateContainer implements rpc.ContainerServer.
func (s *ContainerStorage) CreateContainer(_ context.Context, req *rpc.CreateContainerRequest) (*rpc.CreateContainerResponse, error) {
	if err := os.MkdirAll(s.chunksDir(req.ContainerName), 0755); err != nil {
		return &rpc.CreateContainerResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}
	if err := os.MkdirAll(s.keysDir(req.ContainerName), 0755); err != nil {
		return &rpc.CreateContainerResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}

	s.mu.Lock()
	s.containers[req.ContainerName] = &containerRecord{State: types.ContainerOpen}
	s.mu.Unlock()
	return &rpc.CreateContainerResponse{ErrorCode: rpc.ScmSuccess}, nil
}

// ReadContainer implements rpc.ContainerServer, reporting this
// datanode's local view of a container's state and usage.
func (s *ContainerStorage) ReadContainer(_ context.Context, req *rpc.ReadContainerRequest) (*rpc.ReadContainerResponse, error) {
	rec, ok := s.lookup(req.ContainerName)
	if !ok {
		return &rpc.ReadContainerResponse{ErrorCode: rpc.ScmContainerNotFound}, nil
	}
	return &rpc.ReadContainerResponse{
		ContainerName: req.ContainerName,
		UsedBytes:     rec.UsedBytes,
		State:         rec.State,
		ErrorCode:     rpc.ScmSuccess,
	}, nil
}

// DeleteContainer implements rpc.ContainerServer. Idempotent: deleting
// an already-gone container is not an error.
func (s *ContainerStorage) DeleteContainer(_ context.Context, req *rpc.DeleteContainerDataRequest) (*rpc.DeleteContainerDataResponse, error) {
	if err := os.RemoveAll(s.containerDir(req.ContainerName)); err != nil {
		return &rpc.DeleteContainerDataResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}
	s.mu.Lock()
	delete(s.containers, req.ContainerName)
	s.mu.Unlock()
	return &rpc.DeleteContainerDataResponse{ErrorCode: rpc.ScmSuccess}, nil
}

// lookup resolves a container's in-memory record, rehydrating it from
// disk the first time it's touched since process start (covers a
// datanode restart: SCM still thinks the container exists, and the
// data is still on disk, but the in-memory cache was lost).
func (s *ContainerStorage) lookup(containerName string) (*containerRecord, bool) {
	s.mu.RLock()
	rec, ok := s.containers[containerName]
	s.mu.RUnlock()
	if ok {
		return rec, true
	}

	info, err := os.Stat(s.containerDir(containerName))
	if err != nil || !info.IsDir() {
		return nil, false
	}
	rec = &containerRecord{State: types.ContainerOpen, UsedBytes: s.diskUsage(containerName)}
	s.mu.Lock()
	s.containers[containerName] = rec
	s.mu.Unlock()
	return rec, true
}

// ListContainers names every container replica present on disk, used
// as the container report sent to SCM on registration.
func (s *ContainerStorage) ListContainers() []string {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

func (s *ContainerStorage) diskUsage(containerName string) int64 {
	entries, err := os.ReadDir(s.chunksDir(containerName))
	if err != nil {
		return 0
	}
	var total int64
	for _, e := range entries {
		if info, err := e.Info(); err == nil {
			total += info.Size()
		}
	}
	return total
}

// WriteChunk implements rpc.ContainerServer.
func (s *ContainerStorage) WriteChunk(_ context.Context, req *rpc.WriteChunkRequest) (*rpc.WriteChunkResponse, error) {
	if _, ok := s.lookup(req.ContainerName); !ok {
		return &rpc.WriteChunkResponse{ErrorCode: rpc.ScmContainerNotFound}, nil
	}
	if err := os.WriteFile(s.chunkPath(req.ContainerName, req.Chunk.Name), req.Data, 0644); err != nil {
		return &rpc.WriteChunkResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}

	s.mu.Lock()
	s.containers[req.ContainerName].UsedBytes += int64(len(req.Data))
	s.mu.Unlock()
	return &rpc.WriteChunkResponse{ErrorCode: rpc.ScmSuccess}, nil
}

// ReadChunk implements rpc.ContainerServer.
func (s *ContainerStorage) ReadChunk(_ context.Context, req *rpc.ReadChunkRequest) (*rpc.ReadChunkResponse, error) {
	if _, ok := s.lookup(req.ContainerName); !ok {
		return &rpc.ReadChunkResponse{ErrorCode: rpc.ScmContainerNotFound}, nil
	}
	data, err := os.ReadFile(s.chunkPath(req.ContainerName, req.Chunk.Name))
	if err != nil {
		return &rpc.ReadChunkResponse{ErrorCode: rpc.ScmBlockNotFound}, nil
	}
	return &rpc.ReadChunkResponse{Data: data, ErrorCode: rpc.ScmSuccess}, nil
}

// PutKey implements rpc.ContainerServer, committing a key's chunk
// manifest. It does not check that the chunks the manifest references
// were written.
func (s *ContainerStorage) PutKey(_ context.Context, req *rpc.PutKeyRequest) (*rpc.PutKeyResponse, error) {
	if _, ok := s.lookup(req.ContainerName); !ok {
		return &rpc.PutKeyResponse{ErrorCode: rpc.ScmContainerNotFound}, nil
	}
	if err := s.writeKeyData(req.ContainerName, req.BlockKey, req.KeyData); err != nil {
		return &rpc.PutKeyResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}
	return &rpc.PutKeyResponse{ErrorCode: rpc.ScmSuccess}, nil
}

// GetKey implements rpc.ContainerServer.
func (s *ContainerStorage) GetKey(_ context.Context, req *rpc.GetKeyRequest) (*rpc.GetKeyResponse, error) {
	keyData, err := s.readKeyData(req.ContainerName, req.BlockKey)
	if err != nil {
		return &rpc.GetKeyResponse{ErrorCode: rpc.ScmBlockNotFound}, nil
	}
	return &rpc.GetKeyResponse{KeyData: keyData, ErrorCode: rpc.ScmSuccess}, nil
}

// PutSmallFile implements rpc.ContainerServer, writing the chunk and
// committing its manifest in one round trip for payloads too small to
// justify a separate writeChunk/putKey pair.
func (s *ContainerStorage) PutSmallFile(_ context.Context, req *rpc.PutSmallFileRequest) (*rpc.PutSmallFileResponse, error) {
	if _, ok := s.lookup(req.ContainerName); !ok {
		return &rpc.PutSmallFileResponse{ErrorCode: rpc.ScmContainerNotFound}, nil
	}
	if err := os.WriteFile(s.chunkPath(req.ContainerName, req.Chunk.Name), req.Data, 0644); err != nil {
		return &rpc.PutSmallFileResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}
	s.mu.Lock()
	s.containers[req.ContainerName].UsedBytes += int64(len(req.Data))
	s.mu.Unlock()

	if err := s.writeKeyData(req.ContainerName, req.BlockKey, req.KeyData); err != nil {
		return &rpc.PutSmallFileResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}
	return &rpc.PutSmallFileResponse{ErrorCode: rpc.ScmSuccess}, nil
}

// GetSmallFile implements rpc.ContainerServer, returning a key's
// manifest and its single chunk's data together.
func (s *ContainerStorage) GetSmallFile(_ context.Context, req *rpc.GetSmallFileRequest) (*rpc.GetSmallFileResponse, error) {
	keyData, err := s.readKeyData(req.ContainerName, req.BlockKey)
	if err != nil || len(keyData.Chunks) == 0 {
		return &rpc.GetSmallFileResponse{ErrorCode: rpc.ScmBlockNotFound}, nil
	}
	data, err := os.ReadFile(s.chunkPath(req.ContainerName, keyData.Chunks[0].Name))
	if err != nil {
		return &rpc.GetSmallFileResponse{ErrorCode: rpc.ScmBlockNotFound}, nil
	}
	return &rpc.GetSmallFileResponse{KeyData: keyData, Data: data, ErrorCode: rpc.ScmSuccess}, nil
}

func (s *ContainerStorage) writeKeyData(containerName, blockKey string, keyData types.KeyData) error {
	raw, err := json.Marshal(keyData)
	if err != nil {
		return err
	}
	return os.WriteFile(s.keyPath(containerName, blockKey), raw, 0644)
}

func (s *ContainerStorage) readKeyData(containerName, blockKey string) (types.KeyData, error) {
	raw, err := os.ReadFile(s.keyPath(containerName, blockKey))
	if err != nil {
		return types.KeyData{}, err
	}
	var keyData types.KeyData
	if err := json.Unmarshal(raw, &keyData); err != nil {
		return types.KeyData{}, err
	}
	return keyData, nil
}

// DeleteBlocks implements datanode.BlockDeleter, removing a block's
// manifest and every chunk file its manifest names. Missing files are
// not an error: a retried delete command must stay idempotent.
func (s *ContainerStorage) DeleteBlocks(containerName string, blockKeys []string) error {
	for _, blockKey := range blockKeys {
		if keyData, err := s.readKeyData(containerName, blockKey); err == nil {
			for _, chunk := range keyData.Chunks {
				_ = os.Remove(s.chunkPath(containerName, chunk.Name))
			}
		}
		if err := os.Remove(s.keyPath(containerName, blockKey)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("datanode: failed to delete block %q: %w", blockKey, err)
		}
	}
	return nil
}

var (
	_ rpc.ContainerServer = (*ContainerStorage)(nil)
	_ BlockDeleter        = (*ContainerStorage)(nil)
)
