package datanode

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/types"
)

func newTestStorage(t *testing.T) (*ContainerStorage, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewContainerStorage(dir)
	require.NoError(t, err)
	return s, dir
}

func createContainer(t *testing.T, s *ContainerStorage, name string) {
	t.Helper()
	resp, err := s.CreateContainer(context.Background(), &rpc.CreateContainerRequest{ContainerName: name})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, resp.ErrorCode)
}

func TestCreateContainerLaysOutDirectories(t *testing.T) {
	s, dir := newTestStorage(t)
	createContainer(t, s, "c1")

	assert.DirExists(t, filepath.Join(dir, "c1", "chunks"))
	assert.DirExists(t, filepath.Join(dir, "c1", "keys"))

	resp, err := s.ReadContainer(context.Background(), &rpc.ReadContainerRequest{ContainerName: "c1"})
	require.NoError(t, err)
	assert.Equal(t, rpc.ScmSuccess, resp.ErrorCode)
	assert.Equal(t, types.ContainerOpen, resp.State)
	assert.Zero(t, resp.UsedBytes)
}

func TestReadContainerNotFound(t *testing.T) {
	s, _ := newTestStorage(t)

	resp, err := s.ReadContainer(context.Background(), &rpc.ReadContainerRequest{ContainerName: "nope"})
	require.NoError(t, err)
	assert.Equal(t, rpc.ScmContainerNotFound, resp.ErrorCode)
}

func TestWriteChunkThenReadChunk(t *testing.T) {
	s, _ := newTestStorage(t)
	createContainer(t, s, "c1")

	data := []byte("hello chunk")
	chunk := types.ChunkInfo{Name: "obj1_chunk_0", Len: int64(len(data))}

	wResp, err := s.WriteChunk(context.Background(), &rpc.WriteChunkRequest{
		ContainerName: "c1", BlockKey: "1:b1", Chunk: chunk, Data: data,
	})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, wResp.ErrorCode)

	rResp, err := s.ReadChunk(context.Background(), &rpc.ReadChunkRequest{
		ContainerName: "c1", BlockKey: "1:b1", Chunk: chunk,
	})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, rResp.ErrorCode)
	assert.Equal(t, data, rResp.Data)

	cResp, err := s.ReadContainer(context.Background(), &rpc.ReadContainerRequest{ContainerName: "c1"})
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), cResp.UsedBytes)
}

func TestWriteChunkUnknownContainer(t *testing.T) {
	s, _ := newTestStorage(t)

	resp, err := s.WriteChunk(context.Background(), &rpc.WriteChunkRequest{
		ContainerName: "nope", BlockKey: "1:b1", Chunk: types.ChunkInfo{Name: "x"}, Data: []byte("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, rpc.ScmContainerNotFound, resp.ErrorCode)
}

func TestReadChunkMissingReturnsBlockNotFound(t *testing.T) {
	s, _ := newTestStorage(t)
	createContainer(t, s, "c1")

	resp, err := s.ReadChunk(context.Background(), &rpc.ReadChunkRequest{
		ContainerName: "c1", BlockKey: "1:b1", Chunk: types.ChunkInfo{Name: "never-written"},
	})
	require.NoError(t, err)
	assert.Equal(t, rpc.ScmBlockNotFound, resp.ErrorCode)
}

func TestPutKeyThenGetKey(t *testing.T) {
	s, _ := newTestStorage(t)
	createContainer(t, s, "c1")

	keyData := types.KeyData{
		Name: "obj1",
		Chunks: []types.ChunkInfo{
			{Name: "obj1_chunk_0", Offset: 0, Len: 8, Checksum: "deadbeef"},
			{Name: "obj1_chunk_1", Offset: 8, Len: 4, Checksum: "cafef00d"},
		},
	}
	pResp, err := s.PutKey(context.Background(), &rpc.PutKeyRequest{
		ContainerName: "c1", BlockKey: "1:b1", KeyData: keyData,
	})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, pResp.ErrorCode)

	gResp, err := s.GetKey(context.Background(), &rpc.GetKeyRequest{ContainerName: "c1", BlockKey: "1:b1"})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, gResp.ErrorCode)
	assert.Equal(t, keyData, gResp.KeyData)
}

func TestGetKeyMissingReturnsBlockNotFound(t *testing.T) {
	s, _ := newTestStorage(t)
	createContainer(t, s, "c1")

	resp, err := s.GetKey(context.Background(), &rpc.GetKeyRequest{ContainerName: "c1", BlockKey: "1:nope"})
	require.NoError(t, err)
	assert.Equal(t, rpc.ScmBlockNotFound, resp.ErrorCode)
}

func TestPutSmallFileThenGetSmallFile(t *testing.T) {
	s, _ := newTestStorage(t)
	createContainer(t, s, "c1")

	data := []byte("tiny")
	chunk := types.ChunkInfo{Name: "obj2_chunk_0", Len: int64(len(data))}
	keyData := types.KeyData{Name: "obj2", Chunks: []types.ChunkInfo{chunk}}

	pResp, err := s.PutSmallFile(context.Background(), &rpc.PutSmallFileRequest{
		ContainerName: "c1", BlockKey: "1:b2", KeyData: keyData, Chunk: chunk, Data: data,
	})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, pResp.ErrorCode)

	gResp, err := s.GetSmallFile(context.Background(), &rpc.GetSmallFileRequest{ContainerName: "c1", BlockKey: "1:b2"})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, gResp.ErrorCode)
	assert.Equal(t, data, gResp.Data)
	assert.Equal(t, keyData, gResp.KeyData)
}

func TestDeleteContainerIsIdempotent(t *testing.T) {
	s, dir := newTestStorage(t)
	createContainer(t, s, "c1")

	resp, err := s.DeleteContainer(context.Background(), &rpc.DeleteContainerDataRequest{ContainerName: "c1"})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, resp.ErrorCode)
	assert.NoDirExists(t, filepath.Join(dir, "c1"))

	// Deleting an already-gone container is not an error.
	resp, err = s.DeleteContainer(context.Background(), &rpc.DeleteContainerDataRequest{ContainerName: "c1"})
	require.NoError(t, err)
	assert.Equal(t, rpc.ScmSuccess, resp.ErrorCode)
}

func TestDeleteBlocksRemovesManifestAndChunks(t *testing.T) {
	s, dir := newTestStorage(t)
	createContainer(t, s, "c1")

	data := []byte("payload")
	chunk := types.ChunkInfo{Name: "obj1_chunk_0", Len: int64(len(data))}
	_, err := s.WriteChunk(context.Background(), &rpc.WriteChunkRequest{
		ContainerName: "c1", BlockKey: "1:b1", Chunk: chunk, Data: data,
	})
	require.NoError(t, err)
	_, err = s.PutKey(context.Background(), &rpc.PutKeyRequest{
		ContainerName: "c1", BlockKey: "1:b1",
		KeyData: types.KeyData{Name: "obj1", Chunks: []types.ChunkInfo{chunk}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteBlocks("c1", []string{"1:b1"}))

	_, err = os.Stat(filepath.Join(dir, "c1", "chunks", "obj1_chunk_0"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "c1", "keys", "1:b1.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteBlocksIdempotentOnMissingBlock(t *testing.T) {
	s, _ := newTestStorage(t)
	createContainer(t, s, "c1")

	// A retried delete command sees no manifest and no chunks; that
	// must not be an error.
	require.NoError(t, s.DeleteBlocks("c1", []string{"1:never-existed"}))
	require.NoError(t, s.DeleteBlocks("c1", []string{"1:never-existed"}))
}

func TestListContainersNamesOnDiskReplicas(t *testing.T) {
	s, _ := newTestStorage(t)
	assert.Empty(t, s.ListContainers())

	createContainer(t, s, "c1")
	createContainer(t, s, "c2")
	assert.ElementsMatch(t, []string{"c1", "c2"}, s.ListContainers())
}

// A restarted datanode loses its in-memory container cache but not the
// data on disk; a fresh ContainerStorage over the same directory must
// rehydrate records lazily and keep serving.
func TestRestartRehydratesFromDisk(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewContainerStorage(dir)
	require.NoError(t, err)
	createContainer(t, s1, "c1")

	data := []byte("durable bytes")
	chunk := types.ChunkInfo{Name: "obj1_chunk_0", Len: int64(len(data))}
	_, err = s1.WriteChunk(context.Background(), &rpc.WriteChunkRequest{
		ContainerName: "c1", BlockKey: "1:b1", Chunk: chunk, Data: data,
	})
	require.NoError(t, err)
	_, err = s1.PutKey(context.Background(), &rpc.PutKeyRequest{
		ContainerName: "c1", BlockKey: "1:b1",
		KeyData: types.KeyData{Name: "obj1", Chunks: []types.ChunkInfo{chunk}},
	})
	require.NoError(t, err)

	s2, err := NewContainerStorage(dir)
	require.NoError(t, err)

	cResp, err := s2.ReadContainer(context.Background(), &rpc.ReadContainerRequest{ContainerName: "c1"})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, cResp.ErrorCode)
	assert.Equal(t, int64(len(data)), cResp.UsedBytes)

	gResp, err := s2.GetKey(context.Background(), &rpc.GetKeyRequest{ContainerName: "c1", BlockKey: "1:b1"})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, gResp.ErrorCode)

	rResp, err := s2.ReadChunk(context.Background(), &rpc.ReadChunkRequest{
		ContainerName: "c1", BlockKey: "1:b1", Chunk: chunk,
	})
	require.NoError(t, err)
	require.Equal(t, rpc.ScmSuccess, rResp.ErrorCode)
	assert.Equal(t, data, rResp.Data)

	assert.Equal(t, []string{"c1"}, s2.ListContainers())
}
