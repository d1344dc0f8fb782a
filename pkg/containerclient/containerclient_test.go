package containerclient

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/types"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// fakeDatanode is an in-memory ContainerServer backing chunk/key data
// by block key, enough to exercise the write/read round trip without a
// real datanode.
type fakeDatanode struct {
	mu     sync.Mutex
	chunks map[string][]byte // containerName+blockKey+chunkName -> data
	keys   map[string]types.KeyData
}

func newFakeDatanode() *fakeDatanode {
	return &fakeDatanode{chunks: make(map[string][]byte), keys: make(map[string]types.KeyData)}
}

func chunkID(container, block, chunk string) string { return container + "/" + block + "/" + chunk }
func keyID(container, block string) string          { return container + "/" + block }

func (f *fakeDatanode) CreateContainer(context.Context, *rpc.CreateContainerRequest) (*rpc.CreateContainerResponse, error) {
	return &rpc.CreateContainerResponse{ErrorCode: rpc.ScmSuccess}, nil
}

func (f *fakeDatanode) ReadContainer(context.Context, *rpc.ReadContainerRequest) (*rpc.ReadContainerResponse, error) {
	return &rpc.ReadContainerResponse{ErrorCode: rpc.ScmSuccess}, nil
}

func (f *fakeDatanode) DeleteContainer(context.Context, *rpc.DeleteContainerDataRequest) (*rpc.DeleteContainerDataResponse, error) {
	return &rpc.DeleteContainerDataResponse{ErrorCode: rpc.ScmSuccess}, nil
}

func (f *fakeDatanode) WriteChunk(_ context.Context, req *rpc.WriteChunkRequest) (*rpc.WriteChunkResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[chunkID(req.ContainerName, req.BlockKey, req.Chunk.Name)] = append([]byte(nil), req.Data...)
	return &rpc.WriteChunkResponse{ErrorCode: rpc.ScmSuccess}, nil
}

func (f *fakeDatanode) ReadChunk(_ context.Context, req *rpc.ReadChunkRequest) (*rpc.ReadChunkResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.chunks[chunkID(req.ContainerName, req.BlockKey, req.Chunk.Name)]
	if !ok {
		return &rpc.ReadChunkResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}
	return &rpc.ReadChunkResponse{Data: data, ErrorCode: rpc.ScmSuccess}, nil
}

func (f *fakeDatanode) PutKey(_ context.Context, req *rpc.PutKeyRequest) (*rpc.PutKeyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[keyID(req.ContainerName, req.BlockKey)] = req.KeyData
	return &rpc.PutKeyResponse{ErrorCode: rpc.ScmSuccess}, nil
}

func (f *fakeDatanode) GetKey(_ context.Context, req *rpc.GetKeyRequest) (*rpc.GetKeyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kd, ok := f.keys[keyID(req.ContainerName, req.BlockKey)]
	if !ok {
		return &rpc.GetKeyResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}
	return &rpc.GetKeyResponse{KeyData: kd, ErrorCode: rpc.ScmSuccess}, nil
}

func (f *fakeDatanode) PutSmallFile(_ context.Context, req *rpc.PutSmallFileRequest) (*rpc.PutSmallFileResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[chunkID(req.ContainerName, req.BlockKey, req.Chunk.Name)] = append([]byte(nil), req.Data...)
	f.keys[keyID(req.ContainerName, req.BlockKey)] = req.KeyData
	return &rpc.PutSmallFileResponse{ErrorCode: rpc.ScmSuccess}, nil
}

func (f *fakeDatanode) GetSmallFile(_ context.Context, req *rpc.GetSmallFileRequest) (*rpc.GetSmallFileResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kd, ok := f.keys[keyID(req.ContainerName, req.BlockKey)]
	if !ok {
		return &rpc.GetSmallFileResponse{ErrorCode: rpc.ScmUnknownFailure}, nil
	}
	data := f.chunks[chunkID(req.ContainerName, req.BlockKey, kd.Chunks[0].Name)]
	return &rpc.GetSmallFileResponse{KeyData: kd, Data: data, ErrorCode: rpc.ScmSuccess}, nil
}

func dialFakeDatanode(t *testing.T, srv *fakeDatanode) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	gs.RegisterService(&rpc.ContainerServiceDesc, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return newTestClient(conn)
}

func TestChunkRoundTripMultiChunk(t *testing.T) {
	c := dialFakeDatanode(t, newFakeDatanode())

	cfg := Config{ChunkSize: 8, SmallFileMax: 4}
	out := NewChunkOutputStream(c, "c1", "c1:b1", "obj1", cfg)

	payload := bytes.Repeat([]byte("x"), 20)
	n, err := out.Write(payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)
	require.NoError(t, out.Close())

	in := NewChunkInputStream(c, "c1", "c1:b1")
	require.NoError(t, in.Open())
	require.Equal(t, int64(20), in.Len())

	got, err := io.ReadAll(in)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestChunkRoundTripSmallFile(t *testing.T) {
	c := dialFakeDatanode(t, newFakeDatanode())

	cfg := Config{ChunkSize: 1024, SmallFileMax: 1024}
	out := NewChunkOutputStream(c, "c1", "c1:b2", "obj2", cfg)
	_, err := out.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, out.Close())

	in := NewChunkInputStream(c, "c1", "c1:b2")
	require.NoError(t, in.Open())
	got, err := io.ReadAll(in)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestWriteAfterCloseFails(t *testing.T) {
	c := dialFakeDatanode(t, newFakeDatanode())
	out := NewChunkOutputStream(c, "c1", "c1:b3", "obj3", Config{})
	require.NoError(t, out.Close())

	_, err := out.Write([]byte("x"))
	require.ErrorIs(t, err, ErrStreamClosed)
}

func TestSendCommandAsyncDecrementsPending(t *testing.T) {
	m := metrics.NewContext("test")
	future := sendCommandAsync(m, "writeChunk", func() (interface{}, error) {
		return "ok", nil
	})
	result, err := future.Wait()
	require.NoError(t, err)
	require.Equal(t, "ok", result)

	var pending dto.Metric
	require.NoError(t, m.PendingAsyncOps.WithLabelValues("writeChunk").Write(&pending))
	require.Zero(t, pending.GetGauge().GetValue())
}
