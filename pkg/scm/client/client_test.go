package client

import (
	"context"
	"net"
	"testing"

	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// fakeSCM implements both rpc.ScmLocationServer and
// rpc.ScmDatanodeServer in memory, so the client can be exercised
// without a real SCM or mTLS certificates.
type fakeSCM struct {
	rpc.ScmLocationServer
	rpc.ScmDatanodeServer
}

func (f *fakeSCM) AllocateScmBlock(_ context.Context, req *rpc.AllocateScmBlockRequest) (*rpc.AllocateScmBlockResponse, error) {
	return &rpc.AllocateScmBlockResponse{
		Block: &types.AllocatedBlock{
			BlockKey:        "1:abc",
			Pipeline:        &types.Pipeline{ContainerName: "c1", Members: []string{"d1"}},
			CreateContainer: true,
		},
		ErrorCode: rpc.ScmSuccess,
	}, nil
}

func (f *fakeSCM) GetVersion(_ context.Context, req *rpc.GetVersionRequest) (*rpc.GetVersionResponse, error) {
	return &rpc.GetVersionResponse{Version: 1, ClusterID: "cluster-1"}, nil
}

func (f *fakeSCM) Register(_ context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	return &rpc.RegisterResponse{
		DatanodeUUID: "dn-1",
		ClusterID:    "cluster-1",
		ErrorCode:    rpc.ScmSuccess,
	}, nil
}

func (f *fakeSCM) SendHeartbeat(_ context.Context, req *rpc.SendHeartbeatRequest) (*rpc.SendHeartbeatResponse, error) {
	return &rpc.SendHeartbeatResponse{
		Commands:  []types.SCMCommand{types.NewDeleteBlocksCommand(nil)},
		ErrorCode: rpc.ScmSuccess,
	}, nil
}

func dialFake(t *testing.T, srv *fakeSCM) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	gs.RegisterService(&rpc.ScmLocationServiceDesc, srv)
	gs.RegisterService(&rpc.ScmDatanodeServiceDesc, srv)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return NewFromConn(conn)
}

func TestClientAllocateBlock(t *testing.T) {
	c := dialFake(t, &fakeSCM{})

	block, err := c.AllocateBlock(types.ReplicationRatis, types.FactorThree, 4096)
	require.NoError(t, err)
	require.Equal(t, "1:abc", block.BlockKey)
	require.True(t, block.CreateContainer)
}

func TestClientDatanodeProtocol(t *testing.T) {
	c := dialFake(t, &fakeSCM{})
	ctx := context.Background()

	version, clusterID, err := c.GetVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(1), version)
	require.Equal(t, "cluster-1", clusterID)

	details := &types.Datanode{ClusterID: "cluster-1"}
	resp, err := c.Register(ctx, details, []string{"container-1"})
	require.NoError(t, err)
	require.Equal(t, "dn-1", resp.UUID)

	cmds, err := c.SendHeartbeat(ctx, "dn-1", types.NodeStat{Capacity: 100})
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, types.CommandDeleteBlocks, cmds[0].Type)
}
