// Package client is the SCM-facing RPC client used by the datanode
// endpoint state machine (pkg/datanode) and by KSM's allocateKey path
// (pkg/ksm). It follows the same mTLS-dialing wrapper shape used
// elsewhere in this codebase for CLI client connections, here wrapping
// StorageContainerLocationProtocol and
// StorageContainerDatanodeProtocol for service-to-service use.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/security"
	"github.com/cuemby/ozone/pkg/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// defaultRPCTimeout is the default per-RPC deadline.
const defaultRPCTimeout = 15 * time.Second

// Client wraps one gRPC connection to SCM, exposing both the
// client-facing location protocol and the datanode-facing
// registration/heartbeat protocol.
type Client struct {
	conn     *grpc.ClientConn
	location rpc.ScmLocationClient
	datanode rpc.ScmDatanodeClient
	timeout  time.Duration
}

// Dial opens an mTLS connection to SCM at addr, loading the node
// certificate and CA from certDir (see pkg/security.GetCertDir).
func Dial(addr, certDir string) (*Client, error) {
	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("scm client: load certificate: %w", err)
	}
	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("scm client: load CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(caCert)

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{*cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	if err != nil {
		return nil, fmt.Errorf("scm client: dial %s: %w", addr, err)
	}
	return NewFromConn(conn), nil
}

// NewFromConn wraps an already-dialed connection, used directly by
// tests that don't want to exercise mTLS.
func NewFromConn(conn *grpc.ClientConn) *Client {
	return &Client{
		conn:     conn,
		location: rpc.NewScmLocationClient(conn),
		datanode: rpc.NewScmDatanodeClient(conn),
		timeout:  defaultRPCTimeout,
	}
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.timeout)
}

// --- StorageContainerLocationProtocol, for KSM's allocateKey path ---

// AllocateBlock calls SCM.allocateBlock.
func (c *Client) AllocateBlock(replType types.ReplicationType, factor types.ReplicationFactor, size int64) (*types.AllocatedBlock, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	resp, err := c.location.AllocateScmBlock(ctx, &rpc.AllocateScmBlockRequest{
		Size:              size,
		ReplicationType:   replType,
		ReplicationFactor: factor,
	})
	if err != nil {
		return nil, err
	}
	if resp.ErrorCode != rpc.ScmSuccess {
		return nil, fmt.Errorf("scm client: allocateBlock: %s", resp.ErrorCode)
	}
	return resp.Block, nil
}

// DeleteBlocks calls SCM.deleteBlocks, used by KSM's compensating
// delete on a failed allocateKey.
func (c *Client) DeleteBlocks(containerName string, blockKeys []string) ([]rpc.BlockDeleteResult, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	resp, err := c.location.DeleteScmBlocks(ctx, &rpc.DeleteScmBlocksRequest{
		ContainerName: containerName,
		BlockKeys:     blockKeys,
	})
	if err != nil {
		return nil, err
	}
	if resp.ErrorCode != rpc.ScmSuccess {
		return nil, fmt.Errorf("scm client: deleteBlocks: %s", resp.ErrorCode)
	}
	return resp.Results, nil
}

// GetBlockLocations calls SCM.getBlockLocations, resolving container
// names to their current pipelines.
func (c *Client) GetBlockLocations(containerNames []string) (map[string]*types.Pipeline, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	resp, err := c.location.GetScmBlockLocations(ctx, &rpc.GetScmBlockLocationsRequest{ContainerNames: containerNames})
	if err != nil {
		return nil, err
	}
	if resp.ErrorCode != rpc.ScmSuccess {
		return nil, fmt.Errorf("scm client: getBlockLocations: %s", resp.ErrorCode)
	}
	return resp.Locations, nil
}

// AllocateContainer calls SCM.allocateContainer, used by the
// `ozone scm container-create` CLI.
func (c *Client) AllocateContainer(name string, replType types.ReplicationType, factor types.ReplicationFactor) (*types.Pipeline, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	resp, err := c.location.AllocateContainer(ctx, &rpc.AllocateContainerRequest{
		Name:              name,
		ReplicationType:   replType,
		ReplicationFactor: factor,
	})
	if err != nil {
		return nil, err
	}
	if resp.ErrorCode != rpc.ScmSuccess {
		return nil, fmt.Errorf("scm client: allocateContainer: %s", resp.ErrorCode)
	}
	return resp.Pipeline, nil
}

// GetContainer calls SCM.getContainer.
func (c *Client) GetContainer(name string) (*types.Pipeline, error) {
	ctx, cancel := c.ctx()
	defer cancel()

	resp, err := c.location.GetContainer(ctx, &rpc.GetContainerRequest{Name: name})
	if err != nil {
		return nil, err
	}
	if resp.ErrorCode != rpc.ScmSuccess {
		return nil, fmt.Errorf("scm client: getContainer: %s", resp.ErrorCode)
	}
	return resp.Pipeline, nil
}

// --- StorageContainerDatanodeProtocol, implementing
// pkg/datanode.SCMClient for the endpoint state machine ---

// GetVersion negotiates the protocol version and returns the cluster
// ID this SCM serves, which the caller echoes back on Register.
func (c *Client) GetVersion(ctx context.Context) (int32, string, error) {
	resp, err := c.datanode.GetVersion(ctx, &rpc.GetVersionRequest{})
	if err != nil {
		return 0, "", err
	}
	return resp.Version, resp.ClusterID, nil
}

// Register admits details into SCM's registry, reporting the
// containers this node already holds on disk.
func (c *Client) Register(ctx context.Context, details *types.Datanode, containerReport []string) (*types.Datanode, error) {
	resp, err := c.datanode.Register(ctx, &rpc.RegisterRequest{DatanodeDetails: details, ContainerReport: containerReport})
	if err != nil {
		return nil, err
	}
	if resp.ErrorCode != "" && resp.ErrorCode != rpc.ScmSuccess {
		return nil, fmt.Errorf("scm client: register: %s", resp.ErrorCode)
	}
	return &types.Datanode{
		UUID:      resp.DatanodeUUID,
		ClusterID: resp.ClusterID,
		HostName:  resp.HostName,
		IPAddress: resp.IPAddress,
	}, nil
}

// SendHeartbeat reports stat and drains any queued SCMCommands
// returned in response.
func (c *Client) SendHeartbeat(ctx context.Context, uuid string, stat types.NodeStat) ([]types.SCMCommand, error) {
	resp, err := c.datanode.SendHeartbeat(ctx, &rpc.SendHeartbeatRequest{DatanodeUUID: uuid, Stat: stat})
	if err != nil {
		return nil, err
	}
	if resp.ErrorCode != "" && resp.ErrorCode != rpc.ScmSuccess {
		return nil, fmt.Errorf("scm client: sendHeartbeat: %s", resp.ErrorCode)
	}
	return resp.Commands, nil
}
