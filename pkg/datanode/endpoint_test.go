package datanode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/ozone/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSCMClient struct {
	mu sync.Mutex

	getVersionErr error
	registerErr   error
	heartbeatErr  error

	registerUUID  string
	heartbeatCmds []types.SCMCommand

	getVersionCalls int
	registerCalls   int
	heartbeatCalls  int
}

func (f *fakeSCMClient) GetVersion(ctx context.Context) (int32, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getVersionCalls++
	return 1, "cluster1", f.getVersionErr
}

func (f *fakeSCMClient) Register(ctx context.Context, details *types.Datanode, containerReport []string) (*types.Datanode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerCalls++
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	uuid := f.registerUUID
	if uuid == "" {
		uuid = details.UUID
	}
	return &types.Datanode{UUID: uuid, ClusterID: "cluster1"}, nil
}

func (f *fakeSCMClient) SendHeartbeat(ctx context.Context, uuid string, stat types.NodeStat) ([]types.SCMCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heartbeatCalls++
	if f.heartbeatErr != nil {
		return nil, f.heartbeatErr
	}
	return f.heartbeatCmds, nil
}

func newTestEndpoint(client SCMClient) *Endpoint {
	return NewEndpoint(Config{
		Client:          client,
		Details:         &types.Datanode{HostName: "dn1"},
		HeartbeatPeriod: 20 * time.Millisecond,
		MaxMissed:       2,
		QueueCapacity:   8,
	})
}

func TestEndpointProgressesThroughStates(t *testing.T) {
	client := &fakeSCMClient{registerUUID: "dn-uuid"}
	ep := newTestEndpoint(client)

	ep.tick() // GETVERSION -> REGISTER
	assert.Equal(t, StateRegister, ep.State())

	ep.tick() // REGISTER -> HEARTBEAT
	assert.Equal(t, StateHeartbeat, ep.State())
	assert.Equal(t, "dn-uuid", ep.details.UUID)

	ep.tick() // HEARTBEAT -> HEARTBEAT
	assert.Equal(t, StateHeartbeat, ep.State())
}

func TestEndpointStaysInGetVersionOnFailure(t *testing.T) {
	client := &fakeSCMClient{getVersionErr: errors.New("boom")}
	ep := newTestEndpoint(client)

	ep.tick()
	assert.Equal(t, StateGetVersion, ep.State())
	assert.Equal(t, 1, client.getVersionCalls)
}

func TestEndpointEscalatesToRegisterAfterMaxMissedHeartbeats(t *testing.T) {
	client := &fakeSCMClient{registerUUID: "dn-uuid", heartbeatErr: errors.New("io failure")}
	ep := newTestEndpoint(client)

	ep.tick() // GETVERSION -> REGISTER
	ep.tick() // REGISTER -> HEARTBEAT
	require.Equal(t, StateHeartbeat, ep.State())

	ep.tick() // missed 1
	assert.Equal(t, StateHeartbeat, ep.State())
	ep.tick() // missed 2 == MaxMissed -> REGISTER
	assert.Equal(t, StateRegister, ep.State())
}

func TestEndpointRegisterMismatchedUUIDShutsDown(t *testing.T) {
	client := &fakeSCMClient{registerUUID: "different-uuid"}
	ep := newTestEndpoint(client)
	ep.details.UUID = "expected-uuid"
	ep.state = StateRegister

	ep.tick()
	assert.Equal(t, StateShutdown, ep.State())
}

func TestEndpointDrainsHeartbeatCommandsToProcessor(t *testing.T) {
	deleteCmd := types.NewDeleteBlocksCommand([]types.DeletedBlocksTransaction{
		{ContainerName: "c1", BlockKeys: []string{"b1", "b2"}},
	})
	client := &fakeSCMClient{registerUUID: "dn-uuid", heartbeatCmds: []types.SCMCommand{deleteCmd}}
	ep := newTestEndpoint(client)

	deleted := make(chan string, 1)
	ep.RegisterProcessor(types.CommandDeleteBlocks, NewDeleteBlocksProcessor(fakeDeleterFunc(func(container string, keys []string) error {
		deleted <- container
		return nil
	})))

	ep.Start()
	t.Cleanup(ep.Stop)

	select {
	case container := <-deleted:
		assert.Equal(t, "c1", container)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for command to be processed")
	}
}

type fakeDeleterFunc func(containerName string, blockKeys []string) error

func (f fakeDeleterFunc) DeleteBlocks(containerName string, blockKeys []string) error {
	return f(containerName, blockKeys)
}
