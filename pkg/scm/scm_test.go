package scm

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/stretchr/testify/require"
)

// fakeClock is an injectable Clock for deterministic tests.
type fakeClock struct{ nanos int64 }

func (c *fakeClock) NowNanos() int64 { return c.nanos }

var testPort int64 = 23000

func freeAddr() string {
	port := atomic.AddInt64(&testPort, 1)
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func newTestSCM(t *testing.T, clock Clock) *SCM {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "scm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	s, err := New(Config{
		LocalID:  "scm1",
		BindAddr: freeAddr(),
		DataDir:  t.TempDir(),
		Store:    store,
		Clock:    clock,
	})
	require.NoError(t, err)
	require.NoError(t, s.Node().Bootstrap())
	t.Cleanup(func() { _ = s.Node().Shutdown() })
	require.Eventually(t, s.Node().IsLeader, 5*time.Second, 50*time.Millisecond)
	return s
}

func registerNode(t *testing.T, s *SCM, uuid string) *types.Datanode {
	t.Helper()
	d, err := s.Register(&types.Datanode{UUID: uuid, HostName: uuid, ClusterID: "cluster1"})
	require.NoError(t, err)
	return d
}

func TestAllocateContainerAndGetContainer(t *testing.T) {
	s := newTestSCM(t, &fakeClock{nanos: 1})
	registerNode(t, s, "d1")
	registerNode(t, s, "d2")
	registerNode(t, s, "d3")

	pipeline, err := s.AllocateContainer("c1", types.ReplicationRatis, types.FactorThree)
	require.NoError(t, err)
	require.Len(t, pipeline.Members, 3)

	got, err := s.GetContainer("c1")
	require.NoError(t, err)
	require.Equal(t, pipeline.LeaderUUID, got.LeaderUUID)
}

func TestAllocateContainerInsufficientNodes(t *testing.T) {
	s := newTestSCM(t, &fakeClock{nanos: 1})
	registerNode(t, s, "d1")

	_, err := s.AllocateContainer("c1", types.ReplicationRatis, types.FactorThree)
	require.ErrorIs(t, err, ErrInsufficientNodes)
}

func TestDeleteContainerIsIdempotent(t *testing.T) {
	s := newTestSCM(t, &fakeClock{nanos: 1})
	require.NoError(t, s.DeleteContainer("does-not-exist"))
}

func TestGetContainerNotFound(t *testing.T) {
	s := newTestSCM(t, &fakeClock{nanos: 1})
	_, err := s.GetContainer("nope")
	require.ErrorIs(t, err, ErrContainerNotFound)
}

func TestHeartbeatDrainsQueuedCommands(t *testing.T) {
	s := newTestSCM(t, &fakeClock{nanos: 1})
	registerNode(t, s, "d1")

	cmd := types.NewDeleteBlocksCommand([]types.DeletedBlocksTransaction{{TransactionID: 1, ContainerName: "c1", BlockKeys: []string{"b1"}}})
	require.NoError(t, s.EnqueueCommand("d1", cmd))

	cmds, err := s.SendHeartbeat("d1", types.NodeStat{Capacity: 100, Used: 10, Remaining: 90})
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.Equal(t, types.CommandDeleteBlocks, cmds[0].Type)

	// Second heartbeat drains nothing new.
	cmds, err = s.SendHeartbeat("d1", types.NodeStat{})
	require.NoError(t, err)
	require.Empty(t, cmds)
}

func TestAllocateBlockCreatesContainerOnFirstCall(t *testing.T) {
	clock := &fakeClock{nanos: 1000}
	s := newTestSCM(t, clock)
	registerNode(t, s, "d1")

	block, err := s.AllocateBlock(4096, types.ReplicationStandalone, types.FactorOne)
	require.NoError(t, err)
	require.True(t, block.CreateContainer)
	require.NotNil(t, block.Pipeline)
}

func TestAllocateBlockReusesOpenContainer(t *testing.T) {
	clock := &fakeClock{nanos: 1000}
	s := newTestSCM(t, clock)
	registerNode(t, s, "d1")

	first, err := s.AllocateBlock(4096, types.ReplicationStandalone, types.FactorOne)
	require.NoError(t, err)

	clock.nanos = 2000
	second, err := s.AllocateBlock(4096, types.ReplicationStandalone, types.FactorOne)
	require.NoError(t, err)
	require.False(t, second.CreateContainer)
	require.Equal(t, first.Pipeline.ContainerName, second.Pipeline.ContainerName)
}

func TestGetDatanodeReportFiltersByState(t *testing.T) {
	s := newTestSCM(t, &fakeClock{nanos: 1})
	registerNode(t, s, "d1")

	healthy, err := s.GetDatanodeReport(types.DatanodeHealthy)
	require.NoError(t, err)
	require.Len(t, healthy, 1)

	dead, err := s.GetDatanodeReport(types.DatanodeDead)
	require.NoError(t, err)
	require.Empty(t, dead)
}

func TestLivenessSweepTransitionsStaleThenDead(t *testing.T) {
	clock := &fakeClock{nanos: 0}
	s := newTestSCM(t, clock)
	registerNode(t, s, "d1")

	sweeper := NewLivenessSweeper(s, LivenessConfig{
		Tstale:        90 * time.Second,
		Tdead:         300 * time.Second,
		SweepInterval: time.Hour, // driven manually via sweep(), not the ticker
	}, clock)

	clock.nanos = int64(100 * time.Second)
	sweeper.sweep()
	report, err := s.GetDatanodeReport(types.DatanodeStale)
	require.NoError(t, err)
	require.Len(t, report, 1)

	clock.nanos = int64(400 * time.Second)
	sweeper.sweep()
	report, err = s.GetDatanodeReport(types.DatanodeDead)
	require.NoError(t, err)
	require.Len(t, report, 1)

	// A dead node is not a placement candidate.
	_, err = s.AllocateContainer("c1", types.ReplicationStandalone, types.FactorOne)
	require.ErrorIs(t, err, ErrInsufficientNodes)

	// A heartbeat alone does not resurrect a dead node; only a fresh
	// register does.
	_, err = s.SendHeartbeat("d1", types.NodeStat{})
	require.NoError(t, err)
	report, err = s.GetDatanodeReport(types.DatanodeDead)
	require.NoError(t, err)
	require.Len(t, report, 1)

	registerNode(t, s, "d1")
	report, err = s.GetDatanodeReport(types.DatanodeHealthy)
	require.NoError(t, err)
	require.Len(t, report, 1)
}
