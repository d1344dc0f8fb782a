// Package consensus is the Raft harness shared by the Storage
// Container Manager and the Key-Space Manager. Both replicate a
// domain-specific command log over the same MetadataStore-backed FSM
// shape; this package owns the Raft plumbing (transport, log/stable
// stores, snapshotting) so neither SCM nor KSM has to reimplement it.
// A caller supplies only an Applier instead of a hand-written switch
// over every domain operation.
package consensus

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/storage"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Config configures a Node.
type Config struct {
	LocalID  string
	BindAddr string
	DataDir  string
	Store    storage.Store
	Applier  Applier
	Metrics  *metrics.Context
}

// Node wraps one raft.Raft instance replicating a domain FSM.
type Node struct {
	localID  string
	bindAddr string
	dataDir  string
	store    storage.Store
	fsm      *FSM
	metrics  *metrics.Context

	raft      *raft.Raft
	transport *raft.NetworkTransport
}

// NewNode constructs a Node. Call Bootstrap or Join to actually start
// participating in a cluster.
func NewNode(cfg Config) (*Node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Node{
		localID:  cfg.LocalID,
		bindAddr: cfg.BindAddr,
		dataDir:  cfg.DataDir,
		store:    cfg.Store,
		fsm:      NewFSM(cfg.Store, cfg.Applier),
		metrics:  cfg.Metrics,
	}, nil
}

// raftConfig applies LAN-tuned timeouts: the hashicorp/raft defaults
// target WAN deployments, which is too conservative for an
// in-datacenter control plane aiming for single-digit-second failover.
func (n *Node) raftConfig() *raft.Config {
	config := raft.DefaultConfig()
	config.LocalID = raft.ServerID(n.localID)
	config.HeartbeatTimeout = 500 * time.Millisecond
	config.ElectionTimeout = 500 * time.Millisecond
	config.CommitTimeout = 50 * time.Millisecond
	config.LeaderLeaseTimeout = 250 * time.Millisecond
	return config
}

func (n *Node) newRaft() (*raft.Raft, error) {
	addr, err := net.ResolveTCPAddr("tcp", n.bindAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve bind address: %w", err)
	}

	transport, err := raft.NewTCPTransport(n.bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	n.transport = transport

	snapshotStore, err := raft.NewFileSnapshotStore(n.dataDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot store: %w", err)
	}

	logStore, err := raftboltdb.NewBoltStore(filepath.Join(n.dataDir, "raft-log.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create log store: %w", err)
	}

	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(n.dataDir, "raft-stable.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create stable store: %w", err)
	}

	r, err := raft.NewRaft(n.raftConfig(), n.fsm, logStore, stableStore, snapshotStore, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create raft: %w", err)
	}
	return r, nil
}

// Bootstrap starts a brand-new single-node cluster.
func (n *Node) Bootstrap() error {
	r, err := n.newRaft()
	if err != nil {
		return err
	}
	n.raft = r

	configuration := raft.Configuration{
		Servers: []raft.Server{
			{ID: raft.ServerID(n.localID), Address: n.transport.LocalAddr()},
		},
	}
	future := n.raft.BootstrapCluster(configuration)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to bootstrap cluster: %w", err)
	}
	return nil
}

// JoinFunc contacts the current leader, asking it to add this node as
// a voter. The caller supplies it because the RPC surface used to
// reach the leader (SCM's or KSM's own protocol) is domain-specific.
type JoinFunc func(nodeID, bindAddr string) error

// Join starts this node's Raft instance and asks the leader (via
// joinLeader) to add it to the cluster configuration.
func (n *Node) Join(joinLeader JoinFunc) error {
	r, err := n.newRaft()
	if err != nil {
		return err
	}
	n.raft = r

	log.Info(fmt.Sprintf("requesting to join cluster as %s at %s", n.localID, n.bindAddr))
	if err := joinLeader(n.localID, n.bindAddr); err != nil {
		return fmt.Errorf("failed to join cluster: %w", err)
	}
	return nil
}

// AddVoter adds a new node to the Raft configuration. Must be called
// on the leader.
func (n *Node) AddVoter(nodeID, address string) error {
	if n.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !n.IsLeader() {
		return fmt.Errorf("not the leader, current leader: %s", n.LeaderAddr())
	}
	future := n.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(address), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to add voter: %w", err)
	}
	return nil
}

// RemoveServer removes a node from the Raft configuration. Must be
// called on the leader.
func (n *Node) RemoveServer(nodeID string) error {
	if n.raft == nil {
		return fmt.Errorf("raft not initialized")
	}
	if !n.IsLeader() {
		return fmt.Errorf("not the leader")
	}
	future := n.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	if err := future.Error(); err != nil {
		return fmt.Errorf("failed to remove server: %w", err)
	}
	return nil
}

// GetClusterServers returns the current Raft configuration.
func (n *Node) GetClusterServers() ([]raft.Server, error) {
	if n.raft == nil {
		return nil, fmt.Errorf("raft not initialized")
	}
	future := n.raft.GetConfiguration()
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to get configuration: %w", err)
	}
	return future.Configuration().Servers, nil
}

// IsLeader reports whether this node currently holds Raft leadership.
func (n *Node) IsLeader() bool {
	return n.raft != nil && n.raft.State() == raft.Leader
}

// LeaderAddr returns the bind address of the current leader, or "" if
// unknown.
func (n *Node) LeaderAddr() string {
	if n.raft == nil {
		return ""
	}
	return string(n.raft.Leader())
}

// Stats returns a snapshot of Raft state, also updating the metrics
// context if one was supplied.
func (n *Node) Stats() map[string]interface{} {
	if n.raft == nil {
		return nil
	}
	stats := map[string]interface{}{
		"state":          n.raft.State().String(),
		"last_log_index": n.raft.LastIndex(),
		"applied_index":  n.raft.AppliedIndex(),
		"leader":         string(n.raft.Leader()),
	}
	peers := uint64(0)
	if cfgFuture := n.raft.GetConfiguration(); cfgFuture.Error() == nil {
		peers = uint64(len(cfgFuture.Configuration().Servers))
	}
	stats["peers"] = peers

	if n.metrics != nil {
		isLeader := 0.0
		if n.IsLeader() {
			isLeader = 1.0
		}
		n.metrics.RaftIsLeader.Set(isLeader)
		n.metrics.RaftPeers.Set(float64(peers))
		n.metrics.RaftLogIndex.Set(float64(n.raft.LastIndex()))
		n.metrics.RaftApplied.Set(float64(n.raft.AppliedIndex()))
	}
	return stats
}

// Apply submits cmd to the Raft log and blocks until it is committed
// and applied, returning the Applier's result.
func (n *Node) Apply(cmd Command, timeout time.Duration) (interface{}, error) {
	if n.raft == nil {
		return nil, fmt.Errorf("raft not initialized")
	}

	var timer *metrics.Timer
	if n.metrics != nil {
		timer = metrics.NewTimer()
		defer timer.ObserveDuration(n.metrics.RaftCommitTime)
	}

	data, err := cmd.marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	future := n.raft.Apply(data, timeout)
	if err := future.Error(); err != nil {
		return nil, fmt.Errorf("failed to apply command: %w", err)
	}

	if resp := future.Response(); resp != nil {
		if err, ok := resp.(error); ok && err != nil {
			return nil, err
		}
		return resp, nil
	}
	return nil, nil
}

// Shutdown stops the Raft instance.
func (n *Node) Shutdown() error {
	if n.raft == nil {
		return nil
	}
	return n.raft.Shutdown().Error()
}
