// Package scm implements the Storage Container Manager: the
// cluster-wide authority over datanodes, containers, and block
// locations, replicated as a Raft FSM over
// pkg/consensus.
package scm

import (
	"fmt"
	"time"

	"github.com/cuemby/ozone/pkg/consensus"
	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/scm/placement"
	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// applyTimeout bounds how long a caller waits for a command to commit
// through Raft before giving up.
const applyTimeout = 10 * time.Second

// SCM is the Storage Container Manager. Mutating operations are
// applied through the shared Raft node; reads go straight to the
// store under its read lock.
type SCM struct {
	node      *consensus.Node
	store     storage.Store
	policy    placement.Policy
	clock     Clock
	metrics   *metrics.Context
	logger    zerolog.Logger
	clusterID string
}

// Config configures an SCM instance.
type Config struct {
	LocalID         string
	BindAddr        string
	DataDir         string
	Store           storage.Store
	PlacementPolicy string // config key scm.container.placement.impl
	Clock           Clock
	Metrics         *metrics.Context
}

// New builds an SCM instance. Call Bootstrap or Join on the result's
// Node() to start participating in the raft cluster.
func New(cfg Config) (*SCM, error) {
	policy, ok := placement.Get(cfg.PlacementPolicy)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlacementPolicy, cfg.PlacementPolicy)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = RealClock
	}

	node, err := consensus.NewNode(consensus.Config{
		LocalID:  cfg.LocalID,
		BindAddr: cfg.BindAddr,
		DataDir:  cfg.DataDir,
		Store:    cfg.Store,
		Applier:  applier{},
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}

	clusterID, err := loadOrCreateClusterID(cfg.Store)
	if err != nil {
		return nil, err
	}

	return &SCM{
		node:      node,
		store:     cfg.Store,
		policy:    policy,
		clock:     clock,
		metrics:   cfg.Metrics,
		logger:    log.WithComponent("scm"),
		clusterID: clusterID,
	}, nil
}

// clusterIDKey is the store key the cluster's identity lives under, in
// the system namespace reserved away from domain keys.
var clusterIDKey = []byte("/system/clusterid")

// loadOrCreateClusterID reads the persisted cluster ID, minting one on
// first start. Written directly to the local store rather than through
// the raft log: it exists before the cluster does, and every node that
// later joins learns it over the version handshake, not from its own
// store.
func loadOrCreateClusterID(store storage.Store) (string, error) {
	raw, err := store.Get(clusterIDKey)
	if err == nil {
		return string(raw), nil
	}
	if err != storage.ErrNotFound {
		return "", err
	}
	id := "CID-" + uuid.New().String()
	if err := store.Put(clusterIDKey, []byte(id)); err != nil {
		return "", err
	}
	return id, nil
}

// ClusterID returns the cluster identity handed to datanodes during
// the version handshake.
func (s *SCM) ClusterID() string { return s.clusterID }

// Node exposes the underlying consensus node for cluster bootstrap,
// join, and membership operations.
func (s *SCM) Node() *consensus.Node { return s.node }

// AllocateContainer picks a pipeline via the configured placement
// policy and replicates a new OPEN container.
func (s *SCM) AllocateContainer(name string, replType types.ReplicationType, factor types.ReplicationFactor) (*types.Pipeline, error) {
	unlock := s.store.ReadLock()
	datanodes, err := listDatanodes(s.store)
	if err != nil {
		unlock()
		return nil, err
	}
	existing, err := pipelinesByContainer(s.store)
	unlock()
	if err != nil {
		return nil, err
	}

	chosen, err := s.policy.Choose(datanodes, factor, existing, replType)
	if err != nil {
		s.logger.Error().Err(err).Str("container", name).Msg("container allocation failed")
		return nil, ErrInsufficientNodes
	}

	members := make([]string, len(chosen))
	for i, d := range chosen {
		members[i] = d.UUID
	}
	pipeline := &types.Pipeline{
		ContainerName:     name,
		LeaderUUID:        members[0],
		Members:           members,
		ReplicationType:   replType,
		ReplicationFactor: factor,
	}
	container := &types.Container{
		ContainerName: name,
		Pipeline:      pipeline,
		State:         types.ContainerOpen,
		Capacity:      defaultContainerCapacity,
		LeaderUUID:    members[0],
	}

	cmd, err := newCommand(OpCreateContainer, createContainerPayload{Container: container})
	if err != nil {
		return nil, err
	}
	if _, err := s.node.Apply(cmd, applyTimeout); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ContainersByState.WithLabelValues(string(types.ContainerOpen)).Inc()
	}
	return pipeline, nil
}

// GetContainer returns the pipeline serving name.
func (s *SCM) GetContainer(name string) (*types.Pipeline, error) {
	unlock := s.store.ReadLock()
	defer unlock()

	c, err := getContainer(s.store, name)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, ErrContainerNotFound
		}
		return nil, err
	}
	if c.State == types.ContainerDeleted {
		return nil, ErrContainerNotFound
	}
	return c.Pipeline, nil
}

// DeleteContainer removes a container. Idempotent on NOT_FOUND.
func (s *SCM) DeleteContainer(name string) error {
	cmd, err := newCommand(OpDeleteContainer, deleteContainerPayload{ContainerName: name})
	if err != nil {
		return err
	}
	_, err = s.node.Apply(cmd, applyTimeout)
	return err
}

// GetStorageContainerLocations resolves a set of key prefixes to the
// containers whose names share that prefix, along with pipeline
// member locations.
func (s *SCM) GetStorageContainerLocations(prefixes []string) ([]*types.LocatedContainer, error) {
	unlock := s.store.ReadLock()
	defer unlock()

	containers, err := listContainers(s.store)
	if err != nil {
		return nil, err
	}

	var out []*types.LocatedContainer
	for _, c := range containers {
		if c.State == types.ContainerDeleted || c.Pipeline == nil {
			continue
		}
		for _, prefix := range prefixes {
			if len(c.ContainerName) >= len(prefix) && c.ContainerName[:len(prefix)] == prefix {
				out = append(out, &types.LocatedContainer{
					Key:           c.ContainerName,
					MatchedPrefix: prefix,
					ContainerName: c.ContainerName,
					Leader:        c.LeaderUUID,
					Locations:     c.Pipeline.Members,
				})
				break
			}
		}
	}
	return out, nil
}

// Register admits a datanode into the registry. A blank clusterID, or
// a clusterID that differs from the one on the existing record for the
// same UUID, is an INVALID_REGISTRATION failure; the endpoint is instructed to shut
// down by the RPC layer, not by this call.
func (s *SCM) Register(details *types.Datanode) (*types.Datanode, error) {
	if details.ClusterID == "" {
		return nil, ErrInvalidRegistration
	}
	if details.UUID == "" {
		details.UUID = uuid.New().String()
	} else {
		unlock := s.store.ReadLock()
		existing, err := getDatanode(s.store, details.UUID)
		unlock()
		if err != nil && err != storage.ErrNotFound {
			return nil, err
		}
		if err == nil && existing.ClusterID != "" && existing.ClusterID != details.ClusterID {
			return nil, ErrInvalidRegistration
		}
	}

	details.State = types.DatanodeHealthy
	details.LastHeartbeatMonotonic = s.clock.NowNanos()

	cmd, err := newCommand(OpUpsertDatanode, upsertDatanodePayload{Datanode: details})
	if err != nil {
		return nil, err
	}
	result, err := s.node.Apply(cmd, applyTimeout)
	if err != nil {
		return nil, err
	}
	return result.(*types.Datanode), nil
}

// SendHeartbeat records a heartbeat and returns any SCMCommand queued
// for this datanode since its last heartbeat.
func (s *SCM) SendHeartbeat(datanodeUUID string, stat types.NodeStat) ([]types.SCMCommand, error) {
	cmd, err := newCommand(OpRecordHeartbeat, recordHeartbeatPayload{
		UUID:           datanodeUUID,
		MonotonicNanos: s.clock.NowNanos(),
		Stat:           stat,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.node.Apply(cmd, applyTimeout); err != nil {
		return nil, err
	}

	dequeue, err := newCommand(OpDequeueCommands, dequeueCommandsPayload{DatanodeUUID: datanodeUUID})
	if err != nil {
		return nil, err
	}
	result, err := s.node.Apply(dequeue, applyTimeout)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.([]types.SCMCommand), nil
}

// EnqueueCommand queues cmd for delivery to datanodeUUID on its next
// heartbeat response.
func (s *SCM) EnqueueCommand(datanodeUUID string, scmCmd types.SCMCommand) error {
	cmd, err := newCommand(OpEnqueueCommand, enqueueCommandPayload{DatanodeUUID: datanodeUUID, Command: scmCmd})
	if err != nil {
		return err
	}
	_, err = s.node.Apply(cmd, applyTimeout)
	return err
}

// GetDatanodeReport lists every datanode in the given state, or every
// datanode if state is "".
func (s *SCM) GetDatanodeReport(state types.DatanodeState) ([]*types.Datanode, error) {
	unlock := s.store.ReadLock()
	defer unlock()

	all, err := listDatanodes(s.store)
	if err != nil {
		return nil, err
	}
	if state == "" {
		return all, nil
	}
	var out []*types.Datanode
	for _, d := range all {
		if d.State == state {
			out = append(out, d)
		}
	}
	return out, nil
}
