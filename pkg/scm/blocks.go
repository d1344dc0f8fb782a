package scm

import (
	"errors"
	"fmt"

	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/google/uuid"
)

// defaultContainerCapacity is the nominal capacity assigned to a
// newly created container. Real capacity accounting belongs to the
// datanode that actually backs the container; SCM tracks it only to
// decide when a container is full enough to need a successor.
const defaultContainerCapacity = 5 << 30 // 5 GiB

// AllocateBlock picks any open container with sufficient remaining capacity for
// (replType, factor), or allocate a new one if none qualifies. The
// returned block key is derived from the injected Clock rather than
// time.Now() directly, so deterministic tests can control it.
func (s *SCM) AllocateBlock(size int64, replType types.ReplicationType, factor types.ReplicationFactor) (*types.AllocatedBlock, error) {
	unlock := s.store.ReadLock()
	containers, err := listContainers(s.store)
	unlock()
	if err != nil {
		return nil, err
	}

	var target *types.Container
	for _, c := range containers {
		if c.State != types.ContainerOpen || c.Pipeline == nil {
			continue
		}
		if c.Pipeline.ReplicationType != replType || c.Pipeline.ReplicationFactor != factor {
			continue
		}
		if c.Capacity-c.UsedBytes < size {
			continue
		}
		target = c
		break
	}

	createContainer := false
	if target == nil {
		createContainer = true
		name := fmt.Sprintf("container-%d-%s", s.clock.NowNanos(), uuid.New().String())
		pipeline, err := s.AllocateContainer(name, replType, factor)
		if err != nil {
			return nil, err
		}
		target = &types.Container{
			ContainerName: name,
			Pipeline:      pipeline,
			State:         types.ContainerOpen,
			Capacity:      defaultContainerCapacity,
			LeaderUUID:    pipeline.LeaderUUID,
		}
	}

	blockKey := fmt.Sprintf("%d:%s", s.clock.NowNanos(), uuid.New().String())

	cmd, err := newCommand(OpUpdateContainer, updateContainerPayload{
		ContainerName:  target.ContainerName,
		State:          types.ContainerOpen,
		UsedBytesDelta: size,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.node.Apply(cmd, applyTimeout); err != nil {
		return nil, err
	}

	return &types.AllocatedBlock{
		BlockKey:        blockKey,
		Pipeline:        target.Pipeline,
		CreateContainer: createContainer,
	}, nil
}

// GetBlockLocations resolves a set of container names to their current
// pipelines. Block-to-container binding is owned by the caller (KSM's
// Key record); SCM only re-resolves the named containers. A container
// that does not exist or is DELETED is left out of the result; no
// error is returned for it.
func (s *SCM) GetBlockLocations(containerNames []string) (map[string]*types.Pipeline, error) {
	unlock := s.store.ReadLock()
	defer unlock()

	out := make(map[string]*types.Pipeline, len(containerNames))
	for _, name := range containerNames {
		c, err := getContainer(s.store, name)
		if err != nil {
			continue
		}
		if c.State == types.ContainerDeleted {
			continue
		}
		out[name] = c.Pipeline
	}
	return out, nil
}

// DeleteBlocksResult is one entry of DeleteBlocks' response.
type DeleteBlocksResult struct {
	BlockKey   string
	ResultCode string
}

// DeleteBlocks queues deletion transactions for the datanodes backing
// each container, to be drained by their next heartbeat's
// deleteBlocksCommand. Used directly by KSM's compensating-delete path
// on a failed allocateKey.
func (s *SCM) DeleteBlocks(containerName string, blockKeys []string) ([]DeleteBlocksResult, error) {
	unlock := s.store.ReadLock()
	c, err := getContainer(s.store, containerName)
	unlock()
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if c.Pipeline == nil {
		return nil, nil
	}

	txn := types.DeletedBlocksTransaction{
		TransactionID: s.clock.NowNanos(),
		ContainerName: containerName,
		BlockKeys:     blockKeys,
	}
	scmCmd := types.NewDeleteBlocksCommand([]types.DeletedBlocksTransaction{txn})

	results := make([]DeleteBlocksResult, 0, len(blockKeys))
	for _, member := range c.Pipeline.Members {
		if err := s.EnqueueCommand(member, scmCmd); err != nil {
			return nil, err
		}
	}
	for _, k := range blockKeys {
		results = append(results, DeleteBlocksResult{BlockKey: k, ResultCode: "QUEUED"})
	}
	return results, nil
}
