package scm

import (
	"fmt"

	"github.com/cuemby/ozone/pkg/consensus"
	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
)

// applier implements consensus.Applier for SCM's registry, switching
// on cmd.Op to apply each replicated mutation to the registry.
type applier struct{}

func (applier) Apply(store storage.Store, cmd consensus.Command) interface{} {
	switch cmd.Op {
	case OpCreateContainer:
		return applyCreateContainer(store, cmd)
	case OpUpdateContainer:
		return applyUpdateContainer(store, cmd)
	case OpDeleteContainer:
		return applyDeleteContainer(store, cmd)
	case OpUpsertDatanode:
		return applyUpsertDatanode(store, cmd)
	case OpDeleteDatanode:
		return applyDeleteDatanode(store, cmd)
	case OpRecordHeartbeat:
		return applyRecordHeartbeat(store, cmd)
	case OpEnqueueCommand:
		return applyEnqueueCommand(store, cmd)
	case OpDequeueCommands:
		return applyDequeueCommands(store, cmd)
	default:
		return fmt.Errorf("scm: unknown command op %q", cmd.Op)
	}
}

func applyCreateContainer(store storage.Store, cmd consensus.Command) interface{} {
	var p createContainerPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}
	err := store.Batch(func(b storage.Batch) error {
		return putContainer(b, p.Container)
	})
	if err != nil {
		return err
	}
	return p.Container
}

func applyUpdateContainer(store storage.Store, cmd consensus.Command) interface{} {
	var p updateContainerPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var updated *types.Container
	err := store.Batch(func(b storage.Batch) error {
		c, err := getContainer(store, p.ContainerName)
		if err != nil {
			return err
		}
		c.State = p.State
		c.UsedBytes += p.UsedBytesDelta
		updated = c
		return putContainer(b, c)
	})
	if err != nil {
		return err
	}
	return updated
}

func applyDeleteContainer(store storage.Store, cmd consensus.Command) interface{} {
	var p deleteContainerPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}
	// Idempotent on NOT_FOUND.
	return store.Batch(func(b storage.Batch) error {
		c, err := getContainer(store, p.ContainerName)
		if err == storage.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		c.State = types.ContainerDeleted
		return putContainer(b, c)
	})
}

func applyUpsertDatanode(store storage.Store, cmd consensus.Command) interface{} {
	var p upsertDatanodePayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}
	err := store.Batch(func(b storage.Batch) error {
		return putDatanode(b, p.Datanode)
	})
	if err != nil {
		return err
	}
	return p.Datanode
}

func applyDeleteDatanode(store storage.Store, cmd consensus.Command) interface{} {
	var p deleteDatanodePayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}
	return store.Batch(func(b storage.Batch) error {
		return b.Delete(datanodeKey(p.UUID))
	})
}

func applyRecordHeartbeat(store storage.Store, cmd consensus.Command) interface{} {
	var p recordHeartbeatPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var updated *types.Datanode
	err := store.Batch(func(b storage.Batch) error {
		d, err := getDatanode(store, p.UUID)
		if err != nil {
			return err
		}
		d.LastHeartbeatMonotonic = p.MonotonicNanos
		d.Stat = p.Stat
		// A heartbeat restores HEALTHY from STALE only. A DEAD node
		// must re-register before it counts as alive again, and
		// decommissioning states are operator-owned.
		if d.State == types.DatanodeHealthy || d.State == types.DatanodeStale {
			d.State = types.DatanodeHealthy
		}
		updated = d
		return putDatanode(b, d)
	})
	if err != nil {
		return err
	}
	return updated
}

func applyEnqueueCommand(store storage.Store, cmd consensus.Command) interface{} {
	var p enqueueCommandPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}
	return store.Batch(func(b storage.Batch) error {
		queue, err := getCommandQueue(store, p.DatanodeUUID)
		if err != nil {
			return err
		}
		queue = append(queue, p.Command)
		return putCommandQueue(b, p.DatanodeUUID, queue)
	})
}

func applyDequeueCommands(store storage.Store, cmd consensus.Command) interface{} {
	var p dequeueCommandsPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var drained []types.SCMCommand
	err := store.Batch(func(b storage.Batch) error {
		queue, err := getCommandQueue(store, p.DatanodeUUID)
		if err != nil {
			return err
		}
		drained = queue
		return putCommandQueue(b, p.DatanodeUUID, nil)
	})
	if err != nil {
		return err
	}
	return drained
}
