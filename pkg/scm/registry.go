package scm

import (
	"encoding/json"
	"fmt"

	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
)

// Key encoding for SCM's registry, analogous in spirit to KSM's
// lexicographic encoding but simpler: SCM has no
// listing-order invariant to preserve, only prefix-scoped lookup.
const (
	containerPrefix = "/containers/"
	datanodePrefix  = "/datanodes/"
	commandPrefix   = "/commands/"
)

func containerKey(name string) []byte {
	return []byte(containerPrefix + name)
}

func datanodeKey(uuid string) []byte {
	return []byte(datanodePrefix + uuid)
}

func commandQueueKey(datanodeUUID string) []byte {
	return []byte(commandPrefix + datanodeUUID)
}

func getContainer(store storage.Store, name string) (*types.Container, error) {
	raw, err := store.Get(containerKey(name))
	if err != nil {
		return nil, err
	}
	var c types.Container
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("scm: corrupt container record %q: %w", name, err)
	}
	return &c, nil
}

func putContainer(b storage.Batch, c *types.Container) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return b.Put(containerKey(c.ContainerName), raw)
}

func listContainers(store storage.Store) ([]*types.Container, error) {
	it, err := store.Iterator([]byte(containerPrefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*types.Container
	for it.Next() {
		var c types.Container
		if err := json.Unmarshal(it.KV().Value, &c); err != nil {
			return nil, fmt.Errorf("scm: corrupt container record: %w", err)
		}
		out = append(out, &c)
	}
	return out, it.Err()
}

func getDatanode(store storage.Store, uuid string) (*types.Datanode, error) {
	raw, err := store.Get(datanodeKey(uuid))
	if err != nil {
		return nil, err
	}
	var d types.Datanode
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("scm: corrupt datanode record %q: %w", uuid, err)
	}
	return &d, nil
}

func putDatanode(b storage.Batch, d *types.Datanode) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return b.Put(datanodeKey(d.UUID), raw)
}

func listDatanodes(store storage.Store) ([]*types.Datanode, error) {
	it, err := store.Iterator([]byte(datanodePrefix))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*types.Datanode
	for it.Next() {
		var d types.Datanode
		if err := json.Unmarshal(it.KV().Value, &d); err != nil {
			return nil, fmt.Errorf("scm: corrupt datanode record: %w", err)
		}
		out = append(out, &d)
	}
	return out, it.Err()
}

// pipelinesByContainer indexes every non-deleted container's pipeline,
// used by placement to exclude already-used datanodes.
func pipelinesByContainer(store storage.Store) (map[string][]*types.Pipeline, error) {
	containers, err := listContainers(store)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]*types.Pipeline)
	for _, c := range containers {
		if c.State == types.ContainerDeleted || c.Pipeline == nil {
			continue
		}
		out[c.ContainerName] = append(out[c.ContainerName], c.Pipeline)
	}
	return out, nil
}

func getCommandQueue(store storage.Store, datanodeUUID string) ([]types.SCMCommand, error) {
	raw, err := store.Get(commandQueueKey(datanodeUUID))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var cmds []types.SCMCommand
	if err := json.Unmarshal(raw, &cmds); err != nil {
		return nil, fmt.Errorf("scm: corrupt command queue for %q: %w", datanodeUUID, err)
	}
	return cmds, nil
}

func putCommandQueue(b storage.Batch, datanodeUUID string, cmds []types.SCMCommand) error {
	raw, err := json.Marshal(cmds)
	if err != nil {
		return err
	}
	return b.Put(commandQueueKey(datanodeUUID), raw)
}
