package scm

import (
	"encoding/json"

	"github.com/cuemby/ozone/pkg/consensus"
	"github.com/cuemby/ozone/pkg/types"
)

// Op names the tagged command set SCM replicates through
// pkg/consensus, applied by a switch over Command.Op.
const (
	OpCreateContainer = "create_container"
	OpUpdateContainer = "update_container"
	OpDeleteContainer = "delete_container"
	OpUpsertDatanode  = "upsert_datanode"
	OpDeleteDatanode  = "delete_datanode"
	OpRecordHeartbeat = "record_heartbeat"
	OpEnqueueCommand  = "enqueue_command"
	OpDequeueCommands = "dequeue_commands"
)

// createContainerPayload carries the full container record, pipeline
// included: a container is backed by exactly one pipeline, so pipeline
// creation replicates as part of create_container rather than as an op
// of its own.
type createContainerPayload struct {
	Container *types.Container `json:"container"`
}

type updateContainerPayload struct {
	ContainerName  string               `json:"containerName"`
	State          types.ContainerState `json:"state"`
	UsedBytesDelta int64                `json:"usedBytesDelta"`
}

type deleteContainerPayload struct {
	ContainerName string `json:"containerName"`
}

type upsertDatanodePayload struct {
	Datanode *types.Datanode `json:"datanode"`
}

type deleteDatanodePayload struct {
	UUID string `json:"uuid"`
}

type recordHeartbeatPayload struct {
	UUID           string         `json:"uuid"`
	MonotonicNanos int64          `json:"monotonicNanos"`
	Stat           types.NodeStat `json:"stat"`
}

type enqueueCommandPayload struct {
	DatanodeUUID string           `json:"datanodeUUID"`
	Command      types.SCMCommand `json:"command"`
}

type dequeueCommandsPayload struct {
	DatanodeUUID string `json:"datanodeUUID"`
}

func newCommand(op string, payload interface{}) (consensus.Command, error) {
	return consensus.NewCommand(op, payload)
}

func decodePayload(data json.RawMessage, v interface{}) error {
	return json.Unmarshal(data, v)
}
