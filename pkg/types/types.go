// Package types holds the Ozone domain model shared by the Key-Space
// Manager, the Storage Container Manager, the datanode endpoint state
// machine, and the container client.
package types

import (
	"time"
)

// Volume is a top-level namespace owned by a user. Name is unique
// cluster-wide.
type Volume struct {
	Name       string    `json:"name"`
	OwnerName  string    `json:"ownerName"`
	AdminName  string    `json:"adminName"`
	QuotaBytes int64     `json:"quotaBytes"`
	UsedBytes  int64     `json:"usedBytes"`
	CreatedOn  time.Time `json:"createdOn"`
	ACLList    []string  `json:"aclList"`
}

// Bucket is a namespace nested under a Volume. (VolumeName, BucketName)
// is unique cluster-wide.
type Bucket struct {
	VolumeName        string    `json:"volumeName"`
	BucketName        string    `json:"bucketName"`
	ACLList           []string  `json:"aclList"`
	VersioningEnabled bool      `json:"versioningEnabled"`
	StorageType       string    `json:"storageType"`
	CreatedOn         time.Time `json:"createdOn"`
}

// Key is an object identified by (VolumeName, BucketName, KeyName).
type Key struct {
	VolumeName            string    `json:"volumeName"`
	BucketName            string    `json:"bucketName"`
	KeyName               string    `json:"keyName"`
	DataSize              int64     `json:"dataSize"`
	BlockID               string    `json:"blockID"`
	ContainerName         string    `json:"containerName"`
	ShouldCreateContainer bool      `json:"shouldCreateContainer"`
	CreatedOn             time.Time `json:"createdOn"`
}

// ContainerState is the lifecycle state of a storage container.
type ContainerState string

const (
	ContainerAllocated ContainerState = "ALLOCATED"
	ContainerCreating  ContainerState = "CREATING"
	ContainerOpen      ContainerState = "OPEN"
	ContainerClosing   ContainerState = "CLOSING"
	ContainerClosed    ContainerState = "CLOSED"
	ContainerDeleted   ContainerState = "DELETED"
)

// ReplicationType names the replication protocol a pipeline speaks.
type ReplicationType string

const (
	ReplicationStandalone ReplicationType = "STANDALONE"
	ReplicationRatis      ReplicationType = "RATIS"
)

// ReplicationFactor is the number of datanodes serving a container.
type ReplicationFactor string

const (
	FactorOne   ReplicationFactor = "ONE"
	FactorThree ReplicationFactor = "THREE"
)

// Number returns the integer replica count a factor denotes.
func (f ReplicationFactor) Number() int {
	switch f {
	case FactorThree:
		return 3
	default:
		return 1
	}
}

// Pipeline is the ordered set of datanodes serving a container. The
// first member is the leader; ordering carries write-sequencing
// semantics for RATIS.
type Pipeline struct {
	ContainerName     string            `json:"containerName"`
	LeaderUUID        string            `json:"leaderUUID"`
	Members           []string          `json:"members"` // ordered DatanodeID list
	ReplicationType   ReplicationType   `json:"replicationType"`
	ReplicationFactor ReplicationFactor `json:"replicationFactor"`
}

// Container is the unit of replication and placement; it holds many
// blocks and is backed by exactly one Pipeline.
type Container struct {
	ContainerName string         `json:"containerName"`
	Pipeline      *Pipeline      `json:"pipeline"`
	State         ContainerState `json:"state"`
	UsedBytes     int64          `json:"usedBytes"`
	Capacity      int64          `json:"capacity"`
	LeaderUUID    string         `json:"leaderUUID"`
}

// DatanodeState is the heartbeat-driven liveness state of a datanode.
type DatanodeState string

const (
	DatanodeUnknown         DatanodeState = "UNKNOWN"
	DatanodeHealthy         DatanodeState = "HEALTHY"
	DatanodeStale           DatanodeState = "STALE"
	DatanodeDead            DatanodeState = "DEAD"
	DatanodeDecommissioning DatanodeState = "DECOMMISSIONING"
	DatanodeDecommissioned  DatanodeState = "DECOMMISSIONED"
)

// NodeStat tracks a datanode's storage capacity.
type NodeStat struct {
	Capacity  int64 `json:"capacity"`
	Used      int64 `json:"used"`
	Remaining int64 `json:"remaining"`
}

// HashCode is a stable hash of the stat, defined as the XOR of its
// fields, so two stats with the same capacity/used/remaining always
// compare equal regardless of how they were constructed.
func (s NodeStat) HashCode() uint64 {
	return uint64(s.Capacity) ^ uint64(s.Used) ^ uint64(s.Remaining)
}

// Datanode is a storage node holding container replicas.
type Datanode struct {
	UUID                   string            `json:"uuid"`
	HostName               string            `json:"hostName"`
	IPAddress              string            `json:"ipAddress"`
	Ports                  map[string]int    `json:"ports"`
	Labels                 map[string]string `json:"labels"`
	LastHeartbeatMonotonic int64             `json:"lastHeartbeatMonotonic"` // nanoseconds from SCM's Clock (wall-clock in production)
	State                  DatanodeState     `json:"state"`
	Stat                   NodeStat          `json:"stat"`
	ClusterID              string            `json:"clusterID"`
}

// AllocatedBlock is the ephemeral result of SCM.allocateBlock.
type AllocatedBlock struct {
	BlockKey        string    `json:"blockKey"`
	Pipeline        *Pipeline `json:"pipeline"`
	CreateContainer bool      `json:"createContainer"`
}

// LocatedContainer is one match from getStorageContainerLocations.
type LocatedContainer struct {
	Key           string   `json:"key"`
	MatchedPrefix string   `json:"matchedPrefix"`
	ContainerName string   `json:"containerName"`
	Leader        string   `json:"leader"`
	Locations     []string `json:"locations"`
}

// ChunkInfo describes one fragment of a key's data.
type ChunkInfo struct {
	Name     string            `json:"name"`
	Offset   int64             `json:"offset"`
	Len      int64             `json:"len"`
	Checksum string            `json:"checksum"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// KeyData is the chunk manifest for an object stored in a container.
type KeyData struct {
	Name     string            `json:"name"`
	Chunks   []ChunkInfo       `json:"chunks"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// DeletedBlocksTransaction is one batch of blocks a datanode must
// garbage-collect.
type DeletedBlocksTransaction struct {
	TransactionID int64    `json:"transactionID"`
	ContainerName string   `json:"containerName"`
	BlockKeys     []string `json:"blockKeys"`
	RetryCount    int      `json:"retryCount"`
}
