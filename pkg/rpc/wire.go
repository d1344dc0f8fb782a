// Package rpc defines the wire messages and gRPC service descriptors
// for Ozone's three control-plane protocols:
// StorageContainerLocationProtocol, StorageContainerDatanodeProtocol,
// and KeySpaceManagerProtocol, plus the container data-plane protocol
// used by the container client.
//
// This workspace has no protoc toolchain available, so these are
// hand-maintained Go structs rather than protoc-generated .pb.go
// stubs. A custom codec (codec.go) marshals them with encoding/json
// and is registered the way google.golang.org/grpc documents for
// content-subtype codecs, so the real gRPC transport, streaming,
// interceptor, and deadline machinery still apply end to end.
package rpc

import "github.com/cuemby/ozone/pkg/types"

// Status is the wire error envelope shared by all three protocols.
// "" (zero value) is never sent; OK is explicit.
type Status string

const (
	StatusOK                  Status = "OK"
	StatusVolumeAlreadyExists Status = "VOLUME_ALREADY_EXISTS"
	StatusVolumeNotFound      Status = "VOLUME_NOT_FOUND"
	StatusVolumeNotEmpty      Status = "VOLUME_NOT_EMPTY"
	StatusUserTooManyVolumes  Status = "USER_TOO_MANY_VOLUMES"
	StatusUserNotFound        Status = "USER_NOT_FOUND"
	StatusBucketAlreadyExists Status = "BUCKET_ALREADY_EXISTS"
	StatusBucketNotFound      Status = "BUCKET_NOT_FOUND"
	StatusBucketNotEmpty      Status = "BUCKET_NOT_EMPTY"
	StatusKeyAlreadyExists    Status = "KEY_ALREADY_EXISTS"
	StatusKeyNotFound         Status = "KEY_NOT_FOUND"
	StatusAccessDenied        Status = "ACCESS_DENIED"
	StatusInternalError       Status = "INTERNAL_ERROR"
)

// ScmErrorCode is the error envelope for
// StorageContainerLocationProtocol / StorageContainerDatanodeProtocol
// responses.
type ScmErrorCode string

const (
	ScmSuccess             ScmErrorCode = "success"
	ScmUnknownFailure      ScmErrorCode = "unknownFailure"
	ScmContainerNotFound   ScmErrorCode = "CONTAINER_NOT_FOUND"
	ScmInsufficientNodes   ScmErrorCode = "INSUFFICIENT_NODES"
	ScmInvalidRegistration ScmErrorCode = "INVALID_REGISTRATION"
	ScmNoOpenContainer     ScmErrorCode = "NO_OPEN_CONTAINER"
	ScmBlockNotFound       ScmErrorCode = "BLOCK_NOT_FOUND"
)

// --- StorageContainerLocationProtocol ---

type AllocateContainerRequest struct {
	Name              string
	ReplicationType   types.ReplicationType
	ReplicationFactor types.ReplicationFactor
}

type AllocateContainerResponse struct {
	Pipeline  *types.Pipeline
	ErrorCode ScmErrorCode
}

type GetContainerRequest struct {
	Name string
}

type GetContainerResponse struct {
	Pipeline  *types.Pipeline
	ErrorCode ScmErrorCode
}

type DeleteContainerRequest struct {
	Name string
}

type DeleteContainerResponse struct {
	ErrorCode ScmErrorCode
}

type GetStorageContainerLocationsRequest struct {
	Prefixes []string
}

type GetStorageContainerLocationsResponse struct {
	Locations []*types.LocatedContainer
	ErrorCode ScmErrorCode
}

type AllocateScmBlockRequest struct {
	Size              int64
	ReplicationType   types.ReplicationType
	ReplicationFactor types.ReplicationFactor
}

type AllocateScmBlockResponse struct {
	Block     *types.AllocatedBlock
	ErrorCode ScmErrorCode
}

type BlockDeleteResult struct {
	BlockKey   string
	ResultCode string
}

type DeleteScmBlocksRequest struct {
	ContainerName string
	BlockKeys     []string
}

type DeleteScmBlocksResponse struct {
	Results   []BlockDeleteResult
	ErrorCode ScmErrorCode
}

type GetScmBlockLocationsRequest struct {
	ContainerNames []string
}

type GetScmBlockLocationsResponse struct {
	Locations map[string]*types.Pipeline
	ErrorCode ScmErrorCode
}

// --- StorageContainerDatanodeProtocol ---

type GetVersionRequest struct{}

type GetVersionResponse struct {
	Version   int32
	ClusterID string
}

type RegisterRequest struct {
	DatanodeDetails *types.Datanode
	ContainerReport []string
}

type RegisterResponse struct {
	DatanodeUUID string
	ClusterID    string
	HostName     string
	IPAddress    string
	ErrorCode    ScmErrorCode
}

type SendHeartbeatRequest struct {
	DatanodeUUID string
	Stat         types.NodeStat
}

type SendHeartbeatResponse struct {
	Commands  []types.SCMCommand
	ErrorCode ScmErrorCode
}

// --- KeySpaceManagerProtocol ---

type CreateVolumeRequest struct {
	Name       string
	OwnerName  string
	AdminName  string
	QuotaBytes int64
}

type CreateVolumeResponse struct {
	Status Status
}

type SetOwnerRequest struct {
	VolumeName string
	OwnerName  string
}

type SetOwnerResponse struct {
	Status Status
}

type SetQuotaRequest struct {
	VolumeName string
	QuotaBytes int64
}

type SetQuotaResponse struct {
	Status Status
}

type DeleteVolumeRequest struct {
	VolumeName string
	Force      bool
}

type DeleteVolumeResponse struct {
	Status Status
}

type GetVolumeInfoRequest struct {
	VolumeName string
}

type GetVolumeInfoResponse struct {
	Volume *types.Volume
	Status Status
}

type CreateBucketRequest struct {
	VolumeName        string
	BucketName        string
	VersioningEnabled bool
	StorageType       string
}

type CreateBucketResponse struct {
	Status Status
}

type SetBucketPropertyRequest struct {
	VolumeName        string
	BucketName        string
	AddACL            []string
	RemoveACL         []string
	VersioningEnabled *bool
	StorageType       string
}

type SetBucketPropertyResponse struct {
	Status Status
}

type GetBucketInfoRequest struct {
	VolumeName string
	BucketName string
}

type GetBucketInfoResponse struct {
	Bucket *types.Bucket
	Status Status
}

type DeleteBucketRequest struct {
	VolumeName string
	BucketName string
}

type DeleteBucketResponse struct {
	Status Status
}

type AllocateKeyRequest struct {
	VolumeName        string
	BucketName        string
	KeyName           string
	DataSize          int64
	ReplicationType   types.ReplicationType
	ReplicationFactor types.ReplicationFactor
}

type AllocateKeyResponse struct {
	Key    *types.Key
	Block  *types.AllocatedBlock
	Status Status
}

type LookupKeyRequest struct {
	VolumeName string
	BucketName string
	KeyName    string
}

type LookupKeyResponse struct {
	Key    *types.Key
	Status Status
}

type DeleteKeyRequest struct {
	VolumeName string
	BucketName string
	KeyName    string
}

type DeleteKeyResponse struct {
	Status Status
}

type ListKeysRequest struct {
	VolumeName string
	BucketName string
	Prefix     string
	MaxKeys    int
}

type ListKeysResponse struct {
	Keys   []*types.Key
	Status Status
}

// --- Container data-plane protocol (client <-> datanode) ---

type CreateContainerRequest struct {
	ContainerName string
	Pipeline      *types.Pipeline
}

type CreateContainerResponse struct {
	ErrorCode ScmErrorCode
}

type ReadContainerRequest struct {
	ContainerName string
}

type ReadContainerResponse struct {
	ContainerName string
	UsedBytes     int64
	State         types.ContainerState
	ErrorCode     ScmErrorCode
}

type DeleteContainerDataRequest struct {
	ContainerName string
}

type DeleteContainerDataResponse struct {
	ErrorCode ScmErrorCode
}

type WriteChunkRequest struct {
	ContainerName string
	BlockKey      string
	Chunk         types.ChunkInfo
	Data          []byte
}

type WriteChunkResponse struct {
	ErrorCode ScmErrorCode
}

type ReadChunkRequest struct {
	ContainerName string
	BlockKey      string
	Chunk         types.ChunkInfo
}

type ReadChunkResponse struct {
	Data      []byte
	ErrorCode ScmErrorCode
}

type PutKeyRequest struct {
	ContainerName string
	BlockKey      string
	KeyData       types.KeyData
}

type PutKeyResponse struct {
	ErrorCode ScmErrorCode
}

type GetKeyRequest struct {
	ContainerName string
	BlockKey      string
}

type GetKeyResponse struct {
	KeyData   types.KeyData
	ErrorCode ScmErrorCode
}

type PutSmallFileRequest struct {
	ContainerName string
	BlockKey      string
	KeyData       types.KeyData
	Chunk         types.ChunkInfo
	Data          []byte
}

type PutSmallFileResponse struct {
	ErrorCode ScmErrorCode
}

type GetSmallFileRequest struct {
	ContainerName string
	BlockKey      string
}

type GetSmallFileResponse struct {
	KeyData   types.KeyData
	Data      []byte
	ErrorCode ScmErrorCode
}
