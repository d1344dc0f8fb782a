package ksm

import (
	"encoding/json"

	"github.com/cuemby/ozone/pkg/consensus"
	"github.com/cuemby/ozone/pkg/types"
)

// Op names the tagged command set KSM replicates through
// pkg/consensus, mirroring pkg/scm's command tagging.
const (
	OpCreateVolume       = "create_volume"
	OpSetOwner           = "set_owner"
	OpSetQuota           = "set_quota"
	OpDeleteVolume       = "delete_volume"
	OpCreateBucket       = "create_bucket"
	OpSetBucketProperty  = "set_bucket_property"
	OpDeleteBucket       = "delete_bucket"
	OpCreateKey          = "create_key"
	OpDeleteKey          = "delete_key"
)

type createVolumePayload struct {
	Volume *types.Volume `json:"volume"`
}

type setOwnerPayload struct {
	VolumeName string `json:"volumeName"`
	OldOwner   string `json:"oldOwner"`
	NewOwner   string `json:"newOwner"`
}

type setQuotaPayload struct {
	VolumeName string `json:"volumeName"`
	QuotaBytes int64  `json:"quotaBytes"`
}

type deleteVolumePayload struct {
	VolumeName string `json:"volumeName"`
	Force      bool   `json:"force"`
}

type createBucketPayload struct {
	Bucket *types.Bucket `json:"bucket"`
}

type setBucketPropertyPayload struct {
	VolumeName        string `json:"volumeName"`
	BucketName        string `json:"bucketName"`
	VersioningEnabled bool   `json:"versioningEnabled"`
	StorageType       string `json:"storageType"`
}

type deleteBucketPayload struct {
	VolumeName string `json:"volumeName"`
	BucketName string `json:"bucketName"`
}

type createKeyPayload struct {
	Key *types.Key `json:"key"`
}

type deleteKeyPayload struct {
	VolumeName string `json:"volumeName"`
	BucketName string `json:"bucketName"`
	KeyName    string `json:"keyName"`
}

func newCommand(op string, payload interface{}) (consensus.Command, error) {
	return consensus.NewCommand(op, payload)
}

func decodePayload(data json.RawMessage, v interface{}) error {
	return json.Unmarshal(data, v)
}
