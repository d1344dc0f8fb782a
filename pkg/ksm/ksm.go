// Package ksm implements the Key-Space Manager: the volume/bucket/key
// namespace authority, replicated as a Raft FSM over
// pkg/consensus, exactly as pkg/scm does for the container namespace.
package ksm

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/ozone/pkg/consensus"
	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/rs/zerolog"
)

// applyTimeout bounds how long a caller waits for a command to commit
// through Raft before giving up.
const applyTimeout = 10 * time.Second

// defaultMaxVolumesPerUser is the fallback for config key
// ksm.user.max.volume.count when unset.
const defaultMaxVolumesPerUser = 1024

// SCMClient is the subset of pkg/scm/client.Client that KSM's
// allocateKey/deleteKey paths call. Kept as an interface so ksm_test.go
// can exercise compensating-deletion behavior without a real SCM.
type SCMClient interface {
	AllocateBlock(replType types.ReplicationType, factor types.ReplicationFactor, size int64) (*types.AllocatedBlock, error)
	DeleteBlocks(containerName string, blockKeys []string) error
}

// KSM is the Key-Space Manager. Mutating operations are applied
// through the shared Raft node; reads go straight to the store under
// its read lock, mirroring pkg/scm.SCM.
type KSM struct {
	node    *consensus.Node
	store   storage.Store
	scm     SCMClient
	clock   Clock
	metrics *metrics.Context
	logger  zerolog.Logger

	maxVolumesPerUser int
}

// Config configures a KSM instance.
type Config struct {
	LocalID           string
	BindAddr          string
	DataDir           string
	Store             storage.Store
	SCMClient         SCMClient
	Clock             Clock
	Metrics           *metrics.Context
	MaxVolumesPerUser int // config key ksm.user.max.volume.count
}

// New builds a KSM instance. Call Bootstrap or Join on the result's
// Node() to start participating in the raft cluster.
func New(cfg Config) (*KSM, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock
	}
	maxVols := cfg.MaxVolumesPerUser
	if maxVols <= 0 {
		maxVols = defaultMaxVolumesPerUser
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

	return &KSM{
		node:              node,
		store:             cfg.Store,
		scm:               cfg.SCMClient,
		clock:             clock,
		metrics:           cfg.Metrics,
		logger:            log.WithComponent("ksm"),
		maxVolumesPerUser: maxVols,
	}, nil
}

// Node exposes the underlying consensus node for cluster bootstrap,
// join, and membership operations.
func (k *KSM) Node() *consensus.Node { return k.node }

func asResultError(result interface{}, err error) error {
	if err != nil {
		return err
	}
	if rerr, ok := result.(error); ok {
		return rerr
	}
	return nil
}

// CreateVolume creates a new top-level namespace owned by ownerName.
// Fails with ErrVolumeAlreadyExists or ErrUserTooManyVolumes.
func (k *KSM) CreateVolume(name, ownerName, adminName string, quotaBytes int64) (*types.Volume, error) {
	unlock := k.store.ReadLock()
	owned, err := getUserVolumes(k.store, ownerName)
	unlock()
	if err != nil {
		return nil, err
	}
	if len(owned) >= k.maxVolumesPerUser {
		return nil, ErrUserTooManyVolumes
	}

	v := &types.Volume{
		Name:       name,
		OwnerName:  ownerName,
		AdminName:  adminName,
		QuotaBytes: quotaBytes,
		CreatedOn:  k.clock.Now(),
	}
	cmd, err := newCommand(OpCreateVolume, createVolumePayload{Volume: v})
	if err != nil {
		return nil, err
	}
	result, err := k.node.Apply(cmd, applyTimeout)
	if rerr := asResultError(result, err); rerr != nil {
		return nil, rerr
	}
	return result.(*types.Volume), nil
}

// SetOwner transfers ownership of a volume.
func (k *KSM) SetOwner(volumeName, newOwner string) (*types.Volume, error) {
	cmd, err := newCommand(OpSetOwner, setOwnerPayload{VolumeName: volumeName, NewOwner: newOwner})
	if err != nil {
		return nil, err
	}
	result, err := k.node.Apply(cmd, applyTimeout)
	if rerr := asResultError(result, err); rerr != nil {
		return nil, rerr
	}
	return result.(*types.Volume), nil
}

// SetQuota updates a volume's byte quota.
func (k *KSM) SetQuota(volumeName string, quotaBytes int64) (*types.Volume, error) {
	cmd, err := newCommand(OpSetQuota, setQuotaPayload{VolumeName: volumeName, QuotaBytes: quotaBytes})
	if err != nil {
		return nil, err
	}
	result, err := k.node.Apply(cmd, applyTimeout)
	if rerr := asResultError(result, err); rerr != nil {
		return nil, rerr
	}
	return result.(*types.Volume), nil
}

// DeleteVolume removes an empty volume, failing with ErrVolumeNotEmpty
// if any bucket remains. With force set, the whole subtree goes too,
// and any removed keys' blocks are queued for garbage collection on
// SCM; GC failures are logged, not returned, since the namespace
// records are already gone.
func (k *KSM) DeleteVolume(volumeName string, force bool) error {
	cmd, err := newCommand(OpDeleteVolume, deleteVolumePayload{VolumeName: volumeName, Force: force})
	if err != nil {
		return err
	}
	result, err := k.node.Apply(cmd, applyTimeout)
	if rerr := asResultError(result, err); rerr != nil {
		return rerr
	}

	removed, _ := result.([]*types.Key)
	if len(removed) == 0 {
		return nil
	}
	go func() {
		for _, key := range removed {
			if err := k.scm.DeleteBlocks(key.ContainerName, []string{key.BlockID}); err != nil {
				k.logger.Error().Err(err).
					Str("volume", volumeName).Str("key", key.KeyName).
					Msg("block GC failed for force-deleted volume")
			}
		}
	}()
	return nil
}

// GetVolumeInfo returns a volume's record, or ErrVolumeNotFound.
func (k *KSM) GetVolumeInfo(volumeName string) (*types.Volume, error) {
	unlock := k.store.ReadLock()
	defer unlock()
	v, err := getVolume(k.store, volumeName)
	if err == storage.ErrNotFound {
		return nil, ErrVolumeNotFound
	}
	return v, err
}

// CreateBucket creates a bucket nested under an existing volume.
func (k *KSM) CreateBucket(volumeName, bucketName string, versioningEnabled bool, storageType string) (*types.Bucket, error) {
	bk := &types.Bucket{
		VolumeName:        volumeName,
		BucketName:        bucketName,
		VersioningEnabled: versioningEnabled,
		StorageType:       storageType,
		CreatedOn:         k.clock.Now(),
	}
	cmd, err := newCommand(OpCreateBucket, createBucketPayload{Bucket: bk})
	if err != nil {
		return nil, err
	}
	result, err := k.node.Apply(cmd, applyTimeout)
	if rerr := asResultError(result, err); rerr != nil {
		return nil, rerr
	}
	return result.(*types.Bucket), nil
}

// SetBucketProperty updates a bucket's versioning and storage type.
func (k *KSM) SetBucketProperty(volumeName, bucketName string, versioningEnabled bool, storageType string) (*types.Bucket, error) {
	cmd, err := newCommand(OpSetBucketProperty, setBucketPropertyPayload{
		VolumeName:        volumeName,
		BucketName:        bucketName,
		VersioningEnabled: versioningEnabled,
		StorageType:       storageType,
	})
	if err != nil {
		return nil, err
	}
	result, err := k.node.Apply(cmd, applyTimeout)
	if rerr := asResultError(result, err); rerr != nil {
		return nil, rerr
	}
	return result.(*types.Bucket), nil
}

// GetBucketInfo returns a bucket's record, or ErrBucketNotFound.
func (k *KSM) GetBucketInfo(volumeName, bucketName string) (*types.Bucket, error) {
	unlock := k.store.ReadLock()
	defer unlock()
	bk, err := getBucket(k.store, volumeName, bucketName)
	if err == storage.ErrNotFound {
		return nil, ErrBucketNotFound
	}
	return bk, err
}

// DeleteBucket removes an empty bucket. Fails with ErrBucketNotEmpty
// if any key remains.
func (k *KSM) DeleteBucket(volumeName, bucketName string) error {
	cmd, err := newCommand(OpDeleteBucket, deleteBucketPayload{VolumeName: volumeName, BucketName: bucketName})
	if err != nil {
		return err
	}
	result, err := k.node.Apply(cmd, applyTimeout)
	return asResultError(result, err)
}

// AllocateKey allocates a block from SCM and records a new key. If the
// Raft commit fails after the block was allocated, that block is
// released via SCM.DeleteBlocks rather than left orphaned.
func (k *KSM) AllocateKey(volumeName, bucketName, keyName string, size int64, replType types.ReplicationType, factor types.ReplicationFactor) (*types.Key, error) {
	unlock := k.store.ReadLock()
	_, err := getBucket(k.store, volumeName, bucketName)
	unlock()
	if err == storage.ErrNotFound {
		return nil, ErrBucketNotFound
	}
	if err != nil {
		return nil, err
	}

	block, err := k.scm.AllocateBlock(replType, factor, size)
	if err != nil {
		return nil, fmt.Errorf("ksm: allocate key: %w", err)
	}

	key := &types.Key{
		VolumeName:            volumeName,
		BucketName:            bucketName,
		KeyName:               keyName,
		DataSize:              size,
		BlockID:               block.BlockKey,
		ContainerName:         block.Pipeline.ContainerName,
		ShouldCreateContainer: block.CreateContainer,
		CreatedOn:             k.clock.Now(),
	}

	cmd, err := newCommand(OpCreateKey, createKeyPayload{Key: key})
	if err != nil {
		k.compensate(block, err)
		return nil, err
	}
	result, commitErr := k.node.Apply(cmd, applyTimeout)
	if rerr := asResultError(result, commitErr); rerr != nil {
		k.compensate(block, rerr)
		return nil, rerr
	}
	return result.(*types.Key), nil
}

// compensate releases an allocated block's storage after a failed
// commit, so a failed AllocateKey never leaks space on the datanodes.
func (k *KSM) compensate(block *types.AllocatedBlock, cause error) {
	if err := k.scm.DeleteBlocks(block.Pipeline.ContainerName, []string{block.BlockKey}); err != nil {
		k.logger.Error().Err(err).Str("block", block.BlockKey).AnErr("cause", cause).
			Msg("compensating delete failed after allocateKey error")
	}
}

// LookupKey resolves a key to its block location.
func (k *KSM) LookupKey(volumeName, bucketName, keyName string) (*types.Key, error) {
	unlock := k.store.ReadLock()
	defer unlock()
	key, err := getKey(k.store, volumeName, bucketName, keyName)
	if err == storage.ErrNotFound {
		return nil, ErrKeyNotFound
	}
	return key, err
}

// DeleteKey removes a key record and asynchronously queues its blocks
// for garbage collection on SCM; a GC failure is logged, not returned,
// since the key record itself is already gone.
func (k *KSM) DeleteKey(volumeName, bucketName, keyName string) error {
	cmd, err := newCommand(OpDeleteKey, deleteKeyPayload{VolumeName: volumeName, BucketName: bucketName, KeyName: keyName})
	if err != nil {
		return err
	}
	result, err := k.node.Apply(cmd, applyTimeout)
	if rerr := asResultError(result, err); rerr != nil {
		return rerr
	}

	deleted := result.(*types.Key)
	go func() {
		if err := k.scm.DeleteBlocks(deleted.ContainerName, []string{deleted.BlockID}); err != nil {
			k.logger.Error().Err(err).
				Str("volume", volumeName).Str("bucket", bucketName).Str("key", keyName).
				Msg("block GC failed for deleted key")
		}
	}()
	return nil
}

// ListKeys lists up to maxKeys keys in a bucket whose names start with
// keyPrefix, in lexicographic order.
func (k *KSM) ListKeys(volumeName, bucketName, keyPrefix string, maxKeys int) ([]*types.Key, error) {
	unlock := k.store.ReadLock()
	defer unlock()
	return listKeys(k.store, volumeName, bucketName, keyPrefix, maxKeys)
}

// Stats exposes Raft cluster state for health and CLI reporting.
func (k *KSM) Stats(_ context.Context) map[string]interface{} {
	return k.node.Stats()
}
