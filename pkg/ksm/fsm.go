package ksm

import (
	"fmt"

	"github.com/cuemby/ozone/pkg/consensus"
	"github.com/cuemby/ozone/pkg/storage"
)

// applier implements consensus.Applier for KSM's registry. As in
// pkg/scm, non-deterministic work (SCM block allocation, placement
// decisions) happens in the calling KSM method before a command ever
// reaches the log; Apply only ever performs deterministic reads and
// writes of the already-decided payload.
type applier struct{}

func (applier) Apply(store storage.Store, cmd consensus.Command) interface{} {
	switch cmd.Op {
	case OpCreateVolume:
		return applyCreateVolume(store, cmd)
	case OpSetOwner:
		return applySetOwner(store, cmd)
	case OpSetQuota:
		return applySetQuota(store, cmd)
	case OpDeleteVolume:
		return applyDeleteVolume(store, cmd)
	case OpCreateBucket:
		return applyCreateBucket(store, cmd)
	case OpSetBucketProperty:
		return applySetBucketProperty(store, cmd)
	case OpDeleteBucket:
		return applyDeleteBucket(store, cmd)
	case OpCreateKey:
		return applyCreateKey(store, cmd)
	case OpDeleteKey:
		return applyDeleteKey(store, cmd)
	default:
		return fmt.Errorf("ksm: unknown command op %q", cmd.Op)
	}
}

func applyCreateVolume(store storage.Store, cmd consensus.Command) interface{} {
	var p createVolumePayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		if _, err := getVolume(store, p.Volume.Name); err == nil {
			result = ErrVolumeAlreadyExists
			return nil
		} else if err != storage.ErrNotFound {
			return err
		}

		vols, err := getUserVolumes(store, p.Volume.OwnerName)
		if err != nil {
			return err
		}
		vols = append(vols, p.Volume.Name)
		if err := putUserVolumes(b, p.Volume.OwnerName, vols); err != nil {
			return err
		}
		if err := putVolume(b, p.Volume); err != nil {
			return err
		}
		result = p.Volume
		return nil
	})
	if err != nil {
		return err
	}
	return result
}

func applySetOwner(store storage.Store, cmd consensus.Command) interface{} {
	var p setOwnerPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		v, err := getVolume(store, p.VolumeName)
		if err == storage.ErrNotFound {
			result = ErrVolumeNotFound
			return nil
		}
		if err != nil {
			return err
		}

		oldOwnerVols, err := getUserVolumes(store, v.OwnerName)
		if err != nil {
			return err
		}
		if err := putUserVolumes(b, v.OwnerName, removeVolumeFromUser(oldOwnerVols, v.Name)); err != nil {
			return err
		}

		newOwnerVols, err := getUserVolumes(store, p.NewOwner)
		if err != nil {
			return err
		}
		if err := putUserVolumes(b, p.NewOwner, append(newOwnerVols, v.Name)); err != nil {
			return err
		}

		v.OwnerName = p.NewOwner
		if err := putVolume(b, v); err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return err
	}
	return result
}

func applySetQuota(store storage.Store, cmd consensus.Command) interface{} {
	var p setQuotaPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		v, err := getVolume(store, p.VolumeName)
		if err == storage.ErrNotFound {
			result = ErrVolumeNotFound
			return nil
		}
		if err != nil {
			return err
		}
		v.QuotaBytes = p.QuotaBytes
		if err := putVolume(b, v); err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return err
	}
	return result
}

func applyDeleteVolume(store storage.Store, cmd consensus.Command) interface{} {
	var p deleteVolumePayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		v, err := getVolume(store, p.VolumeName)
		if err == storage.ErrNotFound {
			// Idempotent on NOT_FOUND, as pkg/scm's deleteContainer is.
			return nil
		}
		if err != nil {
			return err
		}

		// Collected before any delete so no iterator is held open
		// across mutations of the same transaction.
		subtree, objects, err := collectVolumeSubtree(store, p.VolumeName)
		if err != nil {
			return err
		}
		if len(subtree) > 0 && !p.Force {
			result = ErrVolumeNotEmpty
			return nil
		}
		for _, key := range subtree {
			if err := b.Delete(key); err != nil {
				return err
			}
		}

		vols, err := getUserVolumes(store, v.OwnerName)
		if err != nil {
			return err
		}
		if err := putUserVolumes(b, v.OwnerName, removeVolumeFromUser(vols, v.Name)); err != nil {
			return err
		}
		if err := b.Delete(volumeKey(p.VolumeName)); err != nil {
			return err
		}
		result = objects
		return nil
	})
	if err != nil {
		return err
	}
	return result
}

func applyCreateBucket(store storage.Store, cmd consensus.Command) interface{} {
	var p createBucketPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		if _, err := getVolume(store, p.Bucket.VolumeName); err == storage.ErrNotFound {
			result = ErrVolumeNotFound
			return nil
		} else if err != nil {
			return err
		}
		if _, err := getBucket(store, p.Bucket.VolumeName, p.Bucket.BucketName); err == nil {
			result = ErrBucketAlreadyExists
			return nil
		} else if err != storage.ErrNotFound {
			return err
		}
		if err := putBucket(b, p.Bucket); err != nil {
			return err
		}
		result = p.Bucket
		return nil
	})
	if err != nil {
		return err
	}
	return result
}

func applySetBucketProperty(store storage.Store, cmd consensus.Command) interface{} {
	var p setBucketPropertyPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		bk, err := getBucket(store, p.VolumeName, p.BucketName)
		if err == storage.ErrNotFound {
			result = ErrBucketNotFound
			return nil
		}
		if err != nil {
			return err
		}
		bk.VersioningEnabled = p.VersioningEnabled
		if p.StorageType != "" {
			bk.StorageType = p.StorageType
		}
		if err := putBucket(b, bk); err != nil {
			return err
		}
		result = bk
		return nil
	})
	if err != nil {
		return err
	}
	return result
}

func applyDeleteBucket(store storage.Store, cmd consensus.Command) interface{} {
	var p deleteBucketPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		if _, err := getBucket(store, p.VolumeName, p.BucketName); err == storage.ErrNotFound {
			return nil
		} else if err != nil {
			return err
		}

		empty, err := bucketIsEmpty(store, p.VolumeName, p.BucketName)
		if err != nil {
			return err
		}
		if !empty {
			result = ErrBucketNotEmpty
			return nil
		}
		return b.Delete(bucketKey(p.VolumeName, p.BucketName))
	})
	if err != nil {
		return err
	}
	return result
}

func applyCreateKey(store storage.Store, cmd consensus.Command) interface{} {
	var p createKeyPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		if _, err := getBucket(store, p.Key.VolumeName, p.Key.BucketName); err == storage.ErrNotFound {
			result = ErrBucketNotFound
			return nil
		} else if err != nil {
			return err
		}
		if _, err := getKey(store, p.Key.VolumeName, p.Key.BucketName, p.Key.KeyName); err == nil {
			result = ErrKeyAlreadyExists
			return nil
		} else if err != storage.ErrNotFound {
			return err
		}
		if err := putKey(b, p.Key); err != nil {
			return err
		}
		result = p.Key
		return nil
	})
	if err != nil {
		return err
	}
	return result
}

func applyDeleteKey(store storage.Store, cmd consensus.Command) interface{} {
	var p deleteKeyPayload
	if err := decodePayload(cmd.Data, &p); err != nil {
		return err
	}

	var result interface{}
	err := store.Batch(func(b storage.Batch) error {
		k, err := getKey(store, p.VolumeName, p.BucketName, p.KeyName)
		if err == storage.ErrNotFound {
			result = ErrKeyNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if err := b.Delete(objectKey(p.VolumeName, p.BucketName, p.KeyName)); err != nil {
			return err
		}
		result = k
		return nil
	})
	if err != nil {
		return err
	}
	return result
}
