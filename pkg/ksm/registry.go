package ksm

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
)

// Key encoding. Lexicographic ordering over this
// encoding is load-bearing: a prefix scan of "/volume/bucket/" yields
// a bucket's keys in order, and because an object key is always one
// byte longer than its bucket's own key plus a "/", a bucket record
// never collides with the object-key scan for its own bucket.
const userIndexPrefix = "$"

func volumeKey(name string) []byte {
	return []byte("/" + name)
}

func bucketKey(volume, bucket string) []byte {
	return []byte("/" + volume + "/" + bucket)
}

func objectKeyPrefix(volume, bucket string) []byte {
	return []byte("/" + volume + "/" + bucket + "/")
}

func objectKey(volume, bucket, key string) []byte {
	return append(objectKeyPrefix(volume, bucket), []byte(key)...)
}

func userIndexKey(user string) []byte {
	return []byte(userIndexPrefix + user)
}

func volumeScanPrefix(volume string) []byte {
	return []byte("/" + volume + "/")
}

func getVolume(store storage.Store, name string) (*types.Volume, error) {
	raw, err := store.Get(volumeKey(name))
	if err != nil {
		return nil, err
	}
	var v types.Volume
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("ksm: corrupt volume record %q: %w", name, err)
	}
	return &v, nil
}

func putVolume(b storage.Batch, v *types.Volume) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put(volumeKey(v.Name), raw)
}

func getBucket(store storage.Store, volume, bucket string) (*types.Bucket, error) {
	raw, err := store.Get(bucketKey(volume, bucket))
	if err != nil {
		return nil, err
	}
	var bk types.Bucket
	if err := json.Unmarshal(raw, &bk); err != nil {
		return nil, fmt.Errorf("ksm: corrupt bucket record %q/%q: %w", volume, bucket, err)
	}
	return &bk, nil
}

func putBucket(b storage.Batch, bk *types.Bucket) error {
	raw, err := json.Marshal(bk)
	if err != nil {
		return err
	}
	return b.Put(bucketKey(bk.VolumeName, bk.BucketName), raw)
}

func getKey(store storage.Store, volume, bucket, key string) (*types.Key, error) {
	raw, err := store.Get(objectKey(volume, bucket, key))
	if err != nil {
		return nil, err
	}
	var k types.Key
	if err := json.Unmarshal(raw, &k); err != nil {
		return nil, fmt.Errorf("ksm: corrupt key record %q/%q/%q: %w", volume, bucket, key, err)
	}
	return &k, nil
}

func putKey(b storage.Batch, k *types.Key) error {
	raw, err := json.Marshal(k)
	if err != nil {
		return err
	}
	return b.Put(objectKey(k.VolumeName, k.BucketName, k.KeyName), raw)
}

// listKeys implements the listing primitive: a prefix scan over "/volume/bucket/" in strict lexicographic
// order, optionally narrowed by an additional keyName prefix.
func listKeys(store storage.Store, volume, bucket, keyPrefix string, maxKeys int) ([]*types.Key, error) {
	it, err := store.Iterator(objectKeyPrefix(volume, bucket))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*types.Key
	for it.Next() {
		kv := it.KV()
		name := strings.TrimPrefix(string(kv.Key), string(objectKeyPrefix(volume, bucket)))
		if keyPrefix != "" && !strings.HasPrefix(name, keyPrefix) {
			continue
		}
		var k types.Key
		if err := json.Unmarshal(kv.Value, &k); err != nil {
			return nil, fmt.Errorf("ksm: corrupt key record in %q/%q: %w", volume, bucket, err)
		}
		out = append(out, &k)
		if maxKeys > 0 && len(out) >= maxKeys {
			break
		}
	}
	return out, it.Err()
}

// bucketIsEmpty reports whether a bucket holds zero keys.
func bucketIsEmpty(store storage.Store, volume, bucket string) (bool, error) {
	it, err := store.Iterator(objectKeyPrefix(volume, bucket))
	if err != nil {
		return false, err
	}
	defer it.Close()
	empty := !it.Next()
	return empty, it.Err()
}

// collectVolumeSubtree gathers every bucket and object record under
// volume: the raw store keys to delete, plus the decoded object
// records so the caller can queue their blocks for garbage collection.
// A record whose name contains a further "/" past the volume prefix is
// an object; otherwise it is a bucket.
func collectVolumeSubtree(store storage.Store, volume string) ([][]byte, []*types.Key, error) {
	it, err := store.Iterator(volumeScanPrefix(volume))
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()

	prefix := string(volumeScanPrefix(volume))
	var storeKeys [][]byte
	var objects []*types.Key
	for it.Next() {
		kv := it.KV()
		storeKeys = append(storeKeys, kv.Key)
		if strings.Contains(strings.TrimPrefix(string(kv.Key), prefix), "/") {
			var k types.Key
			if err := json.Unmarshal(kv.Value, &k); err != nil {
				return nil, nil, fmt.Errorf("ksm: corrupt key record under %q: %w", volume, err)
			}
			objects = append(objects, &k)
		}
	}
	return storeKeys, objects, it.Err()
}

func getUserVolumes(store storage.Store, user string) ([]string, error) {
	raw, err := store.Get(userIndexKey(user))
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	var vols []string
	if err := json.Unmarshal(raw, &vols); err != nil {
		return nil, fmt.Errorf("ksm: corrupt user index %q: %w", user, err)
	}
	return vols, nil
}

// putUserVolumes persists the user's owned-volume index, kept sorted so
// repeated writes of the same set are byte-identical.
func putUserVolumes(b storage.Batch, user string, vols []string) error {
	sort.Strings(vols)
	raw, err := json.Marshal(vols)
	if err != nil {
		return err
	}
	return b.Put(userIndexKey(user), raw)
}

func removeVolumeFromUser(vols []string, name string) []string {
	out := vols[:0]
	for _, v := range vols {
		if v != name {
			out = append(out, v)
		}
	}
	return out
}
