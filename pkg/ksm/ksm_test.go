package ksm

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/ozone/pkg/storage"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/stretchr/testify/require"
)

// fakeClock is an injectable Clock for deterministic tests.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

// fakeSCM is an in-memory stand-in for pkg/scm/client.Client, letting
// AllocateKey/DeleteKey be tested without a real SCM cluster.
type fakeSCM struct {
	mu           sync.Mutex
	nextBlock    int
	failAllocate bool
	deleted      [][]string
	failDelete   bool
}

func (f *fakeSCM) AllocateBlock(replType types.ReplicationType, factor types.ReplicationFactor, size int64) (*types.AllocatedBlock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAllocate {
		return nil, fmt.Errorf("fakeSCM: allocate failed")
	}
	f.nextBlock++
	return &types.AllocatedBlock{
		BlockKey: fmt.Sprintf("c1:%d", f.nextBlock),
		Pipeline: &types.Pipeline{ContainerName: "c1", Members: []string{"d1"}},
	}, nil
}

func (f *fakeSCM) DeleteBlocks(containerName string, blockKeys []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete {
		return fmt.Errorf("fakeSCM: delete failed")
	}
	f.deleted = append(f.deleted, blockKeys)
	return nil
}

func (f *fakeSCM) deletedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

var testPort int64 = 24000

func freeAddr() string {
	port := atomic.AddInt64(&testPort, 1)
	return fmt.Sprintf("127.0.0.1:%d", port)
}

func newTestKSM(t *testing.T, clock Clock, scm SCMClient) *KSM {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "ksm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	k, err := New(Config{
		LocalID:   "ksm1",
		BindAddr:  freeAddr(),
		DataDir:   t.TempDir(),
		Store:     store,
		SCMClient: scm,
		Clock:     clock,
	})
	require.NoError(t, err)
	require.NoError(t, k.Node().Bootstrap())
	t.Cleanup(func() { _ = k.Node().Shutdown() })
	require.Eventually(t, k.Node().IsLeader, 5*time.Second, 50*time.Millisecond)
	return k
}

func TestCreateAndGetVolume(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})

	v, err := k.CreateVolume("vol1", "alice", "admin", 1024)
	require.NoError(t, err)
	require.Equal(t, "vol1", v.Name)

	got, err := k.GetVolumeInfo("vol1")
	require.NoError(t, err)
	require.Equal(t, "alice", got.OwnerName)
}

func TestCreateVolumeAlreadyExists(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})

	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)

	_, err = k.CreateVolume("vol1", "bob", "admin", 0)
	require.ErrorIs(t, err, ErrVolumeAlreadyExists)
}

func TestCreateVolumeUserQuota(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	k.maxVolumesPerUser = 1

	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)

	_, err = k.CreateVolume("vol2", "alice", "admin", 0)
	require.ErrorIs(t, err, ErrUserTooManyVolumes)
}

func TestDeleteVolumeNotEmptyThenEmpty(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)

	err = k.DeleteVolume("vol1", false)
	require.ErrorIs(t, err, ErrVolumeNotEmpty)

	require.NoError(t, k.DeleteBucket("vol1", "b1"))
	require.NoError(t, k.DeleteVolume("vol1", false))

	// Idempotent on NOT_FOUND.
	require.NoError(t, k.DeleteVolume("vol1", false))

	_, err = k.GetVolumeInfo("vol1")
	require.ErrorIs(t, err, ErrVolumeNotFound)
}

func TestDeleteVolumeForceRemovesSubtreeAndQueuesGC(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)
	_, err = k.AllocateKey("vol1", "b1", "obj1", 4096, types.ReplicationRatis, types.FactorThree)
	require.NoError(t, err)

	require.NoError(t, k.DeleteVolume("vol1", true))

	_, err = k.GetVolumeInfo("vol1")
	require.ErrorIs(t, err, ErrVolumeNotFound)
	_, err = k.GetBucketInfo("vol1", "b1")
	require.ErrorIs(t, err, ErrBucketNotFound)

	require.Eventually(t, func() bool {
		return k.scm.(*fakeSCM).deletedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSetOwnerMovesUserIndex(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)

	v, err := k.SetOwner("vol1", "bob")
	require.NoError(t, err)
	require.Equal(t, "bob", v.OwnerName)

	// vol1 has left alice's user index.
	owned, err := getUserVolumes(k.store, "alice")
	require.NoError(t, err)
	require.Empty(t, owned)
}

func TestCreateBucketRequiresVolume(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateBucket("nosuch", "b1", false, "")
	require.ErrorIs(t, err, ErrVolumeNotFound)
}

func TestCreateBucketAlreadyExists(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.ErrorIs(t, err, ErrBucketAlreadyExists)
}

func TestAllocateKeyAndLookup(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)

	key, err := k.AllocateKey("vol1", "b1", "obj1", 4096, types.ReplicationRatis, types.FactorThree)
	require.NoError(t, err)
	require.Equal(t, "c1:1", key.BlockID)

	got, err := k.LookupKey("vol1", "b1", "obj1")
	require.NoError(t, err)
	require.Equal(t, key.BlockID, got.BlockID)
}

func TestAllocateKeyRejectsDuplicateName(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)

	_, err = k.AllocateKey("vol1", "b1", "obj1", 4096, types.ReplicationRatis, types.FactorThree)
	require.NoError(t, err)

	_, err = k.AllocateKey("vol1", "b1", "obj1", 4096, types.ReplicationRatis, types.FactorThree)
	require.ErrorIs(t, err, ErrKeyAlreadyExists)
}

func TestAllocateKeyRequiresBucket(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.AllocateKey("vol1", "nosuch", "obj1", 4096, types.ReplicationRatis, types.FactorThree)
	require.ErrorIs(t, err, ErrBucketNotFound)
}

func TestAllocateKeyLeavesNothingBehindOnAllocateFailure(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)

	scm := k.scm.(*fakeSCM)
	scm.failAllocate = true
	_, err = k.AllocateKey("vol1", "b1", "obj1", 4096, types.ReplicationRatis, types.FactorThree)
	require.Error(t, err)

	_, err = k.LookupKey("vol1", "b1", "obj1")
	require.ErrorIs(t, err, ErrKeyNotFound)
	// No block was allocated, so there is nothing to compensate.
	require.Zero(t, scm.deletedCount())
}

func TestDeleteKeyQueuesBlockGC(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)
	_, err = k.AllocateKey("vol1", "b1", "obj1", 4096, types.ReplicationRatis, types.FactorThree)
	require.NoError(t, err)

	require.NoError(t, k.DeleteKey("vol1", "b1", "obj1"))

	_, err = k.LookupKey("vol1", "b1", "obj1")
	require.ErrorIs(t, err, ErrKeyNotFound)

	require.Eventually(t, func() bool {
		return k.scm.(*fakeSCM).deletedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListKeysLexicographicOrder(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)

	for _, name := range []string{"c", "a", "b"} {
		_, err := k.AllocateKey("vol1", "b1", name, 1, types.ReplicationRatis, types.FactorThree)
		require.NoError(t, err)
	}

	keys, err := k.ListKeys("vol1", "b1", "", 0)
	require.NoError(t, err)
	require.Len(t, keys, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{keys[0].KeyName, keys[1].KeyName, keys[2].KeyName})
}

func TestListKeysPrefixDoesNotMatchBucketRecord(t *testing.T) {
	k := newTestKSM(t, &fakeClock{now: time.Unix(100, 0)}, &fakeSCM{})
	_, err := k.CreateVolume("vol1", "alice", "admin", 0)
	require.NoError(t, err)
	_, err = k.CreateBucket("vol1", "b1", false, "")
	require.NoError(t, err)

	keys, err := k.ListKeys("vol1", "b1", "", 0)
	require.NoError(t, err)
	require.Empty(t, keys)
}
