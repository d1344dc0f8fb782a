package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysOntoDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ozone.yaml")
	yaml := []byte("scm:\n  address: 10.0.0.5:9090\n  chunkSize: 1048576\nksm:\n  handlerCount: 25\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5:9090", cfg.SCM.ClientAddr)
	assert.Equal(t, int64(1048576), cfg.SCM.ChunkSize)
	assert.Equal(t, 25, cfg.KSM.HandlerCount)
	// Untouched fields keep their defaults.
	assert.Equal(t, Default().SCM.PlacementImpl, cfg.SCM.PlacementImpl)
	assert.Equal(t, Default().Datanode.CapacityBytes, cfg.Datanode.CapacityBytes)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, int64(90), int64(cfg.SCM.StaleDuration().Seconds()))
	assert.Equal(t, int64(300), int64(cfg.SCM.DeadDuration().Seconds()))
	assert.Equal(t, int64(30), int64(cfg.SCM.HeartbeatDuration().Seconds()))
	assert.Equal(t, int64(30), int64(cfg.Datanode.HeartbeatDuration().Seconds()))
}
