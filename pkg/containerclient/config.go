package containerclient

import (
	"time"

	"github.com/cuemby/ozone/pkg/metrics"
)

// Defaults for configuration keys scm.chunk.size / scm.chunk.max.size.
// The hard max is enforced regardless of what a caller requests.
const (
	DefaultChunkSize    = 16 << 20 // 16 MiB
	MaxChunkSize        = 32 << 20 // 32 MiB
	defaultSmallFileMax = 1 << 20  // 1 MiB: below this, putKey is folded into the write RPC.

	// defaultIdleGrace is how long an unreferenced pooled connection is
	// kept warm before the janitor closes it.
	defaultIdleGrace = 5 * time.Minute
)

// Config tunes a Manager and the chunk streams it opens.
type Config struct {
	ChunkSize    int64
	SmallFileMax int64
	IdleGrace    time.Duration
	CertDir      string
	Metrics      *metrics.Context
}

func (c Config) chunkSize() int64 {
	if c.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	if c.ChunkSize > MaxChunkSize {
		return MaxChunkSize
	}
	return c.ChunkSize
}

func (c Config) smallFileMax() int64 {
	if c.SmallFileMax <= 0 {
		return defaultSmallFileMax
	}
	return c.SmallFileMax
}

func (c Config) idleGrace() time.Duration {
	if c.IdleGrace <= 0 {
		return defaultIdleGrace
	}
	return c.IdleGrace
}
