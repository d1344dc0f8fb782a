package scm

import (
	"sync"
	"time"

	"github.com/cuemby/ozone/pkg/types"
)

// LivenessConfig tunes the heartbeat/liveness sweep.
type LivenessConfig struct {
	Tstale            time.Duration
	Tdead             time.Duration
	SweepInterval     time.Duration
}

// DefaultLivenessConfig returns conservative production defaults.
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		Tstale:        90 * time.Second,
		Tdead:         300 * time.Second,
		SweepInterval: 30 * time.Second,
	}
}

// LivenessSweeper periodically evaluates every datanode's
// heartbeat age and transitions HEALTHY→STALE→DEAD on its own
// ticker/stop-channel loop, independent of heartbeat processing.
type LivenessSweeper struct {
	scm   *SCM
	cfg   LivenessConfig
	clock Clock

	mu     sync.Mutex
	stopCh chan struct{}
}

// NewLivenessSweeper builds a sweeper over scm using cfg. clock must
// be the same Clock the SCM was constructed with so sweep decisions
// and heartbeat timestamps share one time source.
func NewLivenessSweeper(scm *SCM, cfg LivenessConfig, clock Clock) *LivenessSweeper {
	return &LivenessSweeper{
		scm:    scm,
		cfg:    cfg,
		clock:  clock,
		stopCh: make(chan struct{}),
	}
}

// Start begins the sweep loop in its own goroutine.
func (l *LivenessSweeper) Start() {
	go l.run()
}

// Stop halts the sweep loop.
func (l *LivenessSweeper) Stop() {
	close(l.stopCh)
}

func (l *LivenessSweeper) run() {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

// sweep evaluates every datanode's liveness exactly once. A heartbeat
// received mid-sweep is applied on the next sweep, because this function reads the full registry
// snapshot once at the top.
func (l *LivenessSweeper) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	datanodes, err := l.scm.GetDatanodeReport("")
	if err != nil {
		l.scm.logger.Error().Err(err).Msg("liveness sweep failed to list datanodes")
		return
	}

	now := l.clock.NowNanos()
	for _, d := range datanodes {
		next := nextLivenessState(d, now, l.cfg)
		if next == d.State {
			continue
		}
		if err := l.transition(d, next); err != nil {
			l.scm.logger.Error().Err(err).Str("datanode", d.UUID).Msg("liveness sweep failed to transition datanode")
		}
	}
}

// nextLivenessState computes the liveness transition for d given the
// current monotonic time: HEALTHY -> STALE -> DEAD as heartbeats are
// missed. Only downgrades are computed here; upgrades back to HEALTHY only
// ever happen via a successful heartbeat or register (applyRecordHeartbeat,
// SCM.Register), never via the sweep, preserving the monotonicity
// invariant.
func nextLivenessState(d *types.Datanode, nowNanos int64, cfg LivenessConfig) types.DatanodeState {
	if d.State != types.DatanodeHealthy && d.State != types.DatanodeStale {
		return d.State
	}

	age := time.Duration(nowNanos - d.LastHeartbeatMonotonic)
	switch {
	case d.State == types.DatanodeStale && age > cfg.Tdead:
		return types.DatanodeDead
	case age > cfg.Tstale:
		return types.DatanodeStale
	default:
		return d.State
	}
}

func (l *LivenessSweeper) transition(d *types.Datanode, next types.DatanodeState) error {
	updated := *d
	updated.State = next
	cmd, err := newCommand(OpUpsertDatanode, upsertDatanodePayload{Datanode: &updated})
	if err != nil {
		return err
	}
	_, err = l.scm.node.Apply(cmd, applyTimeout)
	return err
}
