// Package datanode implements the per-datanode endpoint state machine
// that registers a node with SCM and keeps it alive through periodic
// heartbeats: GETVERSION→REGISTER→HEARTBEAT→SHUTDOWN, scheduled on the
// same ticker/stop-channel shape as the other background loops in this
// codebase.
package datanode

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/rs/zerolog"
)

// State is one phase of the endpoint state machine.
type State string

const (
	StateGetVersion State = "GETVERSION"
	StateRegister   State = "REGISTER"
	StateHeartbeat  State = "HEARTBEAT"
	StateShutdown   State = "SHUTDOWN"
)

// SCMClient is the subset of the StorageContainerDatanodeProtocol an
// endpoint needs. Production wiring is pkg/scm/client; tests supply a
// fake so this package never depends on the transport. GetVersion also
// returns the cluster ID the endpoint must present when registering.
type SCMClient interface {
	GetVersion(ctx context.Context) (int32, string, error)
	Register(ctx context.Context, details *types.Datanode, containerReport []string) (*types.Datanode, error)
	SendHeartbeat(ctx context.Context, uuid string, stat types.NodeStat) ([]types.SCMCommand, error)
}

// Config configures one Endpoint.
type Config struct {
	Client          SCMClient
	Details         *types.Datanode
	StatFunc        func() types.NodeStat // polled on each heartbeat
	ReportFunc      func() []string       // container report sent on each REGISTER
	HeartbeatPeriod time.Duration
	MaxMissed       int // consecutive missed heartbeats before REGISTER retry
	QueueCapacity   int
	Metrics         *metrics.Context
}

const (
	defaultHeartbeatPeriod = 30 * time.Second
	defaultMaxMissed       = 3
	defaultQueueCapacity   = 256
)

// Endpoint drives one SCM endpoint's state machine for this process.
// Tasks are scheduled on a single-threaded cooperative executor (one
// goroutine, a ticker, a stop channel) and an exclusive lock is held
// for the duration of each tick, so state reads/writes are serialized
// with result delivery.
type Endpoint struct {
	client     SCMClient
	details    *types.Datanode
	statFunc   func() types.NodeStat
	reportFunc func() []string
	period     time.Duration
	maxMissed  int
	metrics    *metrics.Context
	logger     zerolog.Logger

	mu          sync.Mutex
	state       State
	missedCount int
	clusterID   string

	queue      chan types.SCMCommand
	processors map[types.SCMCommandType]CommandProcessor

	stopCh chan struct{}
}

// NewEndpoint builds an Endpoint in the GETVERSION state.
func NewEndpoint(cfg Config) *Endpoint {
	period := cfg.HeartbeatPeriod
	if period <= 0 {
		period = defaultHeartbeatPeriod
	}
	maxMissed := cfg.MaxMissed
	if maxMissed <= 0 {
		maxMissed = defaultMaxMissed
	}
	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	return &Endpoint{
		client:     cfg.Client,
		details:    cfg.Details,
		statFunc:   cfg.StatFunc,
		reportFunc: cfg.ReportFunc,
		period:     period,
		maxMissed:  maxMissed,
		metrics:    cfg.Metrics,
		logger:     log.WithComponent("datanode-endpoint"),
		state:      StateGetVersion,
		queue:      make(chan types.SCMCommand, capacity),
		processors: make(map[types.SCMCommandType]CommandProcessor),
		stopCh:     make(chan struct{}),
	}
}

// RegisterProcessor wires a CommandProcessor for one SCMCommandType.
// Must be called before Start.
func (e *Endpoint) RegisterProcessor(t types.SCMCommandType, p CommandProcessor) {
	e.processors[t] = p
}

// Start begins the endpoint's ticker loop and its command-drain
// goroutine, the latter draining queued SCMCommands on its own
// goroutine independent of the heartbeat ticker.
func (e *Endpoint) Start() {
	go e.run()
	go e.drainCommands()
}

// Stop transitions the endpoint to SHUTDOWN and halts both loops.
func (e *Endpoint) Stop() {
	e.mu.Lock()
	e.state = StateShutdown
	e.mu.Unlock()
	close(e.stopCh)
}

// State returns the endpoint's current state.
func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Endpoint) run() {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	e.tick() // GETVERSION happens immediately, not on the first tick
	for {
		select {
		case <-ticker.C:
			e.tick()
		case <-e.stopCh:
			return
		}
	}
}

// tick executes exactly one state-machine step under the endpoint's
// lock, serializing state reads/writes with result delivery.
func (e *Endpoint) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateGetVersion:
		e.doGetVersion()
	case StateRegister:
		e.doRegister()
	case StateHeartbeat:
		e.doHeartbeat()
	case StateShutdown:
		// terminal; nothing scheduled
	}
}

func (e *Endpoint) doGetVersion() {
	ctx, cancel := context.WithTimeout(context.Background(), e.period)
	defer cancel()

	_, clusterID, err := e.client.GetVersion(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("datanode endpoint getVersion failed")
		return
	}
	e.clusterID = clusterID
	e.details.ClusterID = clusterID
	e.state = StateRegister
}

func (e *Endpoint) doRegister() {
	ctx, cancel := context.WithTimeout(context.Background(), e.period)
	defer cancel()

	var report []string
	if e.reportFunc != nil {
		report = e.reportFunc()
	}
	resp, err := e.client.Register(ctx, e.details, report)
	if err != nil {
		e.logger.Error().Err(err).Msg("datanode endpoint register failed")
		return
	}
	if e.details.UUID != "" && resp.UUID != e.details.UUID {
		// Fatal invariant: UUID mismatch on re-register.
		e.logger.Error().Str("expected", e.details.UUID).Str("got", resp.UUID).
			Msg("datanode endpoint register returned mismatched UUID, shutting down")
		e.state = StateShutdown
		return
	}
	e.details.UUID = resp.UUID
	e.clusterID = resp.ClusterID
	e.missedCount = 0
	e.state = StateHeartbeat
}

func (e *Endpoint) doHeartbeat() {
	ctx, cancel := context.WithTimeout(context.Background(), e.period)
	defer cancel()

	stat := types.NodeStat{}
	if e.statFunc != nil {
		stat = e.statFunc()
	}

	cmds, err := e.client.SendHeartbeat(ctx, e.details.UUID, stat)
	if err != nil {
		e.missedCount++
		e.logger.Warn().Err(err).Int("missed", e.missedCount).Msg("datanode endpoint heartbeat failed")
		if e.missedCount >= e.maxMissed {
			e.state = StateRegister
		}
		return
	}

	e.missedCount = 0
	for _, cmd := range cmds {
		select {
		case e.queue <- cmd:
		default:
			e.logger.Error().Str("command", string(cmd.Type)).Msg("datanode endpoint command queue full, dropping command")
		}
	}
}

func (e *Endpoint) drainCommands() {
	for {
		select {
		case cmd := <-e.queue:
			e.process(cmd)
		case <-e.stopCh:
			return
		}
	}
}

func (e *Endpoint) process(cmd types.SCMCommand) {
	p, ok := e.processors[cmd.Type]
	if !ok {
		e.logger.Error().Str("command", string(cmd.Type)).Msg("datanode endpoint has no processor registered for command type")
		return
	}
	if err := p.Process(cmd); err != nil {
		e.logger.Error().Err(err).Str("command", string(cmd.Type)).Msg("datanode endpoint command processing failed")
	}
}
