// Package containerclient implements the container client: connection pooling to pipeline leaders and the chunk
// read/write streams built on top of it. The connection wrapper
// pattern used elsewhere in this codebase for mTLS-dialed clients is
// generalized here into a per-leader pool, and its idle-janitor
// goroutine follows the same ticker-loop shape used by the liveness
// sweeper.
package containerclient

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/ozone/pkg/log"
	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/rpc"
	"github.com/cuemby/ozone/pkg/security"
	"github.com/cuemby/ozone/pkg/types"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

// Resolver maps a datanode UUID to a dialable address. The manager
// doesn't own datanode directory state itself; callers typically back
// this with SCM's datanode report or a local cache of it.
type Resolver interface {
	ResolveAddr(datanodeUUID string) (string, error)
}

// ResolverFunc adapts a plain function to a Resolver.
type ResolverFunc func(datanodeUUID string) (string, error)

func (f ResolverFunc) ResolveAddr(uuid string) (string, error) { return f(uuid) }

// pooledClient is one leader connection, reference-counted across
// concurrently open chunk streams that share a pipeline.
type pooledClient struct {
	conn     *grpc.ClientConn
	client   rpc.ContainerClient
	refCount int
	idleAt   time.Time // zero while refCount > 0
}

// Manager keeps at most one logical connection per pipeline leader.
// AcquireClient/ReleaseClient implement the reference counting, and a
// janitor goroutine closes connections that have sat
// idle past the grace window. The manager is safe for concurrent use;
// AcquireClient may block on TCP connect, but it releases the map's
// lock before dialing, so a slow connect holds no lock.
type Manager struct {
	cfg      Config
	resolver Resolver
	logger   zerolog.Logger

	mu   sync.Mutex
	pool map[string]*pooledClient // keyed by leader address

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager builds a Manager and starts its idle-connection janitor.
func NewManager(cfg Config, resolver Resolver) *Manager {
	m := &Manager{
		cfg:      cfg,
		resolver: resolver,
		logger:   log.WithComponent("containerclient"),
		pool:     make(map[string]*pooledClient),
		stopCh:   make(chan struct{}),
	}
	m.wg.Add(1)
	go m.janitorLoop()
	return m
}

// Client is a handle returned by AcquireClient; callers must call
// Release exactly once when finished with it.
type Client struct {
	m       *Manager
	addr    string
	rpc     rpc.ContainerClient
	metrics *metrics.Context
}

// RPC exposes the underlying container data-plane client.
func (c *Client) RPC() rpc.ContainerClient { return c.rpc }

// SendCommand runs fn synchronously, recording it under op in the
// chunk-ops counter.
func (c *Client) SendCommand(op string, fn func() (interface{}, error)) (interface{}, error) {
	return sendCommand(c.metrics, op, fn)
}

// SendCommandAsync runs fn on its own goroutine, tracking it in the
// pending-ops gauge until it completes or fails.
func (c *Client) SendCommandAsync(op string, fn func() (interface{}, error)) *Future {
	return sendCommandAsync(c.metrics, op, fn)
}

// newTestClient builds a Client directly from an already-dialed
// connection, bypassing mTLS dialing. Used by tests that exercise
// chunk streams over bufconn.
func newTestClient(cc grpc.ClientConnInterface) *Client {
	return &Client{rpc: rpc.NewContainerClient(cc)}
}

// Release decrements the pool's reference count for this connection.
func (c *Client) Release() {
	if c.m != nil {
		c.m.release(c.addr)
	}
}

// AcquireClient resolves pipeline's leader to an address, dials it if
// not already pooled, and returns a reference-counted handle. Acquire
// may block on TCP connect for a fresh leader.
func (m *Manager) AcquireClient(pipeline *types.Pipeline) (*Client, error) {
	addr, err := m.resolver.ResolveAddr(pipeline.LeaderUUID)
	if err != nil {
		return nil, fmt.Errorf("containerclient: resolve leader %s: %w", pipeline.LeaderUUID, err)
	}

	m.mu.Lock()
	pc, ok := m.pool[addr]
	if ok {
		pc.refCount++
		m.mu.Unlock()
		return &Client{m: m, addr: addr, rpc: pc.client, metrics: m.cfg.Metrics}, nil
	}
	m.mu.Unlock()

	conn, err := m.dial(addr)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	// Another goroutine may have raced us to dial the same address.
	if existing, ok := m.pool[addr]; ok {
		existing.refCount++
		m.mu.Unlock()
		_ = conn.Close()
		return &Client{m: m, addr: addr, rpc: existing.client, metrics: m.cfg.Metrics}, nil
	}
	pc = &pooledClient{conn: conn, client: rpc.NewContainerClient(conn), refCount: 1}
	m.pool[addr] = pc
	m.mu.Unlock()

	return &Client{m: m, addr: addr, rpc: pc.client, metrics: m.cfg.Metrics}, nil
}

func (m *Manager) dial(addr string) (*grpc.ClientConn, error) {
	if m.cfg.CertDir == "" {
		return nil, fmt.Errorf("containerclient: no cert directory configured")
	}
	cert, err := security.LoadCertFromFile(m.cfg.CertDir)
	if err != nil {
		return nil, fmt.Errorf("containerclient: load certificate: %w", err)
	}
	caCert, err := security.LoadCACertFromFile(m.cfg.CertDir)
	if err != nil {
		return nil, fmt.Errorf("containerclient: load CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(caCert)

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{*cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS13,
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)))
	if err != nil {
		return nil, fmt.Errorf("containerclient: dial %s: %w", addr, err)
	}
	return conn, nil
}

func (m *Manager) release(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pc, ok := m.pool[addr]
	if !ok {
		return
	}
	pc.refCount--
	if pc.refCount <= 0 {
		pc.refCount = 0
		pc.idleAt = time.Now()
	}
}

func (m *Manager) janitorLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.idleGrace() / 2)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.sweepIdle()
		}
	}
}

func (m *Manager) sweepIdle() {
	grace := m.cfg.idleGrace()
	now := time.Now()

	m.mu.Lock()
	var stale []string
	for addr, pc := range m.pool {
		if pc.refCount == 0 && !pc.idleAt.IsZero() && now.Sub(pc.idleAt) >= grace {
			stale = append(stale, addr)
		}
	}
	closing := make([]*grpc.ClientConn, 0, len(stale))
	for _, addr := range stale {
		closing = append(closing, m.pool[addr].conn)
		delete(m.pool, addr)
	}
	m.mu.Unlock()

	for i, conn := range closing {
		if err := conn.Close(); err != nil {
			m.logger.Error().Err(err).Str("addr", stale[i]).Msg("failed closing idle container client connection")
		}
	}
}

// Stop halts the janitor and closes every pooled connection,
// regardless of reference count.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for addr, pc := range m.pool {
		_ = pc.conn.Close()
		delete(m.pool, addr)
	}
}
