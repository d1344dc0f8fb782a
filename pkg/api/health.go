package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cuemby/ozone/pkg/metrics"
	"github.com/cuemby/ozone/pkg/storage"
)

// RaftStatus is the readiness check's view of a consensus node.
// *consensus.Node satisfies it; pkg/api never needs to import the
// consensus package for anything but this.
type RaftStatus interface {
	IsLeader() bool
	LeaderAddr() string
}

// HealthServer provides HTTP health check endpoints for a single
// Ozone role process (SCM, KSM, or datanode). raft and store are
// optional: a datanode runs no raft node, so it reports "not
// initialized" for that check rather than pretending it's ready.
type HealthServer struct {
	raft  RaftStatus
	store storage.Store
	mux   *http.ServeMux
}

// NewHealthServer creates a new health check HTTP server. raft and
// store may be nil for roles that don't run one. metricsCtx may also
// be nil, in which case /metrics serves a fresh, unshared
// metrics.Context whose collectors all read zero, rather than
// panicking.
func NewHealthServer(raft RaftStatus, store storage.Store, metricsCtx *metrics.Context) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		raft:  raft,
		store: store,
		mux:   mux,
	}

	mux.HandleFunc("/health", hs.healthHandler)
	mux.HandleFunc("/ready", hs.readyHandler)
	if metricsCtx != nil {
		mux.Handle("/metrics", metricsCtx.Handler())
	} else {
		mux.Handle("/metrics", metrics.NewContext("ozone").Handler())
	}

	return hs
}

// Start serves the health endpoints on addr, blocking until the
// listener fails.
func (hs *HealthServer) Start(addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      hs.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// HealthResponse is the /health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

// ReadyResponse is the /ready payload, one entry per checked
// dependency.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler is pure liveness: 200 whenever the process can answer.
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}

// readyHandler reports whether this node can serve traffic: the raft
// node must see a leader (itself or another) and the metadata store
// must answer.
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := make(map[string]string)
	ready := true
	var message string

	if hs.raft != nil {
		if hs.raft.IsLeader() {
			checks["raft"] = "leader"
		} else {
			leaderAddr := hs.raft.LeaderAddr()
			if leaderAddr != "" {
				checks["raft"] = fmt.Sprintf("follower (leader: %s)", leaderAddr)
			} else {
				checks["raft"] = "no leader elected"
				ready = false
				message = "waiting for leader election"
			}
		}
	} else {
		checks["raft"] = "not initialized"
		ready = false
		message = "raft not initialized"
	}

	if hs.store != nil {
		if _, err := hs.store.IsEmpty(); err != nil {
			checks["storage"] = fmt.Sprintf("error: %v", err)
			ready = false
			if message == "" {
				message = "storage not accessible"
			}
		} else {
			checks["storage"] = "ok"
		}
	} else {
		checks["storage"] = "not initialized"
		ready = false
	}

	status := "ready"
	statusCode := http.StatusOK

	if !ready {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	response := ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   message,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// GetHandler exposes the mux for embedding in another server.
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

// Version is the build version reported on /health. cmd/* binaries
// may override it via -ldflags at release build time.
var Version = "dev"
