// Package metrics wires Prometheus collectors for Ozone's
// control-plane and data-plane components.
//
// Registering every collector as a package-level var against the
// default registry would mean every process in the cluster shares one
// global metric set even though each node only plays one role. SCM,
// KSM, datanode, and the container client each need their own
// independent collector set (and, in tests, many of each in the same
// process), so collectors live on an explicit *Context instead of
// package-level globals.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Context owns one component's metric collectors against its own
// registry, so two components in the same process never collide on
// metric names and a test can spin up as many as it needs.
type Context struct {
	registry *prometheus.Registry

	RaftIsLeader   prometheus.Gauge
	RaftPeers      prometheus.Gauge
	RaftLogIndex   prometheus.Gauge
	RaftApplied    prometheus.Gauge
	RaftCommitTime prometheus.Histogram

	ContainersByState *prometheus.GaugeVec
	DatanodesByState  *prometheus.GaugeVec

	RPCRequestsTotal  *prometheus.CounterVec
	RPCRequestLatency *prometheus.HistogramVec

	NamespaceOpsTotal *prometheus.CounterVec

	ChunkOpsTotal   *prometheus.CounterVec
	PendingAsyncOps *prometheus.GaugeVec
}

// NewContext builds a Context whose metric names are prefixed with
// component (e.g. "ozone_scm", "ozone_ksm", "ozone_datanode").
func NewContext(component string) *Context {
	reg := prometheus.NewRegistry()
	c := &Context{
		registry: reg,
		RaftIsLeader: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: component + "_raft_is_leader",
			Help: "1 if this node currently holds Raft leadership, else 0.",
		}),
		RaftPeers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: component + "_raft_peers_total",
			Help: "Number of servers in the Raft configuration.",
		}),
		RaftLogIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: component + "_raft_log_index",
			Help: "Last Raft log index.",
		}),
		RaftApplied: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: component + "_raft_applied_index",
			Help: "Last Raft applied index.",
		}),
		RaftCommitTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    component + "_raft_commit_seconds",
			Help:    "Latency of committing one command through Raft.",
			Buckets: prometheus.DefBuckets,
		}),
		ContainersByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: component + "_containers_total",
			Help: "Number of containers known to this SCM, by lifecycle state.",
		}, []string{"state"}),
		DatanodesByState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: component + "_datanodes_total",
			Help: "Number of datanodes known to this SCM, by liveness state.",
		}, []string{"state"}),
		RPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: component + "_rpc_requests_total",
			Help: "RPC calls served, by method and result.",
		}, []string{"method", "result"}),
		RPCRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    component + "_rpc_latency_seconds",
			Help:    "RPC call latency, by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		NamespaceOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: component + "_namespace_ops_total",
			Help: "Volume/bucket/key operations served by KSM, by op and outcome.",
		}, []string{"op", "result"}),
		ChunkOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: component + "_chunk_ops_total",
			Help: "Container data-plane operations issued by the container client, by op (writeChunk, readChunk, putKey, getKey, putSmallFile).",
		}, []string{"op"}),
		PendingAsyncOps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: component + "_pending_async_ops",
			Help: "In-flight sendCommandAsync operations, by command type.",
		}, []string{"command"}),
	}
	reg.MustRegister(
		c.RaftIsLeader, c.RaftPeers, c.RaftLogIndex, c.RaftApplied, c.RaftCommitTime,
		c.ContainersByState, c.DatanodesByState,
		c.RPCRequestsTotal, c.RPCRequestLatency, c.NamespaceOpsTotal,
		c.ChunkOpsTotal, c.PendingAsyncOps,
	)
	return c
}

// Handler returns the HTTP handler serving this context's metrics.
func (c *Context) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Timer measures an in-flight operation's duration.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time on hist.
func (t *Timer) ObserveDuration(hist prometheus.Histogram) {
	hist.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time on one labeled series of
// hist.
func (t *Timer) ObserveDurationVec(hist *prometheus.HistogramVec, labels ...string) {
	hist.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
