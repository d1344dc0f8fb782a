package containerclient

import (
	"github.com/cuemby/ozone/pkg/metrics"
)

// Future is the result of a SendCommandAsync call.
type Future struct {
	done   chan struct{}
	result interface{}
	err    error
}

// Wait blocks until the async command completes.
func (f *Future) Wait() (interface{}, error) {
	<-f.done
	return f.result, f.err
}

// sendCommand runs fn synchronously and counts the call under op in
// the chunk-ops counter. Latency and success or failure are not
// recorded.
func sendCommand(m *metrics.Context, op string, fn func() (interface{}, error)) (interface{}, error) {
	result, err := fn()
	if m != nil {
		m.ChunkOpsTotal.WithLabelValues(op).Inc()
	}
	return result, err
}

// sendCommandAsync runs fn on its own goroutine and returns a Future,
// incrementing op's pending-op gauge for the duration. The gauge decrements on completion or failure,
// never leaking a pending count past the call's lifetime.
func sendCommandAsync(m *metrics.Context, op string, fn func() (interface{}, error)) *Future {
	f := &Future{done: make(chan struct{})}
	if m != nil {
		m.PendingAsyncOps.WithLabelValues(op).Inc()
	}
	go func() {
		defer close(f.done)
		defer func() {
			if m != nil {
				m.PendingAsyncOps.WithLabelValues(op).Dec()
			}
		}()
		f.result, f.err = fn()
		if m != nil {
			m.ChunkOpsTotal.WithLabelValues(op).Inc()
		}
	}()
	return f
}
