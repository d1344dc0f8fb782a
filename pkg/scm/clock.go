package scm

import "time"

// Clock is injected into block-key generation and liveness evaluation
// so tests can drive both deterministically. The shipped binary wires
// realClock, which reports wall-clock Unix nanoseconds
// (time.Now().UnixNano()). It is not a monotonic source: a step of the
// system clock shifts every datanode's computed heartbeat age.
type Clock interface {
	NowNanos() int64
}

type realClock struct{}

// RealClock is the Clock wired into production SCM instances.
var RealClock Clock = realClock{}

func (realClock) NowNanos() int64 { return time.Now().UnixNano() }
