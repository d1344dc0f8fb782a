package ksm

import "time"

// Clock is injected for createdOn timestamps so tests can drive them
// deterministically, the same pattern pkg/scm uses for block-key
// generation and liveness evaluation.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// RealClock is the Clock wired into production KSM instances.
var RealClock Clock = realClock{}

func (realClock) Now() time.Time { return time.Now() }
