/*
Package log provides structured logging for Ozone using zerolog.

Init configures a single root logger for the process (level, JSON or
console output, destination). Every component then derives a child
logger at construction and keeps it for its lifetime:

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	scmLogger := log.WithComponent("scm")
	scmLogger.Info().Str("container", name).Msg("container allocated")

Domain helpers tag the fields operators actually filter on when
debugging a cluster: WithDatanode (datanode UUID), WithContainer
(container name), WithVolume (volume name). Use typed fields (.Str,
.Int, .Err) rather than formatting values into the message so log
pipelines can query them.

In JSON mode each entry is one object per line:

	{"level":"info","component":"scm","container":"c-42",
	 "time":"2026-07-30T12:00:00Z","message":"container allocated"}

Console mode is for interactive use only; production deployments run
JSON so entries can be shipped and indexed as-is.

Level conventions across the repo: Debug for per-chunk and per-tick
detail, Info for lifecycle events (registration, allocation, state
transitions), Warn for recoverable conditions (missed heartbeat, stale
datanode), Error for surfaced I/O failures. Precondition failures
returned to clients (NOT_FOUND, ALREADY_EXISTS) are not logged at
Error.
*/
package log
