/*
Package api implements the gRPC control-plane gateway for Ozone's SCM
and KSM services, and the mTLS plumbing shared by both.

# Architecture

SCM and KSM are separate processes, each bootstrapped with its own
Server instance and its own Raft-replicated core (pkg/scm, pkg/ksm).
api.Server is a thin gRPC transport shell: it owns TLS, the listener,
and an mTLS-identity unary interceptor, and exposes Register* methods
so a binary wires in only the service descriptors its role serves
(StorageContainerLocationProtocol and StorageContainerDatanodeProtocol
for SCM, KeySpaceManagerProtocol for KSM).

# mTLS

Every RPC requires a client certificate issued by the cluster CA
(pkg/security). The interceptor in interceptor.go classifies the caller
by certificate common name into a datanode or client identity and
stores it on the request context, so a handler can distinguish datanode
callers (SendHeartbeat, Register, GetVersion) from client callers
without a second auth round trip.

# Health and metrics

health.go exposes a plain HTTP side channel (/health, /ready, /metrics)
alongside the gRPC listener: liveness is unconditional, readiness
checks the Raft node and the metadata store, and /metrics serves the
component's own Prometheus Context.
*/
package api
