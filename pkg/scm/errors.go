package scm

import "errors"

// Sentinel errors surfaced across the SCM public contract. Precondition failures are returned as
// typed errors, never logged at error level by callers; capacity
// failures are logged once at the call site before being returned.
var (
	ErrContainerNotFound      = errors.New("scm: container not found")
	ErrDatanodeNotFound       = errors.New("scm: datanode not found")
	ErrInsufficientNodes      = errors.New("scm: insufficient healthy nodes for requested replication factor")
	ErrInvalidRegistration    = errors.New("scm: invalid registration")
	ErrNoOpenContainer        = errors.New("scm: no open container and allocation failed")
	ErrUnknownPlacementPolicy = errors.New("scm: unknown placement policy")
)
