// Package placement selects the set of datanodes backing a new
// container's pipeline: a closed, compile-time-registered set of named
// policies, the same way pkg/types/command.go turns SCMCommand's class
// hierarchy into a tagged variant rather than a reflection-loaded
// plugin.
package placement

import (
	"errors"

	"github.com/cuemby/ozone/pkg/types"
)

// ErrInsufficientNodes is returned when fewer than factor.Number()
// eligible datanodes exist.
var ErrInsufficientNodes = errors.New("placement: insufficient eligible datanodes")

// Policy chooses the ordered datanode set for a new pipeline. The
// first returned datanode is the leader.
type Policy interface {
	Name() string
	Choose(candidates []*types.Datanode, factor types.ReplicationFactor,
		existing map[string][]*types.Pipeline, replType types.ReplicationType) ([]*types.Datanode, error)
}

var registry = map[string]Policy{}

func register(p Policy) {
	registry[p.Name()] = p
}

func init() {
	register(randomPolicy{})
	register(rackAwarePolicy{})
}

// Get resolves a policy by its config-key name. An empty name
// resolves to the default (RANDOM).
func Get(name string) (Policy, bool) {
	if name == "" {
		name = "RANDOM"
	}
	p, ok := registry[name]
	return p, ok
}

// eligible filters candidates down to HEALTHY nodes not already
// serving a pipeline of replType: random among HEALTHY nodes not
// already used by an existing pipeline of the same replication type.
func eligible(candidates []*types.Datanode, existing map[string][]*types.Pipeline, replType types.ReplicationType) []*types.Datanode {
	used := make(map[string]bool)
	for _, pipelines := range existing {
		for _, p := range pipelines {
			if p.ReplicationType != replType {
				continue
			}
			for _, m := range p.Members {
				used[m] = true
			}
		}
	}

	var out []*types.Datanode
	for _, d := range candidates {
		if d.State != types.DatanodeHealthy {
			continue
		}
		if used[d.UUID] {
			continue
		}
		out = append(out, d)
	}
	return out
}
