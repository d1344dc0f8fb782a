package placement

import (
	"math/rand"

	"github.com/cuemby/ozone/pkg/types"
)

// randomPolicy is the default placement policy: pick factor.Number()
// distinct HEALTHY datanodes not already serving a pipeline of the
// same replication type, first pick becomes leader.
type randomPolicy struct{}

func (randomPolicy) Name() string { return "RANDOM" }

func (randomPolicy) Choose(candidates []*types.Datanode, factor types.ReplicationFactor,
	existing map[string][]*types.Pipeline, replType types.ReplicationType) ([]*types.Datanode, error) {

	pool := eligible(candidates, existing, replType)
	n := factor.Number()
	if len(pool) < n {
		return nil, ErrInsufficientNodes
	}

	shuffled := make([]*types.Datanode, len(pool))
	copy(shuffled, pool)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	return shuffled[:n], nil
}
