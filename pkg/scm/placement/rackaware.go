package placement

import (
	"math/rand"

	"github.com/cuemby/ozone/pkg/types"
)

// rackAwarePolicy groups candidates by Datanode.Labels["rack"] and
// spreads replicas across racks before falling back to RANDOM's pool
// when rack diversity can't be satisfied.
type rackAwarePolicy struct{}

func (rackAwarePolicy) Name() string { return "RACK_AWARE" }

func (rackAwarePolicy) Choose(candidates []*types.Datanode, factor types.ReplicationFactor,
	existing map[string][]*types.Pipeline, replType types.ReplicationType) ([]*types.Datanode, error) {

	pool := eligible(candidates, existing, replType)
	n := factor.Number()
	if len(pool) < n {
		return nil, ErrInsufficientNodes
	}

	byRack := make(map[string][]*types.Datanode)
	var racks []string
	for _, d := range pool {
		rack := d.Labels["rack"]
		if _, seen := byRack[rack]; !seen {
			racks = append(racks, rack)
		}
		byRack[rack] = append(byRack[rack], d)
	}

	// Not enough racks to spread; defer to RANDOM's pool.
	if len(racks) < n {
		return randomPolicy{}.Choose(candidates, factor, existing, replType)
	}

	rand.Shuffle(len(racks), func(i, j int) { racks[i], racks[j] = racks[j], racks[i] })

	var chosen []*types.Datanode
	for _, rack := range racks {
		members := byRack[rack]
		pick := members[rand.Intn(len(members))]
		chosen = append(chosen, pick)
		if len(chosen) == n {
			break
		}
	}
	return chosen, nil
}
