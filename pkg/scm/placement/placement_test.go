package placement

import (
	"testing"

	"github.com/cuemby/ozone/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthyNode(uuid, rack string) *types.Datanode {
	return &types.Datanode{
		UUID:   uuid,
		State:  types.DatanodeHealthy,
		Labels: map[string]string{"rack": rack},
	}
}

func TestGetResolvesDefaultAndNamed(t *testing.T) {
	p, ok := Get("")
	require.True(t, ok)
	assert.Equal(t, "RANDOM", p.Name())

	p, ok = Get("RACK_AWARE")
	require.True(t, ok)
	assert.Equal(t, "RACK_AWARE", p.Name())

	_, ok = Get("NOPE")
	assert.False(t, ok)
}

func TestRandomPolicyChoosesDistinctHealthyNodes(t *testing.T) {
	p := randomPolicy{}
	candidates := []*types.Datanode{
		healthyNode("d1", "r1"), healthyNode("d2", "r1"), healthyNode("d3", "r2"),
	}
	chosen, err := p.Choose(candidates, types.FactorThree, nil, types.ReplicationRatis)
	require.NoError(t, err)
	assert.Len(t, chosen, 3)

	seen := map[string]bool{}
	for _, d := range chosen {
		assert.False(t, seen[d.UUID])
		seen[d.UUID] = true
	}
}

func TestRandomPolicyInsufficientNodes(t *testing.T) {
	p := randomPolicy{}
	candidates := []*types.Datanode{healthyNode("d1", "r1")}
	_, err := p.Choose(candidates, types.FactorThree, nil, types.ReplicationRatis)
	assert.ErrorIs(t, err, ErrInsufficientNodes)
}

func TestRandomPolicyExcludesNodesAlreadyUsedBySameReplicationType(t *testing.T) {
	p := randomPolicy{}
	candidates := []*types.Datanode{healthyNode("d1", "r1"), healthyNode("d2", "r1")}
	existing := map[string][]*types.Pipeline{
		"c1": {{Members: []string{"d1"}, ReplicationType: types.ReplicationRatis}},
	}
	_, err := p.Choose(candidates, types.FactorOne, existing, types.ReplicationRatis)
	require.NoError(t, err)

	// d1 excluded, d2 is the only remaining option
	chosen, err := p.Choose(candidates, types.FactorOne, existing, types.ReplicationRatis)
	require.NoError(t, err)
	assert.Equal(t, "d2", chosen[0].UUID)
}

func TestRandomPolicyIgnoresUsageFromDifferentReplicationType(t *testing.T) {
	p := randomPolicy{}
	candidates := []*types.Datanode{healthyNode("d1", "r1")}
	existing := map[string][]*types.Pipeline{
		"c1": {{Members: []string{"d1"}, ReplicationType: types.ReplicationStandalone}},
	}
	chosen, err := p.Choose(candidates, types.FactorOne, existing, types.ReplicationRatis)
	require.NoError(t, err)
	assert.Equal(t, "d1", chosen[0].UUID)
}

func TestRackAwarePolicySpreadsAcrossRacks(t *testing.T) {
	p := rackAwarePolicy{}
	candidates := []*types.Datanode{
		healthyNode("d1", "r1"), healthyNode("d2", "r2"), healthyNode("d3", "r3"),
		healthyNode("d4", "r1"),
	}
	chosen, err := p.Choose(candidates, types.FactorThree, nil, types.ReplicationRatis)
	require.NoError(t, err)
	require.Len(t, chosen, 3)

	racks := map[string]bool{}
	for _, d := range chosen {
		racks[d.Labels["rack"]] = true
	}
	assert.Len(t, racks, 3)
}

func TestRackAwarePolicyFallsBackToRandomWhenRacksInsufficient(t *testing.T) {
	p := rackAwarePolicy{}
	candidates := []*types.Datanode{
		healthyNode("d1", "r1"), healthyNode("d2", "r1"), healthyNode("d3", "r1"),
	}
	chosen, err := p.Choose(candidates, types.FactorThree, nil, types.ReplicationRatis)
	require.NoError(t, err)
	assert.Len(t, chosen, 3)
}
