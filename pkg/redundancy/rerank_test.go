package redundancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReRankBmcSpecific(t *testing.T) {
	e, _ := newTestEngine(t)
	e.psus = []*PowerSupply{
		{Name: "PSU1", Address: 0x58, Order: 1, State: PSUStateNormal},
		{Name: "PSU2", Address: 0x59, Order: 2, State: PSUStateAcLost},
		{Name: "PSU3", Address: 0x5a, Order: 3, State: PSUStateNormal},
		{Name: "PSU4", Address: 0x5b, Order: 4, State: PSUStateNormal},
	}

	e.reRank()

	// Normal PSUs get a contiguous ascending sequence in fleet order,
	// AcLost PSUs drop to 0
	assert.Equal(t, uint8(1), e.psus[0].Order)
	assert.Equal(t, uint8(0), e.psus[1].Order)
	assert.Equal(t, uint8(2), e.psus[2].Order)
	assert.Equal(t, uint8(3), e.psus[3].Order)
	assert.Equal(t, []uint8{1, 0, 2, 3}, e.policy.RankOrder)
}

func TestReRankUserSpecificHealthyFleetUntouched(t *testing.T) {
	e, _ := newTestEngine(t)
	e.policy.Algorithm = AlgoUserSpecific
	e.policy.RankOrder = []uint8{2, 1, 4, 3}
	e.psus = []*PowerSupply{
		{Name: "PSU1", Address: 0x58, Order: 2, State: PSUStateNormal},
		{Name: "PSU2", Address: 0x59, Order: 1, State: PSUStateNormal},
	}

	e.reRank()

	assert.Equal(t, AlgoUserSpecific, e.policy.Algorithm)
	assert.Equal(t, uint8(2), e.psus[0].Order)
	assert.Equal(t, uint8(1), e.psus[1].Order)
	assert.Equal(t, []uint8{2, 1, 4, 3}, e.policy.RankOrder)
}

func TestReRankUserSpecificFallsBackOnAcLost(t *testing.T) {
	e, store := newTestEngine(t)
	e.policy.Algorithm = AlgoUserSpecific
	e.psus = []*PowerSupply{
		{Name: "PSU1", Address: 0x58, Order: 2, State: PSUStateAcLost},
		{Name: "PSU2", Address: 0x59, Order: 1, State: PSUStateNormal},
		{Name: "PSU3", Address: 0x5a, Order: 3, State: PSUStateNormal},
	}

	e.reRank()

	assert.Equal(t, AlgoBmcSpecific, e.policy.Algorithm)
	assert.Equal(t, uint8(0), e.psus[0].Order)
	assert.Equal(t, uint8(1), e.psus[1].Order)
	assert.Equal(t, uint8(2), e.psus[2].Order)
	assert.Equal(t, string(AlgoBmcSpecific), store.saved[PropAlgorithm])
}

func TestReRankCapacityOverflow(t *testing.T) {
	e, _ := newTestEngine(t)
	e.policy.RankOrder = []uint8{1, 2}
	e.psus = []*PowerSupply{
		{Name: "PSU1", Address: 0x58, State: PSUStateNormal},
		{Name: "PSU2", Address: 0x59, State: PSUStateNormal},
		{Name: "PSU3", Address: 0x5a, State: PSUStateNormal},
	}

	e.reRank()

	// PSUs beyond the rank order capacity stay unranked
	assert.Equal(t, uint8(1), e.psus[0].Order)
	assert.Equal(t, uint8(2), e.psus[1].Order)
	assert.Equal(t, uint8(0), e.psus[2].Order)
	assert.Equal(t, []uint8{1, 2}, e.policy.RankOrder)
	assert.True(t, e.rankOverflowLogged)
}
