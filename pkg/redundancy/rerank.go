package redundancy

import (
	"golang.org/x/exp/slices"
)

// reRank reassigns rotation ranks across the fleet and persists the result
// into the policy's rank order.
//
// BmcSpecific assigns ascending ranks to Normal PSUs in fleet order and 0
// to everything else. UserSpecific leaves the operator's ranks alone while
// the whole fleet is healthy; as soon as any PSU is AcLost the algorithm is
// overridden to BmcSpecific and the ranking recomputed. The override is a
// single forced pass, not recursion.
func (e *Engine) reRank() {
	forced := false
	if e.policy.Algorithm == AlgoUserSpecific {
		for _, psu := range e.psus {
			if psu.State == PSUStateAcLost {
				forced = true
				break
			}
		}
		if !forced {
			return
		}
		e.policy.Algorithm = AlgoBmcSpecific
		e.saveProperty(PropAlgorithm, string(AlgoBmcSpecific))
	}

	rank := uint8(1)
	orders := slices.Clone(e.policy.RankOrder)
	for i, psu := range e.psus {
		if i >= len(orders) {
			// PSUs beyond the rank order capacity stay unranked; no
			// register is written for them. One line per process, not per
			// PSU, to avoid log storms.
			psu.Order = 0
			if !e.rankOverflowLogged {
				e.log.Error().Msgf("rank order capacity %d is less than fleet size %d", len(orders), len(e.psus))
				e.rankOverflowLogged = true
			}
			continue
		}
		if psu.State == PSUStateNormal {
			psu.Order = rank
			rank++
		} else {
			psu.Order = 0
		}
		orders[i] = psu.Order
	}
	e.policy.RankOrder = orders
	e.saveProperty(PropRankOrder, orders)
}
