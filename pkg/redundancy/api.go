package redundancy

import (
	"fmt"
	"time"
)

// Snapshot is a point-in-time copy of engine state for the HTTP surface.
type Snapshot struct {
	Policy          Policy        `json:"policy"`
	Status          Status        `json:"status"`
	PowerSupplies   []PowerSupply `json:"powerSupplies"`
	LastHealth      *HealthEvent  `json:"lastHealth,omitempty"`
	WritesExhausted uint64        `json:"writesExhausted"`
}

// Snapshot copies the fleet, policy and status off the loop.
func (e *Engine) Snapshot() Snapshot {
	var snap Snapshot
	e.loop.call(func() {
		snap.Policy = e.policy
		snap.Policy.RankOrder = append([]uint8(nil), e.policy.RankOrder...)
		snap.Status = e.status
		snap.PowerSupplies = make([]PowerSupply, 0, len(e.psus))
		for _, psu := range e.psus {
			snap.PowerSupplies = append(snap.PowerSupplies, *psu)
		}
		snap.LastHealth = e.lastHealth
		snap.WritesExhausted = e.registers.writesExhausted
	})
	return snap
}

// PolicyUpdate carries the writable policy fields; nil means unchanged.
type PolicyUpdate struct {
	Enabled         *bool          `json:"enabled,omitempty"`
	RotationEnabled *bool          `json:"rotationEnabled,omitempty"`
	Algorithm       *string        `json:"algorithm,omitempty"`
	RotationPeriod  *time.Duration `json:"rotationPeriod,omitempty"`
	RankOrder       []uint8        `json:"rankOrder,omitempty"`
	RedundantCount  *int           `json:"redundantCount,omitempty"`
}

// SetPolicy validates and applies a policy update. Invalid fields reject
// the whole update and the prior policy is retained. An accepted update
// restarts the rotation and check schedulers, persists the policy, and a
// rank order change additionally re-applies ranks and reconfigures.
func (e *Engine) SetPolicy(upd PolicyUpdate) error {
	var algo Algorithm
	if upd.Algorithm != nil {
		var ok bool
		if algo, ok = ParseAlgorithm(*upd.Algorithm); !ok {
			return fmt.Errorf("invalid rotation algorithm %q", *upd.Algorithm)
		}
	}
	if upd.RotationPeriod != nil {
		if *upd.RotationPeriod < MinRotationPeriod || *upd.RotationPeriod > MaxRotationPeriod {
			return fmt.Errorf("invalid rotation period %s, valid range is [%s, %s]",
				*upd.RotationPeriod, MinRotationPeriod, MaxRotationPeriod)
		}
	}
	if upd.RedundantCount != nil && *upd.RedundantCount < 1 {
		return fmt.Errorf("invalid redundant count %d", *upd.RedundantCount)
	}

	e.loop.call(func() {
		if upd.Enabled != nil {
			e.policy.Enabled = *upd.Enabled
		}
		if upd.RotationEnabled != nil {
			e.policy.RotationEnabled = *upd.RotationEnabled
		}
		if upd.Algorithm != nil {
			e.policy.Algorithm = algo
		}
		if upd.RotationPeriod != nil {
			e.policy.RotationPeriod = *upd.RotationPeriod
		}
		if upd.RedundantCount != nil {
			e.policy.RedundantCount = *upd.RedundantCount
		}

		e.rotationTimer.cancel()
		e.checkTimer.cancel()
		e.startRotation()
		e.startCheck()
		e.saveConfig()

		if upd.RankOrder != nil {
			e.applyRankOrder(append([]uint8(nil), upd.RankOrder...))
		}
	})
	return nil
}

// RequestReconfigure runs a full reconfiguration pass. A no-op while
// another operation is in progress or redundancy is disabled.
func (e *Engine) RequestReconfigure(forceReRank bool) {
	e.loop.post(func() { e.reconfigure(forceReRank) })
}

// RequestRotate runs a single rotation step outside the scheduler.
func (e *Engine) RequestRotate() {
	e.loop.post(func() { e.rotate() })
}

// NotifyPSUState ingests a functional-state notification for one PSU and
// rearms the health debounce window.
func (e *Engine) NotifyPSUState(name string, functional bool) {
	e.loop.post(func() {
		for _, psu := range e.psus {
			if psu.Name != name {
				continue
			}
			if functional {
				psu.State = PSUStateNormal
			} else {
				psu.State = PSUStateAcLost
			}
		}
		e.scheduleHealthCheck()
	})
}

// NotifyInventoryChange requests a debounced re-enumeration.
func (e *Engine) NotifyInventoryChange() {
	e.loop.post(func() { e.requestEnumeration() })
}

// SubscribeHealth registers a health event subscriber. Slow subscribers
// miss events instead of blocking the engine.
func (e *Engine) SubscribeHealth() <-chan HealthEvent {
	ch := make(chan HealthEvent, 16)
	e.loop.post(func() {
		e.healthSubs = append(e.healthSubs, ch)
	})
	return ch
}
