package redundancy

import (
	"github.com/google/uuid"
)

// Redfish-style message registry IDs carried on health and presence events.
const (
	msgRedundancyRegained       = "PowerUnitRedundancyRegained"
	msgDegradedFromNonRedundant = "PowerUnitDegradedFromNonRedundant"
	msgSufficientFromInsufficient = "PowerUnitNonRedundantFromInsufficient"
	msgRedundancyDegraded       = "PowerUnitRedundancyDegraded"
	msgDegradedFromRedundant    = "PowerUnitDegradedFromRedundant"
	msgRedundancyLost           = "PowerUnitRedundancyLost"
	msgNonRedundantSufficient   = "PowerUnitNonRedundantSufficient"
	msgNonRedundantInsufficient = "PowerUnitNonRedundantInsufficient"
	msgPSUInserted              = "PowerSupplyInserted"
	msgPSURemoved               = "PowerSupplyRemoved"
)

// HealthEvent is one redundancy health transition, published to subscribers
// and kept as the latest value for the HTTP surface.
type HealthEvent struct {
	ID        uuid.UUID   `json:"id"`
	Class     HealthClass `json:"class"`
	MessageID string      `json:"messageId"`
	Message   string      `json:"message"`
}

// classify derives the health transition from the workable PSU count. It
// returns nil when no transition applies; a tie in counts never produces an
// event. The secondary "degraded from full" and "redundancy lost" records
// are folded into the event message, matching the platform event log.
func classify(workable, previous, redundantCount, total int) *HealthEvent {
	switch {
	case workable > previous:
		if workable >= redundantCount {
			if workable == total {
				return &HealthEvent{
					Class:     HealthOk,
					MessageID: msgRedundancyRegained,
					Message:   "power unit full redundancy regained",
				}
			}
			if previous < redundantCount {
				return &HealthEvent{
					Class:     HealthWarning,
					MessageID: msgDegradedFromNonRedundant,
					Message:   "power unit redundancy regained but not full",
				}
			}
		} else if previous == 0 {
			return &HealthEvent{
				Class:     HealthNonCritical,
				MessageID: msgSufficientFromInsufficient,
				Message:   "power unit sufficient from insufficient",
			}
		}
	case workable < previous:
		if workable >= redundantCount {
			ev := &HealthEvent{
				Class:     HealthWarning,
				MessageID: msgRedundancyDegraded,
				Message:   "power unit redundancy degraded",
			}
			if previous == total {
				ev.MessageID = msgDegradedFromRedundant
				ev.Message = "power unit redundancy degraded from full redundant"
			}
			return ev
		}
		if workable == 0 {
			return &HealthEvent{
				Class:     HealthCritical,
				MessageID: msgNonRedundantInsufficient,
				Message:   "power unit redundancy insufficient, no workable PSU",
			}
		}
		if previous >= redundantCount {
			return &HealthEvent{
				Class:     HealthWarning,
				MessageID: msgNonRedundantSufficient,
				Message:   "power unit redundancy lost, some PSUs still workable",
			}
		}
	}
	return nil
}

// publishHealth stamps, logs and fans the event out. Subscribers that are
// not keeping up are skipped rather than blocking the loop.
func (e *Engine) publishHealth(ev HealthEvent) {
	ev.ID = uuid.New()
	e.lastHealth = &ev

	logEvent := e.log.Info
	if ev.Class == HealthWarning {
		logEvent = e.log.Warn
	} else if ev.Class == HealthCritical {
		logEvent = e.log.Error
	}
	logEvent().
		Str("event_id", ev.ID.String()).
		Str("message_id", ev.MessageID).
		Str("class", string(ev.Class)).
		Msg(ev.Message)

	for _, sub := range e.healthSubs {
		select {
		case sub <- ev:
		default:
		}
	}
}

// evaluateHealth is the debounce-timer continuation. It recounts workable
// PSUs against the previous count and emits at most one transition.
func (e *Engine) evaluateHealth() {
	if !e.supported || !e.policy.Enabled {
		return
	}

	workable := 0
	for _, psu := range e.psus {
		if psu.State == PSUStateNormal {
			workable++
		}
	}

	if ev := classify(workable, e.previousWorkable, e.policy.RedundantCount, len(e.psus)); ev != nil {
		e.publishHealth(*ev)
	}
	e.previousWorkable = workable
	e.healthEvaluated = true
}

// scheduleHealthCheck rearms the debounce window. A burst of state
// notifications inside the window collapses to one evaluation using the
// latest states; this is coalescing, not queuing.
func (e *Engine) scheduleHealthCheck() {
	if !e.supported || !e.policy.Enabled {
		return
	}
	e.debounceTimer.arm(healthDebounce, func(aborted bool) {
		if aborted {
			return
		}
		e.evaluateHealth()
	})
}
