package redundancy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const rescanTimeout = 10 * time.Second

// pollPresence probes every address in the static address table and tracks
// the set of present devices. Insertions and removals are recorded as
// platform events; any insertion triggers one inventory rescan for the
// whole cycle, never one per device.
func (e *Engine) pollPresence() {
	newFound := false
	for i, addr := range e.addrTable {
		psuNum := i + 1
		err := e.registers.bus.Ping(addr)
		_, present := e.present[addr]
		if err == nil && !present {
			newFound = true
			e.present[addr] = struct{}{}
			e.log.Info().
				Str("event_id", uuid.NewString()).
				Str("message_id", msgPSUInserted).
				Msgf("new PSU found: PSU%d", psuNum)
		} else if err != nil && present {
			delete(e.present, addr)
			e.log.Info().
				Str("event_id", uuid.NewString()).
				Str("message_id", msgPSURemoved).
				Msgf("PSU removed: PSU%d", psuNum)
		}
	}
	if newFound && e.discovery != nil {
		ctx, cancel := context.WithTimeout(context.Background(), rescanTimeout)
		defer cancel()
		if err := e.discovery.RescanBus(ctx, e.rescanBus); err != nil {
			e.log.Error().Err(err).Msgf("failed to rescan bus %d", e.rescanBus)
		}
	}
}

// startPresencePoll arms the keep-alive cycle. It always reschedules, no
// matter how the probe round went.
func (e *Engine) startPresencePoll() {
	e.pollTimer.arm(presencePeriod, func(aborted bool) {
		if aborted {
			return
		}
		e.pollPresence()
		e.startPresencePoll()
	})
}
