package redundancy

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/psufleet/coldswap/pkg/smbus"
)

// Engine timer periods. The settle window gives the hardware time to
// stabilize in warm-redundant (all ranks zero) mode before the new distinct
// ranks are written, so no two PSUs ever transiently share an active rank.
const (
	settleWindow   = 5 * time.Second
	checkPeriod    = 60 * time.Second
	presencePeriod = 2 * time.Second
	healthDebounce = 2 * time.Second
	rescanDebounce = 1 * time.Second
)

// Config wires the engine's collaborators.
type Config struct {
	Bus       smbus.Bus
	Store     SettingsStore
	Discovery Discovery
	// AddrTable is the static presence-probe address table; RescanBus is
	// the bus number handed to Discovery.RescanBus on new insertions.
	AddrTable []uint8
	RescanBus int
	// Supported gates the whole engine; unsupported platforms keep it
	// constructed but inert.
	Supported bool
	Policy    Policy
	Logger    zerolog.Logger
}

// Engine owns the PSU fleet and the rotation policy. All mutation happens
// on a single event loop; public methods marshal onto it.
type Engine struct {
	loop *loop
	log  zerolog.Logger

	psus      []*PowerSupply
	policy    Policy
	status    Status
	supported bool

	registers *orderRegisters
	store     SettingsStore
	discovery Discovery

	settleTimer   *timerSlot
	rotationTimer *timerSlot
	checkTimer    *timerSlot
	pollTimer     *timerSlot
	debounceTimer *timerSlot
	rescanTimer   *timerSlot

	addrTable []uint8
	rescanBus int
	present   map[uint8]struct{}

	previousWorkable   int
	healthEvaluated    bool
	bootReconciled     bool
	rankOverflowLogged bool

	lastHealth *HealthEvent
	healthSubs []chan HealthEvent
}

// New constructs the engine. Run must be called before any other method.
func New(cfg Config) *Engine {
	l := newLoop()
	logger := cfg.Logger.With().Str("component", "redundancy").Logger()
	e := &Engine{
		loop:      l,
		log:       logger,
		policy:    cfg.Policy,
		status:    StatusCompleted,
		supported: cfg.Supported,
		registers: newOrderRegisters(cfg.Bus, cfg.Logger),
		store:     cfg.Store,
		discovery: cfg.Discovery,
		addrTable: cfg.AddrTable,
		rescanBus: cfg.RescanBus,
		present:   make(map[uint8]struct{}),
	}
	e.settleTimer = newTimerSlot(l)
	e.rotationTimer = newTimerSlot(l)
	e.checkTimer = newTimerSlot(l)
	e.pollTimer = newTimerSlot(l)
	e.debounceTimer = newTimerSlot(l)
	e.rescanTimer = newTimerSlot(l)
	return e
}

// Run starts the event loop and the periodic timers, then blocks until the
// context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.loop.post(func() {
		e.startRotation()
		e.startCheck()
		e.startPresencePoll()
		e.requestEnumeration()
	})
	e.loop.run(ctx)
}

// saveProperty persists one policy field, fire-and-forget.
func (e *Engine) saveProperty(name string, value any) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveProperty(name, value); err != nil {
		e.log.Error().Err(err).Msgf("failed to save %s to settings store", name)
	}
}

// saveConfig persists the whole policy field-wise.
func (e *Engine) saveConfig() {
	e.saveProperty(PropEnabled, e.policy.Enabled)
	e.saveProperty(PropRotationEnabled, e.policy.RotationEnabled)
	e.saveProperty(PropAlgorithm, string(e.policy.Algorithm))
	e.saveProperty(PropRankOrder, e.policy.RankOrder)
	e.saveProperty(PropRotationPeriod, e.policy.RotationPeriod)
}

// putWarmRedundant writes rank 0 to every Normal PSU, parking the fleet in
// warm-redundant mode.
func (e *Engine) putWarmRedundant() {
	if !e.supported {
		return
	}
	for _, psu := range e.psus {
		if psu.State == PSUStateNormal {
			e.registers.writeOrder(psu.Address, 0)
		}
	}
}

// reconfigure is the full reconfiguration pass: park the fleet warm
// redundant, wait out the settle window, optionally re-rank, then write the
// final ranks. Silently dropped while another operation is in progress.
func (e *Engine) reconfigure(forceReRank bool) {
	if !e.supported || !e.policy.Enabled || e.status == StatusInProgress {
		return
	}
	e.rotationTimer.cancel()
	e.checkTimer.cancel()
	e.startRotation()
	e.startCheck()

	e.status = StatusInProgress
	e.putWarmRedundant()

	e.settleTimer.arm(settleWindow, func(aborted bool) {
		if aborted {
			// a superseding operation owns the fleet now; it must still
			// find the status released
			e.status = StatusCompleted
			return
		}
		if forceReRank {
			e.reRank()
		}
		for _, psu := range e.psus {
			if psu.State == PSUStateNormal && psu.Order != 0 {
				e.registers.writeOrder(psu.Address, psu.Order)
			}
		}
		e.status = StatusCompleted
	})
}

// rotate advances every ranked PSU by one slot, wrapping the last rank back
// to 1. Rank 0 PSUs are not part of the rotation.
func (e *Engine) rotate() {
	if !e.supported || !e.policy.Enabled || e.status == StatusInProgress {
		return
	}
	e.status = StatusInProgress
	e.putWarmRedundant()

	e.settleTimer.arm(settleWindow, func(aborted bool) {
		if aborted {
			e.status = StatusCompleted
			return
		}
		goodCount := uint8(0)
		for _, psu := range e.psus {
			if psu.State == PSUStateNormal {
				goodCount++
			}
		}
		for _, psu := range e.psus {
			if psu.Order == 0 {
				continue
			}
			psu.Order++
			if psu.Order > goodCount {
				psu.Order = 1
			}
			e.registers.writeOrder(psu.Address, psu.Order)
		}

		orders := make([]uint8, 0, len(e.psus))
		for _, psu := range e.psus {
			orders = append(orders, psu.Order)
		}
		e.policy.RankOrder = orders
		e.saveProperty(PropRankOrder, orders)
		e.status = StatusCompleted
	})
}

// startRotation arms the rotation scheduler for one full period from now.
// Drift is not corrected; each period starts at fire time.
func (e *Engine) startRotation() {
	e.rotationTimer.arm(e.policy.RotationPeriod, func(aborted bool) {
		if aborted {
			return
		}
		if e.supported && e.policy.RotationEnabled {
			e.rotate()
		}
		e.startRotation()
	})
}

// checkDrift verifies the hardware still holds its assigned ranks. A Normal
// PSU reading back rank 0 means the hardware lost its assignment (power
// event), so a forced reconfigure is triggered and the rest of the fleet is
// skipped this cycle. With redundancy disabled the check instead parks the
// fleet warm redundant.
func (e *Engine) checkDrift() {
	if !e.supported {
		return
	}
	if !e.policy.Enabled {
		e.putWarmRedundant()
		return
	}
	for _, psu := range e.psus {
		if psu.State != PSUStateNormal {
			continue
		}
		if e.registers.readOrder(psu.Address) == 0 {
			e.reconfigure(true)
			return
		}
	}
}

func (e *Engine) startCheck() {
	e.checkTimer.arm(checkPeriod, func(aborted bool) {
		if aborted {
			return
		}
		e.checkDrift()
		e.startCheck()
	})
}

// ingestDescriptors folds enumerated hardware into the fleet. Devices are
// deduplicated by bus+address; a new PSU seeds its rank positionally from
// the policy rank order.
func (e *Engine) ingestDescriptors(descs []Descriptor) {
	for _, d := range descs {
		known := false
		for _, psu := range e.psus {
			if psu.Bus == d.Bus && psu.Address == d.Address {
				known = true
				break
			}
		}
		if known {
			continue
		}
		order := uint8(0)
		if n := len(e.psus); n < len(e.policy.RankOrder) {
			order = e.policy.RankOrder[n]
		}
		psu := &PowerSupply{
			Name:    d.Name,
			Bus:     d.Bus,
			Address: d.Address,
			Order:   order,
			State:   PSUStateNormal,
		}
		e.psus = append(e.psus, psu)
		// the workable baseline tracks the fleet only until the classifier
		// has run once; after that an insertion must read as workable above
		// previous or it can never produce a transition
		if !e.healthEvaluated {
			e.previousWorkable++
		}
		e.registers.logRevision(psu.Name, psu.Address)
		e.log.Info().Msgf("managing %s at bus %d address 0x%02x with rank %d", psu.Name, psu.Bus, psu.Address, psu.Order)
	}
	e.scheduleHealthCheck()
}

// requestEnumeration debounces inventory-change bursts behind a short
// filter window before the discovery collaborator runs.
func (e *Engine) requestEnumeration() {
	if e.discovery == nil {
		return
	}
	e.rescanTimer.arm(rescanDebounce, func(aborted bool) {
		if aborted {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), rescanTimeout)
		defer cancel()
		descs, err := e.discovery.Enumerate(ctx)
		if err != nil {
			e.log.Error().Err(err).Msg("failed to enumerate PSU inventory")
			return
		}
		e.ingestDescriptors(descs)
		// a restarted daemon finds a seeded fleet whose hardware ranks are
		// unknown; reconcile once right away instead of waiting a full
		// drift-check period
		if !e.bootReconciled {
			e.bootReconciled = true
			e.reconfigure(false)
		}
	})
}

// applyRankOrder applies operator ranks positionally to the discovery
// ordered fleet; PSUs past the end of the sequence drop to rank 0.
func (e *Engine) applyRankOrder(ranks []uint8) {
	for i, psu := range e.psus {
		if i < len(ranks) {
			psu.Order = ranks[i]
		} else {
			psu.Order = 0
		}
	}
	e.policy.RankOrder = slices.Clone(ranks)
	e.saveProperty(PropRankOrder, e.policy.RankOrder)
	e.reconfigure(false)
}
