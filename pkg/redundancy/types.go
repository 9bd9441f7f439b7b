// Package redundancy implements the PSU cold redundancy engine: it keeps one
// PSU per rotation slot active while the others stand by, rotates the slot
// assignments on a configurable period, and re-ranks the active set when a
// PSU drops out. All engine state is owned by a single event loop goroutine;
// see engine.go.
package redundancy

import (
	"context"
	"time"
)

// PSUState reflects the last functional notification received for a PSU.
type PSUState int

const (
	PSUStateNormal PSUState = iota
	PSUStateAcLost
)

func (s PSUState) String() string {
	if s == PSUStateNormal {
		return "Normal"
	}
	return "AcLost"
}

// Algorithm selects how rotation ranks are assigned.
type Algorithm string

const (
	AlgoBmcSpecific  Algorithm = "BmcSpecific"
	AlgoUserSpecific Algorithm = "UserSpecific"
)

// ParseAlgorithm converts a string from the settings store or the HTTP API.
func ParseAlgorithm(s string) (Algorithm, bool) {
	switch Algorithm(s) {
	case AlgoBmcSpecific, AlgoUserSpecific:
		return Algorithm(s), true
	}
	return AlgoBmcSpecific, false
}

// Status is the engine's mutual-exclusion primitive: a new reconfigure or
// rotate may only start while the status is StatusCompleted.
type Status string

const (
	StatusCompleted  Status = "Completed"
	StatusInProgress Status = "InProgress"
)

// HealthClass is the derived redundancy health, published by the classifier.
type HealthClass string

const (
	HealthOk          HealthClass = "Ok"
	HealthWarning     HealthClass = "Warning"
	HealthNonCritical HealthClass = "NonCritical"
	HealthCritical    HealthClass = "Critical"
)

// PowerSupply is one managed PSU. Bus and Address never change after
// creation; a PSU is never removed from the fleet, a vanished one just goes
// to AcLost.
type PowerSupply struct {
	Name    string   `json:"name"`
	Bus     int      `json:"bus"`
	Address uint8    `json:"address"`
	Order   uint8    `json:"order"`
	State   PSUState `json:"state"`
}

// Rotation period bounds enforced at every ingestion point. Out-of-range
// values are rejected and the prior value kept.
const (
	MinRotationPeriod = 24 * time.Hour
	MaxRotationPeriod = 180 * 24 * time.Hour

	DefaultRotationPeriod = 7 * 24 * time.Hour
	DefaultRedundantCount = 2
)

// Policy is the process-wide rotation configuration. It is mutated by the
// HTTP surface and by the engine itself when it persists re-ranking results.
type Policy struct {
	Enabled         bool          `json:"enabled"`
	RotationEnabled bool          `json:"rotationEnabled"`
	Algorithm       Algorithm     `json:"algorithm"`
	RotationPeriod  time.Duration `json:"rotationPeriod"`
	RankOrder       []uint8       `json:"rankOrder"`
	RedundantCount  int           `json:"redundantCount"`
}

// DefaultPolicy returns the power-on configuration before the settings
// store is consulted. Redundancy starts disabled.
func DefaultPolicy() Policy {
	return Policy{
		Enabled:         false,
		RotationEnabled: true,
		Algorithm:       AlgoBmcSpecific,
		RotationPeriod:  DefaultRotationPeriod,
		RankOrder:       []uint8{1, 2, 3, 4},
		RedundantCount:  DefaultRedundantCount,
	}
}

// Settings store property names, shared with internal/store.
const (
	PropEnabled         = "PowerSupplyRedundancyEnabled"
	PropRotationEnabled = "RotationEnabled"
	PropAlgorithm       = "RotationAlgorithm"
	PropRankOrder       = "RotationRankOrder"
	PropRotationPeriod  = "PeriodOfRotation"
)

// Descriptor identifies a PSU found by the discovery collaborator.
type Descriptor struct {
	Name    string `json:"name"`
	Bus     int    `json:"bus"`
	Address uint8  `json:"address"`
}

// Discovery enumerates PSU hardware from platform inventory and triggers
// bus rescans when the presence poller finds a new device.
type Discovery interface {
	Enumerate(ctx context.Context) ([]Descriptor, error)
	RescanBus(ctx context.Context, bus int) error
}

// SettingsStore persists policy fields. Calls are fire-and-forget from the
// engine's point of view; errors are only logged.
type SettingsStore interface {
	SaveProperty(name string, value any) error
}
