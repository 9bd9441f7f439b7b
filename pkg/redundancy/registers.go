package redundancy

import (
	"fmt"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/psufleet/coldswap/pkg/smbus"
)

// PSU register commands. regRotationRank holds the PSU's current cold
// redundancy rank; regDeviceRevision holds the firmware revision bytes.
const (
	regRotationRank   = 0xd0
	regDeviceRevision = 0xd9
)

const (
	registerAttempts = 3
	writeVerifyDelay = 10 * time.Millisecond
	readRetryDelay   = 100 * time.Millisecond
)

// orderRegisters is the retrying access layer for the rotation-rank
// register. Failures are abandoned after the retry budget with only a log
// line; a PSU that is physically unreachable surfaces through state
// notifications, not through register I/O errors.
type orderRegisters struct {
	bus smbus.Bus
	log zerolog.Logger

	// writesExhausted counts write sequences that never verified. Only the
	// loop goroutine touches it.
	writesExhausted uint64
}

func newOrderRegisters(bus smbus.Bus, logger zerolog.Logger) *orderRegisters {
	return &orderRegisters{
		bus: bus,
		log: logger.With().Str("component", "registers").Logger(),
	}
}

// writeOrder writes value to the rotation-rank register and reads it back
// to verify, retrying the whole sequence on mismatch or I/O error. Gives up
// silently after the budget; the caller never sees a hard failure.
func (r *orderRegisters) writeOrder(addr uint8, value uint8) {
	err := retry.Do(
		func() error {
			if err := r.bus.WriteByte(addr, regRotationRank, value); err != nil {
				return err
			}
			time.Sleep(writeVerifyDelay)
			got, err := r.bus.ReadByte(addr, regRotationRank)
			if err != nil {
				return err
			}
			if got != value {
				return fmt.Errorf("readback mismatch: wrote %d, read %d", value, got)
			}
			return nil
		},
		retry.Attempts(registerAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			r.log.Warn().Err(err).Uint("attempt", attempt+1).
				Msgf("retrying order write to 0x%02x", addr)
		}),
	)
	if err != nil {
		r.writesExhausted++
		r.log.Error().Err(err).Msgf("failed to write order %d to 0x%02x, giving up", value, addr)
	}
}

// readOrder reads the rotation-rank register, retrying with a fixed delay.
// Returns -1 when every attempt failed.
func (r *orderRegisters) readOrder(addr uint8) int {
	value, err := retry.DoWithData(
		func() (uint8, error) {
			return r.bus.ReadByte(addr, regRotationRank)
		},
		retry.Attempts(registerAttempts),
		retry.Delay(readRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			r.log.Warn().Err(err).Uint("attempt", attempt+1).
				Msgf("retrying order read from 0x%02x", addr)
		}),
	)
	if err != nil {
		r.log.Error().Err(err).Msgf("failed to read order from 0x%02x", addr)
		return -1
	}
	return int(value)
}

// logRevision reads and logs the device revision register once at PSU
// creation.
func (r *orderRegisters) logRevision(name string, addr uint8) {
	rev, err := r.bus.ReadByte(addr, regDeviceRevision)
	if err != nil {
		r.log.Warn().Err(err).Msgf("failed to read %s revision", name)
		return
	}
	r.log.Info().Msgf("%s device revision: %d", name, rev)
}
