package redundancy

import (
	"context"
	"fmt"
	"testing"
)

// fakeBus is an in-memory smbus.Bus. Registers live in regs[addr][cmd];
// pinging succeeds for addresses in present. Error injection goes through
// the optional hooks.
type fakeBus struct {
	regs    map[uint8]map[uint8]uint8
	present map[uint8]bool
	writes  []fakeWrite
	pings   []uint8

	onWrite func(addr, cmd, value uint8) error
	onRead  func(addr, cmd uint8) (uint8, bool, error)
}

type fakeWrite struct {
	addr  uint8
	cmd   uint8
	value uint8
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:    make(map[uint8]map[uint8]uint8),
		present: make(map[uint8]bool),
	}
}

func (b *fakeBus) set(addr, cmd, value uint8) {
	if b.regs[addr] == nil {
		b.regs[addr] = make(map[uint8]uint8)
	}
	b.regs[addr][cmd] = value
}

func (b *fakeBus) ReadByte(addr uint8, cmd uint8) (uint8, error) {
	if b.onRead != nil {
		if v, handled, err := b.onRead(addr, cmd); handled {
			return v, err
		}
	}
	if b.regs[addr] == nil {
		return 0, fmt.Errorf("no device at 0x%02x", addr)
	}
	return b.regs[addr][cmd], nil
}

func (b *fakeBus) WriteByte(addr uint8, cmd uint8, value uint8) error {
	if b.onWrite != nil {
		if err := b.onWrite(addr, cmd, value); err != nil {
			return err
		}
	}
	b.writes = append(b.writes, fakeWrite{addr: addr, cmd: cmd, value: value})
	b.set(addr, cmd, value)
	return nil
}

func (b *fakeBus) Ping(addr uint8) error {
	b.pings = append(b.pings, addr)
	if !b.present[addr] {
		return fmt.Errorf("no device at 0x%02x", addr)
	}
	return nil
}

func (b *fakeBus) Close() error { return nil }

// orderWrites returns only the rotation-rank register writes.
func (b *fakeBus) orderWrites() []fakeWrite {
	var out []fakeWrite
	for _, w := range b.writes {
		if w.cmd == regRotationRank {
			out = append(out, w)
		}
	}
	return out
}

// fakeStore records property saves.
type fakeStore struct {
	saved map[string]any
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]any)}
}

func (s *fakeStore) SaveProperty(name string, value any) error {
	s.saved[name] = value
	return nil
}

// fakeDiscovery returns a fixed descriptor set and counts rescans.
type fakeDiscovery struct {
	descs   []Descriptor
	rescans int
}

func (d *fakeDiscovery) Enumerate(ctx context.Context) ([]Descriptor, error) {
	return d.descs, nil
}

func (d *fakeDiscovery) RescanBus(ctx context.Context, bus int) error {
	d.rescans++
	return nil
}

// fire stands in for the timer expiring: it delivers the pending
// continuation exactly as the loop would.
func (t *timerSlot) fire(tb testing.TB) {
	tb.Helper()
	if t.pending == nil {
		tb.Fatal("no pending timer continuation to fire")
	}
	fn := t.pending
	t.pending = nil
	fn(false)
}
