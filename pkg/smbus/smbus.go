// Package smbus provides single-byte SMBus register access for PSU
// management controllers. The engine only ever needs byte-data reads and
// writes of one command register plus a quick-write presence probe, so the
// interface is kept to exactly that.
package smbus

// Bus is a single SMBus segment addressed by 7-bit device addresses.
type Bus interface {
	// ReadByte reads one byte from the device register selected by cmd.
	ReadByte(addr uint8, cmd uint8) (uint8, error)
	// WriteByte writes one byte to the device register selected by cmd.
	WriteByte(addr uint8, cmd uint8, value uint8) error
	// Ping probes device presence with an SMBus quick write.
	Ping(addr uint8) error
	Close() error
}
