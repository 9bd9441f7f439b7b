//go:build !linux

package smbus

import "fmt"

// Dev is only implemented on Linux; other platforms get a stub so the CLI
// still builds for development.
type Dev struct{}

func Open(bus int) (*Dev, error) {
	return nil, fmt.Errorf("smbus access is only supported on linux")
}

func (d *Dev) ReadByte(addr uint8, cmd uint8) (uint8, error) {
	return 0, fmt.Errorf("smbus access is only supported on linux")
}

func (d *Dev) WriteByte(addr uint8, cmd uint8, value uint8) error {
	return fmt.Errorf("smbus access is only supported on linux")
}

func (d *Dev) Ping(addr uint8) error {
	return fmt.Errorf("smbus access is only supported on linux")
}

func (d *Dev) Close() error { return nil }
