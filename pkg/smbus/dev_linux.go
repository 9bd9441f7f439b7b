//go:build linux

package smbus

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl numbers and transfer types from linux/i2c-dev.h and linux/i2c.h.
const (
	i2cSlave = 0x0703
	i2cSMBus = 0x0720

	smbusRead  = 1
	smbusWrite = 0

	smbusQuick    = 0
	smbusByteData = 2
)

type smbusIoctlData struct {
	readWrite uint8
	command   uint8
	size      uint32
	data      unsafe.Pointer
}

// Dev talks to /dev/i2c-N. All methods are safe to call only from one
// goroutine; the engine's loop is the single caller.
type Dev struct {
	file *os.File
	bus  int
}

// Open opens the i2c character device for the given bus number.
func Open(bus int) (*Dev, error) {
	path := fmt.Sprintf("/dev/i2c-%d", bus)
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %v", path, err)
	}
	return &Dev{file: file, bus: bus}, nil
}

func (d *Dev) setSlave(addr uint8) error {
	if err := unix.IoctlSetInt(int(d.file.Fd()), i2cSlave, int(addr)); err != nil {
		return fmt.Errorf("failed to select device 0x%02x on bus %d: %v", addr, d.bus, err)
	}
	return nil
}

func (d *Dev) transfer(readWrite uint8, command uint8, size uint32, data unsafe.Pointer) error {
	args := smbusIoctlData{
		readWrite: readWrite,
		command:   command,
		size:      size,
		data:      data,
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.file.Fd(), i2cSMBus, uintptr(unsafe.Pointer(&args)))
	if errno != 0 {
		return errno
	}
	return nil
}

func (d *Dev) ReadByte(addr uint8, cmd uint8) (uint8, error) {
	if err := d.setSlave(addr); err != nil {
		return 0, err
	}
	var value uint8
	if err := d.transfer(smbusRead, cmd, smbusByteData, unsafe.Pointer(&value)); err != nil {
		return 0, fmt.Errorf("failed to read register 0x%02x at 0x%02x: %v", cmd, addr, err)
	}
	return value, nil
}

func (d *Dev) WriteByte(addr uint8, cmd uint8, value uint8) error {
	if err := d.setSlave(addr); err != nil {
		return err
	}
	if err := d.transfer(smbusWrite, cmd, smbusByteData, unsafe.Pointer(&value)); err != nil {
		return fmt.Errorf("failed to write register 0x%02x at 0x%02x: %v", cmd, addr, err)
	}
	return nil
}

// Ping issues a quick write, the same probe i2cdetect uses for most
// address ranges.
func (d *Dev) Ping(addr uint8) error {
	if err := d.setSlave(addr); err != nil {
		return err
	}
	return d.transfer(smbusWrite, 0, smbusQuick, nil)
}

func (d *Dev) Close() error {
	return d.file.Close()
}
