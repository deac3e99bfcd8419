package core

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"
)

// ErrNoReply is returned when a driver answers with all ones, which is what
// an undriven MISO line reads as.
var ErrNoReply = errors.New("tmc: no reply from driver")

// ChipSelect is an active-low select line. machine.Pin satisfies it.
type ChipSelect interface {
	High()
	Low()
}

// TMCChannel is the SPI path to one driver. CS is nil when the bus
// asserts chip select itself.
type TMCChannel struct {
	Bus drivers.SPI
	CS  ChipSelect
}

// TMCStatusReader reads TMC5240 registers over SPI. Reads are pipelined:
// the reply to a request arrives during the following datagram.
type TMCStatusReader struct {
	channels []TMCChannel
	tx       [TMC5240_DATAGRAM_LEN]byte
	rx       [TMC5240_DATAGRAM_LEN]byte
	status   []uint8
}

// NewTMCStatusReader creates a reader with one channel per driver.
func NewTMCStatusReader(channels []TMCChannel) *TMCStatusReader {
	return &TMCStatusReader{
		channels: channels,
		status:   make([]uint8, len(channels)),
	}
}

// ReadRegister returns the 32-bit value of addr on driver.
func (r *TMCStatusReader) ReadRegister(driver DriverIndex, addr uint8) (uint32, error) {
	if int(driver) >= len(r.channels) {
		return 0, fmt.Errorf("tmc: %w: %d", ErrDriverIndex, driver)
	}
	ch := r.channels[driver]

	r.tx = [TMC5240_DATAGRAM_LEN]byte{addr &^ TMC5240_WRITE_BIT}
	// Request, then clock the reply out with a repeat of the same request
	for i := 0; i < 2; i++ {
		if err := r.transfer(ch); err != nil {
			return 0, fmt.Errorf("tmc: driver %d: %w", driver, err)
		}
	}

	value := uint32(r.rx[1])<<24 | uint32(r.rx[2])<<16 | uint32(r.rx[3])<<8 | uint32(r.rx[4])
	if r.rx[0] == 0xFF && value == 0xFFFFFFFF {
		return 0, fmt.Errorf("%w %d", ErrNoReply, driver)
	}
	r.status[driver] = r.rx[0]
	return value, nil
}

func (r *TMCStatusReader) transfer(ch TMCChannel) error {
	if ch.CS != nil {
		ch.CS.Low()
		defer ch.CS.High()
	}
	return ch.Bus.Tx(r.tx[:], r.rx[:])
}

// QueryDriverStatus reads DRV_STATUS.
func (r *TMCStatusReader) QueryDriverStatus(driver DriverIndex) (RawStatusWord, error) {
	v, err := r.ReadRegister(driver, TMC5240_DRV_STATUS)
	return RawStatusWord(v), err
}

// SPIStatus returns the status byte of the last successful read of driver.
func (r *TMCStatusReader) SPIStatus(driver DriverIndex) uint8 {
	if int(driver) >= len(r.status) {
		return 0
	}
	return r.status[driver]
}

// NumDrivers returns the number of channels.
func (r *TMCStatusReader) NumDrivers() int { return len(r.channels) }
