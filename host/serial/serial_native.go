package serial

import (
	"errors"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

var ErrNoDevice = errors.New("serial: no device configured")

// NativePort is a board link on a tarm/serial port.
type NativePort struct {
	*serial.Port
	device string
}

// tarm converts c to the tarm/serial settings. Frames are 8N1.
func (c *Config) tarm() *serial.Config {
	return &serial.Config{
		Name:        c.Device,
		Baud:        c.Baud,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: time.Duration(c.ReadTimeout) * time.Millisecond,
	}
}

// Open opens the port named by cfg.Device.
func Open(cfg *Config) (Port, error) {
	if cfg == nil || cfg.Device == "" {
		return nil, ErrNoDevice
	}
	port, err := serial.OpenPort(cfg.tarm())
	if err != nil {
		return nil, fmt.Errorf("serial: open %s: %w", cfg.Device, err)
	}
	return &NativePort{Port: port, device: cfg.Device}, nil
}

// Flush drops stale bytes left in the driver buffers, e.g. frames the
// board sent before the host attached.
func (p *NativePort) Flush() error { return p.Port.Flush() }

// Device returns the path the port was opened on
func (p *NativePort) Device() string { return p.device }
