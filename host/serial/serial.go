package serial

import (
	"io"

	"expboard/config"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes (for testing)
type Port interface {
	io.ReadWriteCloser

	// Flush discards data not yet read or written
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the board's serial settings
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        250000,
		ReadTimeout: 100,
	}
}

// FromBoard returns the serial settings of a board description
func FromBoard(cfg config.SerialConfig) *Config {
	c := DefaultConfig(cfg.Device)
	if cfg.Baud > 0 {
		c.Baud = cfg.Baud
	}
	return c
}
