// Package config loads the board description used by the firmware target
// and the host tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"expboard/core"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// BoardConfig describes one expansion board.
type BoardConfig struct {
	Drivers          int     `yaml:"drivers"`
	CheckIntervalMs  uint32  `yaml:"check_interval_ms"`
	ReportIntervalMs *uint32 `yaml:"report_interval_ms"` // 0 disables the diagnostics line
	OpenLoadWindowMs uint32  `yaml:"open_load_window_ms"`

	Rails    RailsConfig `yaml:"rails"`
	PowerOn  string      `yaml:"power_on"`  // e.g. "10.5V"
	PowerOff string      `yaml:"power_off"` // e.g. "10V"

	DriverSettings []DriverConfig `yaml:"driver_settings"`

	Serial SerialConfig `yaml:"serial"`
	SPI    SPIConfig    `yaml:"spi"`
}

// RailsConfig holds the monitored supplies. V12 is nil on boards without a
// 12 V monitor.
type RailsConfig struct {
	Vin RailConfig  `yaml:"vin"`
	V12 *RailConfig `yaml:"v12"`
}

// RailConfig is the divider in front of one ADC channel.
type RailConfig struct {
	VoltageRange string `yaml:"voltage_range"` // rail voltage at ADC full scale
	AdcBits      uint8  `yaml:"adc_bits"`
}

// DriverConfig overrides the defaults of one driver.
type DriverConfig struct {
	Index  int    `yaml:"index"`
	NoPoll bool   `yaml:"no_poll"`
	Stall  string `yaml:"stall"` // log, pause, rehome or none; exactly one action per driver
}

// SerialConfig is the host side of the board's USB serial link.
type SerialConfig struct {
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// SPIConfig is the Linux SPI port used by the probe command.
type SPIConfig struct {
	Device string `yaml:"device"`
	MaxHz  int64  `yaml:"max_hz"`
}

// LoadConfig parses a YAML (or JSON) board description and applies defaults.
// Unknown keys are rejected.
func LoadConfig(data []byte) (*BoardConfig, error) {
	var config BoardConfig

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: failed to parse: %w", err)
	}

	if err := Complete(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// Complete applies defaults to a description decoded elsewhere, such as a
// board embedded in a simulation scenario, and validates it.
func Complete(config *BoardConfig) error {
	applyDefaults(config)
	return Validate(config)
}

// LoadFile reads and parses the board description at path.
func LoadFile(path string) (*BoardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return LoadConfig(data)
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *BoardConfig) {
	def := DefaultBoardConfig()

	if config.Drivers == 0 {
		config.Drivers = def.Drivers
	}
	if config.CheckIntervalMs == 0 {
		config.CheckIntervalMs = def.CheckIntervalMs
	}
	if config.ReportIntervalMs == nil {
		v := *def.ReportIntervalMs
		config.ReportIntervalMs = &v
	}
	if config.OpenLoadWindowMs == 0 {
		config.OpenLoadWindowMs = def.OpenLoadWindowMs
	}

	if config.Rails.Vin.VoltageRange == "" {
		config.Rails.Vin.VoltageRange = def.Rails.Vin.VoltageRange
	}
	if config.Rails.Vin.AdcBits == 0 {
		config.Rails.Vin.AdcBits = def.Rails.Vin.AdcBits
	}
	if config.Rails.V12 != nil {
		if config.Rails.V12.VoltageRange == "" {
			config.Rails.V12.VoltageRange = "20V"
		}
		if config.Rails.V12.AdcBits == 0 {
			config.Rails.V12.AdcBits = def.Rails.Vin.AdcBits
		}
	}

	if config.PowerOn == "" {
		config.PowerOn = def.PowerOn
	}
	if config.PowerOff == "" {
		config.PowerOff = def.PowerOff
	}

	if config.Serial.Device == "" {
		config.Serial.Device = def.Serial.Device
	}
	if config.Serial.Baud == 0 {
		config.Serial.Baud = def.Serial.Baud
	}
	if config.SPI.Device == "" {
		config.SPI.Device = def.SPI.Device
	}
	if config.SPI.MaxHz == 0 {
		config.SPI.MaxHz = def.SPI.MaxHz
	}
}

// DefaultBoardConfig returns a three-driver single-rail board.
func DefaultBoardConfig() *BoardConfig {
	report := uint32(core.DefaultReportInterval)
	return &BoardConfig{
		Drivers:          3,
		CheckIntervalMs:  core.DefaultCheckInterval,
		ReportIntervalMs: &report,
		OpenLoadWindowMs: core.DefaultOpenLoadWindow,
		Rails: RailsConfig{
			Vin: RailConfig{VoltageRange: "60.5V", AdcBits: 12},
		},
		PowerOn:  "10.5V",
		PowerOff: "10V",
		Serial: SerialConfig{
			Device: "/dev/ttyACM0",
			Baud:   250000,
		},
		SPI: SPIConfig{
			Device: "/dev/spidev0.0",
			MaxHz:  4000000,
		},
	}
}

// SupervisorConfig converts the board description to the engine
// configuration. The result is not validated.
func (c *BoardConfig) SupervisorConfig() (core.SupervisorConfig, error) {
	var sc core.SupervisorConfig
	var err error

	sc.NumDrivers = c.Drivers
	sc.CheckInterval = c.CheckIntervalMs
	if c.ReportIntervalMs != nil {
		sc.ReportInterval = *c.ReportIntervalMs
	}
	sc.OpenLoadWindow = c.OpenLoadWindowMs

	if sc.Power.Vin, err = c.Rails.Vin.rail("rails.vin"); err != nil {
		return sc, err
	}
	if c.Rails.V12 != nil {
		v12, err := c.Rails.V12.rail("rails.v12")
		if err != nil {
			return sc, err
		}
		sc.Power.V12 = &v12
	}
	if sc.Power.PowerOn, err = parseVoltage("power_on", c.PowerOn); err != nil {
		return sc, err
	}
	if sc.Power.PowerOff, err = parseVoltage("power_off", c.PowerOff); err != nil {
		return sc, err
	}

	for _, d := range c.DriverSettings {
		action, ok := core.ParseStallAction(d.Stall)
		if !ok {
			return sc, fmt.Errorf("config: driver %d: unknown stall action %q", d.Index, d.Stall)
		}
		if d.Index < 0 || d.Index >= core.MaxSmartDrivers {
			return sc, fmt.Errorf("config: driver index %d out of range", d.Index)
		}
		idx := core.DriverIndex(d.Index)
		sc.NoPoll.SetOrClearBit(idx, d.NoPoll)
		sc.Policy.Set(idx, action)
	}
	return sc, nil
}

func (r RailConfig) rail(name string) (core.RailConfig, error) {
	v, err := parseVoltage(name+".voltage_range", r.VoltageRange)
	if err != nil {
		return core.RailConfig{}, err
	}
	return core.RailConfig{VoltageRange: v, AdcBits: r.AdcBits}, nil
}

func parseVoltage(field, s string) (physic.ElectricPotential, error) {
	var v physic.ElectricPotential
	if err := v.Set(s); err != nil {
		return 0, fmt.Errorf("config: %s: %w", field, err)
	}
	return v, nil
}
