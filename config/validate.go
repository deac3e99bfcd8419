package config

import (
	"fmt"

	"expboard/core"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *BoardConfig) error {
	seen := make(map[int]bool)
	for _, d := range cfg.DriverSettings {
		if d.Index < 0 || d.Index >= cfg.Drivers {
			return fmt.Errorf("config: driver_settings index %d outside 0..%d", d.Index, cfg.Drivers-1)
		}
		if seen[d.Index] {
			return fmt.Errorf("config: driver %d configured twice", d.Index)
		}
		seen[d.Index] = true
	}

	if cfg.Serial.Baud < 0 {
		return fmt.Errorf("config: serial.baud must be positive")
	}
	if cfg.SPI.MaxHz < 0 {
		return fmt.Errorf("config: spi.max_hz must be positive")
	}

	sc, err := cfg.SupervisorConfig()
	if err != nil {
		return err
	}
	if err := sc.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Summary renders the effective configuration, one setting per line.
func (c *BoardConfig) Summary() string {
	s := fmt.Sprintf("drivers: %d\n", c.Drivers)
	s += fmt.Sprintf("check_interval_ms: %d\n", c.CheckIntervalMs)
	if c.ReportIntervalMs != nil {
		s += fmt.Sprintf("report_interval_ms: %d\n", *c.ReportIntervalMs)
	}
	s += fmt.Sprintf("open_load_window_ms: %d\n", c.OpenLoadWindowMs)
	s += fmt.Sprintf("rails.vin: %s / %d bits\n", c.Rails.Vin.VoltageRange, c.Rails.Vin.AdcBits)
	if c.Rails.V12 != nil {
		s += fmt.Sprintf("rails.v12: %s / %d bits\n", c.Rails.V12.VoltageRange, c.Rails.V12.AdcBits)
	}
	s += fmt.Sprintf("power_on: %s\npower_off: %s\n", c.PowerOn, c.PowerOff)

	sc, err := c.SupervisorConfig()
	if err != nil {
		return s
	}
	for d := 0; d < c.Drivers; d++ {
		idx := core.DriverIndex(d)
		s += fmt.Sprintf("driver %d: poll=%t stall=%s\n", d, !sc.NoPoll.IsBitSet(idx), sc.Policy.Lookup(idx))
	}
	return s
}
