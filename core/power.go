package core

import (
	"errors"

	"periph.io/x/conn/v3/physic"
)

// PowerState is the debounced motor power signal.
type PowerState uint8

const (
	NotPowered PowerState = iota
	Powered
)

func (s PowerState) String() string {
	if s == Powered {
		return "powered"
	}
	return "not_powered"
}

// Default hysteresis thresholds for the motor supply.
const (
	DefaultPowerOnThreshold  = 10*physic.Volt + 500*physic.MilliVolt
	DefaultPowerOffThreshold = 10 * physic.Volt
)

// RailReading is a snapshot of an averaging filter: the sum of the last
// Count samples. Torn reads are tolerated by the producer guaranteeing a
// self-consistent pair.
type RailReading struct {
	Sum   uint32
	Count uint32
}

// Code returns the averaged ADC code.
func (r RailReading) Code() uint16 {
	if r.Count == 0 {
		return 0
	}
	return uint16(r.Sum / r.Count)
}

// RailReadings carries one snapshot per monitored rail. V12 is ignored on
// boards without a 12 V monitor.
type RailReadings struct {
	Vin RailReading
	V12 RailReading
}

// RailConfig describes the fixed divider in front of an ADC channel.
// VoltageRange is the rail voltage that maps to full scale (2^AdcBits).
type RailConfig struct {
	VoltageRange physic.ElectricPotential
	AdcBits      uint8
}

// Voltage converts an averaged ADC code to volts.
func (rc RailConfig) Voltage(code uint16) physic.ElectricPotential {
	return physic.ElectricPotential((int64(code) * int64(rc.VoltageRange)) >> rc.AdcBits)
}

// Code converts a voltage to the ADC code that reads back at or below it.
func (rc RailConfig) Code(v physic.ElectricPotential) uint16 {
	if v <= 0 || rc.VoltageRange <= 0 {
		return 0
	}
	code := (int64(v) << rc.AdcBits) / int64(rc.VoltageRange)
	if code > 0xFFFF {
		code = 0xFFFF
	}
	return uint16(code)
}

// PowerMonitorConfig configures the rails and hysteresis thresholds.
type PowerMonitorConfig struct {
	Vin RailConfig
	// V12 is nil when the board has no 12 V monitor.
	V12 *RailConfig

	PowerOn  physic.ElectricPotential
	PowerOff physic.ElectricPotential
}

var (
	ErrRailConfig      = errors.New("power: rail voltage range and adc bits must be set")
	ErrPowerThresholds = errors.New("power: power-on threshold must be above power-off threshold")
)

// Validate checks the rail and threshold configuration.
func (c PowerMonitorConfig) Validate() error {
	if c.Vin.VoltageRange <= 0 || c.Vin.AdcBits == 0 || c.Vin.AdcBits > 16 {
		return ErrRailConfig
	}
	if c.V12 != nil && (c.V12.VoltageRange <= 0 || c.V12.AdcBits == 0 || c.V12.AdcBits > 16) {
		return ErrRailConfig
	}
	if c.PowerOn <= c.PowerOff {
		return ErrPowerThresholds
	}
	return nil
}

// railStats tracks the current, lowest and highest averaged code of a rail.
type railStats struct {
	current uint16
	lowest  uint16
	highest uint16
}

func (r *railStats) reset() {
	r.current, r.highest = 0, 0
	r.lowest = 0xFFFF
}

func (r *railStats) record(code uint16) {
	r.current = code
	if code < r.lowest {
		r.lowest = code
	}
	if code > r.highest {
		r.highest = code
	}
}

// RailStats reports a rail in volts.
type RailStats struct {
	Current physic.ElectricPotential
	Lowest  physic.ElectricPotential
	Highest physic.ElectricPotential
}

// PowerMonitor turns averaged rail readings into a debounced PowerState.
type PowerMonitor struct {
	cfg   PowerMonitorConfig
	state PowerState

	underVoltageEvents   uint32
	reportedUnderVoltage uint32

	vin railStats
	v12 railStats

	// onChange is called after every state transition.
	onChange func(PowerState)
}

// NewPowerMonitor creates a monitor in the NotPowered state.
func NewPowerMonitor(cfg PowerMonitorConfig) *PowerMonitor {
	pm := &PowerMonitor{cfg: cfg}
	pm.Reset()
	return pm
}

// Reset returns the monitor to its startup values.
func (pm *PowerMonitor) Reset() {
	pm.state = NotPowered
	pm.underVoltageEvents = 0
	pm.reportedUnderVoltage = 0
	pm.vin.reset()
	pm.v12.reset()
}

// Update evaluates the hysteresis against the latest readings.
// All configured rails must reach PowerOn to become Powered; any rail
// below PowerOff drops back to NotPowered and counts an under-voltage event.
func (pm *PowerMonitor) Update(readings RailReadings) PowerState {
	vinCode := readings.Vin.Code()
	pm.vin.record(vinCode)
	lowest := pm.cfg.Vin.Voltage(vinCode)

	if pm.cfg.V12 != nil {
		v12Code := readings.V12.Code()
		pm.v12.record(v12Code)
		if v := pm.cfg.V12.Voltage(v12Code); v < lowest {
			lowest = v
		}
	}

	switch {
	case pm.state == NotPowered && lowest >= pm.cfg.PowerOn:
		pm.state = Powered
		pm.notify()
	case pm.state == Powered && lowest < pm.cfg.PowerOff:
		pm.state = NotPowered
		pm.underVoltageEvents++
		pm.notify()
	}
	return pm.state
}

func (pm *PowerMonitor) notify() {
	if pm.onChange != nil {
		pm.onChange(pm.state)
	}
}

// State returns the last evaluated power state.
func (pm *PowerMonitor) State() PowerState { return pm.state }

// UnderVoltageEvents returns the number of Powered to NotPowered transitions.
func (pm *PowerMonitor) UnderVoltageEvents() uint32 { return pm.underVoltageEvents }

// PendingUnderVoltageEvents returns the events not yet reported.
func (pm *PowerMonitor) PendingUnderVoltageEvents() uint32 {
	return pm.underVoltageEvents - pm.reportedUnderVoltage
}

// UnderVoltageEventsSinceLastReport returns the events counted since the
// previous call and marks them as reported.
func (pm *PowerMonitor) UnderVoltageEventsSinceLastReport() uint32 {
	n := pm.PendingUnderVoltageEvents()
	pm.reportedUnderVoltage = pm.underVoltageEvents
	return n
}

// HasV12 reports whether a 12 V rail is monitored.
func (pm *PowerMonitor) HasV12() bool { return pm.cfg.V12 != nil }

// Vin returns the main supply statistics.
func (pm *PowerMonitor) Vin() RailStats { return pm.stats(pm.cfg.Vin, pm.vin) }

// V12 returns the 12 V rail statistics, zero when not monitored.
func (pm *PowerMonitor) V12() RailStats {
	if pm.cfg.V12 == nil {
		return RailStats{}
	}
	return pm.stats(*pm.cfg.V12, pm.v12)
}

func (pm *PowerMonitor) stats(rc RailConfig, r railStats) RailStats {
	lowest := r.lowest
	if lowest == 0xFFFF {
		lowest = 0
	}
	return RailStats{
		Current: rc.Voltage(r.current),
		Lowest:  rc.Voltage(lowest),
		Highest: rc.Voltage(r.highest),
	}
}
