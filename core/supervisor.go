package core

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// DefaultReportInterval is the diagnostics period in milliseconds.
const DefaultReportInterval = 2000

var (
	ErrDriverCount     = errors.New("supervisor: driver count out of range")
	ErrCheckInterval   = errors.New("supervisor: check interval must be positive")
	ErrDriverIndex     = errors.New("supervisor: driver index out of range")
	ErrConfigFinalized = errors.New("supervisor: configuration is finalized")
)

// SupervisorConfig is the static configuration of the engine.
type SupervisorConfig struct {
	NumDrivers int
	NoPoll     DriversBitmap
	Policy     StallPolicy
	Power      PowerMonitorConfig

	// Intervals in milliseconds. ReportInterval 0 disables the periodic
	// diagnostics line.
	CheckInterval  uint32
	ReportInterval uint32
	OpenLoadWindow uint32

	// Debug receives event and diagnostics lines. nil selects DebugPrintln.
	Debug DebugWriter
}

// DefaultSupervisorConfig returns a single-rail configuration for n drivers.
func DefaultSupervisorConfig(n int) SupervisorConfig {
	return SupervisorConfig{
		NumDrivers: n,
		Power: PowerMonitorConfig{
			Vin:      RailConfig{VoltageRange: 60*physic.Volt + 500*physic.MilliVolt, AdcBits: 12},
			PowerOn:  DefaultPowerOnThreshold,
			PowerOff: DefaultPowerOffThreshold,
		},
		CheckInterval:  DefaultCheckInterval,
		ReportInterval: DefaultReportInterval,
		OpenLoadWindow: DefaultOpenLoadWindow,
	}
}

// Validate checks the configuration without modifying it.
func (c SupervisorConfig) Validate() error {
	if c.NumDrivers < 1 || c.NumDrivers > MaxSmartDrivers {
		return fmt.Errorf("%w: %d", ErrDriverCount, c.NumDrivers)
	}
	if c.CheckInterval == 0 {
		return ErrCheckInterval
	}
	if err := c.Power.Validate(); err != nil {
		return fmt.Errorf("supervisor: %w", err)
	}
	return nil
}

// Supervisor owns the whole health and power engine. Every method must be
// called from the single service context that calls Spin.
type Supervisor struct {
	cfg    SupervisorConfig
	policy StallPolicy
	noPoll DriversBitmap

	faults   FaultState
	openLoad OpenLoadDebouncer

	power      *PowerMonitor
	router     *StallActionRouter
	classifier *FaultClassifier
	poller     *DriverPoller
	health     *HealthReporter

	timers      TimerList
	checkTimer  Timer
	reportTimer Timer

	now              uint32
	started          bool
	warnedNotPowered bool
	log              DebugWriter
}

// NewSupervisor builds the engine. query is called at most once per
// check interval.
func NewSupervisor(cfg SupervisorConfig, query StatusQuerier) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if query == nil {
		return nil, errors.New("supervisor: status querier is required")
	}

	s := &Supervisor{
		cfg:    cfg,
		policy: cfg.Policy,
		noPoll: cfg.NoPoll,
		log:    cfg.Debug,
	}
	if s.log == nil {
		s.log = DebugPrintln
	}

	s.power = NewPowerMonitor(cfg.Power)
	s.power.onChange = s.onPowerChange
	s.openLoad.log = s.log
	s.router = NewStallActionRouter(&s.policy, &s.faults)
	s.router.log = s.log
	s.classifier = NewFaultClassifier(&s.faults, s.router, &s.openLoad)
	s.poller = NewDriverPoller(cfg.NumDrivers, s.noPoll, query, s.classifier)
	s.poller.log = s.log
	s.health = NewHealthReporter(cfg.NumDrivers, cfg.OpenLoadWindow, &s.faults, &s.openLoad, s.power)

	s.checkTimer.Handler = s.checkEvent
	s.reportTimer.Handler = s.reportEvent
	return s, nil
}

// ConfigureDriver sets the poll flag and stall action of one driver. It
// is only accepted before the first Spin.
func (s *Supervisor) ConfigureDriver(driver DriverIndex, noPoll bool, action StallAction) error {
	if s.started {
		return ErrConfigFinalized
	}
	if int(driver) >= s.cfg.NumDrivers {
		return fmt.Errorf("%w: %d", ErrDriverIndex, driver)
	}
	s.noPoll.SetOrClearBit(driver, noPoll)
	s.poller.noPoll = s.noPoll
	s.policy.Set(driver, action)
	return nil
}

// Spin is the periodic service routine. readings are the latest filter
// snapshots and now is a free running millisecond clock.
func (s *Supervisor) Spin(now uint32, readings RailReadings) {
	s.now = now
	if !s.started {
		s.started = true
		s.checkTimer.WakeTime = now + s.cfg.CheckInterval
		s.timers.Schedule(&s.checkTimer)
		if s.cfg.ReportInterval != 0 {
			s.reportTimer.WakeTime = now + s.cfg.ReportInterval
			s.timers.Schedule(&s.reportTimer)
		}
	}
	s.power.Update(readings)
	s.timers.Dispatch(now)
}

// Reset returns every part of the engine to its startup state. Static
// configuration is kept.
func (s *Supervisor) Reset() {
	s.timers.Clear()
	s.started = false
	s.warnedNotPowered = false
	s.faults.Reset()
	s.openLoad.Reset()
	s.power.Reset()
	s.poller.Reset()
	s.log.print("reset")
}

func (s *Supervisor) onPowerChange(state PowerState) {
	if state == Powered {
		s.log.print("motor power on, Vin " + decivolts(int32(s.power.Vin().Current/physic.MilliVolt)) + "V")
		return
	}
	s.log.print("under-voltage, Vin " + decivolts(int32(s.power.Vin().Current/physic.MilliVolt)) +
		"V events=" + utoa(s.power.UnderVoltageEvents()))
}

// checkEvent polls one driver when motor power is present.
func (s *Supervisor) checkEvent(t *Timer) uint8 {
	if s.power.State() == Powered {
		s.warnedNotPowered = false
		s.poller.Poll(s.now)
	} else if !s.warnedNotPowered {
		s.warnedNotPowered = true
		s.log.print("drivers not powered")
	}
	s.advance(t, s.cfg.CheckInterval)
	return SF_RESCHEDULE
}

func (s *Supervisor) reportEvent(t *Timer) uint8 {
	s.log.print(s.diagnostics(s.now, s.power.UnderVoltageEventsSinceLastReport()))
	s.advance(t, s.cfg.ReportInterval)
	return SF_RESCHEDULE
}

// advance moves t one interval on, skipping missed periods.
func (s *Supervisor) advance(t *Timer, interval uint32) {
	t.WakeTime += interval
	if !TimerIsBefore(s.now, t.WakeTime) {
		t.WakeTime = s.now + interval
	}
}

// DiagnosticsReport renders the diagnostics line for now without marking
// under-voltage events as reported.
func (s *Supervisor) DiagnosticsReport(now uint32) string {
	return s.diagnostics(now, s.power.PendingUnderVoltageEvents())
}

func (s *Supervisor) diagnostics(now uint32, newUnderVoltage uint32) string {
	return FormatDiagnostics(s.health.Snapshot(now), newUnderVoltage)
}

// TakeAndClear drains one queue of stall actions.
func (s *Supervisor) TakeAndClear(action StallAction) DriversBitmap {
	return s.router.TakeAndClear(action)
}

// PendingActions returns the queued stall actions without draining them.
func (s *Supervisor) PendingActions() PendingActions { return s.router.Pending() }

func (s *Supervisor) PowerState() PowerState  { return s.power.State() }
func (s *Supervisor) Faults() FaultState      { return s.faults }
func (s *Supervisor) Health() *HealthReporter { return s.health }
func (s *Supervisor) Power() *PowerMonitor    { return s.power }
func (s *Supervisor) Poller() *DriverPoller   { return s.poller }
func (s *Supervisor) NumDrivers() int         { return s.cfg.NumDrivers }
func (s *Supervisor) Policy() StallPolicy     { return s.policy }
func (s *Supervisor) NoPoll() DriversBitmap   { return s.noPoll }
func (s *Supervisor) Now() uint32             { return s.now }

// OpenLoad returns the debounce timer of phase.
func (s *Supervisor) OpenLoad(phase OpenLoadPhase) *OpenLoadTimer {
	return s.openLoad.Timer(phase)
}

// Snapshot copies the observable state at the last Spin time.
func (s *Supervisor) Snapshot() HealthSnapshot { return s.health.Snapshot(s.now) }
