package core

// TemperatureClass is the worst thermal condition across the drivers.
type TemperatureClass uint8

const (
	TemperatureNominal TemperatureClass = iota
	TemperatureWarning
	TemperatureShutdown
)

func (c TemperatureClass) String() string {
	switch c {
	case TemperatureShutdown:
		return "shutdown"
	case TemperatureWarning:
		return "warning"
	}
	return "nominal"
}

// Celsius is the nominal temperature reported for the class.
func (c TemperatureClass) Celsius() float64 {
	switch c {
	case TemperatureShutdown:
		return 150.0
	case TemperatureWarning:
		return 100.0
	}
	return 0.0
}

// HealthSnapshot is a copy of the engine's observable state.
type HealthSnapshot struct {
	Power              PowerState
	Vin                RailStats
	V12                RailStats
	HasV12             bool
	UnderVoltageEvents uint32

	Shutdown      DriversBitmap
	Warning       DriversBitmap
	ShortToGround DriversBitmap
	Stalled       DriversBitmap
	OpenLoadA     DriversBitmap
	OpenLoadB     DriversBitmap

	ToLog    DriversBitmap
	ToPause  DriversBitmap
	ToRehome DriversBitmap

	Temperature TemperatureClass
}

// HealthReporter aggregates engine state. It never mutates it.
type HealthReporter struct {
	numDrivers     int
	openLoadWindow uint32
	faults         *FaultState
	openLoad       *OpenLoadDebouncer
	power          *PowerMonitor
}

// NewHealthReporter creates a reporter over the given state.
func NewHealthReporter(numDrivers int, openLoadWindow uint32, faults *FaultState, openLoad *OpenLoadDebouncer, power *PowerMonitor) *HealthReporter {
	return &HealthReporter{
		numDrivers:     numDrivers,
		openLoadWindow: openLoadWindow,
		faults:         faults,
		openLoad:       openLoad,
		power:          power,
	}
}

// WorstDriverTemperatureClass checks the configured drivers for shutdown,
// then warning.
func (h *HealthReporter) WorstDriverTemperatureClass() TemperatureClass {
	configured := LowestNBits(h.numDrivers)
	switch {
	case configured.Intersects(h.faults.Shutdown):
		return TemperatureShutdown
	case configured.Intersects(h.faults.Warning):
		return TemperatureWarning
	}
	return TemperatureNominal
}

// DriversTemperature returns the nominal driver temperature in Celsius.
func (h *HealthReporter) DriversTemperature() float64 {
	return h.WorstDriverTemperatureClass().Celsius()
}

// OpenLoadReported returns the open-load faults on phase that have lasted
// for the reporting window.
func (h *HealthReporter) OpenLoadReported(phase OpenLoadPhase, now uint32) DriversBitmap {
	return h.openLoad.Timer(phase).Reported(now, h.openLoadWindow)
}

// Snapshot copies the current state.
func (h *HealthReporter) Snapshot(now uint32) HealthSnapshot {
	fs := h.faults
	return HealthSnapshot{
		Power:              h.power.State(),
		Vin:                h.power.Vin(),
		V12:                h.power.V12(),
		HasV12:             h.power.HasV12(),
		UnderVoltageEvents: h.power.UnderVoltageEvents(),
		Shutdown:           fs.Shutdown,
		Warning:            fs.Warning,
		ShortToGround:      fs.ShortToGround,
		Stalled:            fs.Stalled,
		OpenLoadA:          h.OpenLoadReported(PhaseA, now),
		OpenLoadB:          h.OpenLoadReported(PhaseB, now),
		ToLog:              fs.ToLog,
		ToPause:            fs.ToPause,
		ToRehome:           fs.ToRehome,
		Temperature:        h.WorstDriverTemperatureClass(),
	}
}
