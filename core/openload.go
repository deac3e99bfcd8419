package core

// OpenLoadPhase selects one of the two motor phase windings.
type OpenLoadPhase uint8

const (
	PhaseA OpenLoadPhase = iota
	PhaseB
)

func (p OpenLoadPhase) String() string {
	if p == PhaseB {
		return "B"
	}
	return "A"
}

// DefaultOpenLoadWindow is the time an open-load condition must persist
// before it is reported, in milliseconds.
const DefaultOpenLoadWindow = 2000

// OpenLoadTimer tracks one phase. It starts on the first positive
// observation and stops once every driver that reported the condition has
// since reported it absent.
type OpenLoadTimer struct {
	running   bool
	startedAt uint32
	positive  DriversBitmap
	negative  DriversBitmap
}

// OpenLoadEvent describes a state change produced by an observation.
type OpenLoadEvent uint8

const (
	OpenLoadNoChange OpenLoadEvent = iota
	OpenLoadStarted
	OpenLoadResolved
)

// Observe applies one poll result for driver.
func (t *OpenLoadTimer) Observe(driver DriverIndex, present bool, now uint32) OpenLoadEvent {
	switch {
	case present && !t.running:
		t.running = true
		t.startedAt = now
		t.positive.Clear()
		t.negative.Clear()
		t.positive.SetBit(driver)
		return OpenLoadStarted
	case present:
		t.positive.SetBit(driver)
	case t.running:
		t.negative.SetBit(driver)
		if t.positive.SubsetOf(t.negative) {
			t.running = false
			return OpenLoadResolved
		}
	}
	return OpenLoadNoChange
}

// Reset stops the timer and forgets both sets.
func (t *OpenLoadTimer) Reset() { *t = OpenLoadTimer{} }

func (t *OpenLoadTimer) Running() bool           { return t.running }
func (t *OpenLoadTimer) StartedAt() uint32       { return t.startedAt }
func (t *OpenLoadTimer) Positive() DriversBitmap { return t.positive }
func (t *OpenLoadTimer) Negative() DriversBitmap { return t.negative }

// Elapsed returns the milliseconds since the timer started, 0 when stopped.
// The subtraction is wrap-safe for a free running uint32 clock.
func (t *OpenLoadTimer) Elapsed(now uint32) uint32 {
	if !t.running {
		return 0
	}
	return now - t.startedAt
}

// Faulted reports the raw open-load signal for driver.
func (t *OpenLoadTimer) Faulted(driver DriverIndex) bool {
	return t.running && t.positive.IsBitSet(driver)
}

// Reported returns the drivers whose open-load fault has persisted for at
// least window milliseconds. The set is empty before the window has elapsed.
func (t *OpenLoadTimer) Reported(now, window uint32) DriversBitmap {
	if !t.running || now-t.startedAt < window {
		return 0
	}
	return t.positive
}

// OpenLoadDebouncer holds one timer per phase.
type OpenLoadDebouncer struct {
	timers [2]OpenLoadTimer
	log    DebugWriter
}

// Observe routes a phase observation to its timer and logs transitions.
func (d *OpenLoadDebouncer) Observe(phase OpenLoadPhase, driver DriverIndex, present bool, now uint32) OpenLoadEvent {
	ev := d.timers[phase&1].Observe(driver, present, now)
	switch ev {
	case OpenLoadStarted:
		d.log.print("open load phase " + phase.String() + " started driver=" + itoa(int(driver)))
	case OpenLoadResolved:
		d.log.print("open load phase " + phase.String() + " resolved driver=" + itoa(int(driver)))
	}
	return ev
}

// Timer returns the timer for phase.
func (d *OpenLoadDebouncer) Timer(phase OpenLoadPhase) *OpenLoadTimer {
	return &d.timers[phase&1]
}

// Reset stops both timers.
func (d *OpenLoadDebouncer) Reset() {
	d.timers[PhaseA].Reset()
	d.timers[PhaseB].Reset()
}
