// Package monitor tracks the health reports of a board and exposes them
// as Prometheus metrics and a JSON status document.
package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"expboard/core"
	"expboard/host/mcu"
)

// Board is the part of the MCU connection the monitor drives.
type Board interface {
	QueryDriverStatus() error
	TakeStallActions() error
	Next() (mcu.Response, error)
}

// Monitor holds the latest report. It is safe for concurrent use.
type Monitor struct {
	numDrivers int
	log        *slog.Logger
	now        func() time.Time

	mu           sync.RWMutex
	snap         core.HealthSnapshot
	have         bool
	updated      time.Time
	stallActions map[core.StallAction]uint64
	boardLines   uint64
}

// New creates a monitor for a board with numDrivers drivers.
func New(numDrivers int, log *slog.Logger) *Monitor {
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		numDrivers:   numDrivers,
		log:          log,
		now:          time.Now,
		stallActions: make(map[core.StallAction]uint64),
	}
}

// Observe applies one response from the board.
func (m *Monitor) Observe(resp mcu.Response) {
	switch {
	case resp.Status != nil:
		m.observeStatus(*resp.Status)
	case resp.Actions != nil:
		m.observeActions(*resp.Actions)
	case resp.Name == "supervisor_log":
		m.mu.Lock()
		m.boardLines++
		m.mu.Unlock()
		m.log.Info("board", "msg", resp.Log)
	}
}

func (m *Monitor) observeStatus(snap core.HealthSnapshot) {
	m.mu.Lock()
	prev, had := m.snap, m.have
	m.snap = snap
	m.have = true
	m.updated = m.now()
	m.mu.Unlock()

	if !had {
		m.log.Info("first status", "power", snap.Power, "vin", snap.Vin.Current, "temperature", snap.Temperature)
		prev = core.HealthSnapshot{Power: snap.Power, UnderVoltageEvents: snap.UnderVoltageEvents}
	}
	if snap.Power != prev.Power {
		m.log.Info("power changed", "power", snap.Power, "vin", snap.Vin.Current)
	}
	if snap.UnderVoltageEvents > prev.UnderVoltageEvents {
		m.log.Warn("under-voltage", "events", snap.UnderVoltageEvents-prev.UnderVoltageEvents,
			"total", snap.UnderVoltageEvents, "vin_min", snap.Vin.Lowest)
	}
	for _, f := range faultSets {
		was, is := f.get(prev), f.get(snap)
		if was == is {
			continue
		}
		level := slog.LevelInfo
		if !is.Without(was).IsEmpty() {
			level = slog.LevelWarn
		}
		m.log.Log(context.Background(), level, "fault set changed",
			"fault", f.name, "drivers", is.String(), "new", is.Without(was).String(), "cleared", was.Without(is).String())
	}
}

func (m *Monitor) observeActions(a core.PendingActions) {
	m.mu.Lock()
	m.stallActions[core.StallLog] += uint64(a.Log.Count())
	m.stallActions[core.StallPause] += uint64(a.Pause.Count())
	m.stallActions[core.StallRehome] += uint64(a.Rehome.Count())
	m.mu.Unlock()

	for _, q := range []struct {
		action  core.StallAction
		drivers core.DriversBitmap
	}{{core.StallLog, a.Log}, {core.StallPause, a.Pause}, {core.StallRehome, a.Rehome}} {
		if !q.drivers.IsEmpty() {
			m.log.Warn("stall action", "action", q.action, "drivers", q.drivers.String())
		}
	}
}

// Run polls the board every interval and applies responses until ctx is
// done or the board stream fails. The caller closes the board afterwards.
func (m *Monitor) Run(ctx context.Context, board Board, interval time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		for {
			resp, err := board.Next()
			if err != nil {
				errc <- err
				return
			}
			m.Observe(resp)
		}
	}()

	poll := func() error {
		if err := board.QueryDriverStatus(); err != nil {
			return err
		}
		return board.TakeStallActions()
	}
	if err := poll(); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, io.EOF) {
				m.log.Info("board closed the connection")
				return nil
			}
			return err
		case <-ticker.C:
			if err := poll(); err != nil {
				return err
			}
		}
	}
}

// Snapshot returns the latest report and whether one has arrived.
func (m *Monitor) Snapshot() (core.HealthSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap, m.have
}

type faultSet struct {
	name string
	get  func(core.HealthSnapshot) core.DriversBitmap
}

var faultSets = []faultSet{
	{"shutdown", func(s core.HealthSnapshot) core.DriversBitmap { return s.Shutdown }},
	{"warning", func(s core.HealthSnapshot) core.DriversBitmap { return s.Warning }},
	{"short", func(s core.HealthSnapshot) core.DriversBitmap { return s.ShortToGround }},
	{"stalled", func(s core.HealthSnapshot) core.DriversBitmap { return s.Stalled }},
	{"open_load_a", func(s core.HealthSnapshot) core.DriversBitmap { return s.OpenLoadA }},
	{"open_load_b", func(s core.HealthSnapshot) core.DriversBitmap { return s.OpenLoadB }},
}
