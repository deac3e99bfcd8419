package monitor

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"expboard/core"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RailView is one supply in the status document.
type RailView struct {
	Current float64 `json:"current"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// DriverView lists the faults of one driver.
type DriverView struct {
	Index     int  `json:"index"`
	Shutdown  bool `json:"shutdown"`
	Warning   bool `json:"warning"`
	Short     bool `json:"short"`
	Stalled   bool `json:"stalled"`
	OpenLoadA bool `json:"open_load_a"`
	OpenLoadB bool `json:"open_load_b"`
}

// StatusView is the JSON document served on /status.
type StatusView struct {
	Updated            time.Time         `json:"updated"`
	Power              string            `json:"power"`
	Temperature        string            `json:"temperature"`
	TemperatureCelsius float64           `json:"temperature_celsius"`
	Vin                RailView          `json:"vin"`
	V12                *RailView         `json:"v12,omitempty"`
	UnderVoltageEvents uint32            `json:"under_voltage_events"`
	Drivers            []DriverView      `json:"drivers"`
	StallActions       map[string]uint64 `json:"stall_actions"`
}

// Status builds the status document. ok is false until the first report.
func (m *Monitor) Status() (StatusView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.have {
		return StatusView{}, false
	}

	s := m.snap
	v := StatusView{
		Updated:            m.updated,
		Power:              s.Power.String(),
		Temperature:        s.Temperature.String(),
		TemperatureCelsius: s.Temperature.Celsius(),
		Vin:                railView(s.Vin),
		UnderVoltageEvents: s.UnderVoltageEvents,
		StallActions:       make(map[string]uint64),
	}
	if s.HasV12 {
		r := railView(s.V12)
		v.V12 = &r
	}
	for d := 0; d < m.numDrivers; d++ {
		idx := core.DriverIndex(d)
		v.Drivers = append(v.Drivers, DriverView{
			Index:     d,
			Shutdown:  s.Shutdown.IsBitSet(idx),
			Warning:   s.Warning.IsBitSet(idx),
			Short:     s.ShortToGround.IsBitSet(idx),
			Stalled:   s.Stalled.IsBitSet(idx),
			OpenLoadA: s.OpenLoadA.IsBitSet(idx),
			OpenLoadB: s.OpenLoadB.IsBitSet(idx),
		})
	}
	for a, n := range m.stallActions {
		v.StallActions[a.String()] = n
	}
	return v, true
}

func railView(r core.RailStats) RailView {
	return RailView{Current: volts(r.Current), Min: volts(r.Lowest), Max: volts(r.Highest)}
}

// NewHandler serves /metrics, /status and /healthz. The monitor is
// registered on reg.
func NewHandler(m *Monitor, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	reg.MustRegister(m)

	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		v, ok := m.Status()
		if !ok {
			http.Error(w, "no status received yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Warn("status encode failed", "error", err)
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.Snapshot(); !ok {
			http.Error(w, "waiting for board", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})

	return r
}
