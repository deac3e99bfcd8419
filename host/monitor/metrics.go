package monitor

import (
	"strconv"

	"expboard/core"

	"github.com/prometheus/client_golang/prometheus"
	"periph.io/x/conn/v3/physic"
)

var (
	upDesc = prometheus.NewDesc("expboard_up",
		"Whether a driver status report has been received.", nil, nil)
	poweredDesc = prometheus.NewDesc("expboard_powered",
		"Motor power state after hysteresis (1 = powered).", nil, nil)
	railDesc = prometheus.NewDesc("expboard_rail_volts",
		"Monitored supply voltage.", []string{"rail", "stat"}, nil)
	underVoltageDesc = prometheus.NewDesc("expboard_under_voltage_events_total",
		"Powered to not-powered transitions since the board started.", nil, nil)
	temperatureDesc = prometheus.NewDesc("expboard_drivers_temperature_celsius",
		"Nominal temperature of the hottest driver class.", nil, nil)
	faultDesc = prometheus.NewDesc("expboard_driver_fault",
		"Per-driver fault flags (1 = present).", []string{"driver", "fault"}, nil)
	stallActionsDesc = prometheus.NewDesc("expboard_stall_actions_total",
		"Stall actions drained from the board.", []string{"action"}, nil)
	boardLinesDesc = prometheus.NewDesc("expboard_board_log_lines_total",
		"Diagnostic lines received from the board.", nil, nil)
)

// Describe implements prometheus.Collector.
func (m *Monitor) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		upDesc, poweredDesc, railDesc, underVoltageDesc, temperatureDesc,
		faultDesc, stallActionsDesc, boardLinesDesc,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (m *Monitor) Collect(ch chan<- prometheus.Metric) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range []core.StallAction{core.StallLog, core.StallPause, core.StallRehome} {
		ch <- prometheus.MustNewConstMetric(stallActionsDesc, prometheus.CounterValue,
			float64(m.stallActions[a]), a.String())
	}
	ch <- prometheus.MustNewConstMetric(boardLinesDesc, prometheus.CounterValue, float64(m.boardLines))

	if !m.have {
		ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(upDesc, prometheus.GaugeValue, 1)

	s := m.snap
	ch <- prometheus.MustNewConstMetric(poweredDesc, prometheus.GaugeValue, boolValue(s.Power == core.Powered))
	rail(ch, "vin", s.Vin)
	if s.HasV12 {
		rail(ch, "v12", s.V12)
	}
	ch <- prometheus.MustNewConstMetric(underVoltageDesc, prometheus.CounterValue, float64(s.UnderVoltageEvents))
	ch <- prometheus.MustNewConstMetric(temperatureDesc, prometheus.GaugeValue, s.Temperature.Celsius())

	for d := 0; d < m.numDrivers; d++ {
		idx := core.DriverIndex(d)
		label := strconv.Itoa(d)
		for _, f := range faultSets {
			ch <- prometheus.MustNewConstMetric(faultDesc, prometheus.GaugeValue,
				boolValue(f.get(s).IsBitSet(idx)), label, f.name)
		}
	}
}

func rail(ch chan<- prometheus.Metric, name string, r core.RailStats) {
	ch <- prometheus.MustNewConstMetric(railDesc, prometheus.GaugeValue, volts(r.Current), name, "current")
	ch <- prometheus.MustNewConstMetric(railDesc, prometheus.GaugeValue, volts(r.Lowest), name, "min")
	ch <- prometheus.MustNewConstMetric(railDesc, prometheus.GaugeValue, volts(r.Highest), name, "max")
}

func volts(v physic.ElectricPotential) float64 {
	return float64(v) / float64(physic.Volt)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
