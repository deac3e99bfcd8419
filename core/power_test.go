package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

func TestRailConfigConversion(t *testing.T) {
	assert.Equal(t, uint16(672), testRail.Code(10500*physic.MilliVolt))
	assert.Equal(t, 10500*physic.MilliVolt, testRail.Voltage(672))
	assert.Equal(t, uint16(0), testRail.Code(-physic.Volt))
	assert.Equal(t, uint16(0xFFFF), RailConfig{VoltageRange: physic.Volt, AdcBits: 16}.Code(5*physic.Volt))
}

func TestRailReadingCode(t *testing.T) {
	assert.Equal(t, uint16(0), RailReading{}.Code(), "empty filter reads as zero")
	assert.Equal(t, uint16(100), RailReading{Sum: 400, Count: 4}.Code())
}

func TestPowerMonitorHysteresisSequence(t *testing.T) {
	// 9.5 V off threshold so that 9.8 V sits inside the hysteresis band.
	cfg := testPowerConfig()
	cfg.PowerOff = 9500 * physic.MilliVolt
	pm := NewPowerMonitor(cfg)

	steps := []struct {
		volts  float64
		want   PowerState
		events uint32
	}{
		{9.0, NotPowered, 0},
		{10.0, NotPowered, 0},
		{10.6, Powered, 0},
		{9.8, Powered, 0},
		{9.4, NotPowered, 1},
		{9.0, NotPowered, 1},
	}
	for _, s := range steps {
		got := pm.Update(vinAt(s.volts))
		assert.Equal(t, s.want, got, "at %.1fV", s.volts)
		assert.Equal(t, s.events, pm.UnderVoltageEvents(), "at %.1fV", s.volts)
	}
}

func TestPowerMonitorDefaultThresholds(t *testing.T) {
	pm := NewPowerMonitor(testPowerConfig())

	assert.Equal(t, NotPowered, pm.Update(vinAt(10.4)))
	assert.Equal(t, Powered, pm.Update(vinAt(10.5)), "10.5 V is the power-on threshold")
	assert.Equal(t, Powered, pm.Update(vinAt(10.0)), "10.0 V is not below the power-off threshold")
	assert.Equal(t, NotPowered, pm.Update(vinAt(9.99)))
	assert.Equal(t, NotPowered, pm.Update(vinAt(10.2)), "inside the band stays off")
	assert.Equal(t, uint32(1), pm.UnderVoltageEvents())
}

func TestPowerMonitorCountsEveryBrownout(t *testing.T) {
	pm := NewPowerMonitor(testPowerConfig())
	for i := 0; i < 3; i++ {
		pm.Update(vinAt(24))
		pm.Update(vinAt(5))
		pm.Update(vinAt(5))
	}
	assert.Equal(t, uint32(3), pm.UnderVoltageEvents())
}

func TestPowerMonitorDualRail(t *testing.T) {
	cfg := testPowerConfig()
	v12 := testRail
	cfg.V12 = &v12
	pm := NewPowerMonitor(cfg)

	assert.Equal(t, NotPowered, pm.Update(RailReadings{Vin: railAt(24), V12: railAt(10)}),
		"every rail must reach the on threshold")
	assert.Equal(t, Powered, pm.Update(RailReadings{Vin: railAt(24), V12: railAt(12)}))
	assert.Equal(t, NotPowered, pm.Update(RailReadings{Vin: railAt(24), V12: railAt(9.9)}),
		"any rail below the off threshold drops power")
	assert.Equal(t, uint32(1), pm.UnderVoltageEvents())
	assert.True(t, pm.HasV12())
}

func TestPowerMonitorSingleRailIgnoresV12(t *testing.T) {
	pm := NewPowerMonitor(testPowerConfig())
	assert.Equal(t, Powered, pm.Update(RailReadings{Vin: railAt(24), V12: railAt(0)}))
	assert.False(t, pm.HasV12())
	assert.Equal(t, RailStats{}, pm.V12())
}

func TestPowerMonitorRailStats(t *testing.T) {
	pm := NewPowerMonitor(testPowerConfig())
	assert.Equal(t, RailStats{}, pm.Vin(), "no readings yet")

	for _, v := range []float64{24, 23.5, 25, 24.5} {
		pm.Update(vinAt(v))
	}
	stats := pm.Vin()
	assert.Equal(t, volts(24.5), stats.Current)
	assert.Equal(t, volts(23.5), stats.Lowest)
	assert.Equal(t, volts(25), stats.Highest)
}

func TestPowerMonitorReportedEvents(t *testing.T) {
	pm := NewPowerMonitor(testPowerConfig())
	pm.Update(vinAt(24))
	pm.Update(vinAt(5))

	assert.Equal(t, uint32(1), pm.PendingUnderVoltageEvents())
	assert.Equal(t, uint32(1), pm.UnderVoltageEventsSinceLastReport())
	assert.Equal(t, uint32(0), pm.UnderVoltageEventsSinceLastReport())
	assert.Equal(t, uint32(1), pm.UnderVoltageEvents(), "total is unaffected by reporting")
}

func TestPowerMonitorConfigValidate(t *testing.T) {
	require.NoError(t, testPowerConfig().Validate())

	cfg := testPowerConfig()
	cfg.PowerOff = cfg.PowerOn
	assert.ErrorIs(t, cfg.Validate(), ErrPowerThresholds)

	cfg = testPowerConfig()
	cfg.Vin.AdcBits = 0
	assert.ErrorIs(t, cfg.Validate(), ErrRailConfig)

	cfg = testPowerConfig()
	cfg.V12 = &RailConfig{}
	assert.ErrorIs(t, cfg.Validate(), ErrRailConfig)
}
