package core

import (
	"errors"
	"strings"

	"periph.io/x/conn/v3/physic"
)

// testRail maps 64 V to the 12-bit full scale so every 1/64 V step is an
// exact ADC code.
var testRail = RailConfig{VoltageRange: 64 * physic.Volt, AdcBits: 12}

func volts(v float64) physic.ElectricPotential {
	return physic.ElectricPotential(v * float64(physic.Volt))
}

// railAt returns a filter snapshot averaging to v on testRail.
func railAt(v float64) RailReading {
	return RailReading{Sum: uint32(testRail.Code(volts(v))) * 4, Count: 4}
}

func vinAt(v float64) RailReadings {
	return RailReadings{Vin: railAt(v)}
}

func testPowerConfig() PowerMonitorConfig {
	return PowerMonitorConfig{
		Vin:      testRail,
		PowerOn:  DefaultPowerOnThreshold,
		PowerOff: DefaultPowerOffThreshold,
	}
}

var errNoReply = errors.New("no reply")

// fakeDrivers serves status words per driver and records every query.
type fakeDrivers struct {
	status  map[DriverIndex]RawStatusWord
	fail    DriversBitmap
	queried []DriverIndex
}

func newFakeDrivers() *fakeDrivers {
	return &fakeDrivers{status: make(map[DriverIndex]RawStatusWord)}
}

func (f *fakeDrivers) QueryDriverStatus(d DriverIndex) (RawStatusWord, error) {
	f.queried = append(f.queried, d)
	if f.fail.IsBitSet(d) {
		return 0xFFFFFFFF, errNoReply
	}
	return f.status[d], nil
}

// logLines collects debug output.
type logLines []string

func (l *logLines) writer() DebugWriter {
	return func(s string) { *l = append(*l, s) }
}

func (l logLines) count(sub string) int {
	n := 0
	for _, s := range l {
		if strings.Contains(s, sub) {
			n++
		}
	}
	return n
}

const (
	statusStall      = RawStatusWord(TMC5240_DRV_STATUS_STALLGUARD)
	statusOT         = RawStatusWord(TMC5240_DRV_STATUS_OT)
	statusOTPW       = RawStatusWord(TMC5240_DRV_STATUS_OTPW)
	statusS2GA       = RawStatusWord(TMC5240_DRV_STATUS_S2GA)
	statusS2GB       = RawStatusWord(TMC5240_DRV_STATUS_S2GB)
	statusOLA        = RawStatusWord(TMC5240_DRV_STATUS_OLA)
	statusOLB        = RawStatusWord(TMC5240_DRV_STATUS_OLB)
	statusStandstill = RawStatusWord(TMC5240_DRV_STATUS_STST)
)
