//go:build rp2040

package main

import (
	"machine"

	"expboard/core"

	"periph.io/x/conn/v3/physic"
)

// Board wiring. The three TMC5240 share SPI0 with one chip select each.
var (
	tmcSCK = machine.GPIO18
	tmcSDO = machine.GPIO19
	tmcSDI = machine.GPIO16

	tmcChipSelects = []core.GPIOPin{17, 13, 9}

	vinADC = machine.ADC0
	v12ADC = machine.ADC1
)

const (
	tmcSPIFrequency = 4000000
	railFilterLen   = 16
)

// boardConfig is the engine configuration of this board. Vin sits behind a
// 1:18.33 divider and the 12 V rail behind a 1:6.06 divider, both read by
// the 12-bit ADC against 3.3 V.
func boardConfig() core.SupervisorConfig {
	cfg := core.DefaultSupervisorConfig(len(tmcChipSelects))
	cfg.Power.Vin = core.RailConfig{VoltageRange: 60*physic.Volt + 500*physic.MilliVolt, AdcBits: 12}
	cfg.Power.V12 = &core.RailConfig{VoltageRange: 20 * physic.Volt, AdcBits: 12}
	cfg.Policy.Set(0, core.StallPause)
	cfg.Policy.Set(1, core.StallPause)
	cfg.Policy.Set(2, core.StallLog)
	return cfg
}

// rpGPIO implements core.GPIODriver with machine.Pin
type rpGPIO struct{}

func (rpGPIO) ConfigureOutput(pin core.GPIOPin) error {
	machine.Pin(pin).Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (rpGPIO) SetPin(pin core.GPIOPin, value bool) error {
	machine.Pin(pin).Set(value)
	return nil
}

// initTMCChannels configures SPI0 in mode 3 and a chip select per driver
func initTMCChannels() ([]core.TMCChannel, error) {
	spi := machine.SPI0
	err := spi.Configure(machine.SPIConfig{
		Frequency: tmcSPIFrequency,
		SCK:       tmcSCK,
		SDO:       tmcSDO,
		SDI:       tmcSDI,
		Mode:      3,
	})
	if err != nil {
		return nil, err
	}

	core.SetGPIODriver(rpGPIO{})
	channels := make([]core.TMCChannel, 0, len(tmcChipSelects))
	for _, pin := range tmcChipSelects {
		cs, err := core.NewGPIOChipSelect(pin)
		if err != nil {
			return nil, err
		}
		channels = append(channels, core.TMCChannel{Bus: spi, CS: cs})
	}
	return channels, nil
}

// adcReader returns a 12-bit reader for pin. machine.ADC.Get scales every
// result to 16 bits.
func adcReader(pin machine.Pin) core.ADCReader {
	adc := machine.ADC{Pin: pin}
	adc.Configure(machine.ADCConfig{})
	return func() (uint16, error) {
		return adc.Get() >> 4, nil
	}
}
