package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	ConfigureOutput(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error
}

// Global singleton used by core code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// GPIOChipSelect drives a TMC chip select through the registered GPIO driver.
type GPIOChipSelect struct {
	Pin GPIOPin
}

// NewGPIOChipSelect configures pin as an output and deselects the chip.
func NewGPIOChipSelect(pin GPIOPin) (*GPIOChipSelect, error) {
	gpio := MustGPIO()
	if err := gpio.ConfigureOutput(pin); err != nil {
		return nil, err
	}
	cs := &GPIOChipSelect{Pin: pin}
	cs.High()
	return cs, nil
}

// SetPin errors are ignored; a select line that cannot be driven shows up
// as ErrNoReply on the next read.
func (cs *GPIOChipSelect) High() { _ = MustGPIO().SetPin(cs.Pin, true) }
func (cs *GPIOChipSelect) Low()  { _ = MustGPIO().SetPin(cs.Pin, false) }
