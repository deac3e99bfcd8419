// Package probe reads DRV_STATUS from TMC5240 drivers attached to a Linux
// SPI bus and classifies the result with the board engine's rules.
package probe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"expboard/core"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// spiMode is the clock polarity and phase of the TMC5240 interface.
const spiMode = spi.Mode3

// Bus adapts a periph connection to the tinygo SPI interface used by
// core.TMCStatusReader.
type Bus struct {
	Conn spi.Conn
}

func (b Bus) Tx(w, r []byte) error { return b.Conn.Tx(w, r) }

func (b Bus) Transfer(w byte) (byte, error) {
	var r [1]byte
	err := b.Conn.Tx([]byte{w}, r[:])
	return r[0], err
}

// Probe holds one open SPI port per driver.
type Probe struct {
	ports  []spi.PortCloser
	reader *core.TMCStatusReader
}

// Devices returns the spidev names for n drivers, one chip select each,
// counting up from the chip select of base. "/dev/spidev0.0" with n=3
// gives spidev0.0, spidev0.1 and spidev0.2.
func Devices(base string, n int) ([]string, error) {
	if n < 1 || n > core.MaxSmartDrivers {
		return nil, fmt.Errorf("probe: driver count %d out of range", n)
	}
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 {
		if n > 1 {
			return nil, fmt.Errorf("probe: %q has no chip select suffix", base)
		}
		return []string{base}, nil
	}
	first, err := strconv.Atoi(base[dot+1:])
	if err != nil {
		return nil, fmt.Errorf("probe: %q: bad chip select: %w", base, err)
	}

	names := make([]string, n)
	for i := range names {
		names[i] = base[:dot+1] + strconv.Itoa(first+i)
	}
	return names, nil
}

// Open initializes the host drivers and connects to every device.
func Open(devices []string, maxHz int64) (*Probe, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("probe: host init: %w", err)
	}

	p := &Probe{}
	var channels []core.TMCChannel
	for _, name := range devices {
		port, err := spireg.Open(name)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("probe: open %s: %w", name, err)
		}
		p.ports = append(p.ports, port)

		conn, err := port.Connect(physic.Frequency(maxHz)*physic.Hertz, spiMode, 8)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("probe: connect %s: %w", name, err)
		}
		channels = append(channels, core.TMCChannel{Bus: Bus{Conn: conn}})
	}
	p.reader = core.NewTMCStatusReader(channels)
	return p, nil
}

// NewWithReader wraps an existing reader, such as one built over test
// connections.
func NewWithReader(reader *core.TMCStatusReader) *Probe {
	return &Probe{reader: reader}
}

// Close releases every port.
func (p *Probe) Close() error {
	var errs []error
	for _, port := range p.ports {
		errs = append(errs, port.Close())
	}
	p.ports = nil
	return errors.Join(errs...)
}

// DriverReport is the classified status of one driver.
type DriverReport struct {
	Driver    core.DriverIndex
	Status    core.RawStatusWord
	SPIStatus uint8
	Faults    []string
	Err       error
}

// String renders the report as one line.
func (r DriverReport) String() string {
	if r.Err != nil {
		return "driver " + strconv.Itoa(int(r.Driver)) + ": " + r.Err.Error()
	}
	faults := "ok"
	if len(r.Faults) > 0 {
		faults = strings.Join(r.Faults, ",")
	}
	return fmt.Sprintf("driver %d: drv_status=0x%08x spi_status=0x%02x %s",
		r.Driver, uint32(r.Status), r.SPIStatus, faults)
}

// Read queries every driver once. A failed read is reported per driver and
// does not stop the others.
func (p *Probe) Read() []DriverReport {
	var (
		faults   core.FaultState
		policy   core.StallPolicy
		openLoad core.OpenLoadDebouncer
	)
	classifier := core.NewFaultClassifier(&faults, core.NewStallActionRouter(&policy, &faults), &openLoad)

	reports := make([]DriverReport, p.reader.NumDrivers())
	for i := range reports {
		d := core.DriverIndex(i)
		reports[i].Driver = d
		status, err := p.reader.QueryDriverStatus(d)
		if err != nil {
			reports[i].Err = err
			continue
		}
		reports[i].Status = status
		reports[i].SPIStatus = p.reader.SPIStatus(d)
		classifier.Apply(d, status, 0)
	}

	for i := range reports {
		if reports[i].Err != nil {
			continue
		}
		d := reports[i].Driver
		for _, f := range []struct {
			name string
			set  bool
		}{
			{"shutdown", faults.Shutdown.IsBitSet(d)},
			{"warning", faults.Warning.IsBitSet(d)},
			{"short", faults.ShortToGround.IsBitSet(d)},
			{"stalled", faults.Stalled.IsBitSet(d)},
			{"open_load_a", openLoad.Timer(core.PhaseA).Faulted(d)},
			{"open_load_b", openLoad.Timer(core.PhaseB).Faulted(d)},
		} {
			if f.set {
				reports[i].Faults = append(reports[i].Faults, f.name)
			}
		}
	}
	return reports
}
