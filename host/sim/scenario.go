// Package sim replays scripted rail and driver-status sequences through a
// real supervisor engine.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"expboard/config"
	"expboard/core"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// DefaultStepMs is the spin period used when a scenario does not set one.
const DefaultStepMs = 50

// Scenario is one scripted run.
type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Board       config.BoardConfig `yaml:"board"`
	StepMs      uint32             `yaml:"step_ms"`
	DurationMs  uint32             `yaml:"duration_ms"` // defaults to one second past the last step
	Steps       []Step             `yaml:"steps"`
}

// Step changes the simulated inputs at AtMs. Inputs hold their value until
// a later step changes them.
type Step struct {
	AtMs uint32 `yaml:"at_ms"`
	Vin  string `yaml:"vin"`
	V12  string `yaml:"v12"`

	// Status replaces the status word of each listed driver. An empty list
	// clears every flag.
	Status map[int][]string `yaml:"status"`

	// Take drains the named stall action queues after the spin.
	Take []string `yaml:"take"`

	Reset  bool `yaml:"reset"`
	Report bool `yaml:"report"` // trace the diagnostics line after the spin
}

// statusFlags maps scenario flag names to DRV_STATUS bits.
var statusFlags = map[string]uint32{
	"stall": core.TMC5240_DRV_STATUS_STALLGUARD,
	"ot":    core.TMC5240_DRV_STATUS_OT,
	"otpw":  core.TMC5240_DRV_STATUS_OTPW,
	"s2ga":  core.TMC5240_DRV_STATUS_S2GA,
	"s2gb":  core.TMC5240_DRV_STATUS_S2GB,
	"ola":   core.TMC5240_DRV_STATUS_OLA,
	"olb":   core.TMC5240_DRV_STATUS_OLB,
	"stst":  core.TMC5240_DRV_STATUS_STST,
}

// ParseStatus builds a status word from flag names.
func ParseStatus(flags []string) (core.RawStatusWord, error) {
	var w uint32
	for _, f := range flags {
		bit, ok := statusFlags[strings.ToLower(f)]
		if !ok {
			return 0, fmt.Errorf("unknown status flag %q", f)
		}
		w |= bit
	}
	return core.RawStatusWord(w), nil
}

// LoadScenario parses a YAML scenario. Unknown keys are rejected.
func LoadScenario(r io.Reader) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("sim: empty scenario")
		}
		return nil, fmt.Errorf("sim: failed to parse scenario: %w", err)
	}
	if err := s.complete(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScenarioFile reads the scenario at path.
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sim: failed to read %s: %w", path, err)
	}
	s, err := LoadScenario(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (s *Scenario) complete() error {
	if s.Name == "" {
		return errors.New("sim: scenario name is required")
	}
	if err := config.Complete(&s.Board); err != nil {
		return fmt.Errorf("sim: board: %w", err)
	}
	if s.StepMs == 0 {
		s.StepMs = DefaultStepMs
	}

	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].AtMs < s.Steps[j].AtMs })
	if s.DurationMs == 0 && len(s.Steps) > 0 {
		s.DurationMs = s.Steps[len(s.Steps)-1].AtMs + 1000
	}

	for i, step := range s.Steps {
		if step.AtMs > s.DurationMs {
			return fmt.Errorf("sim: step %d at %dms is past the end of the run", i, step.AtMs)
		}
		if _, err := step.voltage(step.Vin); err != nil {
			return fmt.Errorf("sim: step %d: vin: %w", i, err)
		}
		if _, err := step.voltage(step.V12); err != nil {
			return fmt.Errorf("sim: step %d: v12: %w", i, err)
		}
		for d, flags := range step.Status {
			if d < 0 || d >= s.Board.Drivers {
				return fmt.Errorf("sim: step %d: driver %d out of range", i, d)
			}
			if _, err := ParseStatus(flags); err != nil {
				return fmt.Errorf("sim: step %d: driver %d: %w", i, d, err)
			}
		}
		for _, name := range step.Take {
			if a, ok := core.ParseStallAction(name); !ok || a == core.StallNone {
				return fmt.Errorf("sim: step %d: unknown stall queue %q", i, name)
			}
		}
	}
	return nil
}

// voltage parses a rail value. An empty string leaves the rail unchanged.
func (Step) voltage(s string) (*physic.ElectricPotential, error) {
	if s == "" {
		return nil, nil
	}
	var v physic.ElectricPotential
	if err := v.Set(s); err != nil {
		return nil, err
	}
	return &v, nil
}
