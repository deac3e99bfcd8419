package sim

import (
	"strconv"
	"strings"

	"expboard/core"

	"periph.io/x/conn/v3/physic"
)

// Result is the outcome of one run.
type Result struct {
	Trace []string
	Final core.HealthSnapshot
	EndMs uint32
}

// String renders the trace one line per entry.
func (r *Result) String() string {
	if len(r.Trace) == 0 {
		return ""
	}
	return strings.Join(r.Trace, "\n") + "\n"
}

// board holds the simulated inputs between steps.
type board struct {
	vin, v12 physic.ElectricPotential
	status   map[core.DriverIndex]core.RawStatusWord
}

func (b *board) query(driver core.DriverIndex) (core.RawStatusWord, error) {
	return b.status[driver], nil
}

// Run replays s. Every engine log line is prefixed with the simulated time
// and the trace ends with the diagnostics line at the last tick.
func Run(s *Scenario) (*Result, error) {
	cfg, err := s.Board.SupervisorConfig()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var now uint32
	trace := func(line string) {
		res.Trace = append(res.Trace, "t="+strconv.FormatUint(uint64(now), 10)+" "+line)
	}
	cfg.Debug = trace

	in := &board{status: make(map[core.DriverIndex]core.RawStatusWord)}
	sup, err := core.NewSupervisor(cfg, core.StatusQueryFunc(in.query))
	if err != nil {
		return nil, err
	}

	next := 0
	for now = 0; ; now += s.StepMs {
		var due []Step
		for next < len(s.Steps) && s.Steps[next].AtMs <= now {
			step := s.Steps[next]
			next++
			if err := in.apply(step); err != nil {
				return nil, err
			}
			if step.Reset {
				sup.Reset()
			}
			due = append(due, step)
		}

		sup.Spin(now, readings(cfg.Power, in))

		for _, step := range due {
			for _, name := range step.Take {
				action, _ := core.ParseStallAction(name)
				trace("take " + action.String() + "=" + sup.TakeAndClear(action).String())
			}
			if step.Report {
				trace("report " + sup.DiagnosticsReport(now))
			}
		}

		if now+s.StepMs > s.DurationMs || now+s.StepMs < now {
			break
		}
	}

	res.EndMs = now
	res.Final = sup.Snapshot()
	trace("final " + sup.DiagnosticsReport(now))
	return res, nil
}

func (b *board) apply(step Step) error {
	vin, err := step.voltage(step.Vin)
	if err != nil {
		return err
	}
	if vin != nil {
		b.vin = *vin
	}
	v12, err := step.voltage(step.V12)
	if err != nil {
		return err
	}
	if v12 != nil {
		b.v12 = *v12
	}
	for d, flags := range step.Status {
		w, err := ParseStatus(flags)
		if err != nil {
			return err
		}
		b.status[core.DriverIndex(d)] = w
	}
	return nil
}

// readings presents the current rail voltages as single-sample filter
// snapshots.
func readings(cfg core.PowerMonitorConfig, b *board) core.RailReadings {
	r := core.RailReadings{
		Vin: core.RailReading{Sum: uint32(cfg.Vin.Code(b.vin)), Count: 1},
	}
	if cfg.V12 != nil {
		r.V12 = core.RailReading{Sum: uint32(cfg.V12.Code(b.v12)), Count: 1}
	}
	return r
}
