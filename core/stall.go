package core

// StallPolicy is the static per-driver reaction to a new stall.
// It is filled in during configuration and read-only afterwards.
type StallPolicy struct {
	LogOnStall    DriversBitmap
	PauseOnStall  DriversBitmap
	RehomeOnStall DriversBitmap
}

// StallAction names one of the queued action bitmaps.
type StallAction uint8

const (
	StallNone StallAction = iota
	StallLog
	StallPause
	StallRehome
)

func (a StallAction) String() string {
	switch a {
	case StallLog:
		return "log"
	case StallPause:
		return "pause"
	case StallRehome:
		return "rehome"
	}
	return "none"
}

// ParseStallAction maps a configuration keyword to a StallAction.
func ParseStallAction(s string) (StallAction, bool) {
	switch s {
	case "", "none":
		return StallNone, true
	case "log":
		return StallLog, true
	case "pause":
		return StallPause, true
	case "rehome":
		return StallRehome, true
	}
	return StallNone, false
}

// Set assigns action to driver, clearing any other policy for it, so a
// driver configured through Set or config_driver holds one action. Rehome
// or pause combined with log needs direct writes to the bitmaps; Lookup
// then applies the precedence.
func (p *StallPolicy) Set(driver DriverIndex, action StallAction) {
	p.LogOnStall.SetOrClearBit(driver, action == StallLog)
	p.PauseOnStall.SetOrClearBit(driver, action == StallPause)
	p.RehomeOnStall.SetOrClearBit(driver, action == StallRehome)
}

// Lookup returns the action a new stall on driver queues.
// Rehome beats pause, pause beats log.
func (p *StallPolicy) Lookup(driver DriverIndex) StallAction {
	switch {
	case p.RehomeOnStall.IsBitSet(driver):
		return StallRehome
	case p.PauseOnStall.IsBitSet(driver):
		return StallPause
	case p.LogOnStall.IsBitSet(driver):
		return StallLog
	}
	return StallNone
}

// StallActionRouter queues stall actions for the motion layer to drain.
// Queued bits persist until taken; nothing here expires them.
type StallActionRouter struct {
	policy *StallPolicy
	faults *FaultState
	log    DebugWriter
}

// NewStallActionRouter references policy; it is never copied.
func NewStallActionRouter(policy *StallPolicy, faults *FaultState) *StallActionRouter {
	return &StallActionRouter{policy: policy, faults: faults}
}

// OnNewStall queues the configured action for driver.
func (r *StallActionRouter) OnNewStall(driver DriverIndex) StallAction {
	action := r.policy.Lookup(driver)
	switch action {
	case StallRehome:
		r.faults.ToRehome.SetBit(driver)
	case StallPause:
		r.faults.ToPause.SetBit(driver)
	case StallLog:
		r.faults.ToLog.SetBit(driver)
	}
	r.log.print("stall driver=" + itoa(int(driver)) + " action=" + action.String())
	return action
}

// PendingActions is a copy of the three queued action bitmaps.
type PendingActions struct {
	Log    DriversBitmap
	Pause  DriversBitmap
	Rehome DriversBitmap
}

// Pending returns the queued actions without clearing them.
func (r *StallActionRouter) Pending() PendingActions {
	return PendingActions{Log: r.faults.ToLog, Pause: r.faults.ToPause, Rehome: r.faults.ToRehome}
}

// TakeAndClear returns the drivers queued for action and empties that queue.
func (r *StallActionRouter) TakeAndClear(action StallAction) DriversBitmap {
	var q *DriversBitmap
	switch action {
	case StallLog:
		q = &r.faults.ToLog
	case StallPause:
		q = &r.faults.ToPause
	case StallRehome:
		q = &r.faults.ToRehome
	default:
		return 0
	}
	taken := *q
	q.Clear()
	return taken
}
