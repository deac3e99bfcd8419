package core

// RawStatusWord is one DRV_STATUS read from a driver chip.
type RawStatusWord uint32

func (w RawStatusWord) Stalled() bool            { return uint32(w)&TMC5240_DRV_STATUS_STALLGUARD != 0 }
func (w RawStatusWord) OverTemperature() bool    { return uint32(w)&TMC5240_DRV_STATUS_OT != 0 }
func (w RawStatusWord) TemperatureWarning() bool { return uint32(w)&TMC5240_DRV_STATUS_OTPW != 0 }

// ShortToGround reports a short on either phase.
func (w RawStatusWord) ShortToGround() bool {
	return uint32(w)&(TMC5240_DRV_STATUS_S2GA|TMC5240_DRV_STATUS_S2GB) != 0
}

func (w RawStatusWord) OpenLoadA() bool { return uint32(w)&TMC5240_DRV_STATUS_OLA != 0 }
func (w RawStatusWord) OpenLoadB() bool { return uint32(w)&TMC5240_DRV_STATUS_OLB != 0 }

// FaultState holds the per-driver fault bitmaps and the queued stall actions.
// Each fault bit reflects the last poll of that driver.
type FaultState struct {
	Shutdown      DriversBitmap
	Warning       DriversBitmap
	ShortToGround DriversBitmap
	Stalled       DriversBitmap

	ToLog    DriversBitmap
	ToPause  DriversBitmap
	ToRehome DriversBitmap
}

// Reset clears every bitmap.
func (fs *FaultState) Reset() { *fs = FaultState{} }

// FaultClassifier decodes status words into the shared FaultState.
type FaultClassifier struct {
	faults   *FaultState
	router   *StallActionRouter
	openLoad *OpenLoadDebouncer
}

// NewFaultClassifier wires a classifier to the state it updates.
func NewFaultClassifier(faults *FaultState, router *StallActionRouter, openLoad *OpenLoadDebouncer) *FaultClassifier {
	return &FaultClassifier{faults: faults, router: router, openLoad: openLoad}
}

// Apply recomputes driver's membership in every fault set from status.
// A stall bit that was clear before this update raises a new stall.
func (fc *FaultClassifier) Apply(driver DriverIndex, status RawStatusWord, now uint32) {
	fs := fc.faults
	fs.Shutdown.SetOrClearBit(driver, status.OverTemperature())
	fs.Warning.SetOrClearBit(driver, status.TemperatureWarning())
	fs.ShortToGround.SetOrClearBit(driver, status.ShortToGround())

	wasStalled := fs.Stalled.IsBitSet(driver)
	fs.Stalled.SetOrClearBit(driver, status.Stalled())
	if status.Stalled() && !wasStalled {
		fc.router.OnNewStall(driver)
	}

	fc.openLoad.Observe(PhaseA, driver, status.OpenLoadA(), now)
	fc.openLoad.Observe(PhaseB, driver, status.OpenLoadB(), now)
}
