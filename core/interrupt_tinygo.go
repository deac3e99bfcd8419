//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts so the ADC callback cannot update a
// filter or the timer list mid-read.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
