//go:build !tinygo

package core

// State stands in for the interrupt state on regular Go, where the
// supervisor and the rail sampler run in the same goroutine.
type State uintptr

func disableInterrupts() State {
	return 0
}

func restoreInterrupts(state State) {}
