package core

// DebugWriter receives one log line at a time.
type DebugWriter func(string)

var (
	// debugPrintln is the platform output, set by target code
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled gates DebugPrintln
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes msg with the platform writer when debug output is
// enabled. It is the default log of a Supervisor.
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// print writes msg with the supervisor prefix; a nil writer discards it.
func (w DebugWriter) print(msg string) {
	if w != nil {
		w("[SUPERVISOR] " + msg)
	}
}
