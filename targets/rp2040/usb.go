//go:build rp2040

package main

import (
	"machine"
	"time"

	"expboard/protocol"
)

// initUSB configures machine.Serial, which is USB CDC on the RP2040
func initUSB() {
	_ = machine.Serial.Configure(machine.UARTConfig{})
}

var (
	readErrors               uint32
	consecutiveWriteFailures uint32
)

// usbReaderLoop moves received bytes into input until the buffer fills
func usbReaderLoop(input *protocol.FifoBuffer) {
	for {
		for machine.Serial.Buffered() > 0 && input.Free() > 0 {
			b, err := machine.Serial.ReadByte()
			if err != nil {
				readErrors++
				break
			}
			input.Write([]byte{b})
		}
		// Yield to avoid a busy loop
		time.Sleep(100 * time.Microsecond)
	}
}

// writeUSB sends everything queued on output. After repeated failures the
// host is assumed gone and the queued frames are dropped.
func writeUSB(output *protocol.ScratchOutput) {
	result := output.Result()
	written := 0
	for written < len(result) {
		n, err := machine.Serial.Write(result[written:])
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 10 {
				consecutiveWriteFailures = 0
				output.Reset()
			}
			return
		}
		written += n
	}
	consecutiveWriteFailures = 0
	output.Reset()
}
