//go:build rp2040

// Firmware for the RP2040 expansion board: supervises the TMC5240 drivers
// and the motor supply, and answers the host over USB CDC.
package main

import (
	"errors"
	"machine"
	"time"

	"expboard/core"
	"expboard/protocol"
)

var (
	inputBuffer  *protocol.FifoBuffer
	outputBuffer *protocol.ScratchOutput

	// Debug counters
	framesReceived uint32
	frameErrors    uint32
)

func main() {
	// Disable watchdog on boot to clear any previous state
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}
	initUSB()
	machine.InitADC()

	inputBuffer = protocol.NewFifoBuffer(256)
	outputBuffer = protocol.NewScratchOutput()
	registry := core.NewCommandRegistry()
	send := core.FrameResponder(registry, outputBuffer)

	channels, err := initTMCChannels()
	if err != nil {
		halt("spi: " + err.Error())
	}
	rails := core.NewRailSampler(adcReader(vinADC), adcReader(v12ADC), railFilterLen)

	core.SetDebugWriter(core.LogResponder(send))
	core.SetDebugEnabled(true)
	supervisor, err := core.NewSupervisor(boardConfig(), core.NewTMCStatusReader(channels))
	if err != nil {
		halt(err.Error())
	}
	core.RegisterSupervisorCommands(registry, supervisor, send)

	go usbReaderLoop(inputBuffer)

	for {
		rails.Sample()
		processInput(registry)
		supervisor.Spin(millis(), rails.Readings())
		writeUSB(outputBuffer)

		time.Sleep(time.Millisecond)
	}
}

// processInput dispatches every complete frame waiting in inputBuffer.
// Corrupt bytes are skipped one at a time until a frame parses.
func processInput(registry *core.CommandRegistry) {
	for inputBuffer.Available() > 0 {
		msg, n, err := protocol.DecodeFrame(inputBuffer.Data())
		if errors.Is(err, protocol.ErrBufferTooSmall) {
			return
		}
		if err != nil {
			frameErrors++
			inputBuffer.Pop(1)
			continue
		}
		framesReceived++
		if err := registry.DispatchFrame(msg.Payload); err != nil {
			frameErrors++
		}
		inputBuffer.Pop(n)
	}
}

// halt reports a fatal setup error to the host forever
func halt(msg string) {
	for {
		println("[SUPERVISOR] halted: " + msg)
		time.Sleep(time.Second)
	}
}
