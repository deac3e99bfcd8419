//go:build js && wasm

// Browser helpers for inspecting captured board traffic: frame decoding to
// readable reports and command frame encoding.
package main

import (
	"encoding/hex"
	"syscall/js"

	"expboard/core"
	"expboard/protocol"
)

var dictionary = core.NewSupervisorDictionary()

func main() {
	js.Global().Set("expboardWasm", js.ValueOf(map[string]interface{}{
		"decodeFrames":  js.FuncOf(decodeFramesWrapper),
		"encodeCommand": js.FuncOf(encodeCommandWrapper),
		"crc16":         js.FuncOf(crc16Wrapper),
		"version":       protocol.Version,
	}))

	// Keep the program running
	select {}
}

// decodeFramesWrapper decodes every message block in a hex capture
// Args: hexString (string)
// Returns: [{seq, name, text, error}]
func decodeFramesWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errorResult("missing hex string argument")
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return errorResult("invalid hex string: " + err.Error())
	}

	var frames []interface{}
	for len(data) > 0 {
		msg, n, err := protocol.DecodeFrame(data)
		if err != nil {
			frames = append(frames, map[string]interface{}{"error": err.Error()})
			if err == protocol.ErrBufferTooSmall {
				break
			}
			// Resync on the next byte
			data = data[1:]
			continue
		}
		data = data[n:]
		name, text, err := describe(msg.Payload)
		entry := map[string]interface{}{"seq": int(msg.Sequence & protocol.MessageSeqMask), "name": name, "text": text}
		if err != nil {
			entry["error"] = err.Error()
		}
		frames = append(frames, entry)
	}
	return js.ValueOf(frames)
}

// describe renders one frame payload as text
func describe(payload []byte) (string, string, error) {
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return "", "", err
	}
	cmd, ok := dictionary.GetCommand(uint16(id))
	if !ok {
		return "", "", core.ErrUnknownCommand
	}

	switch cmd.Name {
	case "driver_status":
		snap, err := core.DecodeStatusReport(&payload)
		if err != nil {
			return cmd.Name, "", err
		}
		return cmd.Name, core.FormatDiagnostics(snap, 0), nil
	case "stall_actions":
		a, err := core.DecodeStallActions(&payload)
		if err != nil {
			return cmd.Name, "", err
		}
		return cmd.Name, "log=" + a.Log.String() + " pause=" + a.Pause.String() + " rehome=" + a.Rehome.String(), nil
	case "supervisor_log":
		msg, err := protocol.DecodeVLQString(&payload)
		return cmd.Name, msg, err
	}
	return cmd.Name, cmd.Format, nil
}

// encodeCommandWrapper frames an argument-less command, or config_driver
// Args: name (string), seq (number), [driver, noPoll, stall]
// Returns: hex string
func encodeCommandWrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errorResult("missing name or sequence argument")
	}
	cmd, ok := dictionary.GetCommandByName(args[0].String())
	if !ok {
		return errorResult("unknown command " + args[0].String())
	}

	var extra []uint32
	for _, a := range args[2:] {
		extra = append(extra, uint32(a.Int()))
	}
	output := protocol.NewScratchOutput()
	seq := protocol.MessageDest | uint8(args[1].Int())&protocol.MessageSeqMask
	err := protocol.EncodeCommand(output, seq, cmd.ID, func(o protocol.OutputBuffer) {
		for _, v := range extra {
			protocol.EncodeVLQUint(o, v)
		}
	})
	if err != nil {
		return errorResult(err.Error())
	}
	return js.ValueOf(hex.EncodeToString(output.Result()))
}

// crc16Wrapper calculates CRC16 checksum
// Args: hexString (string)
// Returns: number (uint16)
func crc16Wrapper(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(0)
	}
	data, err := hex.DecodeString(args[0].String())
	if err != nil {
		return js.ValueOf(0)
	}
	return js.ValueOf(int(protocol.CRC16(data)))
}

func errorResult(msg string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": msg})
}
