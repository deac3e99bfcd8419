package core

import (
	"fmt"

	"expboard/protocol"
)

// Responder sends the named response, with args encoding its fields.
type Responder func(name string, args func(output protocol.OutputBuffer)) error

// FrameResponder returns a Responder that writes each response as its own
// message block on output.
func FrameResponder(r *CommandRegistry, output protocol.OutputBuffer) Responder {
	return func(name string, args func(output protocol.OutputBuffer)) error {
		cmd, ok := r.GetCommandByName(name)
		if !ok {
			return fmt.Errorf("%w: response %s", ErrUnknownCommand, name)
		}
		return protocol.EncodeCommand(output, protocol.MessageDest, cmd.ID, args)
	}
}

// RegisterSupervisorResponses registers the messages the board sends. The
// host registers the same set to decode them.
func RegisterSupervisorResponses(r *CommandRegistry) {
	r.RegisterResponse("driver_status", DriverStatusFormat)
	r.RegisterResponse("stall_actions", "log=%u pause=%u rehome=%u")
	r.RegisterResponse("supervisor_log", "msg=%*s")
}

// supervisorCommands is the command set in registration order. The host
// mirrors it to learn the command IDs.
var supervisorCommands = []struct{ name, format string }{
	{"query_driver_status", ""},
	{"take_stall_actions", ""},
	{"config_driver", "driver=%c no_poll=%c stall=%c"},
	{"reset_supervisor", ""},
}

// NewSupervisorDictionary returns a registry holding the supervisor's
// responses and commands without handlers, as seen from the host.
func NewSupervisorDictionary() *CommandRegistry {
	r := NewCommandRegistry()
	RegisterSupervisorResponses(r)
	for _, c := range supervisorCommands {
		r.Register(c.name, c.format, nil)
	}
	return r
}

// RegisterSupervisorCommands registers the supervisor command set.
func RegisterSupervisorCommands(r *CommandRegistry, s *Supervisor, send Responder) {
	RegisterSupervisorResponses(r)

	handlers := map[string]CommandHandler{
		"query_driver_status": func(data *[]byte) error {
			return SendDriverStatus(s, send)
		},

		"take_stall_actions": func(data *[]byte) error {
			log := s.TakeAndClear(StallLog)
			pause := s.TakeAndClear(StallPause)
			rehome := s.TakeAndClear(StallRehome)
			return send("stall_actions", func(output protocol.OutputBuffer) {
				protocol.EncodeVLQUint(output, uint32(log))
				protocol.EncodeVLQUint(output, uint32(pause))
				protocol.EncodeVLQUint(output, uint32(rehome))
			})
		},

		"config_driver": func(data *[]byte) error {
			args := protocol.NewFieldReader(data)
			driver, noPoll, stall := args.Uint(), args.Bool(), args.Uint()
			if err := args.Err(); err != nil {
				return err
			}
			// range check before narrowing to DriverIndex
			if driver >= uint32(s.NumDrivers()) {
				return fmt.Errorf("config_driver: %w: %d", ErrDriverIndex, driver)
			}
			if stall > uint32(StallRehome) {
				return fmt.Errorf("config_driver: invalid stall action %d", stall)
			}
			return s.ConfigureDriver(DriverIndex(driver), noPoll, StallAction(stall))
		},

		"reset_supervisor": func(data *[]byte) error {
			s.Reset()
			return nil
		},
	}

	for _, c := range supervisorCommands {
		r.Register(c.name, c.format, handlers[c.name])
	}
}

// logChunk keeps a supervisor_log response inside one message block.
const logChunk = 96

// LogResponder returns a DebugWriter that sends each line as one or more
// supervisor_log responses. Send errors drop the line.
func LogResponder(send Responder) DebugWriter {
	return func(msg string) {
		for len(msg) > 0 {
			n := min(len(msg), logChunk)
			part := msg[:n]
			msg = msg[n:]
			if err := send("supervisor_log", func(output protocol.OutputBuffer) {
				protocol.EncodeVLQString(output, part)
			}); err != nil {
				return
			}
		}
	}
}

// SendDriverStatus sends the current snapshot as a driver_status response.
func SendDriverStatus(s *Supervisor, send Responder) error {
	snap := s.Snapshot()
	return send("driver_status", func(output protocol.OutputBuffer) {
		EncodeStatusReport(output, snap)
	})
}

// DecodeStallActions reads a stall_actions response body.
func DecodeStallActions(data *[]byte) (PendingActions, error) {
	r := protocol.NewFieldReader(data)
	a := PendingActions{
		Log:    DriversBitmap(r.Uint()),
		Pause:  DriversBitmap(r.Uint()),
		Rehome: DriversBitmap(r.Uint()),
	}
	if err := r.Err(); err != nil {
		return PendingActions{}, err
	}
	return a, nil
}
