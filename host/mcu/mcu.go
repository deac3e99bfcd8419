package mcu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"expboard/core"
	"expboard/host/serial"
	"expboard/protocol"
)

var ErrNotConnected = errors.New("mcu: not connected")

// Response is one decoded message from the board. Exactly one of Status,
// Actions and Log is set.
type Response struct {
	Name     string
	Sequence uint8

	Status  *core.HealthSnapshot
	Actions *core.PendingActions
	Log     string
}

// MCU represents a connection to an expansion board running the supervisor
type MCU struct {
	port   io.ReadWriteCloser
	reader *protocol.FrameReader

	// Command and response IDs shared with the firmware
	dictionary *core.CommandRegistry

	mu     sync.Mutex
	seq    uint8
	output *protocol.ScratchOutput

	log *slog.Logger
}

// New wraps an open byte stream.
func New(port io.ReadWriteCloser, log *slog.Logger) *MCU {
	if log == nil {
		log = slog.Default()
	}
	return &MCU{
		port:       port,
		reader:     protocol.NewFrameReader(port),
		dictionary: core.NewSupervisorDictionary(),
		output:     protocol.NewScratchOutput(),
		log:        log,
	}
}

// Connect opens the serial port and discards anything already buffered.
func Connect(cfg *serial.Config, log *slog.Logger) (*MCU, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to flush %s: %w", cfg.Device, err)
	}
	return New(port, log), nil
}

// Close closes the connection to the board
func (m *MCU) Close() error {
	if m.port == nil {
		return nil
	}
	err := m.port.Close()
	m.port = nil
	return err
}

// Dictionary returns the command registry used to encode and decode IDs.
func (m *MCU) Dictionary() *core.CommandRegistry { return m.dictionary }

// SendCommand frames and writes one command. Safe for concurrent use.
func (m *MCU) SendCommand(name string, args func(output protocol.OutputBuffer)) error {
	if m.port == nil {
		return ErrNotConnected
	}
	cmd, ok := m.dictionary.GetCommandByName(name)
	if !ok || isResponse(name) {
		return fmt.Errorf("%w: %s", core.ErrUnknownCommand, name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.output.Reset()
	seq := protocol.MessageDest | (m.seq & protocol.MessageSeqMask)
	if err := protocol.EncodeCommand(m.output, seq, cmd.ID, args); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	m.seq++

	if _, err := m.port.Write(m.output.Result()); err != nil {
		return fmt.Errorf("failed to send %s: %w", name, err)
	}
	m.log.Debug("sent command", "name", name, "seq", seq&protocol.MessageSeqMask)
	return nil
}

func isResponse(name string) bool {
	switch name {
	case "driver_status", "stall_actions", "supervisor_log":
		return true
	}
	return false
}

// QueryDriverStatus asks for a driver_status response.
func (m *MCU) QueryDriverStatus() error {
	return m.SendCommand("query_driver_status", nil)
}

// TakeStallActions drains the board's stall action queues into a
// stall_actions response.
func (m *MCU) TakeStallActions() error {
	return m.SendCommand("take_stall_actions", nil)
}

// ConfigDriver sets the poll flag and stall action of one driver. The board
// accepts it only before its first service pass or after a reset.
func (m *MCU) ConfigDriver(driver core.DriverIndex, noPoll bool, action core.StallAction) error {
	return m.SendCommand("config_driver", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(driver))
		flag := uint32(0)
		if noPoll {
			flag = 1
		}
		protocol.EncodeVLQUint(output, flag)
		protocol.EncodeVLQUint(output, uint32(action))
	})
}

// ResetSupervisor returns the board's engine to its startup state.
func (m *MCU) ResetSupervisor() error {
	return m.SendCommand("reset_supervisor", nil)
}

// Next blocks until the next response arrives. Frames with unknown IDs are
// logged and skipped.
func (m *MCU) Next() (Response, error) {
	for {
		msg, err := m.reader.Next()
		if err != nil {
			return Response{}, err
		}
		resp, err := m.decode(msg)
		if err != nil {
			m.log.Warn("dropping message", "seq", msg.Sequence&protocol.MessageSeqMask, "error", err)
			continue
		}
		return resp, nil
	}
}

// Dropped returns the number of bytes discarded while resynchronising.
func (m *MCU) Dropped() int { return m.reader.Dropped() }

func (m *MCU) decode(msg protocol.Message) (Response, error) {
	payload := msg.Payload
	id, err := protocol.DecodeVLQUint(&payload)
	if err != nil {
		return Response{}, fmt.Errorf("failed to decode response ID: %w", err)
	}
	cmd, ok := m.dictionary.GetCommand(uint16(id))
	if !ok {
		return Response{}, fmt.Errorf("%w: ID %d", core.ErrUnknownCommand, id)
	}

	resp := Response{Name: cmd.Name, Sequence: msg.Sequence & protocol.MessageSeqMask}
	switch cmd.Name {
	case "driver_status":
		snap, err := core.DecodeStatusReport(&payload)
		if err != nil {
			return Response{}, fmt.Errorf("driver_status: %w", err)
		}
		resp.Status = &snap
	case "stall_actions":
		actions, err := core.DecodeStallActions(&payload)
		if err != nil {
			return Response{}, fmt.Errorf("stall_actions: %w", err)
		}
		resp.Actions = &actions
	case "supervisor_log":
		s, err := protocol.DecodeVLQString(&payload)
		if err != nil {
			return Response{}, fmt.Errorf("supervisor_log: %w", err)
		}
		resp.Log = s
	default:
		return Response{}, fmt.Errorf("%s is a command, not a response", cmd.Name)
	}
	return resp, nil
}
