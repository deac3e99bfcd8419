package mcu

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"expboard/core"
	"expboard/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

// boardPort runs a real supervisor behind an in-memory serial port. Each
// Write is dispatched immediately and responses queue up for Read.
type boardPort struct {
	t      *testing.T
	reg    *core.CommandRegistry
	sup    *core.Supervisor
	out    *protocol.ScratchOutput
	rx     bytes.Buffer
	seqs   []uint8
	closed bool
}

func newBoardPort(t *testing.T, status map[core.DriverIndex]core.RawStatusWord) *boardPort {
	t.Helper()
	cfg := core.DefaultSupervisorConfig(3)
	cfg.Debug = func(string) {}
	sup, err := core.NewSupervisor(cfg, core.StatusQueryFunc(func(d core.DriverIndex) (core.RawStatusWord, error) {
		return status[d], nil
	}))
	require.NoError(t, err)

	b := &boardPort{t: t, reg: core.NewCommandRegistry(), sup: sup, out: protocol.NewScratchOutput()}
	core.RegisterSupervisorCommands(b.reg, sup, core.FrameResponder(b.reg, b.out))
	return b
}

func (b *boardPort) Write(p []byte) (int, error) {
	msg, n, err := protocol.DecodeFrame(p)
	require.NoError(b.t, err)
	require.Equal(b.t, len(p), n)
	b.seqs = append(b.seqs, msg.Sequence)

	b.out.Reset()
	require.NoError(b.t, b.reg.DispatchFrame(msg.Payload))
	b.rx.Write(b.out.Result())
	return len(p), nil
}

func (b *boardPort) Read(p []byte) (int, error) { return b.rx.Read(p) }
func (b *boardPort) Close() error               { b.closed = true; return nil }

// spin runs the board engine at 24 V until now.
func (b *boardPort) spin(now uint32) {
	cfg := core.DefaultSupervisorConfig(3).Power.Vin
	code := uint32(cfg.Code(24 * physic.Volt))
	for t := uint32(0); t <= now; t += 50 {
		b.sup.Spin(t, core.RailReadings{Vin: core.RailReading{Sum: code, Count: 1}})
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueryDriverStatus(t *testing.T) {
	board := newBoardPort(t, map[core.DriverIndex]core.RawStatusWord{
		1: core.RawStatusWord(core.TMC5240_DRV_STATUS_OTPW),
	})
	m := New(board, quietLogger())

	require.NoError(t, m.ConfigDriver(2, true, core.StallNone))
	board.spin(500)

	require.NoError(t, m.QueryDriverStatus())
	resp, err := m.Next()
	require.NoError(t, err)
	assert.Equal(t, "driver_status", resp.Name)
	require.NotNil(t, resp.Status)
	assert.Equal(t, core.Powered, resp.Status.Power)
	assert.Equal(t, core.TemperatureWarning, resp.Status.Temperature)
	assert.Equal(t, core.MakeDriversBitmap(1), resp.Status.Warning)
	assert.Equal(t, core.MakeDriversBitmap(2), board.sup.NoPoll())

	_, err = m.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestTakeStallActions(t *testing.T) {
	board := newBoardPort(t, map[core.DriverIndex]core.RawStatusWord{
		0: core.RawStatusWord(core.TMC5240_DRV_STATUS_STALLGUARD),
	})
	m := New(board, quietLogger())
	require.NoError(t, m.ConfigDriver(0, false, core.StallRehome))
	board.spin(300)

	require.NoError(t, m.TakeStallActions())
	resp, err := m.Next()
	require.NoError(t, err)
	require.NotNil(t, resp.Actions)
	assert.Equal(t, core.MakeDriversBitmap(0), resp.Actions.Rehome)
	assert.True(t, board.sup.PendingActions().Rehome.IsEmpty())
}

func TestSequenceNumbersWrap(t *testing.T) {
	board := newBoardPort(t, nil)
	m := New(board, quietLogger())

	for i := 0; i < 17; i++ {
		require.NoError(t, m.ResetSupervisor())
	}
	require.Len(t, board.seqs, 17)
	assert.Equal(t, uint8(protocol.MessageDest), board.seqs[0])
	assert.Equal(t, uint8(protocol.MessageDest|0x0F), board.seqs[15])
	assert.Equal(t, uint8(protocol.MessageDest), board.seqs[16])
}

func TestSendCommandErrors(t *testing.T) {
	m := New(newBoardPort(t, nil), quietLogger())

	assert.ErrorIs(t, m.SendCommand("get_uptime", nil), core.ErrUnknownCommand)
	assert.ErrorIs(t, m.SendCommand("driver_status", nil), core.ErrUnknownCommand, "responses cannot be sent")

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.QueryDriverStatus(), ErrNotConnected)
}

func TestNextSkipsUndecodableFrames(t *testing.T) {
	var stream bytes.Buffer
	out := protocol.NewScratchOutput()

	// Unknown ID, then a truncated stall_actions, then a log line
	require.NoError(t, protocol.EncodeCommand(out, protocol.MessageDest, 99, nil))
	require.NoError(t, protocol.EncodeCommand(out, protocol.MessageDest, 1, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQUint(o, 1)
	}))
	require.NoError(t, protocol.EncodeCommand(out, protocol.MessageDest, 2, func(o protocol.OutputBuffer) {
		protocol.EncodeVLQString(o, "reset")
	}))
	stream.Write(out.Result())

	m := New(nopCloser{&stream}, quietLogger())
	resp, err := m.Next()
	require.NoError(t, err)
	assert.Equal(t, "supervisor_log", resp.Name)
	assert.Equal(t, "reset", resp.Log)
}

type nopCloser struct{ io.ReadWriter }

func (nopCloser) Close() error { return nil }
