package probe

import (
	"testing"

	"expboard/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spitest"
)

var readDrvStatus = []byte{core.TMC5240_DRV_STATUS, 0, 0, 0, 0}

// playback answers one DRV_STATUS read: the request datagram, then the
// repeat that clocks out the reply.
func playback(t *testing.T, reply []byte) *spitest.Playback {
	t.Helper()
	return &spitest.Playback{Playback: conntest.Playback{
		DontPanic: true,
		Ops: []conntest.IO{
			{W: readDrvStatus, R: make([]byte, len(readDrvStatus))},
			{W: readDrvStatus, R: reply},
		},
	}}
}

func newTestProbe(t *testing.T, pbs ...*spitest.Playback) *Probe {
	t.Helper()
	var channels []core.TMCChannel
	for _, pb := range pbs {
		conn, err := pb.Connect(4*physic.MegaHertz, spiMode, 8)
		require.NoError(t, err)
		channels = append(channels, core.TMCChannel{Bus: Bus{Conn: conn}})
	}
	return NewWithReader(core.NewTMCStatusReader(channels))
}

func TestReadClassifiesDrivers(t *testing.T) {
	healthy := playback(t, []byte{0x00, 0x80, 0x00, 0x00, 0x00})
	stalledHot := playback(t, []byte{0x08, 0x03, 0x00, 0x00, 0x00})
	openCoil := playback(t, []byte{0x00, 0x20, 0x00, 0x00, 0x00})
	missing := playback(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF})

	reports := newTestProbe(t, healthy, stalledHot, openCoil, missing).Read()
	require.Len(t, reports, 4)

	assert.Empty(t, reports[0].Faults, "standstill only")
	assert.Equal(t, "driver 0: drv_status=0x80000000 spi_status=0x00 ok", reports[0].String())

	assert.Equal(t, []string{"shutdown", "stalled"}, reports[1].Faults)
	assert.Equal(t, uint8(0x08), reports[1].SPIStatus)

	assert.Equal(t, []string{"open_load_a"}, reports[2].Faults)

	require.Error(t, reports[3].Err)
	assert.ErrorIs(t, reports[3].Err, core.ErrNoReply)
	assert.Equal(t, "driver 3: "+reports[3].Err.Error(), reports[3].String())

	for _, pb := range []*spitest.Playback{healthy, stalledHot, openCoil, missing} {
		assert.NoError(t, pb.Close(), "every datagram was exchanged")
	}
}

func TestBusTransfer(t *testing.T) {
	pb := &spitest.Playback{Playback: conntest.Playback{
		DontPanic: true,
		Ops:       []conntest.IO{{W: []byte{0x6F}, R: []byte{0x42}}},
	}}
	conn, err := pb.Connect(physic.MegaHertz, spiMode, 8)
	require.NoError(t, err)

	r, err := Bus{Conn: conn}.Transfer(0x6F)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), r)
}

func TestDevices(t *testing.T) {
	names, err := Devices("/dev/spidev0.0", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/spidev0.0", "/dev/spidev0.1", "/dev/spidev0.2"}, names)

	names, err = Devices("SPI1.2", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"SPI1.2", "SPI1.3"}, names)

	names, err = Devices("", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, names, "first available port")

	_, err = Devices("spi", 2)
	assert.Error(t, err)
	_, err = Devices("/dev/spidev0.x", 1)
	assert.Error(t, err)
	_, err = Devices("/dev/spidev0.0", 0)
	assert.Error(t, err)
}
