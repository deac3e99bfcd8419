package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestPoller(n int, noPoll DriversBitmap, q StatusQuerier) (*DriverPoller, *classifierFixture) {
	f := newClassifierFixture()
	return NewDriverPoller(n, noPoll, q, f.fc), f
}

func TestDriverPollerRoundRobin(t *testing.T) {
	drv := newFakeDrivers()
	drv.status[1] = statusOT
	p, _ := newTestPoller(4, 0, drv)

	for i := 0; i < 6; i++ {
		assert.True(t, p.Poll(uint32(i)))
	}
	assert.Equal(t, []DriverIndex{0, 1, 2, 3, 0, 1}, drv.queried)
}

func TestDriverPollerSkipsNoPoll(t *testing.T) {
	drv := newFakeDrivers()
	p, _ := newTestPoller(4, MakeDriversBitmap(2), drv)

	var polled []bool
	for i := 0; i < 5; i++ {
		polled = append(polled, p.Poll(uint32(i)))
	}
	assert.Equal(t, []DriverIndex{0, 1, 3, 0}, drv.queried)
	assert.Equal(t, []bool{true, true, false, true, true}, polled)
	assert.Equal(t, DriverIndex(1), p.Cursor(), "cursor advanced past the skipped driver")
}

func TestDriverPollerOneDriverPerPoll(t *testing.T) {
	drv := newFakeDrivers()
	drv.status[0] = statusOT
	drv.status[1] = statusOT
	p, f := newTestPoller(2, 0, drv)

	p.Poll(0)
	assert.Equal(t, MakeDriversBitmap(0), f.faults.Shutdown, "driver 1 not visited yet")
	p.Poll(1)
	assert.Equal(t, DriversBitmap(0x3), f.faults.Shutdown)
}

func TestDriverPollerQueryErrorIsNoFault(t *testing.T) {
	drv := newFakeDrivers()
	drv.status[0] = statusOT | statusStall
	p, f := newTestPoller(1, 0, drv)

	p.Poll(0)
	assert.True(t, f.faults.Shutdown.IsBitSet(0))

	drv.fail.SetBit(0)
	assert.True(t, p.Poll(1))
	assert.True(t, f.faults.Shutdown.IsEmpty(), "failed query is classified as all-clear")
	assert.True(t, f.faults.Stalled.IsEmpty())
	assert.Equal(t, uint32(1), p.QueryErrors())

	p.Reset()
	assert.Equal(t, uint32(0), p.QueryErrors())
	assert.Equal(t, DriverIndex(0), p.Cursor())
}

func TestDriverPollerStatusQueryFunc(t *testing.T) {
	var seen []DriverIndex
	q := StatusQueryFunc(func(d DriverIndex) (RawStatusWord, error) {
		seen = append(seen, d)
		return 0, nil
	})
	p, _ := newTestPoller(3, 0, q)
	p.Poll(0)
	p.Poll(0)
	p.Poll(0)
	p.Poll(0)
	assert.Equal(t, []DriverIndex{0, 1, 2, 0}, seen)
}
