package core

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

type classifierFixture struct {
	faults   FaultState
	policy   StallPolicy
	openLoad OpenLoadDebouncer
	router   *StallActionRouter
	fc       *FaultClassifier
}

func newClassifierFixture() *classifierFixture {
	f := &classifierFixture{}
	f.router = NewStallActionRouter(&f.policy, &f.faults)
	f.fc = NewFaultClassifier(&f.faults, f.router, &f.openLoad)
	return f
}

func TestRawStatusWordBits(t *testing.T) {
	assert.True(t, statusStall.Stalled())
	assert.True(t, statusOT.OverTemperature())
	assert.True(t, statusOTPW.TemperatureWarning())
	assert.True(t, statusS2GA.ShortToGround())
	assert.True(t, statusS2GB.ShortToGround())
	assert.True(t, statusOLA.OpenLoadA())
	assert.True(t, statusOLB.OpenLoadB())

	idle := statusStandstill | RawStatusWord(TMC5240_DRV_STATUS_CS_ACTUAL|0x3FF)
	assert.False(t, idle.Stalled() || idle.OverTemperature() || idle.TemperatureWarning() ||
		idle.ShortToGround() || idle.OpenLoadA() || idle.OpenLoadB(),
		"standstill, current scale and SG_RESULT are not faults")
}

func TestFaultClassifierRecomputesEachPoll(t *testing.T) {
	f := newClassifierFixture()

	f.fc.Apply(2, statusOT|statusOTPW|statusS2GA, 0)
	assert.True(t, f.faults.Shutdown.IsBitSet(2))
	assert.True(t, f.faults.Warning.IsBitSet(2))
	assert.True(t, f.faults.ShortToGround.IsBitSet(2))

	f.fc.Apply(2, statusOTPW, 1)
	assert.False(t, f.faults.Shutdown.IsBitSet(2), "shutdown clears on the next clean poll")
	assert.True(t, f.faults.Warning.IsBitSet(2))
	assert.False(t, f.faults.ShortToGround.IsBitSet(2))

	f.fc.Apply(2, 0, 2)
	assert.True(t, f.faults.Warning.IsEmpty(), "a cooled driver clears its warning")
}

func TestFaultClassifierLeavesOtherDriversUntouched(t *testing.T) {
	f := newClassifierFixture()
	f.fc.Apply(0, statusOT, 0)
	f.fc.Apply(1, 0, 0)
	assert.Equal(t, MakeDriversBitmap(0), f.faults.Shutdown)
}

// Random polls: each fault bit of driver d always equals the bit in the
// most recent word supplied for d.
func TestFaultClassifierMatchesLastWord(t *testing.T) {
	f := newClassifierFixture()
	rng := rand.New(rand.NewSource(1))
	var last [8]RawStatusWord
	words := []RawStatusWord{0, statusOT, statusOTPW, statusS2GA, statusS2GB, statusStall,
		statusOT | statusStall, statusOTPW | statusS2GB | statusOLA}

	for i := 0; i < 500; i++ {
		d := DriverIndex(rng.Intn(len(last)))
		w := words[rng.Intn(len(words))]
		f.fc.Apply(d, w, uint32(i))
		last[d] = w

		for j := range last {
			dj := DriverIndex(j)
			assert.Equal(t, last[j].OverTemperature(), f.faults.Shutdown.IsBitSet(dj))
			assert.Equal(t, last[j].TemperatureWarning(), f.faults.Warning.IsBitSet(dj))
			assert.Equal(t, last[j].ShortToGround(), f.faults.ShortToGround.IsBitSet(dj))
			assert.Equal(t, last[j].Stalled(), f.faults.Stalled.IsBitSet(dj))
		}
	}
}

func TestFaultClassifierStallEdge(t *testing.T) {
	f := newClassifierFixture()
	f.policy.Set(1, StallLog)

	f.fc.Apply(1, statusStall, 0)
	f.fc.Apply(1, statusStall, 1)
	f.fc.Apply(1, statusStall, 2)
	assert.Equal(t, MakeDriversBitmap(1), f.router.TakeAndClear(StallLog), "one action per edge")

	f.fc.Apply(1, statusStall, 3)
	assert.True(t, f.router.TakeAndClear(StallLog).IsEmpty(), "still stalled, no new edge")

	f.fc.Apply(1, 0, 4)
	assert.False(t, f.faults.Stalled.IsBitSet(1))
	f.fc.Apply(1, statusStall, 5)
	assert.Equal(t, MakeDriversBitmap(1), f.router.TakeAndClear(StallLog), "second edge")
}

func TestFaultClassifierFeedsOpenLoad(t *testing.T) {
	f := newClassifierFixture()

	f.fc.Apply(0, statusOLA, 10)
	assert.True(t, f.openLoad.Timer(PhaseA).Faulted(0))
	assert.False(t, f.openLoad.Timer(PhaseB).Running())

	f.fc.Apply(0, statusOLB, 20)
	assert.False(t, f.openLoad.Timer(PhaseA).Running(), "phase A resolved by the absent reading")
	assert.True(t, f.openLoad.Timer(PhaseB).Faulted(0))
}

func TestFaultStateReset(t *testing.T) {
	fs := FaultState{Shutdown: 1, Warning: 2, ShortToGround: 4, Stalled: 8, ToLog: 1, ToPause: 2, ToRehome: 4}
	fs.Reset()
	assert.Equal(t, FaultState{}, fs)
}
