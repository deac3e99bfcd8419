package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAveragingFilterWindow(t *testing.T) {
	f := NewAveragingFilter(4)
	assert.False(t, f.IsValid())

	for _, v := range []uint16{10, 20, 30} {
		f.Process(v)
	}
	assert.Equal(t, RailReading{Sum: 60, Count: 3}, f.Snapshot())
	assert.Equal(t, uint16(20), f.Snapshot().Code())

	f.Process(40)
	assert.True(t, f.IsValid())
	f.Process(100) // evicts 10
	assert.Equal(t, RailReading{Sum: 190, Count: 4}, f.Snapshot())

	f.Reset()
	assert.Equal(t, RailReading{}, f.Snapshot())
	assert.False(t, f.IsValid())
}

func TestAveragingFilterDefaultLength(t *testing.T) {
	f := NewAveragingFilter(0)
	for i := 0; i < DefaultFilterLength; i++ {
		f.Process(1)
	}
	assert.True(t, f.IsValid())
	assert.Equal(t, uint32(DefaultFilterLength), f.Snapshot().Sum)
}

func TestRailSampler(t *testing.T) {
	vin := uint16(1536)
	fail := false
	rs := NewRailSampler(func() (uint16, error) {
		if fail {
			return 0, errors.New("adc busy")
		}
		return vin, nil
	}, func() (uint16, error) {
		return 768, nil
	}, 2)

	rs.Sample()
	fail = true
	rs.Sample()

	r := rs.Readings()
	assert.Equal(t, RailReading{Sum: 1536, Count: 1}, r.Vin)
	assert.Equal(t, RailReading{Sum: 1536, Count: 2}, r.V12)
	assert.Equal(t, uint32(1), rs.Errors())
}

func TestRailSamplerSingleRail(t *testing.T) {
	rs := NewRailSampler(func() (uint16, error) { return 100, nil }, nil, 4)
	rs.Sample()
	assert.Equal(t, RailReading{}, rs.Readings().V12)
}
