package core

// DefaultFilterLength is the number of samples averaged per rail.
const DefaultFilterLength = 16

// AveragingFilter keeps the sum of the most recent samples of one ADC
// channel. Process may run in interrupt context; Snapshot always returns a
// consistent sum/count pair.
type AveragingFilter struct {
	samples []uint16
	sum     uint32
	index   int
	count   int
}

// NewAveragingFilter creates a filter over n samples.
func NewAveragingFilter(n int) *AveragingFilter {
	if n <= 0 {
		n = DefaultFilterLength
	}
	return &AveragingFilter{samples: make([]uint16, n)}
}

// Process adds a sample, evicting the oldest once the window is full.
func (f *AveragingFilter) Process(sample uint16) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	f.sum -= uint32(f.samples[f.index])
	f.samples[f.index] = sample
	f.sum += uint32(sample)
	f.index++
	if f.index == len(f.samples) {
		f.index = 0
	}
	if f.count < len(f.samples) {
		f.count++
	}
}

// Snapshot returns the current sum and number of samples averaged.
func (f *AveragingFilter) Snapshot() RailReading {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	return RailReading{Sum: f.sum, Count: uint32(f.count)}
}

// IsValid reports whether the window has been filled once.
func (f *AveragingFilter) IsValid() bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	return f.count == len(f.samples)
}

// Reset discards every sample.
func (f *AveragingFilter) Reset() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := range f.samples {
		f.samples[i] = 0
	}
	f.sum, f.index, f.count = 0, 0, 0
}

// ADCReader performs one conversion on a fixed channel.
type ADCReader func() (uint16, error)

// RailSampler feeds the rail filters from their ADC channels.
type RailSampler struct {
	vin     ADCReader
	v12     ADCReader
	vinFilt *AveragingFilter
	v12Filt *AveragingFilter
	errors  uint32
}

// NewRailSampler creates a sampler. v12 may be nil on single-rail boards.
func NewRailSampler(vin, v12 ADCReader, length int) *RailSampler {
	rs := &RailSampler{vin: vin, v12: v12, vinFilt: NewAveragingFilter(length)}
	if v12 != nil {
		rs.v12Filt = NewAveragingFilter(length)
	}
	return rs
}

// Sample converts each rail once. Failed conversions are counted and
// skipped.
func (rs *RailSampler) Sample() {
	rs.sample(rs.vin, rs.vinFilt)
	if rs.v12 != nil {
		rs.sample(rs.v12, rs.v12Filt)
	}
}

func (rs *RailSampler) sample(read ADCReader, f *AveragingFilter) {
	v, err := read()
	if err != nil {
		rs.errors++
		return
	}
	f.Process(v)
}

// Readings returns the filter snapshots for Supervisor.Spin.
func (rs *RailSampler) Readings() RailReadings {
	r := RailReadings{Vin: rs.vinFilt.Snapshot()}
	if rs.v12Filt != nil {
		r.V12 = rs.v12Filt.Snapshot()
	}
	return r
}

// Errors returns the number of failed conversions.
func (rs *RailSampler) Errors() uint32 { return rs.errors }
