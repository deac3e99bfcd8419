package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupervisorDefaultsToPlatformWriter(t *testing.T) {
	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	t.Cleanup(func() {
		SetDebugWriter(func(string) {})
		SetDebugEnabled(false)
	})

	cfg := testSupervisorConfig(1, nil)
	cfg.Debug = nil
	s, err := NewSupervisor(cfg, StatusQueryFunc(func(DriverIndex) (RawStatusWord, error) { return 0, nil }))
	require.NoError(t, err)

	s.Reset()
	assert.Empty(t, lines, "disabled output is dropped")

	SetDebugEnabled(true)
	assert.True(t, IsDebugEnabled())
	s.Reset()
	assert.Equal(t, []string{"[SUPERVISOR] reset"}, lines)
}

func TestNilDebugWriterDiscards(t *testing.T) {
	var w DebugWriter
	assert.NotPanics(t, func() { w.print("dropped") })
}
