package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"expboard/config"
	"expboard/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSimCommand(t *testing.T) {
	out, err := execute(t, "sim", "../../sim/testdata/brownout.yaml")
	require.NoError(t, err)

	want, err := os.ReadFile("../../sim/testdata/brownout.golden")
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestSimCommandMissingFile(t *testing.T) {
	_, err := execute(t, "sim", "testdata/nope.yaml")
	assert.ErrorContains(t, err, "failed to read")
}

func TestConfigCheck(t *testing.T) {
	out, err := execute(t, "config", "check", "../../../config/testdata/board.yaml")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "drivers: 3\n"))
	assert.Contains(t, out, "driver 1: poll=true stall=pause\n")
}

func TestNewLoggerRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, false).Info("failed", "error", "boom")
	newLogger(&buf, false).Debug("hidden")
	assert.Contains(t, buf.String(), "err=boom")
	assert.NotContains(t, buf.String(), "hidden")
}

type recordingBoard struct {
	calls []string
}

func (b *recordingBoard) ResetSupervisor() error {
	b.calls = append(b.calls, "reset")
	return nil
}

func (b *recordingBoard) ConfigDriver(driver core.DriverIndex, noPoll bool, action core.StallAction) error {
	b.calls = append(b.calls, "config "+string('0'+rune(driver))+" "+action.String())
	return nil
}

func TestPushConfig(t *testing.T) {
	b := &recordingBoard{}
	err := pushConfig(b, []config.DriverConfig{{Index: 0, Stall: "rehome"}, {Index: 2, NoPoll: true}})
	require.NoError(t, err)
	assert.Equal(t, []string{"reset", "config 0 rehome", "config 2 none"}, b.calls)

	assert.Error(t, pushConfig(&recordingBoard{}, []config.DriverConfig{{Index: 0, Stall: "stop"}}))
}
