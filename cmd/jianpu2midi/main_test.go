package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/jianpu2midi/pkg/converter"
	"github.com/james-see/jianpu2midi/pkg/notation"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, cmd := range rootCmd.Commands() {
		cmd.Flags().VisitAll(reset)
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestConvertCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ode.jianpu")
	require.NoError(t, os.WriteFile(input, []byte("@tempo=100\n[track]\n3 3 4 5 | 5 4 3 2"), 0644))

	output := filepath.Join(dir, "out.mid")
	require.NoError(t, execute(t, "convert", input, "-o", output, "--ticks-per-beat", "96"))

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	summary, err := converter.Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, uint16(96), summary.TicksPerBeat)
	assert.Equal(t, 8, summary.Tracks[1].NoteOns)
}

func TestConvertCommandRejectsBadNotes(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "bad.jianpu")
	require.NoError(t, os.WriteFile(input, []byte("[track]\n1 7^^^^^^^^"), 0644))

	err := execute(t, "convert", input)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "bad.mid"))
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, execute(t, "convert", input, "--clamp-pitch"))
	assert.Equal(t, notation.PitchClamp, cfg.Converter.PitchPolicy)
	_, statErr = os.Stat(filepath.Join(dir, "bad.mid"))
	assert.NoError(t, statErr)
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.nmn")
	require.NoError(t, os.WriteFile(good, []byte("[track]\n1 2 3"), 0644))
	bad := filepath.Join(dir, "bad.nmn")
	require.NoError(t, os.WriteFile(bad, []byte("[track]\n1 2 zz"), 0644))

	assert.NoError(t, execute(t, "validate", good))
	assert.Error(t, execute(t, "validate", bad, "--json"))
}

func TestInspectCommand(t *testing.T) {
	result, err := converter.New(converter.DefaultOptions()).Convert("[track]\n1")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "one.mid")
	require.NoError(t, os.WriteFile(path, result.Data, 0644))

	assert.NoError(t, execute(t, "inspect", path))
	assert.Error(t, execute(t, "inspect", filepath.Join(t.TempDir(), "missing.mid")))
}

func TestFlagValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.jianpu")
	require.NoError(t, os.WriteFile(path, []byte("[track]\n1"), 0644))

	assert.Error(t, execute(t, "convert", path, "--velocity", "0"))
	assert.Error(t, execute(t, "convert", path, "--ticks-per-beat", "2000"))
	assert.Error(t, execute(t, "convert", path, "--log-level", "chatty"))
}
