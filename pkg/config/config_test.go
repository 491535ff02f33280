package config

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/jianpu2midi/pkg/converter"
	"github.com/james-see/jianpu2midi/pkg/notation"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, converter.DefaultOptions(), cfg.Converter)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		EnvTicksPerBeat: "96",
		EnvVelocity:     "100",
		EnvPitchPolicy:  "Clamp",
		EnvPort:         "9000",
		EnvLogLevel:     "debug",
		EnvSentryDSN:    "https://key@example.com/1",
		EnvSentryEnv:    "production",
	}))
	require.NoError(t, err)
	assert.Equal(t, uint16(96), cfg.Converter.TicksPerBeat)
	assert.Equal(t, uint8(100), cfg.Converter.Velocity)
	assert.Equal(t, notation.PitchClamp, cfg.Converter.PitchPolicy)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, "https://key@example.com/1", cfg.SentryDSN)
	assert.Equal(t, "production", cfg.SentryEnvironment)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"ticks too small", map[string]string{EnvTicksPerBeat: "12"}},
		{"ticks not a number", map[string]string{EnvTicksPerBeat: "many"}},
		{"velocity zero", map[string]string{EnvVelocity: "0"}},
		{"velocity too high", map[string]string{EnvVelocity: "128"}},
		{"unknown policy", map[string]string{EnvPitchPolicy: "wrap"}},
		{"bad port", map[string]string{EnvPort: "http"}},
		{"bad log level", map[string]string{EnvLogLevel: "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.vars))
			assert.Error(t, err)
		})
	}
}
