// Package config loads runtime settings from the environment and an optional
// .env file
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/james-see/jianpu2midi/pkg/converter"
	"github.com/james-see/jianpu2midi/pkg/notation"
)

// Environment variables read by Load
const (
	EnvTicksPerBeat = "JIANPU_TICKS_PER_BEAT"
	EnvVelocity     = "JIANPU_VELOCITY"
	EnvPitchPolicy  = "JIANPU_PITCH_POLICY"
	EnvPort         = "PORT"
	EnvLogLevel     = "LOG_LEVEL"
	EnvSentryDSN    = "SENTRY_DSN"
	EnvSentryEnv    = "SENTRY_ENVIRONMENT"
)

// DefaultPort is the API server port when PORT is unset
const DefaultPort = 8080

// Config holds everything the CLI and the server need
type Config struct {
	Converter         converter.Options
	Port              int
	LogLevel          logrus.Level
	SentryDSN         string
	SentryEnvironment string
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		Converter:         converter.DefaultOptions(),
		Port:              DefaultPort,
		LogLevel:          logrus.InfoLevel,
		SentryEnvironment: "development",
	}
}

// Load reads a .env file when present, then the process environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("could not load .env file")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv(EnvTicksPerBeat); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < notation.MinTicksPerBeat || n > notation.MaxTicksPerBeat {
			return cfg, fmt.Errorf("%s must be between %d and %d, got %q",
				EnvTicksPerBeat, notation.MinTicksPerBeat, notation.MaxTicksPerBeat, v)
		}
		cfg.Converter.TicksPerBeat = uint16(n)
	}

	if v := getenv(EnvVelocity); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 127 {
			return cfg, fmt.Errorf("%s must be between 1 and 127, got %q", EnvVelocity, v)
		}
		cfg.Converter.Velocity = uint8(n)
	}

	if v := getenv(EnvPitchPolicy); v != "" {
		policy, ok := notation.ParsePitchPolicy(v)
		if !ok {
			return cfg, fmt.Errorf("%s must be reject or clamp, got %q", EnvPitchPolicy, v)
		}
		cfg.Converter.PitchPolicy = policy
	}

	if v := getenv(EnvPort); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 65535 {
			return cfg, fmt.Errorf("%s must be a port number, got %q", EnvPort, v)
		}
		cfg.Port = n
	}

	if v := getenv(EnvLogLevel); v != "" {
		level, err := logrus.ParseLevel(strings.TrimSpace(v))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.LogLevel = level
	}

	cfg.SentryDSN = getenv(EnvSentryDSN)
	if v := getenv(EnvSentryEnv); v != "" {
		cfg.SentryEnvironment = v
	}
	return cfg, nil
}

// ConfigureLogging applies the log level to the standard logrus logger
func (c Config) ConfigureLogging() {
	logrus.SetLevel(c.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
