// Package config loads the runtime configuration shared by the example
// binaries and the compute server: YAML file, then GOHPC_* environment
// variables, then command-line flags set by the caller.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Workers   int    `yaml:"workers" validate:"gte=1"`
	ChunkSize int    `yaml:"chunk_size" validate:"gte=0"`
	Seed      uint64 `yaml:"seed"`
	LogLevel  string `yaml:"log_level" validate:"oneof=trace debug info warn warning error"`

	Server ServerConfig `yaml:"server"`
}

type ServerConfig struct {
	Port        int    `yaml:"port" validate:"gte=1,lte=65535"`
	MetricsPath string `yaml:"metrics_path" validate:"startswith=/"`
	// MaxWorkers caps the worker count a single request may ask for.
	MaxWorkers int `yaml:"max_workers" validate:"gte=1"`
}

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Workers:  runtime.NumCPU(),
		Seed:     uint64(time.Now().UnixNano()),
		LogLevel: "info",
		Server: ServerConfig{
			Port:        3000,
			MetricsPath: "/metrics",
			MaxWorkers:  max(64, 4*runtime.NumCPU()),
		},
	}
}

// Load reads path over the defaults (an empty path skips the file), applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		// #nosec G304 -- path comes from the operator's command line.
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to unmarshal config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"GOHPC_WORKERS", &c.Workers},
		{"GOHPC_CHUNK_SIZE", &c.ChunkSize},
		{"GOHPC_PORT", &c.Server.Port},
		{"GOHPC_MAX_WORKERS", &c.Server.MaxWorkers},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", e.key, v, err)
		}
		*e.dst = n
	}

	if v, ok := lookup("GOHPC_SEED"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid GOHPC_SEED %q: %w", v, err)
		}
		c.Seed = n
	}
	if v, ok := lookup("GOHPC_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	return nil
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Workers > c.Server.MaxWorkers {
		return fmt.Errorf("invalid configuration: workers %d exceeds server.max_workers %d",
			c.Workers, c.Server.MaxWorkers)
	}
	return nil
}

// SetupLogging configures the standard logrus logger with the text
// formatter used across the project and the configured level.
func (c Config) SetupLogging() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return err
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	logrus.SetLevel(level)
	return nil
}
