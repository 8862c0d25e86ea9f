package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Positive(t, cfg.Workers)
	require.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gohpc.yaml")
	data := []byte(`
workers: 6
chunk_size: 250
seed: 99
log_level: debug
server:
  port: 8080
  metrics_path: /prom
  max_workers: 32
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 6, cfg.Workers)
	require.Equal(t, 250, cfg.ChunkSize)
	require.Equal(t, uint64(99), cfg.Seed)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "/prom", cfg.Server.MetricsPath)
	require.Equal(t, 32, cfg.Server.MaxWorkers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\n"), 0o600))

	_, err := Load(path)
	require.ErrorContains(t, err, "Workers")
}

func TestValidateMaxWorkers(t *testing.T) {
	cfg := Default()
	cfg.Server.MaxWorkers = 0
	require.ErrorContains(t, cfg.Validate(), "MaxWorkers")

	cfg = Default()
	cfg.Server.MaxWorkers = 2
	cfg.Workers = 3
	require.ErrorContains(t, cfg.Validate(), "max_workers")
}

func TestEnvOverrides(t *testing.T) {
	env := map[string]string{
		"GOHPC_WORKERS":     "3",
		"GOHPC_CHUNK_SIZE":  "10",
		"GOHPC_PORT":        "9000",
		"GOHPC_SEED":        "5",
		"GOHPC_LOG_LEVEL":   "warn",
		"GOHPC_MAX_WORKERS": "12",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.applyEnv(lookup))
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, 10, cfg.ChunkSize)
	require.Equal(t, 9000, cfg.Server.Port)
	require.Equal(t, uint64(5), cfg.Seed)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 12, cfg.Server.MaxWorkers)

	env["GOHPC_WORKERS"] = "many"
	require.Error(t, cfg.applyEnv(lookup))
}

func TestSetupLogging(t *testing.T) {
	prev := logrus.GetLevel()
	t.Cleanup(func() { logrus.SetLevel(prev) })

	cfg := Default()
	cfg.LogLevel = "debug"
	require.NoError(t, cfg.SetupLogging())
	require.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	cfg.LogLevel = "loud"
	require.Error(t, cfg.SetupLogging())
}
