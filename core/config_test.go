package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseConfig_OverlaysDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
workers: 3
context_workers: 1
log_level: debug
`))
	require.NoError(t, err)

	def := DefaultConfig()
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, 1, cfg.ContextWorkers)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, def.PollIntervalMS, cfg.PollIntervalMS)
	require.Equal(t, def.MaxIdleFibers, cfg.MaxIdleFibers)
	require.Equal(t, def.HistoryCapacity, cfg.HistoryCapacity)
	require.Equal(t, "text", cfg.LogFormat)
}

func TestParseConfig_ClampsInvalidValues(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
workers: -2
context_workers: 0
poll_interval_ms: 0
max_idle_fibers: -1
history_capacity: 0
`))
	require.NoError(t, err)

	require.Equal(t, defaultWorkers(), cfg.Workers)
	require.Equal(t, defaultContextWorkers, cfg.ContextWorkers)
	require.Equal(t, defaultPollIntervalMS, cfg.PollIntervalMS)
	require.Equal(t, -1, cfg.MaxIdleFibers)
	require.Equal(t, defaultHistoryCapacity, cfg.HistoryCapacity)
}

func TestParseConfig_RejectsMalformedYAML(t *testing.T) {
	_, err := ParseConfig([]byte("workers: [1, 2"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse scheduler config")
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 5\nlog_format: json\n"), 0o600))

	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 5, cfg.Workers)
	require.Equal(t, "json", cfg.LogFormat)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefaultConfig_WorkerFloor(t *testing.T) {
	cfg := DefaultConfig()
	require.GreaterOrEqual(t, cfg.Workers, 1)
	require.Equal(t, 1, cfg.ContextWorkers)
	require.Equal(t, cfg.pollInterval().Milliseconds(), int64(cfg.PollIntervalMS))
}
