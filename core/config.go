package core

import (
	"fmt"
	"os"
	"runtime"
	"time"

	yaml "github.com/goccy/go-yaml"
)

const (
	defaultContextWorkers  = 1
	defaultPollIntervalMS  = 1
	defaultMaxIdleFibers   = 64
	defaultHistoryCapacity = 100
)

// Config is the startup configuration of a Scheduler. It is read once when the
// scheduler is created and never changes afterwards.
type Config struct {
	// Workers is the number of general (AffinityAny) worker threads.
	Workers int `yaml:"workers"`

	// ContextWorkers is the number of worker threads bound to the graphics context.
	ContextWorkers int `yaml:"context_workers"`

	// PollIntervalMS is how often idle workers look for deferred tasks.
	PollIntervalMS int `yaml:"poll_interval_ms"`

	// MaxIdleFibers bounds the number of finished fibers kept for reuse.
	// Zero selects the default; a negative value disables reuse.
	MaxIdleFibers int `yaml:"max_idle_fibers"`

	// HistoryCapacity is the size of the execution history ring buffer.
	HistoryCapacity int `yaml:"history_capacity"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func defaultWorkers() int {
	n := runtime.GOMAXPROCS(0) - 1
	if n < 1 {
		n = 1
	}
	return n
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Workers:         defaultWorkers(),
		ContextWorkers:  defaultContextWorkers,
		PollIntervalMS:  defaultPollIntervalMS,
		MaxIdleFibers:   defaultMaxIdleFibers,
		HistoryCapacity: defaultHistoryCapacity,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// ParseConfig overlays YAML data onto DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse scheduler config: %w", err)
	}
	return cfg.normalized(), nil
}

// LoadConfig reads a YAML file; empty path = defaults only.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read scheduler config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// normalized applies sanity clamps.
func (c Config) normalized() Config {
	if c.Workers <= 0 {
		c.Workers = defaultWorkers()
	}
	if c.ContextWorkers <= 0 {
		c.ContextWorkers = defaultContextWorkers
	}
	if c.PollIntervalMS <= 0 {
		c.PollIntervalMS = defaultPollIntervalMS
	}
	if c.MaxIdleFibers == 0 {
		c.MaxIdleFibers = defaultMaxIdleFibers
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = defaultHistoryCapacity
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	return c
}

func (c Config) pollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
