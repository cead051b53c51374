// Package config loads agent settings from a YAML file with environment
// overrides.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/metricstore/internal/core/layaway"
	"github.com/zeusync/metricstore/internal/core/observability/log"
	"github.com/zeusync/metricstore/internal/core/slowtx"
)

// Environment overrides, applied after the file.
const (
	EnvDataFile      = "APM_DATA_FILE"
	EnvLogLevel      = "APM_LOG_LEVEL"
	EnvLogPath       = "APM_LOG_PATH"
	EnvFlushInterval = "APM_FLUSH_INTERVAL"
)

const (
	DefaultLogPath       = "log"
	DefaultFlushInterval = time.Minute
	DefaultSlowThreshold = 2 * time.Second
	DefaultListenAddr    = "127.0.0.1:8080"
)

type Config struct {
	LogLevel         string                `yaml:"log_level"`
	LogPath          string                `yaml:"log_path"`
	DataFile         string                `yaml:"data_file"`
	FlushInterval    Duration              `yaml:"flush_interval"`
	SlowTransactions SlowTransactionConfig `yaml:"slow_transactions"`
	HTTP             HTTPConfig            `yaml:"http"`
}

type SlowTransactionConfig struct {
	Capacity  int      `yaml:"capacity"`
	Threshold Duration `yaml:"threshold"`
}

type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Duration accepts Go duration strings ("30s") or plain seconds in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		LogPath:       DefaultLogPath,
		FlushInterval: Duration(DefaultFlushInterval),
		SlowTransactions: SlowTransactionConfig{
			Capacity:  slowtx.DefaultCapacity,
			Threshold: Duration(DefaultSlowThreshold),
		},
		HTTP: HTTPConfig{ListenAddr: DefaultListenAddr},
	}
}

// Load reads path over the defaults, applies the environment and validates.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err = cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML from r over the defaults without consulting the
// environment.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDataFile); ok && v != "" {
		c.DataFile = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvLogPath); ok && v != "" {
		c.LogPath = v
	}
	if v, ok := lookup(EnvFlushInterval); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, EnvFlushInterval, err)
		}
		c.FlushInterval = Duration(d)
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("%w: flush_interval must be positive", ErrInvalidConfig)
	}
	if c.SlowTransactions.Capacity < 0 {
		return fmt.Errorf("%w: slow_transactions.capacity must be non-negative", ErrInvalidConfig)
	}
	if c.SlowTransactions.Threshold < 0 {
		return fmt.Errorf("%w: slow_transactions.threshold must be non-negative", ErrInvalidConfig)
	}
	if c.DataFile == "" && c.LogPath == "" {
		return fmt.Errorf("%w: one of data_file or log_path is required", ErrInvalidConfig)
	}
	return nil
}

// Level is the parsed log level. Validate has already rejected bad values.
func (c *Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// LayawayPath is data_file when set, otherwise the default file name under
// log_path.
func (c *Config) LayawayPath() string {
	if c.DataFile != "" {
		return c.DataFile
	}
	return filepath.Join(c.LogPath, layaway.DefaultFileName)
}
