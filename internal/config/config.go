// Package config loads animctl configuration from the environment, an
// optional YAML file and command-line flags, in that order. Later sources
// override earlier ones.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dshills/algoreplay/replay"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "ANIMCTL_"

// Config holds animctl configuration.
type Config struct {
	// ConfigFile is the optional YAML file layered over the environment.
	ConfigFile string `env:"CONFIG" yaml:"-"`

	Visualization string        `env:"VISUALIZATION" envDefault:"bst"   yaml:"visualization"`
	Speed         time.Duration `env:"SPEED"         envDefault:"500ms" yaml:"speed"`
	Running       bool          `env:"RUNNING"                          yaml:"running"`
	ElementSize   int           `env:"ELEMENT_SIZE"                     yaml:"element_size"`
	Locale        string        `env:"LOCALE"        envDefault:"en-US" yaml:"locale"`

	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info" yaml:"log_level"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" yaml:"log_format"`
	LogFile   string `env:"LOG_FILE"                     yaml:"log_file"`

	DBDriver string `env:"DB_DRIVER" envDefault:"memory" yaml:"db_driver"`
	DBDSN    string `env:"DB_DSN"                        yaml:"db_dsn"`

	MetricsAddr  string `env:"METRICS_ADDR"  yaml:"metrics_addr"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT" yaml:"otlp_endpoint"`

	Keymap    string `env:"KEYMAP"     yaml:"keymap"`
	SessionID string `env:"SESSION_ID" yaml:"session_id"`
}

// FromEnv parses the environment into a Config with defaults applied.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the file
// keep their current values; unknown keys are rejected.
func LoadFile(fs afero.Fs, path string, cfg *Config) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Load reads the environment and then the config file it names, if any.
func Load(fs afero.Fs) (Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if cfg.ConfigFile != "" {
		if err := LoadFile(fs, cfg.ConfigFile, &cfg); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// BindFlags registers flags on fs that override cfg's current values.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Visualization, "viz", cfg.Visualization, "visualization: bst or sorting")
	fs.DurationVar(&cfg.Speed, "speed", cfg.Speed, "auto-advance interval")
	fs.BoolVar(&cfg.Running, "run", cfg.Running, "start with auto-advance enabled")
	fs.IntVar(&cfg.ElementSize, "element-size", cfg.ElementSize, "element size of the rendered scene")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "message locale")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log file format: text or json")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write logs to this file")
	fs.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "transcript store: memory, sqlite or mysql")
	fs.StringVar(&cfg.DBDSN, "db-dsn", cfg.DBDSN, "transcript store DSN (sqlite path or mysql DSN)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP/HTTP trace endpoint URL")
	fs.StringVar(&cfg.Keymap, "keymap", cfg.Keymap, "key bindings, e.g. j=step-forward,k=step-backward")
	fs.StringVar(&cfg.SessionID, "session", cfg.SessionID, "session ID (default: new ULID)")
}

// Level returns the configured slog level.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Visualization {
	case "bst", "sorting":
	default:
		return fmt.Errorf("unknown visualization %q", c.Visualization)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("speed must be positive, got %s", c.Speed)
	}
	if c.ElementSize < 0 {
		return fmt.Errorf("element size must not be negative, got %d", c.ElementSize)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	switch c.DBDriver {
	case "memory", "":
	case "sqlite", "mysql":
		if c.DBDSN == "" {
			return fmt.Errorf("db driver %s requires a DSN", c.DBDriver)
		}
	default:
		return fmt.Errorf("unknown db driver %q", c.DBDriver)
	}
	if c.Keymap != "" {
		if _, err := replay.ParseKeymap(c.Keymap); err != nil {
			return err
		}
	}
	return nil
}
