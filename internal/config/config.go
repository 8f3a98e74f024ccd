// Package config loads arbor CLI settings from defaults, an optional config
// file, ARBOR_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable viper consults, so
// index.workers is read from ARBOR_INDEX_WORKERS.
const EnvPrefix = "ARBOR"

// Config holds the complete CLI configuration.
type Config struct {
	DB     string      `mapstructure:"db"`
	Format string      `mapstructure:"format"`
	Index  IndexConfig `mapstructure:"index"`
	Log    LogConfig   `mapstructure:"log"`
}

// IndexConfig holds indexing configuration.
type IndexConfig struct {
	Languages  []string `mapstructure:"languages"`
	Parallel   bool     `mapstructure:"parallel"`
	Workers    int      `mapstructure:"workers"`
	ScriptsDir string   `mapstructure:"scripts_dir"`
	FileScript string   `mapstructure:"file_script"`
	TreeCache  bool     `mapstructure:"tree_cache"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewViper returns a viper instance with defaults, environment binding and,
// when present, the config file loaded. An empty configFile searches for
// .arbor.yaml in the working directory; a missing file is not an error in
// that case.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".arbor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return v, nil
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", "")
	v.SetDefault("format", "json")

	v.SetDefault("index.languages", []string{})
	v.SetDefault("index.parallel", true)
	v.SetDefault("index.workers", 0)
	v.SetDefault("index.scripts_dir", "")
	v.SetDefault("index.file_script", "")
	v.SetDefault("index.tree_cache", true)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	// Comma-separated values from env vars and flags arrive as one element.
	cfg.Index.Languages = splitList(cfg.Index.Languages)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Format {
	case "json", "text":
	default:
		return fmt.Errorf("format must be json or text, got %q", c.Format)
	}
	if c.Index.Workers < 0 {
		return errors.New("index.workers must not be negative")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// Logger builds a slog.Logger writing to w at the configured level and format.
func (c LogConfig) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
