package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "LIBRARY"

// Config is the top-level lending-library configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`

	// Path is the file the config was read from (or would be), never written.
	Path string `mapstructure:"-" yaml:"-"`
}

// DatabaseConfig selects the record store backend.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"` // "sqlite3" or "postgres"
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"` // "table" or "json"
	Color  bool   `mapstructure:"color" yaml:"color"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "lending-library", "config.yml")
}

// Load reads the config from path, the LIBRARY_CONFIG env var or the default
// path, in that order, then applies LIBRARY_* env overrides. A missing file
// is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "library.db")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("output.format", "table")
	v.SetDefault("output.color", true)
	v.SetDefault("tracing.enabled", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv(envPrefix + "_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Path = path
	cfg.Database.DSN = ExpandHome(cfg.Database.DSN)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or postgres, got %q", c.Database.Driver)
	}
	switch c.Output.Format {
	case "table", "json":
	default:
		return fmt.Errorf("output.format must be table or json, got %q", c.Output.Format)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Save writes cfg as YAML to cfg.Path, or the default path when unset.
func Save(cfg *Config) error {
	path := cfg.Path
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(cfg)
}

// ExpandHome expands a leading ~/ in a path.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
