// Package config loads Lattice configuration from lattice.yml and the
// environment.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the Lattice configuration
type Config struct {
	Store StoreConfig `mapstructure:"store"`
	Index IndexConfig `mapstructure:"index"`
}

// StoreConfig selects and configures the primary object store
type StoreConfig struct {
	// Driver is "sqlite", "postgres", or "memory"
	Driver string `mapstructure:"driver"`
	// Path is the database file for sqlite (":memory:" for ephemeral)
	Path string `mapstructure:"path"`
	// URL is the connection URL for postgres
	URL string `mapstructure:"url"`
}

// IndexConfig configures the search index
type IndexConfig struct {
	// Enabled turns indexing off entirely when false
	Enabled bool `mapstructure:"enabled"`
	// Addr is the Redis server address (host:port)
	Addr string `mapstructure:"addr"`
	// Password is the Redis password (optional)
	Password string `mapstructure:"password"`
	// DB is the Redis database number
	DB int `mapstructure:"db"`
	// Prefix namespaces all index keys
	Prefix string `mapstructure:"prefix"`
}

// Default returns the built-in defaults: a local SQLite store and a local
// Redis index.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "lattice.db",
		},
		Index: IndexConfig{
			Enabled: true,
			Addr:    "localhost:6379",
			Prefix:  "lattice:",
		},
	}
}

// Load loads the configuration from lattice.yml or lattice.yaml in the
// working directory, falling back to defaults when no file exists.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads the configuration from the given directory
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "lattice.db")
	v.SetDefault("index.enabled", true)
	v.SetDefault("index.addr", "localhost:6379")
	v.SetDefault("index.db", 0)
	v.SetDefault("index.prefix", "lattice:")

	v.SetConfigName("lattice")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("LATTICE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - use defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(config *Config) error {
	switch config.Store.Driver {
	case "sqlite":
		if config.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case "postgres":
		if config.Store.URL == "" {
			return fmt.Errorf("store.url is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store driver: %s", config.Store.Driver)
	}

	if config.Index.Enabled && config.Index.Addr == "" {
		return fmt.Errorf("index.addr is required when the index is enabled")
	}
	return nil
}
