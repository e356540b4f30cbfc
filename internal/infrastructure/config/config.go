// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Costing CostingConfig `mapstructure:"costing"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Storage StorageConfig `mapstructure:"storage"`
	Watcher WatcherConfig `mapstructure:"watcher"`
	Server  ServerConfig  `mapstructure:"server"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name      string `mapstructure:"name"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Debug     bool   `mapstructure:"debug"`
}

// CostingConfig drives the cost and margin engine
type CostingConfig struct {
	VAT                     float64 `mapstructure:"vat"`
	MarginTarget            int     `mapstructure:"margin_target"`
	DefaultPriceIncludesVAT bool    `mapstructure:"default_price_includes_vat"`
}

// PathsConfig locates the project tree and the store
type PathsConfig struct {
	ProjectRoot string `mapstructure:"project_root"`
	Database    string `mapstructure:"database"`
}

// StorageConfig selects where entity files live
type StorageConfig struct {
	Mode string `mapstructure:"mode"` // filesystem or database-only
}

// WatcherConfig tunes the file watcher
type WatcherConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("platewise")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/platewise")
	}

	// Enable environment variable override
	v.SetEnvPrefix("PLATEWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Platewise")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "console")
	v.SetDefault("app.debug", false)

	// Costing defaults; VAT is the UK standard rate
	v.SetDefault("costing.vat", 0.2)
	v.SetDefault("costing.margin_target", 65)
	v.SetDefault("costing.default_price_includes_vat", true)

	// Paths defaults
	v.SetDefault("paths.project_root", ".")
	v.SetDefault("paths.database", "platewise.db")

	// Storage defaults
	v.SetDefault("storage.mode", "filesystem")

	// Watcher defaults
	v.SetDefault("watcher.enabled", true)
	v.SetDefault("watcher.debounce", "150ms")

	// Server defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8143)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "30s")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Costing.VAT < 0 || c.Costing.VAT > 1 {
		return fmt.Errorf("costing.vat must be a fraction between 0 and 1")
	}

	if c.Costing.MarginTarget < 0 || c.Costing.MarginTarget > 100 {
		return fmt.Errorf("costing.margin_target must be between 0 and 100")
	}

	switch c.Storage.Mode {
	case "filesystem", "database-only":
	default:
		return fmt.Errorf("storage.mode must be filesystem or database-only")
	}

	if c.Watcher.Debounce <= 0 {
		return fmt.Errorf("watcher.debounce must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	return nil
}
