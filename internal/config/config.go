package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Log       LogConfig       `yaml:"log"`
	Transport TransportConfig `yaml:"transport"`
	Auth      AuthConfig      `yaml:"auth"`
	Vesting   VestingConfig   `yaml:"vesting"`
	Assets    AssetsConfig    `yaml:"assets"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// TransportConfig selects how MCP clients connect: "http" or "stdio".
type TransportConfig struct {
	Mode string `yaml:"mode"`
}

// AuthConfig controls bearer token authentication. With auth disabled every
// call runs as DefaultIdentity unless the request names its caller.
type AuthConfig struct {
	Enabled         bool   `yaml:"enabled"`
	DefaultIdentity string `yaml:"default_identity"`
}

// VestingConfig holds defaults for new instances.
type VestingConfig struct {
	Duration    time.Duration `yaml:"duration"`
	MaxLeadTime time.Duration `yaml:"max_lead_time"`
}

// AssetsConfig controls the custody helpers.
type AssetsConfig struct {
	Faucet bool `yaml:"faucet"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "vestline.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		Auth: AuthConfig{
			Enabled:         true,
			DefaultIdentity: "local",
		},
		Vesting: VestingConfig{
			Duration:    730 * 24 * time.Hour,
			MaxLeadTime: 90 * 24 * time.Hour,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("VESTLINE_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("VESTLINE_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("VESTLINE_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VESTLINE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("VESTLINE_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("VESTLINE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("VESTLINE_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	if mode := os.Getenv("VESTLINE_TRANSPORT"); mode != "" {
		cfg.Transport.Mode = mode
	}
	if authStr := os.Getenv("VESTLINE_AUTH_ENABLED"); authStr != "" {
		enabled, err := strconv.ParseBool(authStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VESTLINE_AUTH_ENABLED: %w", err)
		}
		cfg.Auth.Enabled = enabled
	}
	if identity := os.Getenv("VESTLINE_DEFAULT_IDENTITY"); identity != "" {
		cfg.Auth.DefaultIdentity = identity
	}
	if faucetStr := os.Getenv("VESTLINE_ASSETS_FAUCET"); faucetStr != "" {
		faucet, err := strconv.ParseBool(faucetStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid VESTLINE_ASSETS_FAUCET: %w", err)
		}
		cfg.Assets.Faucet = faucet
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.Transport.Mode != "http" && c.Transport.Mode != "stdio" {
		return fmt.Errorf("invalid transport mode %q: want http or stdio", c.Transport.Mode)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Vesting.Duration < time.Second {
		return fmt.Errorf("vesting duration must be at least one second")
	}
	if c.Vesting.MaxLeadTime < 0 {
		return fmt.Errorf("vesting max lead time must not be negative")
	}
	if c.Auth.DefaultIdentity == "" {
		return fmt.Errorf("auth default identity must not be empty")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
