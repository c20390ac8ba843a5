package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 8080
	}
	if cfg.Auth.Secret == "" {
		if v := os.Getenv("CODELOOM_AUTH_SECRET"); v != "" {
			cfg.Auth.Secret = v
		} else {
			cfg.Auth.Secret = "dev-secret"
		}
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = Duration(24 * time.Hour)
	}
	if cfg.Generation.Pace == 0 {
		cfg.Generation.Pace = Duration(100 * time.Millisecond)
	}
	if cfg.Generation.TaskTTL == 0 {
		cfg.Generation.TaskTTL = Duration(time.Hour)
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "codeloom.db"
	}
}
