// Package config loads the server configuration.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Gateway    GatewayConfig    `yaml:"gateway"`
	Auth       AuthConfig       `yaml:"auth"`
	Generation GenerationConfig `yaml:"generation"`
	Preview    PreviewConfig    `yaml:"preview"`
	Storage    StorageConfig    `yaml:"storage"`
}

// GatewayConfig holds the HTTP server settings.
type GatewayConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// AuthConfig configures token issuance and verification.
type AuthConfig struct {
	Secret   string   `yaml:"secret"`
	TokenTTL Duration `yaml:"token_ttl"`
}

// GenerationConfig tunes the task runner.
type GenerationConfig struct {
	// Pace is the delay between emitted events. Policy knob, not a
	// correctness requirement.
	Pace Duration `yaml:"pace"`
	// TaskTTL controls eviction of finished tasks. Zero disables it.
	TaskTTL Duration `yaml:"task_ttl"`
}

// PreviewConfig tunes reload broadcasting.
type PreviewConfig struct {
	// Coalesce reruns a broadcast that arrived while a pass was in flight
	// instead of dropping it.
	Coalesce bool `yaml:"coalesce"`
}

// StorageConfig locates the project database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// Duration wraps time.Duration for YAML unmarshaling.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}
