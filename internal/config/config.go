// Package config loads the termgate.yaml configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level termgate configuration document.
type Config struct {
	Auth    AuthConfig    `yaml:"auth"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

// AuthConfig controls the login gate behavior.
type AuthConfig struct {
	// MaxAttempts is the consecutive-failure lockout threshold.
	MaxAttempts int `yaml:"max_attempts"`
	// MinPasswordLength applies to newly created or changed passwords only;
	// existing records always verify.
	MinPasswordLength int `yaml:"min_password_length"`
}

// StorageConfig controls where the credential file and audit database live.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig controls diagnostic log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Auth: AuthConfig{
			MaxAttempts:       3,
			MinPasswordLength: 8,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads and parses a YAML configuration file over the defaults.
// Environment variables referenced as ${VAR_NAME} are expanded before
// parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	content := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if cfg.Auth.MaxAttempts <= 0 {
		cfg.Auth.MaxAttempts = Default().Auth.MaxAttempts
	}
	return &cfg, nil
}
