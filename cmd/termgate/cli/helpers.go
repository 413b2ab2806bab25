package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/termgate/termgate/internal/audit"
	"github.com/termgate/termgate/internal/config"
	"github.com/termgate/termgate/internal/store"
)

// dataDir holds the --data-dir persistent flag value (set on root command).
var dataDir string

// resolveDataDir returns the data directory from --data-dir flag, config,
// TERMGATE_DATA_DIR env var, or ~/.termgate as fallback.
func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if cfgDir := viper.GetString("storage.data_dir"); cfgDir != "" {
		return cfgDir
	}
	if envDir := os.Getenv("TERMGATE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".termgate")
}

// loadConfig returns the effective configuration: the file viper located
// (if any) parsed over the defaults.
func loadConfig() (config.Config, error) {
	if path := viper.ConfigFileUsed(); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		return *cfg, nil
	}
	return config.Default(), nil
}

// maxAttempts resolves the lockout threshold: TERMGATE_AUTH_MAX_ATTEMPTS /
// config file via viper, falling back to the loaded config value.
func maxAttempts(cfg config.Config) int {
	if n := viper.GetInt("auth.max_attempts"); n > 0 {
		return n
	}
	return cfg.Auth.MaxAttempts
}

// newLogger builds the diagnostic slog logger from the logging config.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openCredentialStore opens the JSON credential store under the resolved
// data dir.
func openCredentialStore(logger *slog.Logger) (*store.Store, error) {
	s, err := store.New(resolveDataDir(), logger)
	if err != nil {
		return nil, fmt.Errorf("open credential store: %w", err)
	}
	return s, nil
}

// openAuditStore opens the SQLite audit store under the resolved data dir.
func openAuditStore(logger *slog.Logger) (*audit.Store, error) {
	s, err := audit.NewStore(resolveDataDir(), logger)
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	return s, nil
}

// readPassword prompts for a password with terminal echo disabled.
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pwBytes), nil
}

// promptNewPassword prompts for a password and its confirmation, enforcing
// the configured minimum length.
func promptNewPassword(minLength int) (string, error) {
	password, err := readPassword("Password: ")
	if err != nil {
		return "", err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if password != confirm {
		return "", store.ErrMismatch
	}
	if len(password) < minLength {
		return "", fmt.Errorf("password must be at least %d characters", minLength)
	}
	return password, nil
}
