package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/drivemcp/drivemcp/internal/auth"
	"github.com/drivemcp/drivemcp/internal/credstore"
	"github.com/drivemcp/drivemcp/internal/google"
)

// resolveCredentialsDir picks the credential store location: an explicit
// flag wins, then the environment, then the per-user config directory.
func resolveCredentialsDir(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if dir := os.Getenv(EnvCredentialsDir); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user config directory: %w", err)
	}
	return filepath.Join(configDir, "drivemcp", "credentials"), nil
}

// newAuthService wires the credential store and OAuth provider into an
// auth service. The OAuth client configuration comes from the environment.
func newAuthService(credentialsDir string, logger *slog.Logger) (*auth.Service, error) {
	dir, err := resolveCredentialsDir(credentialsDir)
	if err != nil {
		return nil, err
	}

	store, err := credstore.New(dir)
	if err != nil {
		return nil, err
	}

	conf, err := google.LoadConfig()
	if err != nil {
		return nil, err
	}

	return auth.NewService(store, auth.NewGoogleProvider(conf), logger), nil
}

// setupLogging configures the default slog logger. MCP stdio transport
// owns stdout, so logs always go to stderr.
func setupLogging(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
