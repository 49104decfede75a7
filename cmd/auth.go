package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drivemcp/drivemcp/internal/server"
)

func newAuthCmd() *cobra.Command {
	var (
		addr           string
		credentialsDir string
		debug          bool
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Start the HTTP authentication front-end",
		Long: `Start the HTTP server where users register for Drive access.

POST /auth with {"user_id": "...", "password": "..."} registers a new user
or verifies an existing one. Registration runs the Google OAuth consent
flow: the server prints an authorization URL, and the request completes
once consent is granted in the browser.

GET /health reports how many users have stored credentials.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuth(addr, credentialsDir, debug)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAuthAddr, "Listen address for the auth server")
	cmd.Flags().StringVar(&credentialsDir, "credentials-dir", "", "Credential store directory. Can also use DRIVEMCP_CREDENTIALS_DIR env var. Defaults to the user config directory.")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

func runAuth(addr, credentialsDir string, debug bool) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := setupLogging(debug)

	authService, err := newAuthService(credentialsDir, logger)
	if err != nil {
		return err
	}

	authServer := server.NewAuthServer(addr, authService, logger)

	logger.Info("auth server starting",
		"addr", addr,
		"credentials_dir", authService.Store().Dir(),
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := authServer.Start(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, stopping auth server")
		if err := authServer.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("error shutting down auth server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("auth server stopped with error: %w", err)
		}
	}

	return nil
}
