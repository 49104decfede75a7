package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/drivemcp/drivemcp/internal/server"
	"github.com/drivemcp/drivemcp/internal/tools/drive_tools"
)

// EnvPassword supplies the bound user's password non-interactively.
const EnvPassword = "DRIVEMCP_PASSWORD"

// serveConfig holds the resolved settings for the serve command.
type serveConfig struct {
	user             string
	transport        string
	httpAddr         string
	credentialsDir   string
	yolo             bool
	disableStreaming bool
	debug            bool
	metricsEnabled   bool
	metricsAddr      string
}

func newServeCmd() *cobra.Command {
	var cfg serveConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server for one registered user",
		Long: `Start the Model Context Protocol (MCP) server exposing Google Drive tools.

The server binds to exactly one user for its whole lifetime. The user is
verified at startup: their password must match the stored credentials, and
an unknown user is registered through the Google consent flow first.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (folder creation,
  file writes).

The password is read from the DRIVEMCP_PASSWORD environment variable, or
prompted on the terminal for HTTP transports. With stdio transport the
environment variable is required, as stdin belongs to the MCP client.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.user, "user", "", "User to bind the server to (required)")
	cmd.Flags().StringVar(&cfg.transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&cfg.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&cfg.credentialsDir, "credentials-dir", "", "Credential store directory. Can also use DRIVEMCP_CREDENTIALS_DIR env var. Defaults to the user config directory.")
	cmd.Flags().BoolVar(&cfg.yolo, "yolo", false, "Enable write operations (folder creation, file writes). Default is read-only mode.")
	cmd.Flags().BoolVar(&cfg.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().BoolVar(&cfg.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&cfg.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (HTTP transport only)")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runServe(cfg serveConfig) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := setupLogging(cfg.debug)

	if addr := os.Getenv("METRICS_ADDR"); addr != "" && cfg.metricsAddr == server.DefaultMetricsAddr {
		cfg.metricsAddr = addr
	}

	authService, err := newAuthService(cfg.credentialsDir, logger)
	if err != nil {
		return err
	}

	password, err := readPassword(cfg.transport)
	if err != nil {
		return err
	}

	// Verify the user before serving anything. An unknown user goes through
	// registration, which blocks on the browser consent flow.
	status, err := authService.RegisterOrLogin(shutdownCtx, cfg.user, password)
	if err != nil {
		return fmt.Errorf("failed to authenticate user %s: %w", cfg.user, err)
	}
	logger.Info("user bound to server", "user", cfg.user, "result", string(status))

	serverContext, err := server.NewServerContext(shutdownCtx, cfg.user, authService)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", "error", err)
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if cfg.transport != "stdio" && cfg.metricsEnabled {
		metricsServer = server.NewMetricsServer(cfg.metricsAddr)
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("error during metrics server shutdown", "error", err)
			}
		}()
	}

	mcpSrv := mcpserver.NewMCPServer("drivemcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	// readOnly is the inverse of yolo
	readOnly := !cfg.yolo
	if readOnly {
		logger.Info("starting server in READ-ONLY mode (use --yolo to enable write operations)")
	} else {
		logger.Info("starting server with WRITE operations enabled (--yolo flag is set)")
	}

	if err := drive_tools.RegisterDriveTools(mcpSrv, serverContext, readOnly); err != nil {
		return fmt.Errorf("failed to register Drive tools: %w", err)
	}

	switch cfg.transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, cfg, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", cfg.transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, serverContext *server.ServerContext, cfg serveConfig, logger *slog.Logger) error {
	healthChecker := server.NewHealthChecker(serverContext)

	httpServer := server.NewHTTPServer(mcpSrv, healthChecker, server.HTTPServerConfig{
		Addr:             cfg.httpAddr,
		DisableStreaming: cfg.disableStreaming,
	}, logger)

	logger.Info("streamable HTTP server starting",
		"addr", cfg.httpAddr,
		"mcp_endpoint", "/mcp",
		"health_endpoints", "/healthz, /readyz",
	)

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		healthChecker.SetReady(false)
		if err := httpServer.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	return nil
}

// readPassword resolves the bound user's password. The environment variable
// wins; a terminal prompt is the fallback except with stdio transport, where
// stdin carries the MCP protocol.
func readPassword(transport string) (string, error) {
	if password := os.Getenv(EnvPassword); password != "" {
		return password, nil
	}
	if transport == "stdio" {
		return "", fmt.Errorf("%s must be set when using stdio transport", EnvPassword)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}
