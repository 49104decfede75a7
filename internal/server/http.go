package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
)

const (
	// DefaultHTTPAddr is the default listen address for the MCP HTTP transport.
	DefaultHTTPAddr = ":8080"

	// httpReadHeaderTimeout bounds how long a client may take to send headers.
	httpReadHeaderTimeout = 10 * time.Second

	// httpShutdownTimeout bounds graceful shutdown of in-flight requests.
	httpShutdownTimeout = 10 * time.Second
)

// HTTPServerConfig configures the MCP HTTP transport.
type HTTPServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// DisableStreaming forces plain request/response JSON instead of SSE
	// streaming on the MCP endpoint.
	DisableStreaming bool
}

// HTTPServer serves the MCP server over streamable HTTP on /mcp, with
// health endpoints alongside on the same listener.
type HTTPServer struct {
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	logger     *slog.Logger
	config     HTTPServerConfig
	httpServer *http.Server
}

// NewHTTPServer creates the HTTP transport for an MCP server.
// A nil logger falls back to the default slog logger.
func NewHTTPServer(mcpSrv *mcpserver.MCPServer, health *HealthChecker, config HTTPServerConfig, logger *slog.Logger) *HTTPServer {
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPServer{
		mcpServer: mcpSrv,
		health:    health,
		logger:    logger,
		config:    config,
	}
}

// Handler builds the HTTP handler serving the MCP endpoint and health checks.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	var streamable http.Handler
	if s.config.DisableStreaming {
		streamable = mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
			mcpserver.WithDisableStreaming(true),
		)
	} else {
		streamable = mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
	}
	mux.Handle("/mcp", streamable)

	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	}

	return mux
}

// Start starts the HTTP transport in a blocking manner.
func (s *HTTPServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: httpReadHeaderTimeout,
	}

	s.logger.Info("starting MCP HTTP server",
		"addr", s.config.Addr,
		"streaming", !s.config.DisableStreaming,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("MCP HTTP server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP transport.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down MCP HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, httpShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}
