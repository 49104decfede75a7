package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/drivemcp/drivemcp/internal/auth"
	"github.com/drivemcp/drivemcp/internal/drive"
)

// ServerContext holds the context for the MCP server. A process serves
// exactly one authenticated user; the Drive client bound to that user's
// token is created lazily on first use and cached.
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	user        string
	authService *auth.Service
	driveClient *drive.Client
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a server context bound to one authenticated user.
func NewServerContext(ctx context.Context, user string, authService *auth.Service) (*ServerContext, error) {
	if user == "" {
		return nil, fmt.Errorf("user is required")
	}
	if authService == nil {
		return nil, fmt.Errorf("auth service is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		user:        user,
		authService: authService,
	}, nil
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// User returns the authenticated user this process is bound to.
func (sc *ServerContext) User() string {
	return sc.user
}

// AuthService returns the auth service.
func (sc *ServerContext) AuthService() *auth.Service {
	return sc.authService
}

// DriveClient returns the Drive client for the bound user, creating and
// caching it on first use. The client's token source refreshes and persists
// the user's token as needed for the lifetime of the process.
func (sc *ServerContext) DriveClient() (*drive.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.driveClient != nil {
		return sc.driveClient, nil
	}

	ts, err := sc.authService.TokenSource(sc.ctx, sc.user)
	if err != nil {
		return nil, fmt.Errorf("failed to get token for user %s: %w", sc.user, err)
	}

	client, err := drive.NewClient(sc.ctx, sc.user, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client for user %s: %w", sc.user, err)
	}

	sc.driveClient = client
	return client, nil
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
