package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/drivemcp/drivemcp/internal/auth"
	"github.com/drivemcp/drivemcp/internal/logging"
)

const (
	// DefaultAuthAddr is the default listen address for the auth front-end.
	DefaultAuthAddr = ":9000"

	// authReadHeaderTimeout bounds how long a client may take to send headers.
	authReadHeaderTimeout = 10 * time.Second

	// authShutdownTimeout bounds graceful shutdown of in-flight requests.
	authShutdownTimeout = 5 * time.Second
)

// AuthServer is the HTTP front-end for registering users and provisioning
// their OAuth tokens. It runs separately from the MCP transport so that
// credentials can be set up before any tool server process is started.
type AuthServer struct {
	authService *auth.Service
	logger      *slog.Logger
	httpServer  *http.Server
	addr        string
}

// NewAuthServer creates an auth front-end listening on addr.
// A nil logger falls back to the default slog logger.
func NewAuthServer(addr string, authService *auth.Service, logger *slog.Logger) *AuthServer {
	if addr == "" {
		addr = DefaultAuthAddr
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthServer{
		authService: authService,
		logger:      logger,
		addr:        addr,
	}
}

// authRequest is the body of POST /auth.
type authRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

// authResponse is the body of a successful POST /auth.
type authResponse struct {
	Message string `json:"message"`
}

// errorResponse is the body of any failed request.
type errorResponse struct {
	Error string `json:"error"`
}

// statusResponse is the body of GET /health.
type statusResponse struct {
	Status          string `json:"status"`
	UsersRegistered int    `json:"users_registered"`
	CredentialsDir  string `json:"credentials_dir"`
}

// Handler returns the HTTP handler for the auth front-end.
func (s *AuthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", s.handleAuth)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

// handleAuth registers a new user or verifies an existing one. Registration
// triggers the interactive OAuth flow, so this request can block until the
// user completes consent in the browser.
func (s *AuthServer) handleAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.UserID == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id and password are required"})
		return
	}

	logger := logging.WithOperation(s.logger, "auth_endpoint")

	status, err := s.authService.RegisterOrLogin(r.Context(), req.UserID, req.Password)
	if err != nil {
		ObserveAuthAttempt(logging.StatusError)
		logger.Warn("authentication failed", logging.UserHash(req.UserID), logging.Err(err))

		// A revoked refresh token cannot recover on its own. Clear the
		// stored record so the next attempt re-runs registration and the
		// consent flow.
		if errors.Is(err, auth.ErrReauthRequired) {
			if delErr := s.authService.Store().Delete(req.UserID); delErr != nil {
				logger.Warn("failed to clear revoked credentials", logging.UserHash(req.UserID), logging.Err(delErr))
			} else {
				logger.Info("cleared revoked credentials", logging.UserHash(req.UserID))
			}
		}

		writeJSON(w, authErrorCode(err), errorResponse{Error: authErrorMessage(err)})
		return
	}

	ObserveAuthAttempt(string(status))
	logger.Info("authentication succeeded",
		logging.UserHash(req.UserID),
		slog.String("result", string(status)),
	)

	writeJSON(w, http.StatusOK, authResponse{Message: authMessage(status, req.UserID)})
}

// handleHealth reports liveness plus how many users have credentials stored.
func (s *AuthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	store := s.authService.Store()
	count, err := store.Count()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read credential store"})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:          healthStatusOK,
		UsersRegistered: count,
		CredentialsDir:  store.Dir(),
	})
}

// handleRoot gives a short usage hint for anyone poking the port.
func (s *AuthServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "drivemcp auth",
		"usage":   `POST /auth with {"user_id": "...", "password": "..."}`,
	})
}

// Start starts the auth server in a blocking manner.
func (s *AuthServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: authReadHeaderTimeout,
	}

	s.logger.Info("starting auth server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the auth server.
func (s *AuthServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("shutting down auth server")

	shutdownCtx, cancel := context.WithTimeout(ctx, authShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// authErrorCode maps auth service errors onto HTTP status codes.
func authErrorCode(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrReauthRequired):
		return http.StatusConflict
	case errors.Is(err, auth.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// authErrorMessage returns the client-facing message for an auth failure.
// Internal detail stays in the logs.
func authErrorMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, auth.ErrReauthRequired):
		return "authorization revoked, stored credentials cleared; authenticate again to re-authorize"
	case errors.Is(err, auth.ErrProviderUnavailable):
		return "authorization provider unavailable"
	default:
		return "internal error"
	}
}

// authMessage renders the success message for a register/login outcome.
func authMessage(status auth.Status, userID string) string {
	if status == auth.StatusCreated {
		return fmt.Sprintf("User %s registered and authorized successfully", userID)
	}
	return fmt.Sprintf("User %s logged in successfully", userID)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
