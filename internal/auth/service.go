package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/drivemcp/drivemcp/internal/credstore"
	"github.com/drivemcp/drivemcp/internal/google"
	"github.com/drivemcp/drivemcp/internal/logging"
)

// bcrypt ignores input beyond 72 bytes; longer passwords are truncated
// before hashing and verification.
const maxPasswordBytes = 72

// Status is the outcome of RegisterOrLogin.
type Status string

const (
	// StatusCreated means the account was created and authorized.
	StatusCreated Status = "created"

	// StatusLoggedIn means the existing account's password was verified.
	StatusLoggedIn Status = "logged_in"
)

// Provider abstracts the OAuth provider interactions so the service can be
// tested against a fake.
type Provider interface {
	// Authorize runs the full authorization-code flow and returns a token.
	Authorize(ctx context.Context) (*oauth2.Token, error)

	// TokenSource returns a source that refreshes the given token as needed.
	TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource
}

// GoogleProvider implements Provider against the real Google endpoints.
type GoogleProvider struct {
	conf *oauth2.Config
}

// NewGoogleProvider creates a provider for the given OAuth2 configuration.
func NewGoogleProvider(conf *oauth2.Config) *GoogleProvider {
	return &GoogleProvider{conf: conf}
}

// Authorize runs the loopback authorization-code flow.
func (p *GoogleProvider) Authorize(ctx context.Context) (*oauth2.Token, error) {
	return google.Authorize(ctx, p.conf)
}

// TokenSource returns a refreshing token source for the stored token.
func (p *GoogleProvider) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return p.conf.TokenSource(ctx, token)
}

// Service validates and creates user credentials and manages each user's
// OAuth token through the credential store.
type Service struct {
	store    *credstore.Store
	provider Provider
	logger   *slog.Logger
}

// NewService creates an auth service. A nil logger falls back to the
// default slog logger.
func NewService(store *credstore.Store, provider Provider, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		provider: provider,
		logger:   logger,
	}
}

// Store returns the underlying credential store.
func (s *Service) Store() *credstore.Store {
	return s.store
}

// RegisterOrLogin registers a new user or logs an existing one in.
//
// Unknown user: the password is hashed, the OAuth flow runs, and the
// resulting record is persisted (StatusCreated). Known user: the password
// is verified against the stored hash; on mismatch the stored record is
// left untouched and ErrInvalidCredentials is returned. A stored token
// that has expired is refreshed and persisted in place (StatusLoggedIn).
func (s *Service) RegisterOrLogin(ctx context.Context, userID, password string) (Status, error) {
	logger := logging.WithOperation(s.logger, "register_or_login")

	rec, err := s.store.Get(userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return s.register(ctx, userID, password)
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), truncatePassword(password)); err != nil {
		logger.Warn("password mismatch", logging.UserHash(userID))
		return "", ErrInvalidCredentials
	}

	// Existing user without a token: the token file was deleted after a
	// revocation. Run the authorization flow again.
	if rec.Token == nil {
		token, err := s.provider.Authorize(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		rec.Token = token
		if err := s.store.Put(userID, rec); err != nil {
			return "", err
		}
		logger.Info("re-authorized user", logging.UserHash(userID))
		return StatusLoggedIn, nil
	}

	if !rec.Token.Valid() {
		token, err := s.refresh(ctx, rec.Token)
		if err != nil {
			return "", err
		}
		rec.Token = token
		if err := s.store.Put(userID, rec); err != nil {
			return "", err
		}
		logger.Info("refreshed token on login", logging.UserHash(userID))
	}

	logger.Info("user logged in", logging.UserHash(userID), logging.Status(logging.StatusSuccess))
	return StatusLoggedIn, nil
}

// register creates the account for a previously unknown user.
func (s *Service) register(ctx context.Context, userID, password string) (Status, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	token, err := s.provider.Authorize(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	rec := &credstore.Record{
		PasswordHash: string(hash),
		Token:        token,
	}
	if err := s.store.Put(userID, rec); err != nil {
		return "", err
	}

	s.logger.Info("user created",
		logging.Operation("register_or_login"),
		logging.UserHash(userID),
	)
	return StatusCreated, nil
}

// CurrentToken returns a valid token for the user, refreshing and
// persisting it when the stored one has expired.
func (s *Service) CurrentToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	rec, err := s.store.Get(userID)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.Token == nil {
		return nil, ErrReauthRequired
	}

	if rec.Token.Valid() {
		return rec.Token, nil
	}

	token, err := s.refresh(ctx, rec.Token)
	if err != nil {
		return nil, err
	}

	rec.Token = token
	if err := s.store.Put(userID, rec); err != nil {
		return nil, err
	}

	return token, nil
}

// TokenSource returns a token source bound to the user that persists
// refreshed tokens back to the credential store whenever they rotate.
func (s *Service) TokenSource(ctx context.Context, userID string) (oauth2.TokenSource, error) {
	token, err := s.CurrentToken(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		base:   s.provider.TokenSource(ctx, token),
		svc:    s,
		userID: userID,
		last:   token,
	}, nil
}

// refresh exchanges an expired token for a fresh one via the provider.
func (s *Service) refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := s.provider.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}
	return fresh, nil
}

// classifyTokenError maps provider errors to the auth error taxonomy.
// A revoked refresh token comes back as an invalid_grant OAuth error;
// everything else is treated as the provider being unavailable.
func classifyTokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
		return fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}

// truncatePassword caps the password at bcrypt's input limit.
func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// persistingTokenSource wraps a refreshing token source and writes rotated
// tokens back to the credential store, so a refresh that happens during a
// long-running serve session survives a restart.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	svc    *Service
	userID string

	mu   sync.Mutex
	last *oauth2.Token
}

func (ts *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := ts.base.Token()
	if err != nil {
		return nil, classifyTokenError(err)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.last == nil || token.AccessToken != ts.last.AccessToken {
		rec, err := ts.svc.store.Get(ts.userID)
		if err == nil {
			rec.Token = token
			if putErr := ts.svc.store.Put(ts.userID, rec); putErr != nil {
				ts.svc.logger.Warn("failed to persist refreshed token",
					logging.UserHash(ts.userID), logging.Err(putErr))
			} else {
				ts.svc.logger.Debug("persisted rotated token",
					logging.UserHash(ts.userID),
					slog.String("access_token", logging.SanitizeToken(token.AccessToken)))
			}
		}
		ts.last = token
	}

	return token, nil
}
