package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Environment variables for the OAuth client descriptor.
const (
	EnvClientID        = "GOOGLE_CLIENT_ID"
	EnvClientSecret    = "GOOGLE_CLIENT_SECRET"
	EnvCredentialsFile = "GOOGLE_CREDENTIALS_FILE"
	EnvOAuthPort       = "GOOGLE_OAUTH_PORT"
)

// DefaultOAuthPort is the loopback port the authorization flow listens on
// when GOOGLE_OAUTH_PORT is not set.
const DefaultOAuthPort = "8080"

// LoadConfig builds the OAuth2 configuration for Google Drive.
//
// It prefers GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET from the environment and
// falls back to a client-secrets JSON file (GOOGLE_CREDENTIALS_FILE) in the
// layout produced by the Google Cloud console.
func LoadConfig() (*oauth2.Config, error) {
	clientID := os.Getenv(EnvClientID)
	clientSecret := os.Getenv(EnvClientSecret)
	if clientID != "" && clientSecret != "" {
		return &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       DefaultOAuthScopes,
		}, nil
	}

	credsFile := os.Getenv(EnvCredentialsFile)
	if credsFile == "" {
		return nil, fmt.Errorf("no OAuth client configured: set %s and %s, or %s",
			EnvClientID, EnvClientSecret, EnvCredentialsFile)
	}

	data, err := os.ReadFile(credsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", credsFile, err)
	}

	conf, err := google.ConfigFromJSON(data, DefaultOAuthScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", credsFile, err)
	}

	return conf, nil
}

// oauthPort returns the loopback port for the authorization flow.
func oauthPort() string {
	if port := os.Getenv(EnvOAuthPort); port != "" {
		return port
	}
	return DefaultOAuthPort
}

// Authorize runs the authorization-code flow against Google and returns the
// resulting token. It starts a loopback HTTP listener for the redirect,
// prints the authorization URL for the user to open in a browser, and blocks
// until the code arrives or ctx is cancelled.
//
// Offline access is requested so the token carries a refresh token.
func Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	port := oauthPort()

	listener, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on OAuth redirect port %s: %w", port, err)
	}
	defer listener.Close()

	flowConf := *conf
	flowConf.RedirectURL = fmt.Sprintf("http://localhost:%s/", port)

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	authURL := flowConf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/", redirectHandler(state, codeCh, errCh))

	httpServer := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("waiting for Google authorization", "url", authURL)
	fmt.Printf("Open the following URL in your browser to authorize Google Drive access:\n\n  %s\n\n", authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	token, err := flowConf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	return token, nil
}

// redirectHandler handles the OAuth redirect on the loopback listener.
// Only requests that actually carry a code or error parameter are treated
// as the redirect; anything else (favicon fetches, preconnects, port
// scanners) gets a 404 and the flow keeps waiting. The flow fails only on
// a provider error or a real redirect with a bad state.
func redirectHandler(state string, codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	fail := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("code") == "" && q.Get("error") == "" {
			http.NotFound(w, r)
			return
		}

		if errMsg := q.Get("error"); errMsg != "" {
			http.Error(w, "Authorization failed: "+errMsg, http.StatusBadRequest)
			fail(fmt.Errorf("authorization denied by provider: %s", errMsg))
			return
		}
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			fail(fmt.Errorf("state mismatch in OAuth redirect"))
			return
		}

		fmt.Fprintln(w, "Authorization complete. You can close this window.")
		select {
		case codeCh <- q.Get("code"):
		default:
		}
	}
}

// randomState generates an unguessable state parameter for the flow.
func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
