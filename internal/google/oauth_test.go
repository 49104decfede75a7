package google

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvClientID, "test-client-id.apps.googleusercontent.com")
	t.Setenv(EnvClientSecret, "test-secret")
	t.Setenv(EnvCredentialsFile, "")

	conf, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if conf.ClientID != "test-client-id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", conf.ClientID)
	}
	if conf.ClientSecret != "test-secret" {
		t.Errorf("ClientSecret = %q", conf.ClientSecret)
	}
	if len(conf.Scopes) != len(DefaultOAuthScopes) {
		t.Errorf("expected %d scopes, got %d", len(DefaultOAuthScopes), len(conf.Scopes))
	}
	if conf.Endpoint.AuthURL == "" || conf.Endpoint.TokenURL == "" {
		t.Error("expected Google endpoint to be set")
	}
}

func TestLoadConfigFromCredentialsFile(t *testing.T) {
	secrets := `{
	  "installed": {
	    "client_id": "file-client-id.apps.googleusercontent.com",
	    "client_secret": "file-secret",
	    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
	    "token_uri": "https://oauth2.googleapis.com/token",
	    "redirect_uris": ["http://localhost"]
	  }
	}`

	path := filepath.Join(t.TempDir(), "client_secrets.json")
	if err := os.WriteFile(path, []byte(secrets), 0o600); err != nil {
		t.Fatalf("failed to write secrets file: %v", err)
	}

	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")
	t.Setenv(EnvCredentialsFile, path)

	conf, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if conf.ClientID != "file-client-id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", conf.ClientID)
	}
	if conf.ClientSecret != "file-secret" {
		t.Errorf("ClientSecret = %q", conf.ClientSecret)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")
	t.Setenv(EnvCredentialsFile, "")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() expected error when nothing is configured")
	}
}

func TestLoadConfigBadCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("failed to write secrets file: %v", err)
	}

	t.Setenv(EnvClientID, "")
	t.Setenv(EnvClientSecret, "")
	t.Setenv(EnvCredentialsFile, path)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() expected error for malformed credentials file")
	}
}

func TestRandomState(t *testing.T) {
	a, err := randomState()
	if err != nil {
		t.Fatalf("randomState() error: %v", err)
	}
	b, err := randomState()
	if err != nil {
		t.Fatalf("randomState() error: %v", err)
	}
	if a == b {
		t.Error("randomState() returned the same value twice")
	}
	if len(a) < 16 {
		t.Errorf("state too short: %q", a)
	}
}

func TestRedirectHandlerIgnoresStrayRequests(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	handler := redirectHandler("expected-state", codeCh, errCh)

	// Browsers and scanners hit the loopback port with requests that are
	// not the redirect. None of them may abort the pending flow.
	for _, target := range []string{"/favicon.ico", "/", "/robots.txt", "/?state=expected-state"} {
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, target, nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s: expected 404, got %d", target, rec.Code)
		}
	}

	select {
	case err := <-errCh:
		t.Fatalf("stray request aborted the flow: %v", err)
	case code := <-codeCh:
		t.Fatalf("stray request produced a code: %q", code)
	default:
	}
}

func TestRedirectHandlerDeliversCode(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	handler := redirectHandler("expected-state", codeCh, errCh)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/?state=expected-state&code=auth-code-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	select {
	case code := <-codeCh:
		if code != "auth-code-1" {
			t.Errorf("code = %q, expected auth-code-1", code)
		}
	default:
		t.Fatal("expected code to be delivered")
	}
}

func TestRedirectHandlerStateMismatch(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	handler := redirectHandler("expected-state", codeCh, errCh)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/?state=forged&code=auth-code-1", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	select {
	case err := <-errCh:
		if !strings.Contains(err.Error(), "state mismatch") {
			t.Errorf("expected state mismatch error, got %v", err)
		}
	default:
		t.Fatal("expected the flow to fail on a forged state")
	}

	select {
	case code := <-codeCh:
		t.Fatalf("forged redirect produced a code: %q", code)
	default:
	}
}

func TestRedirectHandlerProviderError(t *testing.T) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	handler := redirectHandler("expected-state", codeCh, errCh)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/?error=access_denied", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	select {
	case err := <-errCh:
		if !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("expected provider error, got %v", err)
		}
	default:
		t.Fatal("expected the flow to fail on a provider error")
	}
}

func TestOAuthPortDefault(t *testing.T) {
	t.Setenv(EnvOAuthPort, "")
	if got := oauthPort(); got != DefaultOAuthPort {
		t.Errorf("oauthPort() = %q, expected %q", got, DefaultOAuthPort)
	}

	t.Setenv(EnvOAuthPort, "9123")
	if got := oauthPort(); got != "9123" {
		t.Errorf("oauthPort() = %q, expected 9123", got)
	}
}
