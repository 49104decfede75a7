package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNotFound is returned by Get when no record exists for the user.
var ErrNotFound = errors.New("user not found")

// Record is the on-disk credential record for one user.
type Record struct {
	// PasswordHash is the bcrypt hash of the user's password
	PasswordHash string `json:"passwordHash"`

	// Token is the user's Google OAuth token (access, refresh, expiry)
	Token *oauth2.Token `json:"token,omitempty"`
}

// Store reads and writes credential records under a single directory.
// Writes are serialized with a mutex; the rename at the end of Put is
// atomic so concurrent readers never observe a partial record.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("credential store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credential store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Get loads the record for userID. Returns ErrNotFound if no record exists;
// a corrupt file surfaces as a deserialization error.
func (s *Store) Get(userID string) (*Record, error) {
	path, err := s.path(userID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read credentials for %s: %w", userID, err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to deserialize credentials for %s: %w", userID, err)
	}

	return &rec, nil
}

// Put persists the record for userID, replacing any existing one.
func (s *Store) Put(userID string, rec *Record) error {
	path, err := s.path(userID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize credentials for %s: %w", userID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(s.dir, "."+userID+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials for %s: %w", userID, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credential file mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush credentials for %s: %w", userID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to persist credentials for %s: %w", userID, err)
	}

	return nil
}

// Delete removes the record for userID. Deleting an absent record is not an
// error, so callers can use it to force re-authentication unconditionally.
func (s *Store) Delete(userID string) error {
	path, err := s.path(userID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete credentials for %s: %w", userID, err)
	}
	return nil
}

// List returns the user ids with stored credentials, sorted.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list credential store: %w", err)
	}

	var users []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		users = append(users, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(users)
	return users, nil
}

// Count returns the number of users with stored credentials.
func (s *Store) Count() (int, error) {
	users, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// path validates the user id and returns its credential file path.
// The id must not be empty or contain path separators, so a crafted id can
// never escape the store directory.
func (s *Store) path(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required")
	}
	if strings.ContainsAny(userID, `/\`) || userID == "." || userID == ".." {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return filepath.Join(s.dir, userID+".json"), nil
}
