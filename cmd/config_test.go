package cmd

import (
	"path/filepath"
	"testing"
)

func TestResolveCredentialsDirFlagWins(t *testing.T) {
	t.Setenv(EnvCredentialsDir, "/env/creds")

	dir, err := resolveCredentialsDir("/flag/creds")
	if err != nil {
		t.Fatalf("resolveCredentialsDir() error = %v", err)
	}
	if dir != "/flag/creds" {
		t.Errorf("Expected flag value to win, got %s", dir)
	}
}

func TestResolveCredentialsDirFromEnv(t *testing.T) {
	t.Setenv(EnvCredentialsDir, "/env/creds")

	dir, err := resolveCredentialsDir("")
	if err != nil {
		t.Fatalf("resolveCredentialsDir() error = %v", err)
	}
	if dir != "/env/creds" {
		t.Errorf("Expected env value, got %s", dir)
	}
}

func TestResolveCredentialsDirDefault(t *testing.T) {
	t.Setenv(EnvCredentialsDir, "")

	dir, err := resolveCredentialsDir("")
	if err != nil {
		t.Fatalf("resolveCredentialsDir() error = %v", err)
	}
	if filepath.Base(dir) != "credentials" {
		t.Errorf("Expected default path ending in credentials, got %s", dir)
	}
}

func TestReadPasswordFromEnv(t *testing.T) {
	t.Setenv(EnvPassword, "hunter2")

	password, err := readPassword("stdio")
	if err != nil {
		t.Fatalf("readPassword() error = %v", err)
	}
	if password != "hunter2" {
		t.Errorf("Expected password from environment, got %q", password)
	}
}

func TestReadPasswordStdioRequiresEnv(t *testing.T) {
	t.Setenv(EnvPassword, "")

	if _, err := readPassword("stdio"); err == nil {
		t.Error("Expected error when stdio transport has no password in the environment")
	}
}
