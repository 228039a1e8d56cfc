// Package testsupport provides helpers for constructing configs and stores
// backed by per-test temporary directories.
package testsupport

import (
	"path/filepath"
	"testing"

	"tubecast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.CredentialsDir = filepath.Join(base, "credentials")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("create config directories: %v", err)
	}

	return &cfg
}

// WithOAuthClient sets test OAuth client credentials.
func WithOAuthClient(id, secret string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Google.ClientID = id
		cfg.Google.ClientSecret = secret
	}
}
