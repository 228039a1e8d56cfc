package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubecast/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Upload.CategoryID != "10" {
		t.Fatalf("unexpected default category: %q", cfg.Upload.CategoryID)
	}
	if cfg.Tools.YtDlp != "yt-dlp" {
		t.Fatalf("unexpected default ytdlp binary: %q", cfg.Tools.YtDlp)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[paths]",
		`staging_dir = "` + filepath.Join(dir, "staging") + `"`,
		`bind = "127.0.0.1:9000"`,
		"[messaging]",
		`allowed_sender = " whatsapp:+15550001111 "`,
		"[logging]",
		`format = "JSON"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Paths.Bind != "127.0.0.1:9000" {
		t.Fatalf("bind = %q", cfg.Paths.Bind)
	}
	if cfg.Messaging.AllowedSender != "whatsapp:+15550001111" {
		t.Fatalf("allowed sender not trimmed: %q", cfg.Messaging.AllowedSender)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("log format not normalized: %q", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadFormat(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "yaml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unsupported log format")
	}
}

func TestOAuthConfigured(t *testing.T) {
	cfg := config.Default()
	if cfg.OAuthConfigured() {
		t.Fatal("expected OAuth to be unconfigured by default")
	}
	cfg.Google.ClientID = "id"
	cfg.Google.ClientSecret = "secret"
	if !cfg.OAuthConfigured() {
		t.Fatal("expected OAuth to be configured")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[messaging]") {
		t.Fatal("sample config missing messaging section")
	}
}
