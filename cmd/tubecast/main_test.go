package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubecast/internal/config"
	"tubecast/internal/store"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	path := filepath.Join(base, "tubecast.toml")
	content := fmt.Sprintf(`[paths]
staging_dir = %q
credentials_dir = %q
log_dir = %q
bind = "127.0.0.1:0"

[messaging]
allowed_sender = "whatsapp:+15550001111"
`,
		filepath.Join(base, "staging"),
		filepath.Join(base, "credentials"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func seedAccount(t *testing.T, configPath, name string) *store.Account {
	t.Helper()
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	account, err := st.CreateAccount(context.Background(), name, cfg.CredentialPath(name))
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func TestAccountsListEmpty(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "accounts", "list")
	if err != nil {
		t.Fatalf("accounts list failed: %v", err)
	}
	if !strings.Contains(out, "No accounts") {
		t.Fatalf("output = %q", out)
	}
}

func TestAccountsListRendersTable(t *testing.T) {
	configPath := writeTestConfig(t)
	seedAccount(t, configPath, "Music")

	out, err := runCommand(t, "--config", configPath, "accounts", "list")
	if err != nil {
		t.Fatalf("accounts list failed: %v", err)
	}
	if !strings.Contains(out, "Music") || !strings.Contains(out, "Name") {
		t.Fatalf("output = %q", out)
	}
	// Credential path reserved but file absent.
	if !strings.Contains(out, "pending") {
		t.Fatalf("expected pending authorization, got %q", out)
	}
}

func TestAccountsRemoveByName(t *testing.T) {
	configPath := writeTestConfig(t)
	seedAccount(t, configPath, "Music")

	out, err := runCommand(t, "--config", configPath, "accounts", "remove", "Music")
	if err != nil {
		t.Fatalf("accounts remove failed: %v", err)
	}
	if !strings.Contains(out, `Removed account "Music"`) {
		t.Fatalf("output = %q", out)
	}

	out, err = runCommand(t, "--config", configPath, "accounts", "list")
	if err != nil {
		t.Fatalf("accounts list failed: %v", err)
	}
	if !strings.Contains(out, "No accounts") {
		t.Fatalf("output after removal = %q", out)
	}
}

func TestConversationShowAndReset(t *testing.T) {
	configPath := writeTestConfig(t)

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	conv, err := st.GetOrCreateConversation(context.Background(), "whatsapp:+15550001111")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	conv.State = store.StateAwaitingTitle
	conv.SourceURL = "https://youtu.be/abc"
	if err := st.UpdateConversation(context.Background(), conv, store.StateIdle); err != nil {
		t.Fatalf("update conversation: %v", err)
	}
	st.Close()

	out, err := runCommand(t, "--config", configPath, "conversation", "show")
	if err != nil {
		t.Fatalf("conversation show failed: %v", err)
	}
	if !strings.Contains(out, "awaiting_title") || !strings.Contains(out, "https://youtu.be/abc") {
		t.Fatalf("output = %q", out)
	}

	if _, err := runCommand(t, "--config", configPath, "conversation", "reset"); err != nil {
		t.Fatalf("conversation reset failed: %v", err)
	}

	out, err = runCommand(t, "--config", configPath, "conversation", "show")
	if err != nil {
		t.Fatalf("conversation show failed: %v", err)
	}
	if !strings.Contains(out, "idle") {
		t.Fatalf("output after reset = %q", out)
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("output = %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample config missing: %v", err)
	}

	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite must fail")
	}
}

func TestConfigShow(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, "--config", configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if !strings.Contains(out, "whatsapp:+15550001111") || !strings.Contains(out, "not configured") {
		t.Fatalf("output = %q", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "tubecast") {
		t.Fatalf("output = %q", out)
	}
}
