package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want gpt-4o-mini", cfg.Model)
	}
	if cfg.ListenAddr() != "127.0.0.1:8000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr())
	}
	if cfg.BackendURL != "http://localhost:8000" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
port: "9000"
secret_key: file-secret
google:
  client_id: gid
  client_secret: gsecret
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Port)
	}
	if cfg.SecretKey != "file-secret" {
		t.Errorf("SecretKey = %q", cfg.SecretKey)
	}
	if cfg.Google.ClientID != "gid" || cfg.Google.ClientSecret != "gsecret" {
		t.Errorf("Google creds = %+v", cfg.Google)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"9000\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PORT", "7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7777" {
		t.Errorf("Port = %q, want env override 7777", cfg.Port)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
}

func TestTokenKeySource(t *testing.T) {
	cfg := &Config{SecretKey: "sk"}
	if got := cfg.TokenKeySource(); got != "sk" {
		t.Errorf("TokenKeySource = %q, want secret key fallback", got)
	}
	cfg.EncryptionKey = "ek"
	if got := cfg.TokenKeySource(); got != "ek" {
		t.Errorf("TokenKeySource = %q, want encryption key", got)
	}
}
