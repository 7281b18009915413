// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// OAuthApp holds one provider's OAuth application credentials.
type OAuthApp struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Config is the full service configuration.
type Config struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	DatabasePath string `yaml:"database_path"`

	// SecretKey signs session cookies. EncryptionKey (hashed to 32 bytes)
	// seals OAuth tokens at rest; when empty, SecretKey is used instead so
	// development setups keep working across restarts.
	SecretKey     string `yaml:"secret_key"`
	EncryptionKey string `yaml:"encryption_key"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	Model         string `yaml:"model"`

	FrontendURL string `yaml:"frontend_url"`
	BackendURL  string `yaml:"backend_url"`

	Google OAuthApp `yaml:"google"`
	Notion OAuthApp `yaml:"notion"`
}

// Load reads path (optional; missing file is fine), applies env overrides,
// and fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Host, "HOST")
	setFromEnv(&c.Port, "PORT")
	setFromEnv(&c.DatabasePath, "DATABASE_PATH")
	setFromEnv(&c.SecretKey, "SECRET_KEY")
	setFromEnv(&c.EncryptionKey, "ENCRYPTION_KEY")
	setFromEnv(&c.OpenAIAPIKey, "OPENAI_API_KEY")
	setFromEnv(&c.OpenAIBaseURL, "OPENAI_BASE_URL")
	setFromEnv(&c.Model, "OPENAI_MODEL")
	setFromEnv(&c.FrontendURL, "FRONTEND_URL")
	setFromEnv(&c.BackendURL, "BACKEND_URL")
	setFromEnv(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setFromEnv(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setFromEnv(&c.Notion.ClientID, "NOTION_CLIENT_ID")
	setFromEnv(&c.Notion.ClientSecret, "NOTION_CLIENT_SECRET")
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "twin.db"
	}
	if c.SecretKey == "" {
		c.SecretKey = "dev-secret-key-change-in-production"
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.FrontendURL == "" {
		c.FrontendURL = "http://localhost:5173"
	}
	if c.BackendURL == "" {
		c.BackendURL = "http://localhost:" + c.Port
	}
}

// TokenKeySource returns the secret the cipher key is derived from.
func (c *Config) TokenKeySource() string {
	if c.EncryptionKey != "" {
		return c.EncryptionKey
	}
	return c.SecretKey
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return c.Host + ":" + c.Port
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
