// Package config loads the quotaglass JSON configuration from
// ~/.quotaglass/config.json, filling in defaults for anything unset.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

type NotificationsConfig struct {
	Enabled      bool    `json:"enabled"`
	Webhook      string  `json:"webhook"`
	NtfyURL      string  `json:"ntfy"`
	AlertPercent float64 `json:"alertPercent"` // window utilization that triggers an alert
}

type TLSConfig struct {
	Mode     string `json:"mode"`     // "self-signed", "manual", or "" (disabled)
	CertFile string `json:"certFile"` // required for manual
	KeyFile  string `json:"keyFile"`  // required for manual
	CacheDir string `json:"cacheDir"` // for self-signed; defaults to ~/.quotaglass/certs
}

type AuthConfig struct {
	JWTSecret           string `json:"jwtSecret"`
	RefreshTokenTTLDays int    `json:"refreshTokenTtlDays"`
}

type WebserverConfig struct {
	Enabled bool       `json:"enabled"`
	Port    int        `json:"port"`
	Host    string     `json:"host"`
	TLS     TLSConfig  `json:"tls"`
	Auth    AuthConfig `json:"auth"`
}

type Config struct {
	RefreshSeconds     int                 `json:"refreshSeconds"`
	ContextLimitTokens int64               `json:"contextLimitTokens"`
	HistoryDays        int                 `json:"historyDays"`
	LogLevel           string              `json:"logLevel"`
	Notifications      NotificationsConfig `json:"notifications"`
	Webserver          WebserverConfig     `json:"webserver"`
}

func Defaults() Config {
	return Config{
		RefreshSeconds:     60,
		ContextLimitTokens: 200_000,
		HistoryDays:        7,
		LogLevel:           "info",
		Notifications: NotificationsConfig{
			AlertPercent: 90,
		},
		Webserver: WebserverConfig{
			Port: 8080,
			Host: "127.0.0.1",
			Auth: AuthConfig{
				RefreshTokenTTLDays: 30,
			},
		},
	}
}

func baseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quotaglass")
}

func DefaultPath() string {
	return filepath.Join(baseDir(), "config.json")
}

func DBPath() string {
	return filepath.Join(baseDir(), "state.db")
}

func LogDir() string {
	return filepath.Join(baseDir(), "logs")
}

func CertCacheDir() string {
	return filepath.Join(baseDir(), "certs")
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// EnsureJWTSecret generates and persists a signing secret on first use so
// web sessions survive restarts.
func EnsureJWTSecret(path string, cfg *Config) error {
	if cfg.Webserver.Auth.JWTSecret != "" {
		return nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	cfg.Webserver.Auth.JWTSecret = hex.EncodeToString(buf)
	return Save(path, *cfg)
}
