// Package claude talks to the Claude Code usage surfaces: the OAuth usage
// API for rate-limit windows and the local ccusage tool for token counts.
package claude

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	defaultUsageURL = "https://api.anthropic.com/api/oauth/usage"
	userAgent       = "claude-code/2.0.32"
	betaFlag        = "oauth-2025-04-20"
)

type UsageResponse struct {
	FiveHour *WindowUsage `json:"five_hour"`
	SevenDay *WindowUsage `json:"seven_day"`
	Error    string       `json:"error,omitempty"`
}

type WindowUsage struct {
	Utilization float64 `json:"utilization"`
	ResetsAt    string  `json:"resets_at"`
}

// Client fetches usage from the OAuth usage API. The zero value uses the
// production endpoint, http.DefaultClient, and the local credential store.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	// Token overrides credential lookup when set.
	Token func() (string, error)
}

// GetToken retrieves the Claude Code OAuth access token. On macOS it reads
// the Keychain entry Claude Code writes; elsewhere it falls back to the
// ~/.claude/.credentials.json file.
func GetToken() (string, error) {
	raw, err := readCredentials()
	if err != nil {
		return "", err
	}
	var creds struct {
		ClaudeAiOauth struct {
			AccessToken string `json:"accessToken"`
		} `json:"claudeAiOauth"`
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return "", fmt.Errorf("parse credentials: %w", err)
	}
	if creds.ClaudeAiOauth.AccessToken == "" {
		return "", fmt.Errorf("accessToken not found in credentials")
	}
	return creds.ClaudeAiOauth.AccessToken, nil
}

func readCredentials() (string, error) {
	if runtime.GOOS == "darwin" {
		out, err := exec.Command("security", "find-generic-password", "-s", "Claude Code-credentials", "-w").Output()
		if err == nil {
			return strings.TrimSpace(string(out)), nil
		}
		// Keychain entry may be absent when credentials were written by an
		// older release; fall through to the file.
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	data, err := os.ReadFile(filepath.Join(home, ".claude", ".credentials.json"))
	if err != nil {
		return "", fmt.Errorf("read credentials: %w", err)
	}
	return string(data), nil
}

// FetchUsage retrieves the current rate-limit utilization from the API.
func (c *Client) FetchUsage() (*UsageResponse, error) {
	token, err := c.token()
	if err != nil {
		return nil, err
	}

	url := c.BaseURL
	if url == "" {
		url = defaultUsageURL
	}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", betaFlag)
	req.Header.Set("User-Agent", userAgent)

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var usage UsageResponse
	if err := json.Unmarshal(body, &usage); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if usage.Error != "" {
		return nil, fmt.Errorf("API error: %s", usage.Error)
	}
	return &usage, nil
}

func (c *Client) token() (string, error) {
	if c.Token != nil {
		return c.Token()
	}
	return GetToken()
}

// ParseResetsAt parses the API's RFC3339 reset timestamp. Returns nil for
// empty or malformed values.
func ParseResetsAt(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil
		}
	}
	return &t
}
