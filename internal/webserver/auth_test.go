package webserver_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quotaglass/quotaglass/internal/webserver"
)

func TestIssueAndValidateAccessToken(t *testing.T) {
	secret := "test-secret"
	token, err := webserver.IssueAccessToken(secret, "alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	username, err := webserver.ValidateAccessToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if username != "alice" {
		t.Errorf("expected alice, got %s", username)
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	token, _ := webserver.IssueAccessToken("test-secret", "alice", -time.Second)
	if _, err := webserver.ValidateAccessToken("test-secret", token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	token, _ := webserver.IssueAccessToken("secret-a", "alice", time.Hour)
	if _, err := webserver.ValidateAccessToken("secret-b", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	if _, err := webserver.ValidateAccessToken("s", "not.a.jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	tok1, err := webserver.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	tok2, _ := webserver.GenerateRefreshToken()
	if tok1 == tok2 {
		t.Error("expected unique tokens")
	}
	if len(tok1) != 64 { // 32 bytes hex = 64 chars
		t.Errorf("expected 64 char token, got %d", len(tok1))
	}
}

// Query-parameter tokens authenticate websocket upgrades, which cannot set an
// Authorization header from the browser.
func TestQueryTokenAccepted(t *testing.T) {
	srv, _ := newAuthServer(t)
	resp := login(t, srv)

	req := httptest.NewRequest("GET", "/api/usage/latest?token="+resp["access_token"], nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != 200 {
		t.Errorf("expected 200 with query token, got %d", w.Code)
	}
}
