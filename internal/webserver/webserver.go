// Package webserver exposes the usage history over an authenticated local
// HTTP API with a small embedded dashboard and a websocket event stream.
package webserver

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quotaglass/quotaglass/internal/db"
	"github.com/quotaglass/quotaglass/internal/events"
	"github.com/quotaglass/quotaglass/internal/snapshot"
)

type TLSConfig struct {
	Mode     string // "self-signed", "manual", or "" (disabled)
	CertFile string
	KeyFile  string
	CacheDir string
}

type AuthConfig struct {
	JWTSecret       string
	RefreshTokenTTL time.Duration
}

type Config struct {
	Enabled bool
	Port    int
	Host    string
	TLS     TLSConfig
	Auth    AuthConfig
}

type Server struct {
	store  *db.DB
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	clients map[chan events.Event]struct{}

	srv *http.Server
}

func New(store *db.DB, cfg Config, logger *slog.Logger) *Server {
	return &Server{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		clients: make(map[chan events.Event]struct{}),
	}
}

// Broadcast implements events.Broadcaster.
func (s *Server) Broadcast(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- e:
		default:
		}
	}
}

func (s *Server) addClient(ch chan events.Event) {
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeClient(ch chan events.Event) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/usage/latest", s.handleLatest)
	mux.HandleFunc("GET /api/usage/history", s.handleHistory)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /", http.FileServer(staticFiles()))

	publicPaths := []string{"/api/auth/", "/", "/index.html"}
	return jwtMiddleware(s.cfg.Auth.JWTSecret, publicPaths, mux)
}

func (s *Server) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.srv = &http.Server{Addr: addr, Handler: s.Handler()}

	var tlsCfg *tls.Config
	switch s.cfg.TLS.Mode {
	case "self-signed":
		cfg, err := selfSignedTLS(s.cfg.TLS.CacheDir)
		if err != nil {
			return fmt.Errorf("self-signed tls: %w", err)
		}
		tlsCfg = cfg
	case "manual":
		cert, err := tls.LoadX509KeyPair(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("load tls keypair: %w", err)
		}
		tlsCfg = &tls.Config{Certificates: []tls.Certificate{cert}}
	}

	go func() {
		var err error
		if tlsCfg != nil {
			s.srv.TLSConfig = tlsCfg
			err = s.srv.ListenAndServeTLS("", "")
		} else {
			err = s.srv.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error("webserver stopped", "err", err)
		}
	}()
	s.logger.Info("webserver listening", "addr", addr, "tls", s.cfg.TLS.Mode != "")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	acc, err := s.store.GetAccountByUsername(body.Username)
	if err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	if acc == nil || bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(body.Password)) != nil {
		http.Error(w, "unauthorized", 401)
		return
	}

	s.issueTokens(w, acc.ID, acc.Username)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	rt, err := s.store.GetRefreshToken(body.RefreshToken)
	if err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	if rt == nil || time.Now().After(rt.ExpiresAt) {
		http.Error(w, "unauthorized", 401)
		return
	}

	// Rotate: the presented token is single use.
	if err := s.store.DeleteRefreshToken(rt.Token); err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	s.issueTokens(w, rt.AccountID, "")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	if err := s.store.DeleteRefreshToken(body.RefreshToken); err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	w.WriteHeader(204)
}

func (s *Server) issueTokens(w http.ResponseWriter, accountID, username string) {
	access, err := IssueAccessToken(s.cfg.Auth.JWTSecret, username, time.Hour)
	if err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	refresh, err := GenerateRefreshToken()
	if err != nil {
		http.Error(w, "internal error", 500)
		return
	}
	ttl := s.cfg.Auth.RefreshTokenTTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	err = s.store.SaveRefreshToken(db.RefreshToken{
		Token:     refresh,
		AccountID: accountID,
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	})
	if err != nil {
		http.Error(w, "internal error", 500)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	row, err := s.store.GetLatestUsageSnapshot()
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	var provider *snapshot.Provider
	if row != nil {
		p := row.Status().ProviderSnapshot()
		provider = &p
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"provider": provider})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 288
	if q := r.URL.Query().Get("limit"); q != "" {
		fmt.Sscanf(q, "%d", &limit)
	}
	if limit <= 0 || limit > 5000 {
		limit = 288
	}
	rows, err := s.store.ListUsageSnapshots(limit)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	type point struct {
		Ts               time.Time `json:"ts"`
		PrimaryPercent   *float64  `json:"primary_percent,omitempty"`
		SecondaryPercent *float64  `json:"secondary_percent,omitempty"`
		ContextTokens    *int64    `json:"context_tokens,omitempty"`
	}
	points := make([]point, 0, len(rows))
	for _, row := range rows {
		points = append(points, point{
			Ts:               time.UnixMilli(row.TsMs).UTC(),
			PrimaryPercent:   row.FiveHourUtil,
			SecondaryPercent: row.SevenDayUtil,
			ContextTokens:    row.ContextUsedTokens,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"points": points})
}
