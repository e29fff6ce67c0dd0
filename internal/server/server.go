// Package server exposes the HTTP trigger surface: a manual scrobble
// endpoint and a cron endpoint that sweeps all active users.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cterence/ytmusic-scrobbler/internal/syncer"
	"github.com/cterence/ytmusic-scrobbler/internal/users"
)

type Server struct {
	syncer     *syncer.Syncer
	directory  users.Directory
	clients    syncer.Clients
	cronSecret string
}

func New(s *syncer.Syncer, dir users.Directory, clients syncer.Clients, cronSecret string) *Server {
	return &Server{
		syncer:     s,
		directory:  dir,
		clients:    clients,
		cronSecret: cronSecret,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Post("/api/scrobble", s.handleScrobble)
	r.Post("/api/cron", s.handleCron)
	return r
}

// ListenAndServe blocks until ctx is canceled, then shuts the server down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type scrobbleResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// handleScrobble runs one manual pass. Without a user query parameter it
// syncs the local single-user setup.
func (s *Server) handleScrobble(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		userID = users.LocalID
	}

	user, err := s.directory.Lookup(r.Context(), userID)
	if err != nil || user == nil {
		writeJSON(w, http.StatusNotFound, scrobbleResponse{Error: fmt.Sprintf("unknown user: %s", userID)})
		return
	}

	src, err := s.clients.SourceFor(*user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, scrobbleResponse{Error: err.Error()})
		return
	}
	sink, err := s.clients.SinkFor(*user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, scrobbleResponse{Error: err.Error()})
		return
	}

	res, err := s.syncer.RunManualPass(r.Context(), user.ID, src, sink)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, syncer.ErrAlreadyRunning) {
			status = http.StatusConflict
		}
		writeJSON(w, status, scrobbleResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, scrobbleResponse{Success: true, Count: res.Emitted})
}

// handleCron triggers a sweep over all active users. When a shared secret
// is configured the request must carry it as a bearer token.
func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	if s.cronSecret != "" {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cronSecret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
	}

	summary := s.syncer.SyncAll(r.Context(), s.directory, s.clients)
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
