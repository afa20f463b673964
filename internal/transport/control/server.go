// Package control exposes the operator HTTP API: memory and persona edits,
// activation flags, health and metrics.
package control

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sandevgo/muse/internal/config"
	"github.com/sandevgo/muse/internal/core"
	"github.com/sandevgo/muse/internal/observability"
	"github.com/sandevgo/muse/pkg/log"
)

const shutdownTimeout = 5 * time.Second

// PersonaEditor applies a partial persona update.
type PersonaEditor interface {
	Merge(ctx context.Context, patch map[string]any) error
}

// SettingsEditor applies a partial update of the runtime reply flags.
type SettingsEditor interface {
	UpdateSettings(ctx context.Context, patch json.RawMessage) (core.Settings, error)
}

type Server struct {
	cfg        *config.ControlConfig
	memories   core.MemoryStore
	persona    PersonaEditor
	settings   SettingsEditor
	activation core.ActivationStore
	metrics    *observability.Metrics
	http       *http.Server
}

func New(
	cfg *config.ControlConfig,
	memories core.MemoryStore,
	persona PersonaEditor,
	settings SettingsEditor,
	activation core.ActivationStore,
	metrics *observability.Metrics,
) *Server {
	s := &Server{
		cfg:        cfg,
		memories:   memories,
		persona:    persona,
		settings:   settings,
		activation: activation,
		metrics:    metrics,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.authorize)
		r.Get("/memories", s.handleMemories)
		r.Post("/event", s.handleEvent)
	})

	return r
}

func (s *Server) Start(ctx context.Context) error {
	s.http.BaseContext = func(_ net.Listener) context.Context { return ctx }
	log.FromCtx(ctx).Info().Str("addr", s.cfg.Addr).Msg("starting control server")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.http.Shutdown(sctx)
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.Token)) != 1 {
			respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	all, err := s.memories.All(r.Context())
	if err != nil {
		log.FromCtx(r.Context()).Error().Err(err).Msg("failed to read memories")
		respondError(w, http.StatusInternalServerError, "Failed to read memories file")
		return
	}
	if all == nil {
		all = map[string][]core.MemoryRecord{}
	}
	respondJSON(w, http.StatusOK, all)
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, statusResponse{Status: "error", Message: message})
}
