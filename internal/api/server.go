// Package api provides the REST API for booking extraction and stored
// orders.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"booking_parser/internal/document"
	"booking_parser/internal/pipeline"
	"booking_parser/internal/registry"
	"booking_parser/internal/storage"
)

// maxBody caps request bodies; converted documents are small.
const maxBody = 4 << 20

// Config holds configuration for the API server.
type Config struct {
	Port        int
	AuthEnabled bool
	APIKeys     []string // List of valid API keys.
	RateLimit   float64  // Requests per second per client, zero disables.
	Burst       int
}

// Server exposes extraction and the order store over HTTP.
type Server struct {
	proc    *pipeline.Processor
	reg     *registry.Registry
	store   storage.OrderStore
	cfg     Config
	apiKeys map[string]bool // Simple API key auth (when enabled).
	limiter *clientLimiter
	logger  *slog.Logger
	started time.Time
}

// NewServer creates a server. proc.Store may be nil, in which case the
// order endpoints answer 503.
func NewServer(proc *pipeline.Processor, cfg Config, logger *slog.Logger) *Server {
	keys := make(map[string]bool)
	for _, k := range cfg.APIKeys {
		if k != "" {
			keys[k] = true
		}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	reg := proc.Registry
	if reg == nil {
		reg = registry.Default()
	}

	s := &Server{
		proc:    proc,
		reg:     reg,
		store:   proc.Store,
		cfg:     cfg,
		apiKeys: keys,
		logger:  logger,
		started: time.Now(),
	}
	if cfg.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit, cfg.Burst)
	}
	return s
}

// Handler returns the full HTTP handler with middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Standard middleware.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Mount("/api/v1", s.Router())
	return r
}

// Router returns the versioned routes for embedding in other servers.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	// Health check (no auth required).
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
		}
		if s.limiter != nil {
			r.Use(s.limiter.middleware)
		}

		r.Get("/templates", s.handleTemplates)
		r.Post("/extract", s.handleExtract)
		r.Post("/classify", s.handleClassify)
		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/{id}", s.handleGetOrder)
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("extraction API listening", "addr", srv.Addr, "auth", s.cfg.AuthEnabled, "rate_limit", s.cfg.RateLimit)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// authMiddleware validates API key authentication.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Check X-API-Key header first.
		apiKey := r.Header.Get("X-API-Key")

		// Fall back to Authorization: Bearer <key>.
		if apiKey == "" {
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				apiKey = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if apiKey == "" {
			writeError(w, http.StatusUnauthorized, "API key required")
			return
		}

		if !s.apiKeys[apiKey] {
			writeError(w, http.StatusForbidden, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"time":      time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"templates": s.reg.TemplateCount(),
		"store":     s.store != nil,
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		Name     string `json:"name"`
		Priority int    `json:"priority"`
	}
	var out []entry
	for _, t := range s.reg.AllTemplates() {
		out = append(out, entry{Name: t.Name(), Priority: t.Priority()})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleExtract runs a document through the pipeline. ?persist=false
// skips every sink.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}

	var (
		out *pipeline.Outcome
		err error
	)
	if r.URL.Query().Get("persist") == "false" {
		out, err = s.proc.Extract(doc)
	} else {
		out, err = s.proc.Process(r.Context(), doc)
	}

	switch {
	case errors.Is(err, document.ErrEmpty):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrNoTemplate):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil && out == nil:
		s.logger.Error("extract failed", "document", doc.ID, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case err != nil:
		// Extracted but not stored.
		s.logger.Error("store failed", "document", doc.ID, "error", err)
		writeJSON(w, http.StatusAccepted, out)
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

// ClassifyResponse reports the chosen template and, with ?trace=true,
// every classifier's marker trace.
type ClassifyResponse struct {
	Template string                  `json:"template"`
	Matching []string                `json:"matching"`
	Traces   []*registry.TraceResult `json:"traces,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}

	t, found := s.reg.Classify(doc.Lines)
	if !found {
		writeError(w, http.StatusServiceUnavailable, pipeline.ErrNoTemplate.Error())
		return
	}
	resp := ClassifyResponse{Template: t.Name(), Matching: []string{}}
	for _, m := range s.reg.Matching(doc.Lines) {
		resp.Matching = append(resp.Matching, m.Name())
	}
	if r.URL.Query().Get("trace") == "true" {
		resp.Traces = s.reg.Trace(doc.Lines)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "order store not configured")
		return
	}

	q := r.URL.Query()
	p := storage.ListParams{
		Template:    q.Get("template"),
		Reference:   q.Get("reference"),
		FullText:    q.Get("q"),
		NeedsReview: q.Get("review") == "true",
	}
	var err error
	if p.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if p.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	orders, err := s.store.ListOrders(r.Context(), p)
	if err != nil {
		s.logger.Error("list orders failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if orders == nil {
		orders = []storage.Record{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "order store not configured")
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := s.store.GetOrder(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		s.logger.Error("get order failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Helper functions.

func decodeDocument(w http.ResponseWriter, r *http.Request) (*document.Document, bool) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return nil, false
	}
	if len(data) > maxBody {
		writeError(w, http.StatusRequestEntityTooLarge, "document too large")
		return nil, false
	}
	doc, err := document.Decode(data)
	if errors.Is(err, document.ErrEmpty) {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return nil, false
	}
	return doc, true
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		return 0, errors.New("invalid integer")
	}
	return i, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
