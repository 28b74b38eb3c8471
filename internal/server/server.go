// Package server implements the HTTP API of the portfolio assistant:
// POST /chat for visitor questions, POST /ingest for corpus updates, plus
// health, readiness, and metrics endpoints. The server is started by the
// `folio serve` CLI command.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rdeshpande/folio-ai/internal/chat"
	"github.com/rdeshpande/folio-ai/internal/logging"
	"github.com/rdeshpande/folio-ai/internal/store"
)

// New constructs a Server from the provided pipeline dependencies and config.
func New(deps *Deps, cfg *Config) (*Server, error) {
	if deps == nil || deps.Answerer == nil {
		return nil, fmt.Errorf("server: answerer must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		answerer: deps.Answerer,
		ingester: deps.Ingester,
		recorder: deps.Recorder,
		cfg:      cfg,
		log:      log,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(registry),
	}

	if cfg.APIKey == "" {
		log.Warn("server: FOLIO_API_KEY not set — /ingest is unauthenticated")
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	mux := http.NewServeMux()
	mux.Handle("POST /chat", rl.middleware(s.instrument("chat", http.HandlerFunc(s.handleChat))))
	mux.Handle("POST /ingest", rl.middleware(authMiddleware(cfg.APIKey,
		s.instrument("ingest", http.HandlerFunc(s.handleIngest)))))
	mux.Handle("GET /health", s.instrument("health", http.HandlerFunc(s.handleHealth)))
	mux.Handle("GET /ready", s.instrument("ready", http.HandlerFunc(s.handleReady)))
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}

// handleChat handles POST /chat. Validation failures are 400s with a JSON
// error body; every request that survives validation gets a 200 with an
// answer — the pipeline's fallback chain absorbs dependency failures.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusBadRequest, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(message) > maxMessageChars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("message exceeds %d characters", maxMessageChars))
		return
	}

	mode := chat.Mode(req.Mode)
	switch mode {
	case "", chat.ModeAuto, chat.ModeRAG:
	default:
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("mode must be %q or %q", chat.ModeAuto, chat.ModeRAG))
		return
	}

	start := time.Now()
	resp := s.answerer.AnswerMode(r.Context(), message, mode)
	elapsed := time.Since(start)

	s.metrics.chatRequestsTotal.WithLabelValues(resp.Source).Inc()
	s.metrics.chatDurationSeconds.WithLabelValues(resp.Source).Observe(elapsed.Seconds())
	s.metrics.chatConfidence.WithLabelValues(resp.Source).Observe(resp.Confidence)

	if s.recorder != nil {
		if err := s.recorder.Append(r.Context(), store.Exchange{
			Query:      message,
			Source:     resp.Source,
			Confidence: resp.Confidence,
			Latency:    elapsed,
		}); err != nil {
			// Telemetry must never fail the request.
			log.Warn("server: telemetry append failed", slog.Any("error", err))
		}
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Success:    true,
		Response:   resp.Text,
		Source:     resp.Source,
		Confidence: resp.Confidence,
		Sources:    resp.Sources,
	})
}

// handleIngest handles POST /ingest: authenticated corpus updates.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if s.ingester == nil {
		writeError(w, http.StatusServiceUnavailable, "ingestion is not configured")
		return
	}
	if ct := r.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		writeError(w, http.StatusBadRequest, "Content-Type must be application/json")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Entries) == 0 {
		writeError(w, http.StatusBadRequest, "entries are required")
		return
	}
	for i, e := range req.Entries {
		if strings.TrimSpace(e.Content) == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("entry %d has empty content", i))
			return
		}
		if e.Source == "" {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("entry %d has no source", i))
			return
		}
	}

	chunks, err := s.ingester.Ingest(r.Context(), req.Entries, func(msg string) {
		log.Debug("server: ingest progress", slog.String("step", msg))
	})
	if err != nil {
		log.Error("server: ingest failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	writeJSON(w, http.StatusOK, ingestResponse{Success: true, Chunks: chunks})
}

// handleHealth handles GET /health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
