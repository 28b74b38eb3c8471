package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rdeshpande/folio-ai/internal/chat"
	"github.com/rdeshpande/folio-ai/internal/ingestion"
	"github.com/rdeshpande/folio-ai/internal/store"
)

// Request body limits for POST /chat. Oversized or overlong input is
// rejected with 400 before it reaches the pipeline.
const (
	// maxChatBodyBytes caps the raw request body size.
	maxChatBodyBytes = 10 * 1024
	// maxMessageChars caps the visitor's message length.
	maxMessageChars = 1000
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /ready.
	// If empty, /ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on POST /ingest. If empty the
	// endpoint is open (development mode) and a warning is logged at startup.
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil a private
	// registry is created; /metrics serves whichever is in effect.
	Registry *prometheus.Registry
}

// answerer is the interface handleChat calls to answer a visitor query.
// *chat.Orchestrator satisfies it; tests inject a fake.
type answerer interface {
	AnswerMode(ctx context.Context, query string, mode chat.Mode) chat.Response
}

// ingester is the interface handleIngest calls to load corpus entries.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingester interface {
	Ingest(ctx context.Context, entries []ingestion.Entry, progress func(msg string)) (int, error)
}

// Deps are the pipeline dependencies the server exposes over HTTP.
type Deps struct {
	// Answerer runs the staged answer pipeline. Required.
	Answerer answerer
	// Ingester loads corpus entries. Nil disables POST /ingest.
	Ingester ingester
	// Recorder persists exchange telemetry. Nil disables recording.
	Recorder store.ExchangeStore
}

// Server is the HTTP server for the portfolio assistant.
type Server struct {
	// answerer runs the staged answer pipeline for POST /chat.
	answerer answerer
	// ingester loads corpus entries for POST /ingest.
	ingester ingester
	// recorder logs each exchange, when configured.
	recorder store.ExchangeStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// chatRequest is the JSON body for POST /chat.
type chatRequest struct {
	// Message is the visitor's question.
	Message string `json:"message"`
	// Mode optionally overrides the pipeline mode for this request:
	// "auto" or "rag". Empty selects the server's configured mode.
	Mode string `json:"mode,omitempty"`
}

// chatResponse is the JSON response for POST /chat.
type chatResponse struct {
	// Success is true for every answered request; validation failures use
	// errorResponse instead.
	Success bool `json:"success"`
	// Response is the answer text.
	Response string `json:"response"`
	// Source names the pipeline stage that produced the answer.
	Source string `json:"source"`
	// Confidence is the pipeline's trust in the answer, in [0, 1].
	Confidence float64 `json:"confidence"`
	// Sources lists up to three corpus attributions for grounded answers.
	Sources []string `json:"sources,omitempty"`
}

// ingestRequest is the JSON body for POST /ingest.
type ingestRequest struct {
	// Entries are the corpus items to ingest.
	Entries []ingestion.Entry `json:"entries"`
}

// ingestResponse is the JSON response for POST /ingest.
type ingestResponse struct {
	// Success is true when every entry was stored.
	Success bool `json:"success"`
	// Chunks is the number of chunks written to the vector store.
	Chunks int `json:"chunks"`
}

// errorResponse is the JSON body for 4xx/5xx responses.
type errorResponse struct {
	// Success is always false.
	Success bool `json:"success"`
	// Error describes what was wrong with the request.
	Error string `json:"error"`
}
