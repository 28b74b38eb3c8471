package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rdeshpande/folio-ai/internal/chat"
	"github.com/rdeshpande/folio-ai/internal/ingestion"
	"github.com/rdeshpande/folio-ai/internal/store"
)

// fakeAnswerer returns a canned pipeline response and records queries.
type fakeAnswerer struct {
	resp    chat.Response
	queries []string
	modes   []chat.Mode
}

func (f *fakeAnswerer) AnswerMode(_ context.Context, query string, mode chat.Mode) chat.Response {
	f.queries = append(f.queries, query)
	f.modes = append(f.modes, mode)
	return f.resp
}

// fakeIngester records the entries it receives.
type fakeIngester struct {
	entries []ingestion.Entry
	chunks  int
	err     error
}

func (f *fakeIngester) Ingest(_ context.Context, entries []ingestion.Entry, progress func(string)) (int, error) {
	f.entries = append(f.entries, entries...)
	if progress != nil {
		progress("embedding")
	}
	return f.chunks, f.err
}

// fakeRecorder collects exchanges in memory.
type fakeRecorder struct {
	exchanges []store.Exchange
	appendErr error
}

func (f *fakeRecorder) Append(_ context.Context, e store.Exchange) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.exchanges = append(f.exchanges, e)
	return nil
}

func (f *fakeRecorder) Recent(context.Context, int) ([]store.Exchange, error) { return f.exchanges, nil }
func (f *fakeRecorder) Stats(context.Context) ([]store.SourceStat, error)     { return nil, nil }
func (f *fakeRecorder) Close() error                                          { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer builds a Server with the given deps and returns its handler.
// The rate limiter's eviction goroutine is stopped when the test finishes.
func newTestServer(t *testing.T, deps *Deps, cfg *Config) http.Handler {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	s, err := New(deps, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s.httpServer.Handler
}

func postJSON(handler http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatHappyPath(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{resp: chat.Response{
		Text:       "Rohit has built several full-stack projects.",
		Source:     chat.SourceRAG,
		Confidence: 0.82,
		Sources:    []string{"projects.md", "resume.md"},
	}}
	recorder := &fakeRecorder{}
	handler := newTestServer(t, &Deps{Answerer: answerer, Recorder: recorder}, nil)

	rec := postJSON(handler, "/chat", `{"message": "  Tell me about his projects  "}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success {
		t.Error("Success = false, want true")
	}
	if resp.Source != chat.SourceRAG {
		t.Errorf("Source = %q, want %q", resp.Source, chat.SourceRAG)
	}
	if resp.Confidence != 0.82 {
		t.Errorf("Confidence = %v, want 0.82", resp.Confidence)
	}
	if len(resp.Sources) != 2 {
		t.Errorf("Sources = %v, want 2 entries", resp.Sources)
	}

	// The message reaches the pipeline trimmed.
	if len(answerer.queries) != 1 || answerer.queries[0] != "Tell me about his projects" {
		t.Errorf("pipeline saw %v, want the trimmed message", answerer.queries)
	}

	// Each answered request is recorded.
	if len(recorder.exchanges) != 1 {
		t.Fatalf("recorded %d exchanges, want 1", len(recorder.exchanges))
	}
	if got := recorder.exchanges[0]; got.Source != chat.SourceRAG || got.Confidence != 0.82 {
		t.Errorf("recorded exchange = %+v", got)
	}
}

func TestChatValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     string
	}{
		{
			name:        "wrong content type",
			contentType: "text/plain",
			body:        `{"message": "hi"}`,
			wantErr:     "Content-Type must be application/json",
		},
		{
			name:        "invalid json",
			contentType: "application/json",
			body:        `{"message": `,
			wantErr:     "invalid request body",
		},
		{
			name:        "missing message",
			contentType: "application/json",
			body:        `{}`,
			wantErr:     "message is required",
		},
		{
			name:        "whitespace-only message",
			contentType: "application/json",
			body:        `{"message": "   \t  "}`,
			wantErr:     "message is required",
		},
		{
			name:        "message too long",
			contentType: "application/json",
			body:        fmt.Sprintf(`{"message": %q}`, strings.Repeat("x", 1001)),
			wantErr:     "message exceeds 1000 characters",
		},
		{
			name:        "body too large",
			contentType: "application/json",
			body:        fmt.Sprintf(`{"message": "hi", "pad": %q}`, strings.Repeat("x", 11*1024)),
			wantErr:     "request body too large",
		},
		{
			name:        "unknown mode",
			contentType: "application/json",
			body:        `{"message": "hi", "mode": "turbo"}`,
			wantErr:     `mode must be "auto" or "rag"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			answerer := &fakeAnswerer{}
			handler := newTestServer(t, &Deps{Answerer: answerer}, nil)

			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
			}

			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal error response: %v", err)
			}
			if resp.Success {
				t.Error("Success = true, want false")
			}
			if resp.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantErr)
			}
			if len(answerer.queries) != 0 {
				t.Errorf("pipeline was called for an invalid request: %v", answerer.queries)
			}
		})
	}
}

func TestChatModeOverride(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{resp: chat.Response{Text: "grounded", Source: chat.SourceRAG, Confidence: 0.6}}
	handler := newTestServer(t, &Deps{Answerer: answerer}, nil)

	if rec := postJSON(handler, "/chat", `{"message": "projects?", "mode": "rag"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if rec := postJSON(handler, "/chat", `{"message": "projects?"}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	want := []chat.Mode{chat.ModeRAG, ""}
	if len(answerer.modes) != 2 || answerer.modes[0] != want[0] || answerer.modes[1] != want[1] {
		t.Errorf("pipeline saw modes %v, want %v", answerer.modes, want)
	}
}

func TestChatRecorderFailureDoesNotFailRequest(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{resp: chat.Response{Text: "hi", Source: chat.SourcePattern, Confidence: 0.7}}
	recorder := &fakeRecorder{appendErr: fmt.Errorf("disk full")}
	handler := newTestServer(t, &Deps{Answerer: answerer, Recorder: recorder}, nil)

	rec := postJSON(handler, "/chat", `{"message": "hello"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite telemetry failure", rec.Code)
	}
}

func TestChatMetricsRecorded(t *testing.T) {
	t.Parallel()

	answerer := &fakeAnswerer{resp: chat.Response{Text: "hi", Source: chat.SourceFallback, Confidence: 0.1}}
	registry := prometheus.NewRegistry()
	handler := newTestServer(t, &Deps{Answerer: answerer}, &Config{Registry: registry})

	if rec := postJSON(handler, "/chat", `{"message": "hello"}`); rec.Code != http.StatusOK {
		t.Fatalf("chat status = %d, want 200", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `folio_chat_requests_total{source="fallback"} 1`) {
		t.Errorf("metrics output missing per-source chat counter:\n%s", body)
	}
}

func TestIngestHappyPath(t *testing.T) {
	t.Parallel()

	ingester := &fakeIngester{chunks: 5}
	handler := newTestServer(t, &Deps{Answerer: &fakeAnswerer{}, Ingester: ingester}, nil)

	rec := postJSON(handler, "/ingest",
		`{"entries": [{"content": "Rohit builds web apps.", "category": "about", "source": "about.md"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var resp ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success || resp.Chunks != 5 {
		t.Errorf("response = %+v, want success with 5 chunks", resp)
	}
	if len(ingester.entries) != 1 || ingester.entries[0].Source != "about.md" {
		t.Errorf("ingester saw %+v", ingester.entries)
	}
}

func TestIngestValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "no entries",
			body:    `{"entries": []}`,
			wantErr: "entries are required",
		},
		{
			name:    "empty content",
			body:    `{"entries": [{"content": "  ", "source": "a.md"}]}`,
			wantErr: "entry 0 has empty content",
		},
		{
			name:    "missing source",
			body:    `{"entries": [{"content": "text"}]}`,
			wantErr: "entry 0 has no source",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := newTestServer(t, &Deps{Answerer: &fakeAnswerer{}, Ingester: &fakeIngester{}}, nil)
			rec := postJSON(handler, "/ingest", tt.body)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
			}
			var resp errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshal error response: %v", err)
			}
			if resp.Error != tt.wantErr {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantErr)
			}
		})
	}
}

func TestIngestFailureReturns500(t *testing.T) {
	t.Parallel()

	ingester := &fakeIngester{err: fmt.Errorf("qdrant unreachable")}
	handler := newTestServer(t, &Deps{Answerer: &fakeAnswerer{}, Ingester: ingester}, nil)

	rec := postJSON(handler, "/ingest",
		`{"entries": [{"content": "text", "source": "a.md"}]}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// Internal error details must not leak to the client.
	if strings.Contains(rec.Body.String(), "qdrant") {
		t.Errorf("response leaks internal error: %s", rec.Body.String())
	}
}

func TestIngestNotConfigured(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, &Deps{Answerer: &fakeAnswerer{}}, nil)
	rec := postJSON(handler, "/ingest",
		`{"entries": [{"content": "text", "source": "a.md"}]}`)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestNewRequiresAnswerer(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, nil); err == nil {
		t.Error("New(nil, nil) returned no error")
	}
	if _, err := New(&Deps{}, nil); err == nil {
		t.Error("New with nil answerer returned no error")
	}
}
