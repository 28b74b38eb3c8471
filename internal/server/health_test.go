package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakePinger reports a fixed result under a fixed name.
type fakePinger struct {
	name string
	err  error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }
func (f *fakePinger) Name() string               { return f.name }

func TestHealthAlwaysOK(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, &Deps{Answerer: &fakeAnswerer{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyAllProbesPass(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, &Deps{Answerer: &fakeAnswerer{}}, &Config{
		Pingers: []Pinger{
			&fakePinger{name: "qdrant"},
			&fakePinger{name: "groq"},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Ready {
		t.Error("Ready = false, want true")
	}
	if len(resp.Checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(resp.Checks))
	}
	for _, c := range resp.Checks {
		if !c.OK || c.Error != "" {
			t.Errorf("check %q = %+v, want ok with no error", c.Name, c)
		}
	}
}

func TestReadyFailedProbeReturns503(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, &Deps{Answerer: &fakeAnswerer{}}, &Config{
		Pingers: []Pinger{
			&fakePinger{name: "qdrant", err: fmt.Errorf("connection refused")},
			&fakePinger{name: "groq"},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}

	var resp readyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Ready {
		t.Error("Ready = true, want false")
	}

	// Every probe still runs and reports, even after a failure.
	if len(resp.Checks) != 2 {
		t.Fatalf("got %d checks, want 2", len(resp.Checks))
	}
	if resp.Checks[0].OK || resp.Checks[0].Error == "" {
		t.Errorf("failed check = %+v, want failure with reason", resp.Checks[0])
	}
	if !resp.Checks[1].OK {
		t.Errorf("healthy check = %+v, want ok", resp.Checks[1])
	}
}

func TestReadyNoPingers(t *testing.T) {
	t.Parallel()

	handler := newTestServer(t, &Deps{Answerer: &fakeAnswerer{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// Liveness-only mode: no dependencies configured means always ready.
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestMultiPingerStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	mp := NewMultiPinger(
		&fakePinger{name: "a"},
		&fakePinger{name: "b", err: fmt.Errorf("down")},
		&fakePinger{name: "c"},
	)

	err := mp.Ping(context.Background())
	if err == nil {
		t.Fatal("Ping returned nil, want error from failing dependency")
	}
	if got := err.Error(); got != "b: down" {
		t.Errorf("error = %q, want %q", got, "b: down")
	}
}
