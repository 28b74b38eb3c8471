package store

import (
	"context"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	exchanges := []Exchange{
		{Query: "what skills", Source: "rag", Confidence: 0.72, Latency: 340 * time.Millisecond, CreatedAt: base},
		{Query: "hello", Source: "pattern", Confidence: 0.8, Latency: time.Millisecond, CreatedAt: base.Add(time.Second)},
		{Query: "weather", Source: "llm", Confidence: 0.8, Latency: 900 * time.Millisecond, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range exchanges {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent returned %d exchanges, want 2", len(got))
	}
	if got[0].Query != "weather" || got[1].Query != "hello" {
		t.Fatalf("wrong order: %q then %q", got[0].Query, got[1].Query)
	}
	if got[0].Latency != 900*time.Millisecond {
		t.Fatalf("latency round-trip failed: %v", got[0].Latency)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	for _, e := range []Exchange{
		{Query: "a", Source: "rag", Confidence: 0.6},
		{Query: "b", Source: "rag", Confidence: 0.8},
		{Query: "c", Source: "fallback", Confidence: 0.1},
	} {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("Stats returned %d rows, want 2", len(stats))
	}
	if stats[0].Source != "rag" || stats[0].Count != 2 {
		t.Fatalf("top stat = %+v, want rag with count 2", stats[0])
	}
	if diff := stats[0].MeanConfidence - 0.7; diff < -1e-9 || diff > 1e-9 {
		t.Fatalf("rag mean confidence = %f, want 0.7", stats[0].MeanConfidence)
	}
}

func TestRecentEmpty(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	got, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("Recent on empty store returned %d exchanges", len(got))
	}
}
