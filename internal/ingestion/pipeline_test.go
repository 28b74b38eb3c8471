package ingestion

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rdeshpande/folio-ai/internal/rag"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }

type recordingStore struct {
	docs    []rag.Document
	batches []int
}

func (s *recordingStore) Upsert(_ context.Context, docs []rag.Document, embeddings [][]float32) error {
	s.docs = append(s.docs, docs...)
	s.batches = append(s.batches, len(docs))
	return nil
}

func (s *recordingStore) Search(context.Context, []float32, int) ([]rag.Document, error) {
	return nil, nil
}
func (s *recordingStore) Clear(context.Context) error { return nil }

func (s *recordingStore) Count(context.Context) (uint64, error) { return 0, nil }

func (s *recordingStore) Close() error { return nil }

func TestIngestChunksAndBatches(t *testing.T) {
	t.Parallel()

	store := &recordingStore{}
	p, err := NewPipeline(fakeEmbedder{}, store, &Config{ChunkSize: 100, ChunkOverlap: 20, BatchSize: 3})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	p.now = func() time.Time { return time.Unix(1700000000, 0) }

	long := strings.Repeat("Rohit shipped a production service. ", 20)
	stored, err := p.Ingest(context.Background(), []Entry{
		{Content: long, Source: "projects.md"},
		{Content: "Short bio paragraph about Rohit.", Source: "about.md"},
	}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if stored != len(store.docs) {
		t.Fatalf("stored = %d but store received %d docs", stored, len(store.docs))
	}
	if stored < 4 {
		t.Fatalf("expected long content to produce several chunks, got %d total", stored)
	}

	for i, n := range store.batches {
		if n > 3 {
			t.Fatalf("batch %d has %d docs, want <= 3", i, n)
		}
	}

	for _, d := range store.docs {
		if d.Metadata["source"] == "" || d.Metadata["chunk_index"] == "" || d.Metadata["total_chunks"] == "" {
			t.Fatalf("missing metadata on doc %q: %v", d.ID, d.Metadata)
		}
		if d.Metadata["ingested_at"] != "2023-11-14T22:13:20Z" {
			t.Fatalf("ingested_at = %q", d.Metadata["ingested_at"])
		}
	}

	// Categories inferred from filenames.
	if store.docs[0].Category != CategoryProjects {
		t.Fatalf("category = %q, want %q", store.docs[0].Category, CategoryProjects)
	}
}

func TestIngestDeterministicIDs(t *testing.T) {
	t.Parallel()

	entries := []Entry{{Content: "Rohit writes Go services.", Source: "about.md"}}

	run := func() []string {
		store := &recordingStore{}
		p, _ := NewPipeline(fakeEmbedder{}, store, nil)
		if _, err := p.Ingest(context.Background(), entries, nil); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
		ids := make([]string, len(store.docs))
		for i, d := range store.docs {
			ids[i] = d.ID
		}
		return ids
	}

	first, second := run(), run()
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d ID changed across runs: %s vs %s", i, first[i], second[i])
		}
	}
	// UUID shape: Qdrant rejects anything else.
	if len(first[0]) != 36 || strings.Count(first[0], "-") != 4 {
		t.Fatalf("chunk ID %q is not UUID-shaped", first[0])
	}
}

func TestChunkPrefersBoundaries(t *testing.T) {
	t.Parallel()

	p, _ := NewPipeline(fakeEmbedder{}, &recordingStore{}, &Config{ChunkSize: 80, ChunkOverlap: 10})

	text := "The assistant answers questions about Rohit's background. " +
		"It retrieves matching chunks from the portfolio corpus first. " +
		"Only then does it generate a grounded natural-language reply."
	chunks := p.chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Every non-final chunk should end at a sentence boundary.
	for _, c := range chunks[:len(chunks)-1] {
		if !strings.HasSuffix(c, ".") {
			t.Fatalf("chunk does not end at sentence boundary: %q", c)
		}
	}
}

func TestChunkKeepsRunesIntact(t *testing.T) {
	t.Parallel()

	p, _ := NewPipeline(fakeEmbedder{}, &recordingStore{}, &Config{ChunkSize: 50, ChunkOverlap: 10})

	// No sentence boundaries, so every window ends in a hard cut that must
	// not land inside a multi-byte rune.
	text := strings.TrimSpace(strings.Repeat("résumé naïveté café détaillé ", 20))
	chunks := p.chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	var rebuilt strings.Builder
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Fatalf("chunk %d is not valid UTF-8: %q", i, c)
		}
		rebuilt.WriteString(c)
	}
	if !utf8.ValidString(rebuilt.String()) {
		t.Fatal("concatenated chunks are not valid UTF-8")
	}
}

func TestChunkEmptyAndTiny(t *testing.T) {
	t.Parallel()

	p, _ := NewPipeline(fakeEmbedder{}, &recordingStore{}, nil)
	if got := p.chunk("   \n  "); got != nil {
		t.Fatalf("whitespace input should produce no chunks, got %v", got)
	}
	if got := p.chunk("tiny"); len(got) != 1 || got[0] != "tiny" {
		t.Fatalf("tiny input should be a single chunk, got %v", got)
	}
}

func TestInferCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source string
		want   string
	}{
		{"projects.md", CategoryProjects},
		{"work-experience.md", CategoryExperience},
		{"tech-stack.txt", CategorySkills},
		{"about.md", CategoryAbout},
		{"education.json", CategoryEducation},
		{"notes.md", CategoryGeneral},
	}
	for _, tt := range tests {
		if got := InferCategory(tt.source); got != tt.want {
			t.Errorf("InferCategory(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
}
