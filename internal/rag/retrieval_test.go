package rag_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/rdeshpande/folio-ai/internal/embedder"
	"github.com/rdeshpande/folio-ai/internal/ingestion"
	"github.com/rdeshpande/folio-ai/internal/rag"
)

// memStore is an in-memory VectorStore with brute-force cosine search, used
// to exercise the ingest-and-retrieve flow without a running Qdrant.
type memStore struct {
	mu      sync.Mutex
	docs    map[string]rag.Document
	vectors map[string][]float32
}

func newMemStore() *memStore {
	return &memStore{
		docs:    make(map[string]rag.Document),
		vectors: make(map[string][]float32),
	}
}

func (m *memStore) Upsert(_ context.Context, docs []rag.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return errors.New("memstore: docs and embeddings length mismatch")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range docs {
		m.docs[d.ID] = d
		m.vectors[d.ID] = embeddings[i]
	}
	return nil
}

func (m *memStore) Search(_ context.Context, query []float32, topK int) ([]rag.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]rag.Document, 0, len(m.docs))
	for id, d := range m.docs {
		d.Score = cosine(query, m.vectors[id])
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *memStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]rag.Document)
	m.vectors = make(map[string][]float32)
	return nil
}

func (m *memStore) Count(context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return uint64(len(m.docs)), nil
}

func (m *memStore) Close() error { return nil }

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func TestIngestThenRetrieve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	emb := embedder.NewLocalEmbedder(nil)
	store := newMemStore()

	pipeline, err := ingestion.NewPipeline(emb, store, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	stored, err := pipeline.Ingest(ctx, []ingestion.Entry{{
		Content:  "Rohit builds AI systems using Python and TensorFlow.",
		Category: "skills",
		Source:   "skills.md",
	}}, nil)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if stored != 1 {
		t.Fatalf("stored %d chunks, want 1", stored)
	}

	composer, err := rag.NewComposer(emb, store, nil)
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}

	bundle, err := composer.Compose(ctx, "What programming languages does Rohit use?", false)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(bundle.Items) == 0 {
		t.Fatal("bundle is empty, want the ingested chunk")
	}
	if !strings.Contains(bundle.Items[0].Content, "Python") {
		t.Fatalf("top item = %q, want the Python chunk", bundle.Items[0].Content)
	}
	if got := bundle.Items[0].Category; got != "skills" {
		t.Fatalf("category = %q, want skills", got)
	}
	if !strings.Contains(bundle.Context, "Python") {
		t.Fatal("assembled context should carry the chunk text")
	}
}

func TestRetrieveFromClearedCorpus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	emb := embedder.NewLocalEmbedder(nil)
	store := newMemStore()

	pipeline, err := ingestion.NewPipeline(emb, store, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	if _, err := pipeline.Ingest(ctx, []ingestion.Entry{{
		Content: "Rohit builds AI systems using Python and TensorFlow.",
		Source:  "skills.md",
	}}, nil); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	composer, err := rag.NewComposer(emb, store, nil)
	if err != nil {
		t.Fatalf("NewComposer: %v", err)
	}
	if _, err := composer.Compose(ctx, "What programming languages does Rohit use?", false); !errors.Is(err, rag.ErrNoRelevantContext) {
		t.Fatalf("err = %v, want ErrNoRelevantContext on an empty corpus", err)
	}
}
