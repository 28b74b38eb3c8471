// Package ingestion loads portfolio corpus files, chunks their content,
// embeds each chunk, and upserts the results into the vector store. It is
// invoked by the `folio ingest` CLI command and by the authenticated
// /ingest endpoint.
package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rdeshpande/folio-ai/internal/rag"
)

// Entry is one corpus item to be ingested: a block of portfolio content
// with its category and source attribution.
type Entry struct {
	// Content is the raw text of the entry.
	Content string `json:"content"`
	// Category labels the content area (about, skills, projects, ...).
	// Empty means it will be inferred from the source name.
	Category string `json:"category,omitempty"`
	// Source names where the content came from (e.g. "projects.md").
	Source string `json:"source"`
}

// Config holds the configuration for the ingestion pipeline.
type Config struct {
	// ChunkSize is the target number of characters per chunk.
	// Defaults to 800 if zero.
	ChunkSize int

	// ChunkOverlap is the number of characters repeated between consecutive
	// chunks so that facts straddling a boundary survive retrieval.
	// Defaults to 150 if zero.
	ChunkOverlap int

	// BatchSize is the number of chunks embedded and upserted per call.
	// Defaults to 10 if zero.
	BatchSize int
}

// Pipeline orchestrates the load → chunk → embed → upsert flow.
type Pipeline struct {
	embedder rag.Embedder
	store    rag.VectorStore
	cfg      *Config
	// now is replaceable in tests so ingestion timestamps are stable.
	now func() time.Time
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(embedder rag.Embedder, store rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Pipeline{embedder: embedder, store: store, cfg: cfg, now: time.Now}, nil
}

// Ingest chunks, embeds, and stores all provided entries. It processes
// batches sequentially and returns the number of chunks stored along with
// the first error encountered. Progress is reported via the optional
// progress callback.
func (p *Pipeline) Ingest(ctx context.Context, entries []Entry, progress func(msg string)) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}

	ingestedAt := p.now().UTC().Format(time.RFC3339)

	var docs []rag.Document
	for _, entry := range entries {
		category := entry.Category
		if category == "" {
			category = InferCategory(entry.Source)
		}
		chunks := p.chunk(entry.Content)
		progress(fmt.Sprintf("chunked %s into %d chunks", entry.Source, len(chunks)))
		for i, chunk := range chunks {
			docs = append(docs, rag.Document{
				ID:       chunkID(entry.Source, category, i),
				Content:  chunk,
				Category: category,
				Metadata: map[string]string{
					"source":       entry.Source,
					"chunk_index":  fmt.Sprintf("%d", i),
					"total_chunks": fmt.Sprintf("%d", len(chunks)),
					"ingested_at":  ingestedAt,
				},
			})
		}
	}

	stored := 0
	for start := 0; start < len(docs); start += p.cfg.BatchSize {
		end := start + p.cfg.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := docs[start:end]

		texts := make([]string, len(batch))
		for i, d := range batch {
			texts[i] = d.Content
		}
		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return stored, fmt.Errorf("ingestion: embedding batch at %d: %w", start, err)
		}
		if err := p.store.Upsert(ctx, batch, embeddings); err != nil {
			return stored, fmt.Errorf("ingestion: upsert batch at %d: %w", start, err)
		}
		stored += len(batch)
		progress(fmt.Sprintf("stored %d/%d chunks", stored, len(docs)))
	}

	return stored, nil
}

// LoadDir reads corpus entries from every .md, .txt, and .json file under
// dir. Markdown and text files become one entry each; JSON files hold an
// array of entries. Hidden files and subdirectory traversal below one level
// are skipped — the corpus layout is flat by convention.
func LoadDir(dir string) ([]Entry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingestion: read corpus dir: %w", err)
	}

	var entries []Entry
	for _, f := range files {
		name := f.Name()
		if f.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".md", ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("ingestion: read %s: %w", name, err)
			}
			content := strings.TrimSpace(string(data))
			if content == "" {
				continue
			}
			entries = append(entries, Entry{Content: content, Source: name})
		case ".json":
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("ingestion: read %s: %w", name, err)
			}
			var batch []Entry
			if err := json.Unmarshal(data, &batch); err != nil {
				return nil, fmt.Errorf("ingestion: parse %s: %w", name, err)
			}
			for i := range batch {
				if batch[i].Source == "" {
					batch[i].Source = name
				}
			}
			entries = append(entries, batch...)
		}
	}
	return entries, nil
}

// chunk splits text into overlapping chunks of roughly cfg.ChunkSize
// characters, preferring to break at a paragraph boundary, then a sentence
// boundary, before falling back to a hard cut.
func (p *Pipeline) chunk(text string) []string {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return nil
	}

	size := p.cfg.ChunkSize
	overlap := p.cfg.ChunkOverlap

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, strings.TrimSpace(text[start:]))
			break
		}
		end = breakPoint(text, start, end)
		chunks = append(chunks, strings.TrimSpace(text[start:end]))

		next := runeStart(text, end-overlap)
		if next <= start {
			next = end
		}
		start = next
	}

	// Drop empties produced by whitespace-only windows.
	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// breakPoint finds the best cut position at or before limit. Boundaries are
// only considered in the back 40% of the window so chunks cannot collapse
// to fragments.
func breakPoint(text string, start, limit int) int {
	floor := start + (limit-start)*3/5

	if i := strings.LastIndex(text[floor:limit], "\n\n"); i >= 0 {
		return floor + i + 2
	}
	for _, sep := range []string{". ", "! ", "? ", ".\n"} {
		if i := strings.LastIndex(text[floor:limit], sep); i >= 0 {
			return floor + i + len(sep)
		}
	}
	// Hard cut: snap back so a multi-byte rune is never split.
	return runeStart(text, limit)
}

// runeStart walks i back to the start of the UTF-8 rune containing it.
func runeStart(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// chunkID generates a deterministic ID for a chunk from its source,
// category, and index, so re-ingesting the same corpus overwrites in place
// instead of accumulating duplicates. The hash is formatted as a UUID
// because Qdrant only accepts UUID or integer point IDs.
func chunkID(source, category string, index int) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s#%s#%d", source, category, index)))
	return fmt.Sprintf("%x-%x-%x-%x-%x", h[0:4], h[4:6], h[6:8], h[8:10], h[10:16])
}
