package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/rdeshpande/folio-ai/internal/chat"
	"github.com/rdeshpande/folio-ai/internal/embedder"
	"github.com/rdeshpande/folio-ai/internal/rag"
)

// getEnvOrDefault returns the value of the environment variable key, or def
// when it is unset or empty.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the integer value of the environment variable key, or
// def when it is unset, empty, or unparseable.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// getEnvFloat32 returns the float value of the environment variable key, or
// def when it is unset, empty, or unparseable.
func getEnvFloat32(key string, def float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return def
	}
	return float32(f)
}

// chatModeFromEnv resolves CHAT_MODE into a pipeline mode, defaulting to
// the full four-stage chain.
func chatModeFromEnv() (chat.Mode, error) {
	switch m := strings.ToLower(getEnvOrDefault("CHAT_MODE", string(chat.ModeAuto))); chat.Mode(m) {
	case chat.ModeAuto:
		return chat.ModeAuto, nil
	case chat.ModeRAG:
		return chat.ModeRAG, nil
	default:
		return "", fmt.Errorf("CHAT_MODE must be %q or %q, got %q", chat.ModeAuto, chat.ModeRAG, m)
	}
}

// buildVectorStore connects to Qdrant using the QDRANT_* environment
// variables and locks the collection to the embedder's dimensionality.
func buildVectorStore(ctx context.Context, emb rag.Embedder, log *slog.Logger) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)
	collection := getEnvOrDefault("QDRANT_COLLECTION", "folio-portfolio")

	store, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: collection,
		VectorSize: uint64(emb.Dimensions()), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}

	log.Info("qdrant store ready",
		slog.String("host", host),
		slog.Int("port", port),
		slog.String("collection", collection),
		slog.Int("dimensions", emb.Dimensions()),
	)
	return store, nil
}

// retrievalStack bundles the wired retrieval dependencies: the embedder,
// the Qdrant-backed vector store, and the context composer over them.
type retrievalStack struct {
	// Embedder converts text into vectors for search and ingestion.
	Embedder rag.Embedder
	// Store is the Qdrant-backed vector store.
	Store *rag.QdrantStore
	// Composer is the retrieval-and-context composer over Embedder and Store.
	Composer *rag.Composer
}

// buildRetrievalStack wires embedder, Qdrant store, and composer from the
// environment. The returned close function releases the Qdrant connection.
func buildRetrievalStack(ctx context.Context, log *slog.Logger) (*retrievalStack, func(), error) {
	if err := embedder.ValidateForRAG(log); err != nil {
		return nil, nil, err
	}

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised",
		slog.String("provider", getEnvOrDefault("EMBEDDING_PROVIDER", "local")))

	store, err := buildVectorStore(ctx, emb, log)
	if err != nil {
		return nil, nil, err
	}

	composer, err := rag.NewComposer(emb, store, &rag.ComposerConfig{
		TopK:     getEnvInt("CHAT_TOP_K", 0),
		MinScore: getEnvFloat32("CHAT_MIN_SCORE", 0),
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	stack := &retrievalStack{Embedder: emb, Store: store, Composer: composer}
	return stack, func() { _ = store.Close() }, nil
}
