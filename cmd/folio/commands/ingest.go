package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rdeshpande/folio-ai/internal/ingestion"
	"github.com/rdeshpande/folio-ai/internal/logging"
)

// NewIngestCmd constructs the `folio ingest` command, which loads the
// portfolio corpus into the Qdrant vector store.
func NewIngestCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest the portfolio corpus into the vector store",
		Long: `Load portfolio content from a directory and index it into Qdrant.

The directory is read flat (no recursion). Markdown and plain-text files
become one corpus entry each, with the category inferred from the filename
(e.g. work-experience.md -> experience). JSON files hold an array of
entries with explicit content, category, and source fields.

Chunk IDs are deterministic, so re-running ingest over the same content
updates chunks in place rather than duplicating them.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: folio-portfolio)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   local, ollama, openai, azure (default: local)

Examples:
  folio ingest --dir ./corpus
  EMBEDDING_PROVIDER=ollama folio ingest --dir ./corpus`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if dir == "" {
				return fmt.Errorf("ingest: --dir is required")
			}

			entries, err := ingestion.LoadDir(dir)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if len(entries) == 0 {
				return fmt.Errorf("ingest: no corpus entries found in %s", dir)
			}
			log.Info("corpus loaded", slog.String("dir", dir), slog.Int("entries", len(entries)))

			stack, closeStore, err := buildRetrievalStack(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer closeStore()

			pipeline, err := ingestion.NewPipeline(stack.Embedder, stack.Store, nil)
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			stored, err := pipeline.Ingest(ctx, entries, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("ingest: pipeline failed: %w", err)
			}

			log.Info("ingestion complete", slog.Int("entries", len(entries)), slog.Int("chunks", stored))
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d entries as %d chunks.\n", len(entries), stored)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory holding the portfolio corpus (.md, .txt, .json)")

	return cmd
}
