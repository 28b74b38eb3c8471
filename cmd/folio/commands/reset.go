package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rdeshpande/folio-ai/internal/logging"
)

// NewResetCmd constructs the `folio reset` command, which clears the
// corpus collection in Qdrant.
func NewResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every chunk from the corpus collection",
		Long: `Delete all vectors from the Qdrant corpus collection.

Use this before re-ingesting after an embedding backend change — chunks
embedded with different backends must never share a collection, because
their similarity scores are not comparable.

Requires --yes to actually delete; without it the command only reports
what would be removed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)
			out := cmd.OutOrStdout()

			stack, closeStore, err := buildRetrievalStack(ctx, log)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			defer closeStore()

			count, err := stack.Store.Count(ctx)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}

			collection := getEnvOrDefault("QDRANT_COLLECTION", "folio-portfolio")
			if !yes {
				fmt.Fprintf(out, "Would delete %d chunks from collection %q. Re-run with --yes to confirm.\n", count, collection)
				return nil
			}

			if err := stack.Store.Clear(ctx); err != nil {
				return fmt.Errorf("reset: %w", err)
			}

			log.Info("corpus cleared", slog.String("collection", collection), slog.Uint64("chunks", count))
			fmt.Fprintf(out, "Deleted %d chunks from collection %q.\n", count, collection)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
