package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rdeshpande/folio-ai/internal/logging"
	"github.com/rdeshpande/folio-ai/internal/provider"
	"github.com/rdeshpande/folio-ai/internal/server"
	"github.com/rdeshpande/folio-ai/internal/store"
)

// recentExchanges is how many recent exchanges `folio status` prints.
const recentExchanges = 10

// llmProbeTimeout bounds the status command's LLM reachability probe.
const llmProbeTimeout = 10 * time.Second

// NewStatusCmd constructs the `folio status` command, which reports the
// state of the corpus index and the exchange telemetry log.
func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show corpus index size and answer-source statistics",
		Long: `Report the current state of the assistant's backing stores.

Prints the number of chunks in the Qdrant collection, per-source answer
statistics from the telemetry log (how often each pipeline stage answered,
and at what mean confidence), and the most recent exchanges. A rising
fallback share is the main signal that the corpus or the model provider
needs attention.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)
			out := cmd.OutOrStdout()

			// Corpus index. Unreachable Qdrant is reported, not fatal —
			// the other sections are still useful on their own.
			stack, closeStore, err := buildRetrievalStack(ctx, log)
			if err != nil {
				fmt.Fprintf(out, "Corpus index:  unavailable (%v)\n", err)
			} else {
				defer closeStore()
				count, countErr := stack.Store.Count(ctx)
				if countErr != nil {
					fmt.Fprintf(out, "Corpus index:  unavailable (%v)\n", countErr)
				} else {
					fmt.Fprintf(out, "Corpus index:  %d chunks\n", count)
				}
			}

			// LLM backend probe, same as GET /ready.
			backend := getEnvOrDefault("MODEL_PROVIDER", "groq")
			chatModel, provErr := provider.NewFromEnv(ctx)
			if provErr != nil {
				fmt.Fprintf(out, "LLM backend:   %s unconfigured (%v)\n", backend, provErr)
			} else {
				probeCtx, cancel := context.WithTimeout(ctx, llmProbeTimeout)
				pingErr := server.NewLLMPinger(chatModel, backend).Ping(probeCtx)
				cancel()
				if pingErr != nil {
					fmt.Fprintf(out, "LLM backend:   %s unavailable (%v)\n", backend, pingErr)
				} else {
					fmt.Fprintf(out, "LLM backend:   %s available\n", backend)
				}
			}

			dbPath := os.Getenv("FOLIO_TELEMETRY_DB")
			if dbPath == "disabled" {
				fmt.Fprintln(out, "Telemetry:     disabled")
				return nil
			}
			if dbPath == "" {
				dbPath, err = store.DefaultDBPath()
				if err != nil {
					return fmt.Errorf("status: %w", err)
				}
			}

			ts, err := store.Open(dbPath)
			if err != nil {
				fmt.Fprintf(out, "Telemetry:     unavailable (%v)\n", err)
				return nil
			}
			defer func() { _ = ts.Close() }()

			stats, err := ts.Stats(ctx)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			if len(stats) == 0 {
				fmt.Fprintln(out, "Telemetry:     no exchanges recorded yet")
				return nil
			}

			fmt.Fprintln(out, "\nAnswers by source:")
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "  SOURCE\tCOUNT\tMEAN CONFIDENCE")
			for _, s := range stats {
				fmt.Fprintf(tw, "  %s\t%d\t%.2f\n", s.Source, s.Count, s.MeanConfidence)
			}
			if err := tw.Flush(); err != nil {
				return fmt.Errorf("status: %w", err)
			}

			recent, err := ts.Recent(ctx, recentExchanges)
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			if len(recent) > 0 {
				fmt.Fprintln(out, "\nRecent exchanges:")
				for _, e := range recent {
					fmt.Fprintf(out, "  %s  [%s %.2f, %dms]  %s\n",
						e.CreatedAt.Format("2006-01-02 15:04"),
						e.Source, e.Confidence, e.Latency.Milliseconds(), e.Query)
				}
			}

			return nil
		},
	}
}
