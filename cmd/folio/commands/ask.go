package commands

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rdeshpande/folio-ai/internal/chat"
	"github.com/rdeshpande/folio-ai/internal/generate"
	"github.com/rdeshpande/folio-ai/internal/logging"
	"github.com/rdeshpande/folio-ai/internal/provider"
)

// NewAskCmd constructs the `folio ask` command, which answers a single
// question through the full pipeline and prints the result to stdout.
func NewAskCmd() *cobra.Command {
	var showProvenance bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the portfolio assistant a single question",
		Long: `Ask the portfolio assistant a question from the command line.

The question runs through the same staged pipeline as POST /chat: grounded
retrieval first, then direct generation, pattern matching, and the static
fallback. Useful for smoke-testing an ingested corpus without starting the
server.

Examples:
  folio ask "what projects has Rohit built?"
  folio ask --provenance "tell me about his cloud experience"
  CHAT_MODE=rag folio ask "what databases does he know?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			mode, err := chatModeFromEnv()
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			// Same degradation rules as serve: missing Qdrant or a missing
			// API key disable stages instead of failing the command.
			var composer chat.ContextComposer
			stack, closeStore, stackErr := buildRetrievalStack(ctx, log)
			if stackErr != nil {
				log.Warn("ask: retrieval unavailable, grounded stage disabled", slog.Any("error", stackErr))
			} else {
				composer = stack.Composer
				defer closeStore()
			}

			var generator chat.AnswerGenerator
			chatModel, provErr := provider.NewFromEnv(ctx)
			if provErr != nil {
				log.Warn("ask: model provider unavailable, generation stages disabled", slog.Any("error", provErr))
			} else {
				gen, genErr := generate.NewGenerator(chatModel, generate.Config{})
				if genErr != nil {
					return fmt.Errorf("ask: %w", genErr)
				}
				generator = gen
			}

			orchestrator := chat.NewOrchestrator(composer, generator, chat.Config{
				Mode: mode,
				// One-shot invocations gain nothing from response caching.
				DisableCache: true,
			})

			resp := orchestrator.Answer(ctx, strings.Join(args, " "))

			fmt.Fprintln(cmd.OutOrStdout(), resp.Text)
			if showProvenance {
				fmt.Fprintf(cmd.ErrOrStderr(), "\n[source: %s, confidence: %.2f", resp.Source, resp.Confidence)
				if len(resp.Sources) > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), ", grounded on: %s", strings.Join(resp.Sources, ", "))
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "]")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showProvenance, "provenance", false, "Print the answer's source stage, confidence, and corpus attributions to stderr")

	return cmd
}
