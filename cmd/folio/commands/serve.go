package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/rdeshpande/folio-ai/internal/chat"
	"github.com/rdeshpande/folio-ai/internal/generate"
	"github.com/rdeshpande/folio-ai/internal/ingestion"
	"github.com/rdeshpande/folio-ai/internal/logging"
	"github.com/rdeshpande/folio-ai/internal/provider"
	"github.com/rdeshpande/folio-ai/internal/server"
	"github.com/rdeshpande/folio-ai/internal/store"
	"github.com/rdeshpande/folio-ai/internal/tracing"
)

// NewServeCmd constructs the `folio serve` command, which starts the HTTP
// server behind the portfolio website's chat widget.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the folio HTTP server",
		Long: `Start the folio HTTP server on localhost.

The server exposes POST /chat for visitor questions and POST /ingest for
authenticated corpus updates, plus /health, /ready, and /metrics.

Missing dependencies degrade the pipeline rather than failing startup:
without Qdrant the grounded stage is skipped, and without a model API key
the direct stage is skipped — pattern matching and the static fallback
still answer every request.

Examples:
  folio serve
  folio serve --port 9090
  MODEL_PROVIDER=ollama folio serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "groq")))

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			mode, err := chatModeFromEnv()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			var pingers []server.Pinger

			// Retrieval stack. Unreachable Qdrant is non-fatal: the pipeline
			// runs without its grounded stage and /ready reports degraded.
			var composer chat.ContextComposer
			var ingester *ingestion.Pipeline
			stack, closeStore, stackErr := buildRetrievalStack(ctx, log)
			if stackErr != nil {
				log.Warn("serve: retrieval unavailable, grounded stage disabled", slog.Any("error", stackErr))
			} else {
				composer = stack.Composer
				defer closeStore()
				pingers = append(pingers, server.NewQdrantPinger(stack.Store))

				ingester, err = ingestion.NewPipeline(stack.Embedder, stack.Store, nil)
				if err != nil {
					return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
				}
			}

			// Model provider. A missing API key is non-fatal for the same
			// reason: the offline stages still answer.
			var generator chat.AnswerGenerator
			backend := getEnvOrDefault("MODEL_PROVIDER", "groq")
			chatModel, provErr := provider.NewFromEnv(ctx)
			if provErr != nil {
				log.Warn("serve: model provider unavailable, generation stages disabled", slog.Any("error", provErr))
			} else {
				gen, genErr := generate.NewGenerator(chatModel, generate.Config{})
				if genErr != nil {
					return fmt.Errorf("serve: %w", genErr)
				}
				generator = gen
				pingers = append(pingers, server.NewLLMPinger(chatModel, backend))
				log.Info("provider initialised", slog.String("provider", backend))
			}

			orchestrator := chat.NewOrchestrator(composer, generator, chat.Config{Mode: mode})

			// Open exchange telemetry store. FOLIO_TELEMETRY_DB overrides the
			// default path (~/.folio/telemetry.db); "disabled" turns it off.
			var recorder store.ExchangeStore
			dbPath := os.Getenv("FOLIO_TELEMETRY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("telemetry: could not resolve default DB path, disabling", slog.Any("error", err))
						dbPath = ""
					}
				}
				if dbPath != "" {
					ts, tsErr := store.Open(dbPath)
					if tsErr != nil {
						log.Warn("telemetry: failed to open store, disabling", slog.Any("error", tsErr))
					} else {
						recorder = ts
						defer func() { _ = ts.Close() }()
						log.Info("telemetry: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("telemetry: disabled via FOLIO_TELEMETRY_DB=disabled")
			}

			deps := &server.Deps{
				Answerer: orchestrator,
				Recorder: recorder,
			}
			if ingester != nil {
				deps.Ingester = ingester
			}

			srv, err := server.New(deps, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("FOLIO_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
