// Package commands defines all Cobra CLI commands for the folio binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/rdeshpande/folio-ai/internal/audit"
	"github.com/rdeshpande/folio-ai/internal/config"
	"github.com/rdeshpande/folio-ai/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "folio",
		Short: "folio — the conversational assistant behind Rohit Deshpande's portfolio site",
		Long: `folio answers visitor questions about Rohit's skills, projects, experience,
and background. Answers are grounded in an ingested portfolio corpus via a
Qdrant vector store; when retrieval or the model provider is unavailable the
pipeline degrades through direct generation, pattern matching, and a static
fallback, so the chat widget always gets a response.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.folio/config.yaml).
See 'folio --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.folio/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewStatusCmd(),
		NewResetCmd(),
		NewVersionCmd(),
	)

	return root
}
