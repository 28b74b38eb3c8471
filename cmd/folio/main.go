// Command folio is the entry point for the portfolio assistant.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// POST /chat endpoint the portfolio website's chat widget talks to.
package main

import (
	"fmt"
	"os"

	"github.com/rdeshpande/folio-ai/cmd/folio/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
