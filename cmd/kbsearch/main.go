// Command kbsearch serves hybrid knowledge base retrieval over HTTP, MCP and
// an interactive terminal.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/kbsearch/internal/config"
)

var (
	flagEnv    string
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:           "kbsearch",
	Short:         "Hybrid knowledge base retrieval",
	Long:          `kbsearch answers product support questions by combining a generated structured query with vector similarity over the documentation index.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", config.GetEnv(), "environment: local, dev, docker or prod")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path (default config/<env>.yaml)")

	rootCmd.AddCommand(serveCmd, queryCmd, mcpCmd, indexCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
