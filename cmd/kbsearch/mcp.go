package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	mcpTransport "github.com/kailas-cloud/kbsearch/internal/transport/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the retrieval tool over MCP stdio",
	Long: `Serve the retrieve_documentation tool to an MCP client over stdin/stdout.
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := start(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("Starting MCP server", zap.String("tool", mcpTransport.ToolName))
	if err := mcpTransport.NewServer(a.retriever, a.logger).Serve(); err != nil {
		a.logger.Error("MCP server stopped", zap.Error(err))
		return err //nolint:wrapcheck // already logged
	}
	return nil
}
