package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sfc-gh-gcharriere/cortexdocs/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search
the published chunks and inspect document enrichment.

By default the server communicates over stdio using JSON-RPC. Use --port
to serve streamable HTTP instead, for MCP Inspector or remote clients.

Examples:
  # Stdio mode (default)
  cortexdocs mcp serve

  # HTTP mode
  cortexdocs mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "cortexdocs": {
        "command": "/path/to/cortexdocs",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Search:   searchService,
		Status:   statusService,
		Pipeline: pipelineService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
