package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/mvp-joe/dsconv/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server exposing dsconv as tools",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can scan
C declarations and generate struct forms.

The MCP server:
- Provides dsconv_scan (declaration metadata as JSON)
- Provides dsconv_struct (generated struct code)
- Resolves relative file paths against the working directory
- Communicates via stdio (standard MCP transport)

Example:
  dsconv mcp`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	projectPath, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	fmt.Fprintf(os.Stderr, "dsconv MCP Server\n")
	fmt.Fprintf(os.Stderr, "Root: %s\n\n", projectPath)

	server, err := mcp.NewMCPServer(cfg, projectPath)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	// Serve (blocks until shutdown)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}
