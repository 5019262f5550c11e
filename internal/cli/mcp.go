package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/allergy-diary/internal/mcpserver"
)

func init() {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the diary as an MCP server (stdio)",
		Long: `Start a Model Context Protocol (MCP) server that exposes the diary as tools
over STDIO: list_profiles, log_food, log_symptom, recent_entries, search_diary,
usage and, when a language model is configured, suggest_triggers.

Daily limits apply exactly as on the command line.`,
		Run: runMCP,
	}

	RootCmd.AddCommand(cmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	a := openApp()
	defer a.Close()

	// stdout carries the JSON-RPC stream.
	fmt.Fprintln(os.Stderr, "allergy-diary MCP server listening on STDIN/STDOUT (Ctrl+C to quit)")
	if err := mcpserver.Serve(a); err != nil {
		fmt.Fprintf(os.Stderr, "error: mcp: %v\n", err)
	}
}
