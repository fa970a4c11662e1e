// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/zidariuandrei/tane/internal/logging"
	"github.com/zidariuandrei/tane/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve seed tools to an MCP client over stdio",
	Long: `MCP runs a Model Context Protocol server on stdin/stdout with tools to
plant, list, show and regenerate seeds. Research itself still happens in
"tane serve" or "tane grow". Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	_, s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log := logging.Component(logger, "mcp")
	log.Info().Msg("mcp server starting (stdio)")
	return mcpserver.New(s, version, log).Run(ctx, &mcp.StdioTransport{})
}
