package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/pipegraph/internal/cli"
	"github.com/aretw0/pipegraph/pkg/adapters/mcp"
	"github.com/aretw0/pipegraph/pkg/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [pipeline...]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts pipegraph as an MCP server, so AI agents can load pipelines,
query their activation and edit them as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		sessions, closeStore, err := cli.NewManager(cfg, logger, domain.ActivationHooks{})
		if err != nil {
			return err
		}
		defer closeStore()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		if err := preload(sigCtx, sessions, args, logger); err != nil {
			return err
		}

		srv := mcp.NewServer(sessions, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Stdout carries JSON-RPC
			log.SetOutput(os.Stderr)
			logger.Info("Starting pipegraph MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			logger.Info("Starting pipegraph MCP server (SSE)", "port", port)
			if err := srv.ServeSSE(sigCtx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		}
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
