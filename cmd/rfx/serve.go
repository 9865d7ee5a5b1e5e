package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"rfx/internal/mcp"
	"rfx/internal/version"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP stdio server",
	Long: `Starts the MCP server on stdin/stdout, exposing refactor.plan,
refactor.preview, and refactor.apply to agent clients. Logs go to stderr;
stdout carries only protocol messages.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewMCPServer(version.Version, eng, eng.Logger())
	return server.Start(ctx)
}
