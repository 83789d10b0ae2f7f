package main

import (
	"github.com/spf13/cobra"

	"github.com/ironsheep/lithic-tools-mcp/internal/logging"
	"github.com/ironsheep/lithic-tools-mcp/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Serve speaks MCP (JSON-RPC 2.0, one message per line) on stdin and
stdout. Configure it as a stdio server in your MCP client.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logging.Component(logger, "server")
		log.Debug().Str("build_time", buildTime).Str("commit", gitCommit).Msg("starting")

		srv := server.New(cfg, log, version)
		return srv.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
