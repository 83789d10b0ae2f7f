// Package main is the entry point for the lithics CLI: an MCP server and
// batch tool for classifying the surfaces of lithic artifacts.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/lithic-tools-mcp/internal/config"
	"github.com/ironsheep/lithic-tools-mcp/internal/logging"
)

// Version information - set by ldflags during build
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

// rootCmd is the base command for the lithics CLI.
var rootCmd = &cobra.Command{
	Use:   "lithics",
	Short: "Surface analysis for lithic artifact photographs",
	Long: `lithics segments photographs of stone flakes, measures each outlined
surface and labels it Dorsal, Ventral, Platform or Lateral.

Run "lithics serve" to expose the analysis to MCP clients over stdio, or
use "analyze" and "batch" from the shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file (default: $LITHICS_CONFIG, ./lithics.yaml or ~/.config/lithics/lithics.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json (overrides config)")
}

// setup loads the configuration and builds the logger. Logs go to stderr
// because stdout carries MCP traffic and export output.
func setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	c, err := config.Load(path)
	if err != nil {
		return err
	}

	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		c.Logging.Level = lvl
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		c.Logging.Format = f
	}

	l, err := logging.New(os.Stderr, c.LoggingOptions())
	if err != nil {
		return fmt.Errorf("configuring logging: %w", err)
	}

	cfg, logger = c, l
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
