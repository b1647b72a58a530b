// Package main provides the CLI entry point for the bridge: a local
// LLM wire-translation gateway that accepts OpenAI, Anthropic, and
// Gemini-shaped chat-completion requests and translates them to and
// from any configured upstream dialect.
//
// # Basic Usage
//
// Start the server:
//
//	bridged serve --config bridge.yaml
//
// Validate a configuration file without starting the server:
//
//	bridged validate-config --config bridge.yaml
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bridged",
		Short: "bridged - local LLM wire-translation gateway",
		Long: `bridged accepts chat-completion requests in one LLM API dialect and
relays them to an upstream that speaks a different one, translating
requests, responses, and streamed events both ways.

Supported dialects: OpenAI, Anthropic, Gemini, DeepSeek, Moonshot, Qwen, Zhipu`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildValidateConfigCmd(),
		buildVersionCmd(),
	)

	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
