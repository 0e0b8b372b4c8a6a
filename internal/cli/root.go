// Package cli defines Cobra command definitions for the chorus CLI.
// This file contains the root command and shared process setup.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags at build time

var rootCmd = &cobra.Command{
	Use:   "chorus",
	Short: "A team of IRC chat bots with language-model personas",
	Long: `Chorus connects one or more bot personas to an IRC channel.
Each bot keeps its own conversation context, answers mentions and
direct messages, and can chime in on its own. Replies are generated
by an OpenAI-compatible backend such as Ollama.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil {
			// Not an error: environment variables alone are fine.
			slog.Debug("no .env file found, using environment variables")
		}
		setupLogging()
	},
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

func init() {
	rootCmd.AddCommand(teamCmd)
	rootCmd.AddCommand(botCmd)
}
