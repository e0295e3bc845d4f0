package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "finplan",
	Short: "Build a personal financial plan with an AI assistant",
	Long: `finplan asks for your profile, shows advice given to a similar profile
before, and then talks you through a financial plan with an AI assistant.
Every exchange is logged; when the assistant delivers the final plan it is
saved as a Markdown (and optionally HTML) document next to the log.

Type 'quit' to leave, or '/attach <file>' to share a PDF, HTML or text file
with the assistant.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
	RunE: runSession,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Flags().String("backend", "", "agent backend: gemini, openrouter or ollama (overrides agent.backend)")
	rootCmd.Flags().String("model", "", "model name (overrides agent.model)")
	rootCmd.Flags().String("log-dir", "", "directory for conversation logs and reports (overrides storage.log_dir)")
	rootCmd.Flags().Bool("html", false, "also write the final plan as HTML")
	rootCmd.Flags().String("completion", "", "final plan detection: keyword or marker (overrides completion.mode)")

	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setupLogging installs the default slog handler. Logs go to stderr so they
// never interleave with the conversation on stdout.
func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
