// Package cli implements commutectl, the offline companion to the API: it
// ranks route files, lints explanation text, prints thresholds, validates
// target files and mints access tokens.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/config"
)

// NewRootCommand builds the commutectl command tree. Output goes to the
// command's configured writers so callers can capture it.
func NewRootCommand() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "commutectl",
		Short:         "Rank commute routes and inspect monitoring configuration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (debug, info, warn, error)")

	logger := func(cmd *cobra.Command) zerolog.Logger {
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			level = zerolog.WarnLevel
		}
		return config.NewLogger(cmd.ErrOrStderr(), "commutectl", "cli", level)
	}

	root.AddCommand(
		newRankCommand(logger),
		newLintCommand(),
		newThresholdsCommand(),
		newTargetsCommand(),
		newTokenCommand(),
	)
	return root
}

// Execute runs commutectl and exits non-zero on failure.
func Execute() {
	root := NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
