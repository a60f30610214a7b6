package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/auth"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/config"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/explain"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/worker"
)

// ErrLintFailed is returned when at least one message fails the language check.
var ErrLintFailed = errors.New("unjustified wording found")

func newLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lint [MESSAGE...]",
		Short: "Check explanation text for unjustified superlatives",
		Long: "Lint checks each argument, or each stdin line when no arguments are given, " +
			"for prescriptive or superlative wording without a weight statement.",
		RunE: func(cmd *cobra.Command, args []string) error {
			messages := args
			if len(messages) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					if line := strings.TrimSpace(sc.Text()); line != "" {
						messages = append(messages, line)
					}
				}
				if err := sc.Err(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			failed := 0
			for i, m := range messages {
				report := explain.CheckLanguage(m)
				switch {
				case !report.Compliant:
					failed++
					fmt.Fprintf(out, "%d: FAIL %v\n", i+1, report.Err())
				case len(report.Warnings) > 0:
					fmt.Fprintf(out, "%d: WARN overconfident wording: %s\n", i+1, strings.Join(report.Warnings, ", "))
				default:
					fmt.Fprintf(out, "%d: ok\n", i+1)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%w in %d of %d messages", ErrLintFailed, failed, len(messages))
			}
			return nil
		},
	}
}

func newThresholdsCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Print the effective change thresholds as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			set := conditions.DefaultThresholds()
			if file != "" {
				loaded, err := conditions.LoadThresholds(file)
				if err != nil {
					return err
				}
				set = loaded
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(set); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Thresholds file to validate and print instead of the defaults")
	return cmd
}

func newTargetsCommand() *cobra.Command {
	targets := &cobra.Command{
		Use:   "targets",
		Short: "Work with monitoring target files",
	}
	targets.AddCommand(&cobra.Command{
		Use:   "validate FILE",
		Short: "Validate a targets file and list its targets in priority order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := worker.LoadTargets(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, t := range list {
				types := make([]string, len(t.Types))
				for i, ct := range t.Types {
					types[i] = string(ct)
				}
				fmt.Fprintf(out, "%s\t%s\n", t.ID, strings.Join(types, ","))
			}
			fmt.Fprintf(out, "%d targets ok\n", len(list))
			return nil
		},
	})
	return targets
}

func newTokenCommand() *cobra.Command {
	var (
		signingKey string
		issuer     string
		audience   string
	)
	service := func() *auth.TokenService {
		return auth.NewTokenService(auth.TokenConfig{SigningKey: signingKey, Issuer: issuer, Audience: audience})
	}

	token := &cobra.Command{
		Use:   "token",
		Short: "Issue and verify API access tokens",
	}
	token.PersistentFlags().StringVar(&signingKey, "signing-key", envOr("JWT_SIGNING_KEY", config.DevSigningKey), "HMAC signing key")
	token.PersistentFlags().StringVar(&issuer, "issuer", envOr("JWT_ISSUER", "https://commute.example.com"), "Token issuer")
	token.PersistentFlags().StringVar(&audience, "audience", envOr("JWT_AUDIENCE", "commute-api"), "Token audience")

	var (
		ttl    time.Duration
		scopes []string
	)
	issue := &cobra.Command{
		Use:   "issue SUBJECT",
		Short: "Mint a token for a caller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, expires, err := service().Issue(args[0], ttl, scopes...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"accessToken": tok,
				"expiresAt":   expires.UTC().Format(time.RFC3339),
			})
		},
	}
	issue.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenExpiry, "Token lifetime")
	issue.Flags().StringSliceVar(&scopes, "scope", nil, "Scopes to grant (repeatable); none grants every scope")

	verify := &cobra.Command{
		Use:   "verify TOKEN",
		Short: "Validate a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			claims, err := service().Parse(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"subject":   claims.Subject,
				"scopes":    claims.Scopes,
				"expiresAt": claims.ExpiresAt.UTC().Format(time.RFC3339),
			})
		},
	}

	token.AddCommand(issue, verify)
	return token
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
