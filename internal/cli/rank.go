package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/models"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/explain"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/preference"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/ranking"
)

func newRankCommand(logger func(*cobra.Command) zerolog.Logger) *cobra.Command {
	var (
		preset    string
		reference string
		scaling   string
		text      bool
	)

	cmd := &cobra.Command{
		Use:   "rank FILE",
		Short: "Rank the routes in a request file and explain the result",
		Long: "Rank reads a JSON document shaped like the body of POST /v1/routes:rank " +
			"(\"-\" reads stdin). Named profiles resolve against the built-in presets only.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRankRequest(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if preset != "" {
				req.ProfileName = preset
				req.Profile = nil
			}
			if reference != "" {
				req.ReferenceRouteID = reference
			}

			profile, err := offlineProfile(req)
			if err != nil {
				return err
			}

			log := logger(cmd)
			engine := ranking.NewEngine(ranking.Config{Scaling: ranking.Scaling(scaling)})
			ranked, err := engine.ScoreAndRank(req.Routes, profile)
			if err != nil {
				return err
			}

			bundle, err := explain.NewGenerator(explain.GeneratorConfig{Logger: log}).
				Explain(ranked, latestConditions(req.Conditions))
			if err != nil {
				return err
			}
			if req.ReferenceRouteID != "" && req.ReferenceRouteID != bundle.RecommendedRouteID {
				if bundle.Comparison, err = ranking.Compare(ranked, req.ReferenceRouteID); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if text {
				for _, a := range ranked {
					fmt.Fprintf(out, "%d. %s  score %.3f  %d min  %.2f\n",
						a.Rank, a.Route.ID, a.Score, a.Route.EstimatedMinutes, a.Route.EstimatedCost)
				}
				fmt.Fprintln(out)
				for _, m := range bundle.Messages() {
					fmt.Fprintln(out, "-", m)
				}
				return nil
			}
			return writeJSON(out, models.RankResponse{
				Profile:        profile,
				Ranked:         ranked,
				Recommendation: bundle,
			})
		},
	}

	cmd.Flags().StringVar(&preset, "preset", "", "Rank with a built-in preset instead of the file's profile")
	cmd.Flags().StringVar(&reference, "reference", "", "Route ID to compare the recommendation against")
	cmd.Flags().StringVar(&scaling, "scaling", string(ranking.ScalingAnchored), "Normalization bounds (anchored or batch)")
	cmd.Flags().BoolVar(&text, "text", false, "Print a readable summary instead of JSON")
	return cmd
}

func readRankRequest(stdin io.Reader, path string) (models.RankRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return models.RankRequest{}, err
		}
		defer f.Close()
		r = f
	}

	var req models.RankRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return models.RankRequest{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return req, nil
}

func offlineProfile(req models.RankRequest) (commute.PreferenceProfile, error) {
	switch {
	case req.Profile != nil && req.ProfileName != "":
		return commute.PreferenceProfile{}, commute.NewValidationError("profile", "give either profile or profileName, not both")
	case req.Profile != nil:
		if err := req.Profile.Validate(); err != nil {
			return commute.PreferenceProfile{}, err
		}
		return *req.Profile, nil
	}

	name := req.ProfileName
	if name == "" {
		name = preference.BalancedProfileName
	}
	p, ok := preference.Preset(name)
	if !ok {
		return commute.PreferenceProfile{}, fmt.Errorf("%w: %s", preference.ErrProfileNotFound, name)
	}
	return p, nil
}

// latestConditions keeps the newest snapshot per condition type.
func latestConditions(snaps []conditions.Snapshot) explain.Context {
	if len(snaps) == 0 {
		return nil
	}
	cc := make(explain.Context, len(snaps))
	for _, s := range snaps {
		if prev, ok := cc[s.Type]; ok && prev.Timestamp.After(s.Timestamp) {
			continue
		}
		cc[s.Type] = s
	}
	return cc
}
