package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/models"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/response"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/explain"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/preference"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/ranking"
)

// ConditionLookup returns the latest snapshot observed for a monitored
// target. *conditions.Detector implements it.
type ConditionLookup interface {
	Last(targetID string, ct conditions.Type) (conditions.Snapshot, bool)
}

// RankHandlerConfig holds the dependencies of a RankHandler.
type RankHandlerConfig struct {
	Engine    *ranking.Engine
	Generator *explain.Generator
	Profiles  *preference.Service
	// Conditions supplies explanation context for requests naming a
	// monitored target. Optional.
	Conditions ConditionLookup
	Logger     zerolog.Logger
}

// RankHandler handles route ranking endpoints.
type RankHandler struct {
	engine     *ranking.Engine
	generator  *explain.Generator
	profiles   *preference.Service
	conditions ConditionLookup
	logger     zerolog.Logger
}

// NewRankHandler creates a new RankHandler.
func NewRankHandler(cfg RankHandlerConfig) *RankHandler {
	return &RankHandler{
		engine:     cfg.Engine,
		generator:  cfg.Generator,
		profiles:   cfg.Profiles,
		conditions: cfg.Conditions,
		logger:     cfg.Logger,
	}
}

// Rank handles POST /v1/routes:rank - score, rank and explain a batch of routes.
func (h *RankHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req models.RankRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	profile, ok := h.resolveProfile(w, r, req.Profile, req.ProfileName)
	if !ok {
		return
	}

	ranked, err := h.engine.ScoreAndRank(req.Routes, profile)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	conditionContext, err := h.conditionContext(req.TargetID, req.Conditions)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	bundle, err := h.generator.Explain(ranked, conditionContext)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if req.ReferenceRouteID != "" && req.ReferenceRouteID != bundle.RecommendedRouteID {
		cmp, err := ranking.Compare(ranked, req.ReferenceRouteID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		bundle.Comparison = cmp
	}

	response.JSON(w, r, http.StatusOK, models.RankResponse{
		Profile:        profile,
		Ranked:         ranked,
		Recommendation: bundle,
	})
}

// Compare handles POST /v1/routes:compare - pairwise trade-offs of a batch.
func (h *RankHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req models.CompareRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	profile, ok := h.resolveProfile(w, r, req.Profile, req.ProfileName)
	if !ok {
		return
	}

	ranked, err := h.engine.ScoreAndRank(req.Routes, profile)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cmp, err := ranking.Compare(ranked, req.ReferenceRouteID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, cmp)
}

// Impact handles POST /v1/routes:impact - preview how new weights would
// change the ranking.
func (h *RankHandler) Impact(w http.ResponseWriter, r *http.Request) {
	var req models.ImpactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	if (req.ProposedWeights == nil) == (req.Adjust == nil) {
		response.BadRequest(w, r, "exactly one of proposedWeights or adjust is required", nil)
		return
	}

	profile, ok := h.resolveProfile(w, r, req.Profile, req.ProfileName)
	if !ok {
		return
	}

	var proposed commute.Weights
	if req.Adjust != nil {
		if !slices.Contains(commute.Criteria, req.Adjust.Criterion) {
			response.Validation(w, r, commute.NewValidationError("adjust.criterion", "unknown criterion %q", req.Adjust.Criterion))
			return
		}
		adjusted, err := ranking.AdjustWeight(profile.Weights, req.Adjust.Criterion, req.Adjust.Value)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		proposed = adjusted
	} else {
		proposed = *req.ProposedWeights
	}

	impact, err := h.engine.PreferenceImpact(req.Routes, profile, proposed)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.ImpactResponse{Impact: impact})
}

// resolveProfile picks the weights for a request. It writes the error
// response and returns false when no profile can be resolved.
func (h *RankHandler) resolveProfile(w http.ResponseWriter, r *http.Request, inline *commute.PreferenceProfile, name string) (commute.PreferenceProfile, bool) {
	if inline != nil {
		if name != "" {
			response.BadRequest(w, r, "profile and profileName are mutually exclusive", nil)
			return commute.PreferenceProfile{}, false
		}
		if err := inline.Validate(); err != nil {
			response.Validation(w, r, err)
			return commute.PreferenceProfile{}, false
		}
		return *inline, true
	}

	profile, err := h.lookupProfile(r.Context(), GetCallerID(r.Context()), name)
	if err != nil {
		if errors.Is(err, preference.ErrProfileNotFound) {
			response.NotFound(w, r, fmt.Sprintf("preference profile %q not found", name))
			return commute.PreferenceProfile{}, false
		}
		h.fail(w, r, err)
		return commute.PreferenceProfile{}, false
	}
	return profile, true
}

func (h *RankHandler) lookupProfile(ctx context.Context, callerID, name string) (commute.PreferenceProfile, error) {
	if h.profiles == nil {
		if name == "" {
			name = preference.BalancedProfileName
		}
		if preset, ok := preference.Preset(name); ok {
			return preset, nil
		}
		return commute.PreferenceProfile{}, preference.ErrProfileNotFound
	}
	return h.profiles.Resolve(ctx, callerID, name)
}

// conditionContext merges explicit snapshots with the latest observations of
// a monitored target. Explicit snapshots win; among duplicates of one type
// the newest is kept.
func (h *RankHandler) conditionContext(targetID string, snapshots []conditions.Snapshot) (explain.Context, error) {
	cc := explain.Context{}
	if targetID != "" && h.conditions != nil {
		for _, ct := range conditions.Types {
			if snap, ok := h.conditions.Last(targetID, ct); ok {
				cc[ct] = snap
			}
		}
	}

	explicit := make(map[conditions.Type]bool, len(snapshots))
	for i, snap := range snapshots {
		if !snap.Type.Valid() {
			return nil, commute.NewValidationError(fmt.Sprintf("conditions[%d].type", i), "unknown condition type %q", snap.Type)
		}
		if prev, seen := cc[snap.Type]; explicit[snap.Type] && seen && prev.Timestamp.After(snap.Timestamp) {
			continue
		}
		cc[snap.Type] = snap
		explicit[snap.Type] = true
	}

	if len(cc) == 0 {
		return nil, nil
	}
	return cc, nil
}

// fail maps domain errors to problem responses.
func (h *RankHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, commute.ErrValidation) {
		response.Validation(w, r, err)
		return
	}
	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("ranking request failed")
	response.InternalError(w, r, "internal server error")
}
