package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/models"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/response"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/preference"
)

// ProfileHandler handles preference profile endpoints.
type ProfileHandler struct {
	profiles *preference.Service
	logger   zerolog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *preference.Service, logger zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

func toModel(p *preference.Profile) models.Profile {
	return models.Profile{
		PreferenceProfile: p.PreferenceProfile,
		IsDefault:         p.IsDefault,
		CreatedAt:         models.Timestamp(p.CreatedAt),
		UpdatedAt:         models.Timestamp(p.UpdatedAt),
	}
}

func presetModel(p commute.PreferenceProfile) models.Profile {
	return models.Profile{PreferenceProfile: p, Preset: true}
}

// ListProfiles handles GET /v1/me/profiles - stored profiles plus the built-in presets.
func (h *ProfileHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	callerID := GetCallerID(r.Context())
	if callerID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	limit, err := queryInt(r, "limit", 20, 1, 100)
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	result, err := h.profiles.List(r.Context(), callerID, limit)
	if err != nil {
		h.internal(w, r, err)
		return
	}

	list := models.ProfileList{
		Items:   make([]models.Profile, 0, len(result.Items)),
		Presets: make([]models.Profile, 0, len(preference.Presets())),
		Meta:    models.PagedResponseMeta{Limit: limit},
	}
	for _, p := range result.Items {
		list.Items = append(list.Items, toModel(p))
	}
	for _, p := range preference.Presets() {
		list.Presets = append(list.Presets, presetModel(p))
	}
	if result.NextCursor != "" {
		list.Meta.NextCursor = &result.NextCursor
	}

	response.JSON(w, r, http.StatusOK, list)
}

// GetProfile handles GET /v1/me/profiles/{name}.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	callerID := GetCallerID(r.Context())
	if callerID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}
	name := chi.URLParam(r, "name")

	p, err := h.profiles.Get(r.Context(), callerID, name)
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, toModel(p))
	case errors.Is(err, preference.ErrProfileNotFound):
		if preset, ok := preference.Preset(name); ok {
			response.JSON(w, r, http.StatusOK, presetModel(preset))
			return
		}
		response.NotFound(w, r, "preference profile not found")
	default:
		h.internal(w, r, err)
	}
}

// PutProfile handles PUT /v1/me/profiles/{name} - create or replace a profile.
func (h *ProfileHandler) PutProfile(w http.ResponseWriter, r *http.Request) {
	callerID := GetCallerID(r.Context())
	if callerID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}
	name := chi.URLParam(r, "name")

	var input commute.PreferenceProfile
	if err := decodeJSON(w, r, &input); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if input.Name != "" && input.Name != name {
		response.Validation(w, r, commute.NewValidationError("name", "must match the path, got %q", input.Name))
		return
	}
	input.Name = name

	p, err := h.profiles.Update(r.Context(), callerID, input)
	if errors.Is(err, preference.ErrProfileNotFound) {
		p, err = h.profiles.Create(r.Context(), callerID, input)
		if err == nil {
			response.Created(w, r, r.URL.Path, toModel(p))
			return
		}
	}
	switch {
	case err == nil:
		response.JSON(w, r, http.StatusOK, toModel(p))
	case errors.Is(err, commute.ErrValidation):
		response.Validation(w, r, err)
	case errors.Is(err, preference.ErrProfileExists):
		response.Conflict(w, r, "preference profile was created concurrently")
	default:
		h.internal(w, r, err)
	}
}

// DeleteProfile handles DELETE /v1/me/profiles/{name}.
func (h *ProfileHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	callerID := GetCallerID(r.Context())
	if callerID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	err := h.profiles.Delete(r.Context(), callerID, chi.URLParam(r, "name"))
	switch {
	case err == nil:
		response.NoContent(w, r)
	case errors.Is(err, preference.ErrProfileNotFound):
		response.NotFound(w, r, "preference profile not found")
	case errors.Is(err, preference.ErrLastProfile):
		response.Conflict(w, r, err.Error())
	default:
		h.internal(w, r, err)
	}
}

// SetDefaultProfile handles POST /v1/me/profiles/{name}/default.
func (h *ProfileHandler) SetDefaultProfile(w http.ResponseWriter, r *http.Request) {
	callerID := GetCallerID(r.Context())
	if callerID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	err := h.profiles.SetDefault(r.Context(), callerID, chi.URLParam(r, "name"))
	switch {
	case err == nil:
		response.NoContent(w, r)
	case errors.Is(err, preference.ErrProfileNotFound):
		response.NotFound(w, r, "preference profile not found")
	default:
		h.internal(w, r, err)
	}
}

func (h *ProfileHandler) internal(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("preference request failed")
	response.InternalError(w, r, "internal server error")
}
