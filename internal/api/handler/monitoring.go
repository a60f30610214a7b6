package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/models"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/response"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"
)

// MonitoringHandler handles condition monitoring endpoints.
type MonitoringHandler struct {
	scheduler *monitor.Scheduler
	logger    zerolog.Logger
}

// NewMonitoringHandler creates a new MonitoringHandler.
func NewMonitoringHandler(scheduler *monitor.Scheduler, logger zerolog.Logger) *MonitoringHandler {
	return &MonitoringHandler{scheduler: scheduler, logger: logger}
}

// ListTargets handles GET /v1/monitoring/targets.
func (h *MonitoringHandler) ListTargets(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.TargetList{Items: h.scheduler.Status()})
}

// CreateTarget handles POST /v1/monitoring/targets - start monitoring a
// commute. A target without types watches every condition type.
func (h *MonitoringHandler) CreateTarget(w http.ResponseWriter, r *http.Request) {
	var target conditions.Target
	if err := decodeJSON(w, r, &target); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if len(target.Types) == 0 {
		target.Types = append([]conditions.Type(nil), conditions.Types...)
	}

	if err := h.scheduler.StartMonitoring(target); err != nil {
		h.fail(w, r, err)
		return
	}

	status, _ := h.status(target.ID)
	response.Created(w, r, "/v1/monitoring/targets/"+target.ID, status)
}

// GetTarget handles GET /v1/monitoring/targets/{targetId}.
func (h *MonitoringHandler) GetTarget(w http.ResponseWriter, r *http.Request) {
	status, ok := h.status(chi.URLParam(r, "targetId"))
	if !ok {
		response.NotFound(w, r, "monitoring target not found")
		return
	}
	response.JSON(w, r, http.StatusOK, status)
}

// DeleteTarget handles DELETE /v1/monitoring/targets/{targetId}.
func (h *MonitoringHandler) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduler.StopMonitoring(chi.URLParam(r, "targetId")); err != nil {
		h.fail(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// CheckTarget handles POST /v1/monitoring/targets/{targetId}/check - poll
// every condition type of the target now.
func (h *MonitoringHandler) CheckTarget(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetId")

	changes, err := h.scheduler.CheckNow(r.Context(), targetID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if changes == nil {
		changes = []conditions.ChangeRecord{}
	}
	response.JSON(w, r, http.StatusOK, models.CheckResult{TargetID: targetID, Changes: changes})
}

// ListChanges handles GET /v1/monitoring/changes - recent change records,
// newest first. Supports targetId, type, minSignificance, since (RFC 3339)
// and limit query parameters.
func (h *MonitoringHandler) ListChanges(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := monitor.HistoryFilter{
		TargetID: q.Get("targetId"),
		Type:     conditions.Type(q.Get("type")),
	}

	if filter.Type != "" && !filter.Type.Valid() {
		response.Validation(w, r, commute.NewValidationError("type", "unknown condition type %q", filter.Type))
		return
	}
	if raw := q.Get("minSignificance"); raw != "" {
		sig, err := conditions.ParseSignificance(raw)
		if err != nil {
			response.Validation(w, r, commute.NewValidationError("minSignificance", "%s", err.Error()))
			return
		}
		filter.MinSignificance = sig
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Validation(w, r, commute.NewValidationError("since", "must be an RFC 3339 timestamp"))
			return
		}
		filter.Since = since
	}
	limit, err := queryInt(r, "limit", 50, 1, 500)
	if err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	filter.Limit = limit

	items := h.scheduler.History(filter)
	if items == nil {
		items = []conditions.ChangeRecord{}
	}
	response.JSON(w, r, http.StatusOK, models.ChangeList{Items: items})
}

// GetThresholds handles GET /v1/monitoring/thresholds - the active
// significance thresholds.
func (h *MonitoringHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.scheduler.Detector().Thresholds())
}

func (h *MonitoringHandler) status(targetID string) (monitor.TargetStatus, bool) {
	for _, s := range h.scheduler.Status() {
		if s.Target.ID == targetID {
			return s, true
		}
	}
	return monitor.TargetStatus{}, false
}

func (h *MonitoringHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, commute.ErrValidation):
		response.Validation(w, r, err)
	case errors.Is(err, monitor.ErrUnknownTarget):
		response.NotFound(w, r, "monitoring target not found")
	case errors.Is(err, monitor.ErrTargetExists):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, monitor.ErrStopped):
		response.ServiceUnavailable(w, r, "monitoring is shut down")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("monitoring request failed")
		response.InternalError(w, r, "internal server error")
	}
}
