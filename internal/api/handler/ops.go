// Package handler provides HTTP handlers for the commute optimizer API.
package handler

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/models"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/response"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
)

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// OpsHandlerConfig holds the dependencies of an OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	// Providers tracks the health of upstream condition providers. Optional.
	Providers *resilience.Registry
	// Scheduler is the condition monitor. Optional.
	Scheduler *monitor.Scheduler
	// Checks are run by the readiness endpoint, keyed by subsystem name.
	Checks map[string]ReadinessCheck
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	providers *resilience.Registry
	scheduler *monitor.Scheduler
	checks    map[string]ReadinessCheck
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		providers: cfg.Providers,
		scheduler: cfg.Scheduler,
		checks:    cfg.Checks,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	failed := map[string]interface{}{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		health.Status = models.HealthStatusFail
		health.Details = failed
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sub := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := h.checks[name](r.Context()); err != nil {
			detail := err.Error()
			sub.Status = models.HealthStatusFail
			sub.Detail = &detail
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.scheduler != nil {
		status.Subsystems = append(status.Subsystems, h.monitorStatus())
		for _, ts := range h.scheduler.Status() {
			for _, poll := range ts.Polls {
				if poll.ServingStale {
					status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, "stale:"+ts.Target.ID)
					break
				}
			}
		}
	}

	if h.providers != nil {
		for _, ph := range h.providers.AllHealth() {
			status.Providers = append(status.Providers, providerStatus(ph))
		}
		for _, ct := range h.providers.Unavailable() {
			status.ActiveDegradationFlags = append(status.ActiveDegradationFlags, "unavailable:"+string(ct))
		}
	}

	for _, s := range status.Subsystems {
		status.Status = worse(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		// An unavailable provider degrades the system; cached data is still served.
		if p.Status != models.HealthStatusOK {
			status.Status = worse(status.Status, models.HealthStatusDegraded)
		}
	}
	if len(status.ActiveDegradationFlags) > 0 {
		status.Status = worse(status.Status, models.HealthStatusDegraded)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) monitorStatus() models.SubsystemStatus {
	sub := models.SubsystemStatus{Name: "monitor", Status: models.HealthStatusOK}
	detail := fmt.Sprintf("%d targets monitored", len(h.scheduler.Targets()))
	if !h.scheduler.Running() {
		sub.Status = models.HealthStatusDegraded
		detail = "scheduler not running; " + detail
	}
	sub.Detail = &detail
	return sub
}

func providerStatus(ph resilience.ProviderHealth) models.ProviderStatus {
	ps := models.ProviderStatus{Provider: ph.Name, Status: models.HealthStatusOK}
	for _, ct := range ph.Conditions {
		ps.Conditions = append(ps.Conditions, string(ct))
	}
	switch {
	case ph.IsUnhealthy():
		ps.Status = models.HealthStatusFail
	case ph.IsDegraded():
		ps.Status = models.HealthStatusDegraded
	}
	if ph.LastSuccessAt != nil {
		ps.LastSuccessAt = models.TimestampPtr(*ph.LastSuccessAt)
	}
	if ph.LastFailureAt != nil {
		ps.LastFailureAt = models.TimestampPtr(*ph.LastFailureAt)
	}
	if ph.LastError != "" {
		msg := ph.LastError
		ps.Message = &msg
	}
	return ps
}

func rankStatus(s models.HealthStatus) int {
	switch s {
	case models.HealthStatusFail:
		return 2
	case models.HealthStatusDegraded:
		return 1
	}
	return 0
}

func worse(a, b models.HealthStatus) models.HealthStatus {
	if rankStatus(b) > rankStatus(a) {
		return b
	}
	return a
}
