package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/handler"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/middleware"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/api/models"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/auth"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions/source"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/preference"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
)

func testTokenService() *auth.TokenService {
	return auth.NewTokenService(auth.TokenConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://commute.example.com",
		Audience:   "commute-api",
	})
}

// generateTestToken generates a valid test token for a caller.
func generateTestToken(t *testing.T, scopes ...string) string {
	t.Helper()
	token, _, err := testTokenService().Issue("caller_test123", time.Hour, scopes...)
	require.NoError(t, err)
	return token
}

type testEnv struct {
	router    http.Handler
	scheduler *monitor.Scheduler
	providers *resilience.Registry
	delay     *atomic.Int64
}

func newTestEnv(t *testing.T, checks map[string]handler.ReadinessCheck) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)

	var delay, clock atomic.Int64
	t0 := time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)
	src := source.Func{SourceName: "test", Fn: func(_ context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
		return conditions.Snapshot{
			TargetID:  target.ID,
			Type:      ct,
			Timestamp: t0.Add(time.Duration(clock.Add(1)) * time.Second),
			Values:    map[string]float64{"delay_minutes": float64(delay.Load())},
			Labels:    map[string]string{"congestion_level": "heavy"},
		}, nil
	}}
	scheduler, err := monitor.NewScheduler(monitor.Config{Source: src, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(scheduler.Stop)

	providers := resilience.NewRegistry()
	router := api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "2026-01-01T00:00:00Z",
		Logger:    logger,
		Tokens:    testTokenService(),
		Profiles:  preference.NewService(preference.NewInMemoryRepository()),
		Scheduler: scheduler,
		Providers: providers,
		Checks:    checks,
	})
	return &testEnv{router: router, scheduler: scheduler, providers: providers, delay: &delay}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func testRoutes() []commute.Route {
	seg := func(mode commute.TransportMode, km, minutes float64) []commute.Segment {
		return []commute.Segment{{
			Mode:            mode,
			Start:           commute.Point{Lat: 52.37, Lon: 4.90},
			End:             commute.Point{Lat: 52.09, Lon: 5.11},
			DistanceKm:      km,
			DurationMinutes: minutes,
		}}
	}
	return []commute.Route{
		{ID: "train", Segments: seg(commute.ModePublicTransit, 40, 35), TotalDistanceKm: 40, EstimatedMinutes: 35, EstimatedCost: 8.5, StressLevel: 3, ReliabilityScore: 8, Modes: []commute.TransportMode{commute.ModePublicTransit}},
		{ID: "car", Segments: seg(commute.ModeDriving, 45, 50), TotalDistanceKm: 45, EstimatedMinutes: 50, EstimatedCost: 12, StressLevel: 7, ReliabilityScore: 5, Modes: []commute.TransportMode{commute.ModeDriving}},
		{ID: "bike", Segments: seg(commute.ModeCycling, 38, 110), TotalDistanceKm: 38, EstimatedMinutes: 110, EstimatedCost: 0, StressLevel: 4, ReliabilityScore: 9, Modes: []commute.TransportMode{commute.ModeCycling}},
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/v1/ops/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	env := newTestEnv(t, map[string]handler.ReadinessCheck{
		"database": func(context.Context) error { return nil },
	})

	w := env.do(t, http.MethodGet, "/v1/ops/ready", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.HealthStatusOK, decode[models.Health](t, w).Status)
}

func TestRouter_ReadinessCheck_Failing(t *testing.T) {
	env := newTestEnv(t, map[string]handler.ReadinessCheck{
		"database": func(context.Context) error { return errors.New("connection refused") },
	})

	w := env.do(t, http.MethodGet, "/v1/ops/ready", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusFail, health.Status)
	assert.Equal(t, "connection refused", health.Details["database"])
}

func TestRouter_SystemStatus(t *testing.T) {
	env := newTestEnv(t, nil)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/v1/ops/status", "", nil).Code)

	w := env.do(t, http.MethodGet, "/v1/ops/status", generateTestToken(t), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	status := decode[models.SystemStatus](t, w)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "monitor", status.Subsystems[0].Name)
	assert.Equal(t, models.HealthStatusDegraded, status.Subsystems[0].Status, "scheduler was never started")
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
	assert.Empty(t, status.Providers)
}

func TestRouter_SystemStatus_UnavailableConditions(t *testing.T) {
	env := newTestEnv(t, nil)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	cb := resilience.DefaultCircuitBreakerConfig(source.FeedName)
	cb.ReadyToTrip = resilience.ConsecutiveFailures(0)
	feed := resilience.NewClient(resilience.ClientConfig{
		Name:            source.FeedName,
		MaxRetries:      1,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		CircuitBreaker:  &cb,
		Registry:        env.providers,
	})
	env.providers.Assign(source.FeedName, conditions.TypeTraffic, conditions.TypeParking)
	resilience.NewClient(resilience.ClientConfig{Name: source.OpenWeatherMapName, Registry: env.providers})
	env.providers.Assign(source.OpenWeatherMapName, conditions.TypeWeather)

	err := feed.GetJSON(context.Background(), down.URL, &struct{}{})
	require.Error(t, err)

	w := env.do(t, http.MethodGet, "/v1/ops/status", generateTestToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)

	status := decode[models.SystemStatus](t, w)
	require.Len(t, status.Providers, 2)
	assert.Equal(t, source.FeedName, status.Providers[0].Provider)
	assert.Equal(t, models.HealthStatusFail, status.Providers[0].Status)
	assert.Equal(t, []string{"parking", "traffic"}, status.Providers[0].Conditions)
	assert.Equal(t, source.OpenWeatherMapName, status.Providers[1].Provider)
	assert.Equal(t, models.HealthStatusOK, status.Providers[1].Status)
	assert.Equal(t, []string{"weather"}, status.Providers[1].Conditions)

	assert.Contains(t, status.ActiveDegradationFlags, "unavailable:parking")
	assert.Contains(t, status.ActiveDegradationFlags, "unavailable:traffic")
	assert.NotContains(t, status.ActiveDegradationFlags, "unavailable:weather")
	assert.Equal(t, models.HealthStatusDegraded, status.Status)
}

func TestRouter_Rank(t *testing.T) {
	env := newTestEnv(t, nil)
	body := models.RankRequest{
		Routes:      testRoutes(),
		ProfileName: "time_focused",
		Conditions: []conditions.Snapshot{{
			Type:      conditions.TypeWeather,
			Timestamp: time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC),
			Labels:    map[string]string{"condition": "rain"},
		}},
	}

	w := env.do(t, http.MethodPost, "/v1/routes:rank", generateTestToken(t), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Profile        commute.PreferenceProfile `json:"profile"`
		Ranked         []commute.RouteAnalysis   `json:"ranked"`
		Recommendation struct {
			RecommendedRouteID string   `json:"recommendedRouteId"`
			Reasoning          []string `json:"reasoning"`
			ContextFactors     []string `json:"contextFactors"`
		} `json:"recommendation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, "time_focused", resp.Profile.Name)
	require.Len(t, resp.Ranked, 3)
	for i, a := range resp.Ranked {
		assert.Equal(t, i+1, a.Rank)
	}
	assert.Equal(t, "train", resp.Ranked[0].Route.ID)
	assert.Equal(t, "train", resp.Recommendation.RecommendedRouteID)
	assert.NotEmpty(t, resp.Recommendation.Reasoning)
	assert.Contains(t, resp.Recommendation.ContextFactors, "Current weather: rain")
}

func TestRouter_Rank_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/routes:rank", "", models.RankRequest{Routes: testRoutes()})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Rank_ValidationError(t *testing.T) {
	env := newTestEnv(t, nil)
	routes := testRoutes()
	routes[1].StressLevel = 11

	w := env.do(t, http.MethodPost, "/v1/routes:rank", generateTestToken(t), models.RankRequest{Routes: routes})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "routes[1].stressLevel", problem.Errors[0].Field)
}

func TestRouter_Rank_InlineProfileValidated(t *testing.T) {
	env := newTestEnv(t, nil)
	body := models.RankRequest{
		Routes:  testRoutes(),
		Profile: &commute.PreferenceProfile{Name: "adhoc", Weights: commute.Weights{Time: 60, Cost: 60}},
	}

	w := env.do(t, http.MethodPost, "/v1/routes:rank", generateTestToken(t), body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "must sum to 100")
}

func TestRouter_Rank_UnknownProfile(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/routes:rank", generateTestToken(t), models.RankRequest{Routes: testRoutes(), ProfileName: "nope"})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Rank_RejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/routes:rank", generateTestToken(t), map[string]any{"routes": testRoutes(), "weights": 1})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Compare(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/routes:compare", generateTestToken(t), models.CompareRequest{Routes: testRoutes(), ReferenceRouteID: "car"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var cmp struct {
		ReferenceID string `json:"referenceId"`
		Pairs       []struct {
			BaseID string `json:"baseId"`
		} `json:"pairs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cmp))
	assert.Equal(t, "car", cmp.ReferenceID)
	assert.Len(t, cmp.Pairs, 3)

	w = env.do(t, http.MethodPost, "/v1/routes:compare", generateTestToken(t), models.CompareRequest{Routes: testRoutes(), ReferenceRouteID: "boat"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Impact(t *testing.T) {
	env := newTestEnv(t, nil)
	body := models.ImpactRequest{
		Routes:      testRoutes(),
		ProfileName: "time_focused",
		Adjust:      &models.WeightAdjustment{Criterion: commute.CriterionCost, Value: 85},
	}

	w := env.do(t, http.MethodPost, "/v1/routes:impact", generateTestToken(t), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Impact struct {
			PreviousTopRouteID    string          `json:"previousTopRouteId"`
			NewTopRouteID         string          `json:"newTopRouteId"`
			RecommendationChanged bool            `json:"recommendationChanged"`
			NewWeights            commute.Weights `json:"newWeights"`
		} `json:"impact"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "train", resp.Impact.PreviousTopRouteID)
	assert.Equal(t, "bike", resp.Impact.NewTopRouteID)
	assert.True(t, resp.Impact.RecommendationChanged)
	assert.InDelta(t, 85, resp.Impact.NewWeights.Cost, 1e-9)
	assert.InDelta(t, 100, resp.Impact.NewWeights.Sum(), 1e-9)
}

func TestRouter_Impact_RequiresExactlyOneProposal(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/v1/routes:impact", generateTestToken(t), models.ImpactRequest{Routes: testRoutes()})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Profiles(t *testing.T) {
	env := newTestEnv(t, nil)
	token := generateTestToken(t)
	rush := commute.PreferenceProfile{Weights: commute.Weights{Time: 70, Cost: 10, Comfort: 10, Reliability: 10}}

	w := env.do(t, http.MethodPut, "/v1/me/profiles/rush", token, rush)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/v1/me/profiles/rush", w.Header().Get("Location"))
	created := decode[models.Profile](t, w)
	assert.Equal(t, "rush", created.Name)
	assert.True(t, created.IsDefault, "first profile becomes the default")
	assert.Equal(t, commute.DefaultMaxWalkingKm, created.MaxWalkingKm)

	rush.Weights = commute.Weights{Time: 55, Cost: 15, Comfort: 15, Reliability: 15}
	w = env.do(t, http.MethodPut, "/v1/me/profiles/rush", token, rush)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 55.0, decode[models.Profile](t, w).Weights.Time)

	w = env.do(t, http.MethodGet, "/v1/me/profiles", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ProfileList](t, w)
	require.Len(t, list.Items, 1)
	assert.Len(t, list.Presets, len(preference.Presets()))

	w = env.do(t, http.MethodGet, "/v1/me/profiles/balanced", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.Profile](t, w).Preset)

	// Ranking without a profile name uses the caller's default.
	w = env.do(t, http.MethodPost, "/v1/routes:rank", token, models.RankRequest{Routes: testRoutes()})
	require.Equal(t, http.StatusOK, w.Code)
	var ranked models.RankResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ranked))
	assert.Equal(t, "rush", ranked.Profile.Name)

	w = env.do(t, http.MethodDelete, "/v1/me/profiles/rush", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "the only profile cannot be deleted")

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/v1/me/profiles/missing", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/v1/me/profiles/missing/default", token, nil).Code)
}

func TestRouter_Profiles_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	token := generateTestToken(t)

	w := env.do(t, http.MethodPut, "/v1/me/profiles/rush", token, commute.PreferenceProfile{Name: "other", Weights: commute.Weights{Time: 100}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/v1/me/profiles/rush", token, commute.PreferenceProfile{Weights: commute.Weights{Time: 120, Cost: -20}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEmpty(t, decode[models.Problem](t, w).Errors)
}

func TestRouter_Profiles_RequireScope(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/v1/me/profiles", generateTestToken(t, middleware.ScopeMonitor), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_Monitoring(t *testing.T) {
	env := newTestEnv(t, nil)
	token := generateTestToken(t, middleware.ScopeMonitor)
	target := conditions.Target{
		ID:          "home-office",
		Origin:      commute.Point{Lat: 52.37, Lon: 4.90},
		Destination: commute.Point{Lat: 52.09, Lon: 5.11},
		Types:       []conditions.Type{conditions.TypeTraffic},
	}

	w := env.do(t, http.MethodPost, "/v1/monitoring/targets", token, target)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/v1/monitoring/targets/home-office", w.Header().Get("Location"))

	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodPost, "/v1/monitoring/targets", token, target).Code)

	w = env.do(t, http.MethodPost, "/v1/monitoring/targets/home-office/check", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[models.CheckResult](t, w).Changes, "first observation sets the baseline")

	env.delay.Store(35)
	w = env.do(t, http.MethodPost, "/v1/monitoring/targets/home-office/check", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[models.CheckResult](t, w)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, conditions.SignificanceCritical, result.Changes[0].Significance)

	w = env.do(t, http.MethodGet, "/v1/monitoring/changes?targetId=home-office&minSignificance=major", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.ChangeList](t, w).Items, 1)

	w = env.do(t, http.MethodGet, "/v1/monitoring/targets/home-office", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "home-office", decode[monitor.TargetStatus](t, w).Target.ID)

	w = env.do(t, http.MethodGet, "/v1/monitoring/targets", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.TargetList](t, w).Items, 1)

	assert.Equal(t, http.StatusNoContent, env.do(t, http.MethodDelete, "/v1/monitoring/targets/home-office", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/v1/monitoring/targets/home-office", token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/v1/monitoring/targets/home-office/check", token, nil).Code)
}

func TestRouter_Monitoring_RankUsesObservedConditions(t *testing.T) {
	env := newTestEnv(t, nil)
	require.NoError(t, env.scheduler.StartMonitoring(conditions.Target{
		ID:          "home-office",
		Origin:      commute.Point{Lat: 52.37, Lon: 4.90},
		Destination: commute.Point{Lat: 52.09, Lon: 5.11},
		Types:       []conditions.Type{conditions.TypeTraffic},
	}))
	_, err := env.scheduler.CheckNow(context.Background(), "home-office")
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/v1/routes:rank", generateTestToken(t), models.RankRequest{Routes: testRoutes(), TargetID: "home-office"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Traffic conditions: heavy congestion")
}

func TestRouter_Monitoring_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	token := generateTestToken(t, middleware.ScopeMonitor)

	w := env.do(t, http.MethodPost, "/v1/monitoring/targets", token, conditions.Target{ID: "bad", Origin: commute.Point{Lat: 123}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/v1/monitoring/changes?type=tides", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/v1/monitoring/changes?since=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/v1/monitoring/thresholds", generateTestToken(t, middleware.ScopeProfiles), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/v1/monitoring/thresholds", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/v1/ops/health", "", nil)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	env := newTestEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	env.router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/v1/nonexistent", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
