package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
)

const (
	// OpenWeatherMapName identifies the OpenWeatherMap source.
	OpenWeatherMapName = "openweathermap"

	// DefaultOneCallURL is the OpenWeatherMap OneCall API 3.0 base URL.
	DefaultOneCallURL = "https://api.openweathermap.org/data/3.0/onecall"
)

// OpenWeatherMapConfig holds configuration for the weather source.
type OpenWeatherMapConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// OneCallURL is the OneCall API URL (optional, defaults to OneCall 3.0).
	OneCallURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client registered in resilience.GlobalRegistry.
	HTTPClient *resilience.Client

	// Logger for source operations.
	Logger zerolog.Logger

	// Now stamps snapshots. Default: time.Now
	Now func() time.Time
}

// OpenWeatherMap fetches weather snapshots for the midpoint of a target.
type OpenWeatherMap struct {
	apiKey     string
	oneCallURL string
	httpClient *resilience.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewOpenWeatherMap creates a weather source.
func NewOpenWeatherMap(cfg OpenWeatherMapConfig) *OpenWeatherMap {
	oneCallURL := cfg.OneCallURL
	if oneCallURL == "" {
		oneCallURL = DefaultOneCallURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(OpenWeatherMapName)
		rc.Registry = resilience.GlobalRegistry
		httpClient = resilience.NewClient(rc)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &OpenWeatherMap{
		apiKey:     cfg.APIKey,
		oneCallURL: oneCallURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Name returns the source name.
func (c *OpenWeatherMap) Name() string {
	return OpenWeatherMapName
}

// Fetch returns a weather snapshot. Snapshots are stamped with the
// acquisition time because the provider's observation time can repeat
// across polls.
func (c *OpenWeatherMap) Fetch(ctx context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
	if ct != conditions.TypeWeather {
		return conditions.Snapshot{}, acquisitionError(c.Name(), target, ct, ErrUnsupported)
	}

	lat := (target.Origin.Lat + target.Destination.Lat) / 2
	lon := (target.Origin.Lon + target.Destination.Lon) / 2
	url := fmt.Sprintf("%s?lat=%.6f&lon=%.6f&appid=%s&units=metric&exclude=minutely,daily,alerts",
		c.oneCallURL, lat, lon, c.apiKey)

	var resp oneCallResponse
	if err := c.httpClient.GetJSON(ctx, url, &resp); err != nil {
		c.logger.Warn().Err(err).
			Str("target_id", target.ID).
			Msg("failed to fetch weather")
		return conditions.Snapshot{}, acquisitionError(c.Name(), target, ct, err)
	}

	return c.toSnapshot(target, &resp), nil
}

func (c *OpenWeatherMap) toSnapshot(target conditions.Target, resp *oneCallResponse) conditions.Snapshot {
	snap := conditions.Snapshot{
		TargetID:  target.ID,
		Type:      conditions.TypeWeather,
		Timestamp: c.now(),
		Values: map[string]float64{
			"visibility_km": float64(resp.Current.Visibility) / 1000,
		},
		Labels: map[string]string{},
		Source: c.Name(),
	}

	if len(resp.Hourly) > 0 {
		snap.Values["precipitation_probability"] = resp.Hourly[0].Pop * 100
	}
	if len(resp.Current.Weather) > 0 {
		snap.Labels["condition"] = mapCondition(resp.Current.Weather[0].ID)
	}
	return snap
}

// mapCondition maps an OpenWeatherMap condition code onto the weather
// condition scale.
func mapCondition(id int) string {
	switch {
	case id >= 200 && id < 300:
		return "storm"
	case id >= 300 && id < 400:
		return "light_rain"
	case id == 511, id >= 611 && id <= 616:
		return "ice"
	case id == 500, id == 520:
		return "light_rain"
	case id == 501, id == 521:
		return "rain"
	case id >= 500 && id < 600:
		return "heavy_rain"
	case id == 602, id == 622:
		return "heavy_snow"
	case id >= 600 && id < 700:
		return "snow"
	case id == 771, id == 781:
		return "storm"
	case id >= 700 && id < 800:
		return "fog"
	case id == 800:
		return "clear"
	case id > 800 && id < 900:
		return "cloudy"
	}
	return "cloudy"
}

// OpenWeatherMap API response structures.

type oneCallResponse struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Current struct {
		Dt         int64 `json:"dt"`
		Visibility int   `json:"visibility"`
		Weather    []struct {
			ID          int    `json:"id"`
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	} `json:"current"`
	Hourly []struct {
		Dt  int64   `json:"dt"`
		Pop float64 `json:"pop"` // Probability of precipitation
	} `json:"hourly"`
}
