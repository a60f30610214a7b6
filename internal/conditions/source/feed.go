package source

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/provider/resilience"
)

// FeedName identifies the JSON feed source.
const FeedName = "feed"

// FeedConfig holds configuration for a JSON condition feed.
type FeedConfig struct {
	// BaseURL is the feed root. Snapshots are read from {BaseURL}/{type}.
	BaseURL string

	// Name overrides the source name used for logging and provider health.
	// Default: "feed"
	Name string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client registered in resilience.GlobalRegistry.
	HTTPClient *resilience.Client

	// Logger for source operations.
	Logger zerolog.Logger

	// Now stamps snapshots whose payload carries no observation time.
	// Default: time.Now
	Now func() time.Time
}

// Feed reads traffic, transit and parking snapshots from an HTTP JSON feed.
//
//	GET {base}/traffic?target=t1&origin=52.37,4.89&destination=52.09,5.12
//	{"observedAt":"2026-03-02T07:00:00Z","values":{"delay_minutes":12},"labels":{"congestion_level":"heavy"}}
type Feed struct {
	baseURL    string
	name       string
	httpClient *resilience.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewFeed creates a JSON feed source.
func NewFeed(cfg FeedConfig) *Feed {
	name := cfg.Name
	if name == "" {
		name = FeedName
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(name)
		rc.Registry = resilience.GlobalRegistry
		httpClient = resilience.NewClient(rc)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Feed{
		baseURL:    cfg.BaseURL,
		name:       name,
		httpClient: httpClient,
		logger:     cfg.Logger,
		now:        now,
	}
}

// Name returns the source name.
func (f *Feed) Name() string {
	return f.name
}

// Fetch reads the current snapshot of ct for target.
func (f *Feed) Fetch(ctx context.Context, target conditions.Target, ct conditions.Type) (conditions.Snapshot, error) {
	if !ct.Valid() {
		return conditions.Snapshot{}, acquisitionError(f.name, target, ct, conditions.ErrUnknownType)
	}

	q := url.Values{}
	q.Set("target", target.ID)
	q.Set("origin", fmt.Sprintf("%.6f,%.6f", target.Origin.Lat, target.Origin.Lon))
	q.Set("destination", fmt.Sprintf("%.6f,%.6f", target.Destination.Lat, target.Destination.Lon))
	endpoint := fmt.Sprintf("%s/%s?%s", f.baseURL, ct, q.Encode())

	var resp feedResponse
	if err := f.httpClient.GetJSON(ctx, endpoint, &resp); err != nil {
		f.logger.Warn().Err(err).
			Str("target_id", target.ID).
			Str("condition", string(ct)).
			Msg("failed to fetch condition feed")
		return conditions.Snapshot{}, acquisitionError(f.name, target, ct, err)
	}

	ts := f.now()
	if resp.ObservedAt != nil && !resp.ObservedAt.IsZero() {
		ts = *resp.ObservedAt
	}

	snap := conditions.Snapshot{
		TargetID:  target.ID,
		Type:      ct,
		Timestamp: ts,
		Values:    resp.Values,
		Labels:    resp.Labels,
		Stale:     resp.Stale,
		Source:    f.name,
	}
	if err := snap.Validate(); err != nil {
		return conditions.Snapshot{}, acquisitionError(f.name, target, ct, err)
	}
	return snap, nil
}

type feedResponse struct {
	ObservedAt *time.Time         `json:"observedAt"`
	Values     map[string]float64 `json:"values"`
	Labels     map[string]string  `json:"labels"`

	// Stale is set by feeds that answered from their own cache because the
	// upstream was unavailable. Such snapshots may still carry new values.
	Stale bool `json:"stale"`
}
