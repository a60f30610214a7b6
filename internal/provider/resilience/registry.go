package resilience

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
)

// ProviderHealth is the health of one condition provider client.
type ProviderHealth struct {
	Name string

	// Conditions lists the condition types routed to this provider.
	Conditions []conditions.Type

	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// IsHealthy reports a closed circuit.
func (h *ProviderHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded reports a half-open circuit.
func (h *ProviderHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy reports an open circuit: calls fail fast and the monitor
// serves the last known snapshot.
func (h *ProviderHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks condition provider clients, the condition types each one
// serves and the outcome of their latest requests.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*registeredProvider
}

type registeredProvider struct {
	client        *Client
	serves        []conditions.Type
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// GlobalRegistry backs provider clients created without an explicit registry.
var GlobalRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*registeredProvider)}
}

// Register adds or replaces a provider client. Condition types already
// assigned to the name are kept.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		p.client = client
		return
	}
	r.providers[name] = &registeredProvider{client: client}
}

// Assign records that a provider serves the given condition types. It
// reports false when no client is registered under name.
func (r *Registry) Assign(name string, types ...conditions.Type) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.providers[name]
	if !ok {
		return false
	}
	for _, ct := range types {
		if !slices.Contains(p.serves, ct) {
			p.serves = append(p.serves, ct)
		}
	}
	slices.Sort(p.serves)
	return true
}

// RecordSuccess records a successful request for a provider.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := time.Now()
		p.lastSuccessAt = &now
	}
}

// RecordFailure records a failed request for a provider.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.providers[name]; ok {
		now := time.Now()
		p.lastFailureAt = &now
		if err != nil {
			p.lastError = err.Error()
		}
	}
}

// Health returns the health of one provider.
func (r *Registry) Health(name string) (ProviderHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return ProviderHealth{}, false
	}
	return p.health(name), true
}

// AllHealth returns every provider's health ordered by name.
func (r *Registry) AllHealth() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.providers))
	for name, p := range r.providers {
		out = append(out, p.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Unavailable returns the condition types for which every assigned provider
// has an open circuit, in sorted order.
func (r *Registry) Unavailable() []conditions.Type {
	up := make(map[conditions.Type]bool)
	for _, h := range r.AllHealth() {
		for _, ct := range h.Conditions {
			up[ct] = up[ct] || !h.IsUnhealthy()
		}
	}
	var down []conditions.Type
	for ct, ok := range up {
		if !ok {
			down = append(down, ct)
		}
	}
	slices.Sort(down)
	return down
}

func (p *registeredProvider) health(name string) ProviderHealth {
	return ProviderHealth{
		Name:          name,
		Conditions:    slices.Clone(p.serves),
		CircuitState:  p.client.CircuitBreakerState(),
		Counts:        p.client.CircuitBreakerCounts(),
		LastSuccessAt: p.lastSuccessAt,
		LastFailureAt: p.lastFailureAt,
		LastError:     p.lastError,
	}
}
