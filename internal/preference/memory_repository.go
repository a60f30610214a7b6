package preference

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used by tests and by the API when no database is configured.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]map[string]*Profile
}

// NewInMemoryRepository creates a new in-memory profile repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]map[string]*Profile),
	}
}

func copyProfile(p *Profile) *Profile {
	cpy := *p
	cpy.PreferredModes = append(cpy.PreferredModes[:0:0], p.PreferredModes...)
	cpy.AvoidedFeatures = append(cpy.AvoidedFeatures[:0:0], p.AvoidedFeatures...)
	return &cpy
}

// Get retrieves a profile by user and name.
func (r *InMemoryRepository) Get(_ context.Context, userID, name string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID][name]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return copyProfile(p), nil
}

// List retrieves the profiles of a user ordered by name.
func (r *InMemoryRepository) List(_ context.Context, userID string, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*Profile
	for _, p := range r.profiles[userID] {
		if opts.Cursor != "" && p.Name <= opts.Cursor {
			continue
		}
		items = append(items, copyProfile(p))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	result := &ListResult{Items: items}
	if len(items) > limit {
		result.Items = items[:limit]
		result.NextCursor = items[limit-1].Name
	}
	return result, nil
}

// Create stores a new profile.
func (r *InMemoryRepository) Create(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName, ok := r.profiles[p.UserID]
	if !ok {
		byName = make(map[string]*Profile)
		r.profiles[p.UserID] = byName
	}
	if _, exists := byName[p.Name]; exists {
		return ErrProfileExists
	}
	byName[p.Name] = copyProfile(p)
	return nil
}

// Update replaces an existing profile.
func (r *InMemoryRepository) Update(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.profiles[p.UserID][p.Name]; !ok {
		return ErrProfileNotFound
	}
	r.profiles[p.UserID][p.Name] = copyProfile(p)
	return nil
}

// Delete removes a profile.
func (r *InMemoryRepository) Delete(_ context.Context, userID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.profiles[userID], name)
	return nil
}

// SetDefault marks one profile as the user's default.
func (r *InMemoryRepository) SetDefault(_ context.Context, userID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byName := r.profiles[userID]
	if _, ok := byName[name]; !ok {
		return ErrProfileNotFound
	}
	for n, p := range byName {
		p.IsDefault = n == name
	}
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
