package preference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// MaxNameLength bounds profile names.
const MaxNameLength = 60

// Service provides preference profile operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new preference service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// List returns the stored profiles of a user.
func (s *Service) List(ctx context.Context, userID string, limit int) (*ListResult, error) {
	return s.repo.List(ctx, userID, ListOptions{Limit: limit})
}

// Get returns a stored profile of a user.
func (s *Service) Get(ctx context.Context, userID, name string) (*Profile, error) {
	return s.repo.Get(ctx, userID, name)
}

// Resolve returns the profile a ranking request should use. A stored
// profile wins over a preset of the same name. An empty name resolves to
// the user's default profile, or the balanced preset when none is stored.
func (s *Service) Resolve(ctx context.Context, userID, name string) (commute.PreferenceProfile, error) {
	if name == "" {
		return s.defaultProfile(ctx, userID)
	}
	if userID != "" {
		p, err := s.repo.Get(ctx, userID, name)
		if err == nil {
			return p.PreferenceProfile, nil
		}
		if !errors.Is(err, ErrProfileNotFound) {
			return commute.PreferenceProfile{}, err
		}
	}
	if preset, ok := Preset(name); ok {
		return preset, nil
	}
	return commute.PreferenceProfile{}, ErrProfileNotFound
}

func (s *Service) defaultProfile(ctx context.Context, userID string) (commute.PreferenceProfile, error) {
	preset, _ := Preset(BalancedProfileName)
	if userID == "" {
		return preset, nil
	}
	result, err := s.repo.List(ctx, userID, ListOptions{Limit: 100})
	if err != nil {
		return commute.PreferenceProfile{}, err
	}
	for _, p := range result.Items {
		if p.IsDefault {
			return p.PreferenceProfile, nil
		}
	}
	return preset, nil
}

// Create stores a new profile for a user. The user's first profile becomes
// their default.
func (s *Service) Create(ctx context.Context, userID string, in commute.PreferenceProfile) (*Profile, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	existing, err := s.repo.List(ctx, userID, ListOptions{Limit: 1})
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &Profile{
		ID:                "pref_" + uuid.New().String()[:22],
		UserID:            userID,
		IsDefault:         len(existing.Items) == 0,
		PreferenceProfile: withDefaults(in),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces the weights and options of an existing profile.
func (s *Service) Update(ctx context.Context, userID string, in commute.PreferenceProfile) (*Profile, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, userID, in.Name)
	if err != nil {
		return nil, err
	}
	p.PreferenceProfile = withDefaults(in)
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a profile. Deleting the default hands the default flag to
// another profile; the last remaining profile cannot be deleted.
func (s *Service) Delete(ctx context.Context, userID, name string) error {
	p, err := s.repo.Get(ctx, userID, name)
	if err != nil {
		return err
	}

	all, err := s.repo.List(ctx, userID, ListOptions{Limit: 100})
	if err != nil {
		return err
	}
	if len(all.Items) <= 1 {
		return ErrLastProfile
	}

	if err := s.repo.Delete(ctx, userID, name); err != nil {
		return err
	}
	if !p.IsDefault {
		return nil
	}
	for _, other := range all.Items {
		if other.Name != name {
			return s.repo.SetDefault(ctx, userID, other.Name)
		}
	}
	return nil
}

// SetDefault makes the named profile the user's default.
func (s *Service) SetDefault(ctx context.Context, userID, name string) error {
	if _, err := s.repo.Get(ctx, userID, name); err != nil {
		return err
	}
	return s.repo.SetDefault(ctx, userID, name)
}

func validate(in commute.PreferenceProfile) error {
	if in.Name == "" {
		return commute.NewValidationError("name", "is required")
	}
	if len(in.Name) > MaxNameLength {
		return commute.NewValidationError("name", "must be at most %d characters", MaxNameLength)
	}
	if err := in.Validate(); err != nil {
		return fmt.Errorf("profile %q: %w", in.Name, err)
	}
	return nil
}

func withDefaults(in commute.PreferenceProfile) commute.PreferenceProfile {
	if in.MaxWalkingKm == 0 {
		in.MaxWalkingKm = commute.DefaultMaxWalkingKm
	}
	return in
}
