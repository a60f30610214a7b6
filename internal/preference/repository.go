package preference

import "context"

// ListOptions contains options for listing profiles.
type ListOptions struct {
	Limit  int
	Cursor string
}

// ListResult contains one page of profiles.
type ListResult struct {
	Items      []*Profile
	NextCursor string
}

// Repository defines persistence for preference profiles.
// Profiles are keyed by user ID and profile name.
type Repository interface {
	// Get retrieves a profile by user and name.
	// Returns ErrProfileNotFound if the user has no profile with that name.
	Get(ctx context.Context, userID, name string) (*Profile, error)

	// List retrieves the profiles of a user ordered by name.
	List(ctx context.Context, userID string, opts ListOptions) (*ListResult, error)

	// Create stores a new profile. Returns ErrProfileExists on a name clash.
	Create(ctx context.Context, profile *Profile) error

	// Update replaces an existing profile.
	Update(ctx context.Context, profile *Profile) error

	// Delete removes a profile.
	Delete(ctx context.Context, userID, name string) error

	// SetDefault marks one profile as the user's default and clears the flag on the others.
	SetDefault(ctx context.Context, userID, name string) error
}
