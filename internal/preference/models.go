// Package preference stores the named weight profiles a user ranks routes with.
package preference

import (
	"errors"
	"time"

	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
)

// Repository errors.
var (
	ErrProfileNotFound = errors.New("preference profile not found")
	ErrProfileExists   = errors.New("preference profile already exists")
	ErrLastProfile     = errors.New("cannot delete the only remaining profile")
)

// Profile is a stored preference profile belonging to one user.
type Profile struct {
	ID        string
	UserID    string
	IsDefault bool
	commute.PreferenceProfile
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BalancedProfileName names the profile used when a user has none stored.
const BalancedProfileName = "balanced"

// Presets are the built-in profiles every user can rank with.
func Presets() []commute.PreferenceProfile {
	return []commute.PreferenceProfile{
		{Name: BalancedProfileName, Weights: commute.Weights{Time: 25, Cost: 25, Comfort: 25, Reliability: 25}},
		{Name: "time_focused", Weights: commute.Weights{Time: 50, Cost: 15, Comfort: 15, Reliability: 20}},
		{Name: "cost_conscious", Weights: commute.Weights{Time: 20, Cost: 50, Comfort: 15, Reliability: 15}},
		{Name: "comfort_first", Weights: commute.Weights{Time: 15, Cost: 15, Comfort: 50, Reliability: 20}},
		{Name: "dependable", Weights: commute.Weights{Time: 20, Cost: 10, Comfort: 20, Reliability: 50}},
	}
}

// Preset returns the built-in profile with the given name.
func Preset(name string) (commute.PreferenceProfile, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return commute.PreferenceProfile{}, false
}
