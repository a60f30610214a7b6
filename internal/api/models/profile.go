package models

import "github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"

// Profile is a stored preference profile as returned by the API.
type Profile struct {
	commute.PreferenceProfile
	IsDefault bool      `json:"isDefault"`
	Preset    bool      `json:"preset"`
	CreatedAt Timestamp `json:"createdAt,omitempty"`
	UpdatedAt Timestamp `json:"updatedAt,omitempty"`
}

// ProfileList is the response of GET /v1/me/profiles.
type ProfileList struct {
	Items   []Profile         `json:"items"`
	Presets []Profile         `json:"presets"`
	Meta    PagedResponseMeta `json:"meta"`
}
