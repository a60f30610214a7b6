package models

import (
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/commute"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/explain"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/ranking"
)

// RankRequest is the body of POST /v1/routes:rank.
//
// The weights come from, in order: an inline Profile, the caller's stored
// profile named ProfileName, a built-in preset of that name, or the
// caller's default profile.
type RankRequest struct {
	Routes      []commute.Route            `json:"routes"`
	Profile     *commute.PreferenceProfile `json:"profile,omitempty"`
	ProfileName string                     `json:"profileName,omitempty"`
	// Conditions are the latest snapshots used as explanation context.
	Conditions []conditions.Snapshot `json:"conditions,omitempty"`
	// TargetID names a monitored target whose latest observed conditions
	// are added to the explanation context.
	TargetID string `json:"targetId,omitempty"`
	// ReferenceRouteID overrides the route the comparison is built around.
	// Defaults to the recommended route.
	ReferenceRouteID string `json:"referenceRouteId,omitempty"`
}

// RankResponse is the ranked batch together with its explanation bundle.
type RankResponse struct {
	Profile        commute.PreferenceProfile `json:"profile"`
	Ranked         []commute.RouteAnalysis   `json:"ranked"`
	Recommendation *explain.Bundle           `json:"recommendation"`
}

// ImpactRequest is the body of POST /v1/routes:impact.
type ImpactRequest struct {
	Routes      []commute.Route            `json:"routes"`
	Profile     *commute.PreferenceProfile `json:"profile,omitempty"`
	ProfileName string                     `json:"profileName,omitempty"`
	// ProposedWeights are evaluated against the resolved profile.
	ProposedWeights *commute.Weights `json:"proposedWeights,omitempty"`
	// Adjust rebalances a single criterion instead of supplying all four weights.
	Adjust *WeightAdjustment `json:"adjust,omitempty"`
}

// WeightAdjustment sets one criterion and rescales the others proportionally.
type WeightAdjustment struct {
	Criterion commute.Criterion `json:"criterion"`
	Value     float64           `json:"value"`
}

// ImpactResponse describes how proposed weights would change a ranking.
type ImpactResponse struct {
	Impact *ranking.Impact `json:"impact"`
}

// CompareRequest is the body of POST /v1/routes:compare.
type CompareRequest struct {
	Routes           []commute.Route            `json:"routes"`
	Profile          *commute.PreferenceProfile `json:"profile,omitempty"`
	ProfileName      string                     `json:"profileName,omitempty"`
	ReferenceRouteID string                     `json:"referenceRouteId,omitempty"`
}
