package models

import (
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/conditions"
	"github.com/shashank-tandan21/Daily-Commute-Optimizer/internal/monitor"
)

// TargetList is the response of GET /v1/monitoring/targets.
type TargetList struct {
	Items []monitor.TargetStatus `json:"items"`
}

// CheckResult is the response of POST /v1/monitoring/targets/{targetId}:check.
type CheckResult struct {
	TargetID string                    `json:"targetId"`
	Changes  []conditions.ChangeRecord `json:"changes"`
}

// ChangeList is the response of GET /v1/monitoring/changes.
type ChangeList struct {
	Items []conditions.ChangeRecord `json:"items"`
}
