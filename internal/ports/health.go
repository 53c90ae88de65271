package ports

import "context"

type HealthStatus struct {
	Healthy   bool   `json:"healthy"`
	Message   string `json:"message"`
	AIEnabled bool   `json:"ai_enabled"`
	Tiers     int    `json:"tiers"`
}

type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}
