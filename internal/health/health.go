// Package health provides backend health reporting and the admin HTTP surface.
package health

import (
	"github.com/vietddude/dispatcher/internal/core/domain"
)

// SystemStatus represents the overall health state of the system or a backend.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
	StatusDisabled SystemStatus = "disabled"
)

// BackendHealth contains health information for one registered backend.
type BackendHealth struct {
	BackendID string             `json:"backend_id"`
	Enabled   bool               `json:"enabled"`
	Status    SystemStatus       `json:"status"`
	Stats     domain.HealthStats `json:"stats"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus             `json:"system_status"`
	Backends     map[string]BackendHealth `json:"backends"`
}
