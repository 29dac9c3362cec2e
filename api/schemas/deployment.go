// api/schemas/deployment.go
package schemas

import "time"

// -- Deployment Validation Schemas --

// Environment is the deploy target the gate is evaluated for.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// IsValid reports whether the environment is a known value.
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvStaging, EnvProduction:
		return true
	}
	return false
}

// DeploymentBlocker is a finding severe enough to prevent shipping.
type DeploymentBlocker struct {
	TourID   string        `json:"tourId"`
	Category IssueCategory `json:"category"`
	Message  string        `json:"message"`
}

// DeploymentWarning is advisory but counts against the configured maximum.
type DeploymentWarning struct {
	TourID   string        `json:"tourId"`
	Category IssueCategory `json:"category"`
	Message  string        `json:"message"`
}

// PerformanceSimulation summarizes the simulated per-tour load pass.
type PerformanceSimulation struct {
	SimulatedTours  int           `json:"simulatedTours"`
	SlowTours       []string      `json:"slowTours,omitempty"`
	TotalPayloadKB  float64       `json:"totalPayloadKb"`
	AverageLoadTime time.Duration `json:"averageLoadTime"`
}

// LoadSimulation summarizes the concurrent-session pass.
type LoadSimulation struct {
	Sessions        int           `json:"sessions"`
	AverageResponse time.Duration `json:"averageResponse"`
	Degraded        bool          `json:"degraded"`
}

// DeploymentSummary is the roll-up over the whole batch.
type DeploymentSummary struct {
	TotalTours    int     `json:"totalTours"`
	HealthyTours  int     `json:"healthyTours"`
	AverageScore  float64 `json:"averageScore"`
	BlockerCount  int     `json:"blockerCount"`
	WarningCount  int     `json:"warningCount"`
	Environment   string  `json:"environment"`
	StrictMode    bool    `json:"strictMode"`
	ValidatedAt   string  `json:"validatedAt"`
	EngineVersion string  `json:"engineVersion,omitempty"`
}

// DeploymentValidationResult is the deploy/no-deploy decision plus everything
// that fed into it.
type DeploymentValidationResult struct {
	CanDeploy   bool                   `json:"canDeploy"`
	Blockers    []DeploymentBlocker    `json:"blockers"`
	Warnings    []DeploymentWarning    `json:"warnings"`
	Health      []*HealthCheckResult   `json:"health"`
	Performance *PerformanceSimulation `json:"performance,omitempty"`
	Load        *LoadSimulation        `json:"load,omitempty"`
	Summary     DeploymentSummary      `json:"summary"`
}
