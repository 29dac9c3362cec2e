// internal/deploy/report.go
package deploy

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/tourguard-cli/api/schemas"
)

// RenderReport formats a validation result for terminal output. JSON output
// goes through the schemas directly; this is the human path.
func RenderReport(result *schemas.DeploymentValidationResult) string {
	var b strings.Builder

	verdict := "BLOCKED"
	if result.CanDeploy {
		verdict = "READY"
	}
	fmt.Fprintf(&b, "Deployment: %s (%s", verdict, result.Summary.Environment)
	if result.Summary.StrictMode {
		b.WriteString(", strict")
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "Tours: %d total, %d healthy, average score %.1f\n",
		result.Summary.TotalTours, result.Summary.HealthyTours, result.Summary.AverageScore)

	if len(result.Blockers) > 0 {
		fmt.Fprintf(&b, "\nBlockers (%d):\n", len(result.Blockers))
		for _, blocker := range result.Blockers {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", blocker.Category, orBatch(blocker.TourID), blocker.Message)
		}
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(result.Warnings))
		for _, warning := range result.Warnings {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", warning.Category, orBatch(warning.TourID), warning.Message)
		}
	}

	if sim := result.Performance; sim != nil {
		fmt.Fprintf(&b, "\nPerformance: %d tours simulated, %.1fKB total payload, average load %s\n",
			sim.SimulatedTours, sim.TotalPayloadKB, sim.AverageLoadTime)
		if len(sim.SlowTours) > 0 {
			fmt.Fprintf(&b, "  slow tours: %s\n", strings.Join(sim.SlowTours, ", "))
		}
	}
	if load := result.Load; load != nil {
		state := "ok"
		if load.Degraded {
			state = "degraded"
		}
		fmt.Fprintf(&b, "Load: %d sessions, average response %s (%s)\n",
			load.Sessions, load.AverageResponse, state)
	}

	fmt.Fprintf(&b, "\nValidated at %s by engine %s\n",
		result.Summary.ValidatedAt, result.Summary.EngineVersion)
	return b.String()
}

func orBatch(tourID string) string {
	if tourID == "" {
		return "batch"
	}
	return tourID
}
