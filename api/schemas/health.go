// api/schemas/health.go
package schemas

import "time"

// -- Health Check Schemas --

// IssueSeverity ranks a health check issue.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityError    IssueSeverity = "error"
	SeverityWarning  IssueSeverity = "warning"
)

// WarningImpact ranks a health check warning.
type WarningImpact string

const (
	ImpactHigh   WarningImpact = "high"
	ImpactMedium WarningImpact = "medium"
	ImpactLow    WarningImpact = "low"
)

// IssueCategory groups issues by the pipeline stage that produced them.
type IssueCategory string

const (
	CategoryConfiguration IssueCategory = "configuration"
	CategoryElement       IssueCategory = "element"
	CategoryAccessibility IssueCategory = "accessibility"
	CategoryPerformance   IssueCategory = "performance"
	CategoryNavigation    IssueCategory = "navigation"
	CategorySecurity      IssueCategory = "security"
	CategoryUsability     IssueCategory = "usability"
	CategoryInternal      IssueCategory = "internal"
)

// HealthCheckIssue is a defect severe enough to affect the score directly.
type HealthCheckIssue struct {
	Severity  IssueSeverity `json:"severity"`
	Category  IssueCategory `json:"category"`
	Message   string        `json:"message"`
	StepIndex *int          `json:"stepIndex,omitempty"`
	Selector  string        `json:"selector,omitempty"`
}

// HealthCheckWarning is advisory; it still costs score by impact.
type HealthCheckWarning struct {
	Impact    WarningImpact `json:"impact"`
	Category  IssueCategory `json:"category"`
	Message   string        `json:"message"`
	StepIndex *int          `json:"stepIndex,omitempty"`
}

// SlowStep records a step whose element lookup exceeded the slow threshold.
type SlowStep struct {
	StepIndex int           `json:"stepIndex"`
	Selector  string        `json:"selector"`
	Duration  time.Duration `json:"duration"`
}

// HealthPerformance aggregates timing observed during the check itself.
type HealthPerformance struct {
	TotalDuration   time.Duration `json:"totalDuration"`
	ElementLookups  int           `json:"elementLookups"`
	SlowSteps       []SlowStep    `json:"slowSteps,omitempty"`
	AverageLookupMs float64       `json:"averageLookupMs"`
}

// HealthCheckResult is the scored outcome of one tour's health pipeline.
type HealthCheckResult struct {
	TourID    string `json:"tourId"`
	IsHealthy bool   `json:"isHealthy"`
	Score     int    `json:"score"`
	// AccessibilityScore applies the same deductions restricted to
	// accessibility findings; deployment strict mode gates on it.
	AccessibilityScore int                  `json:"accessibilityScore"`
	Issues             []HealthCheckIssue   `json:"issues"`
	Warnings           []HealthCheckWarning `json:"warnings"`
	Performance        HealthPerformance    `json:"performance"`
	LastChecked        time.Time            `json:"lastChecked"`
}

// CriticalCount returns the number of critical issues on the result.
func (r *HealthCheckResult) CriticalCount() int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// CacheStats describes the health cache for operational visibility.
type CacheStats struct {
	Entries int           `json:"entries"`
	TTL     time.Duration `json:"ttl"`
	Hits    int64         `json:"hits"`
	Misses  int64         `json:"misses"`
}
