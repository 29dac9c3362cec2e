// internal/deploy/validator.go
//
// Package deploy evaluates a batch of tours against the deployment gate:
// structural validation, per-tour health, security heuristics, simulated
// performance and load, cross-browser selector checks, and an accessibility
// floor in strict mode. The outcome is a single deploy/no-deploy decision
// with everything that fed into it.
package deploy

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"github.com/xkilldash9x/tourguard-cli/internal/config"
	"github.com/xkilldash9x/tourguard-cli/internal/dom"
	"github.com/xkilldash9x/tourguard-cli/internal/health"
	"github.com/xkilldash9x/tourguard-cli/internal/tour"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// EngineVersion is stamped into deployment summaries.
const EngineVersion = "1.4.0"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Validator runs the deployment gate.
type Validator struct {
	checker *health.Checker
	cfg     config.DeployConfig
	logger  *zap.Logger
	clock   func() time.Time
}

// NewValidator wires the gate to a health checker.
func NewValidator(checker *health.Checker, cfg config.DeployConfig, logger *zap.Logger) *Validator {
	return &Validator{
		checker: checker,
		cfg:     cfg,
		logger:  logger.Named("deploy"),
		clock:   time.Now,
	}
}

func (v *Validator) setClock(clock func() time.Time) { v.clock = clock }

// ValidateForDeployment evaluates the whole batch and gates the deploy.
func (v *Validator) ValidateForDeployment(ctx context.Context, defs []*schemas.TourDefinition) (*schemas.DeploymentValidationResult, error) {
	result := &schemas.DeploymentValidationResult{
		Blockers: []schemas.DeploymentBlocker{},
		Warnings: []schemas.DeploymentWarning{},
	}

	// Structural validation first. A batch that does not even parse is all
	// blockers, no health run.
	if _, err := tour.ValidateMany(defs); err != nil {
		blocker := schemas.DeploymentBlocker{
			Category: schemas.CategoryConfiguration,
			Message:  err.Error(),
		}
		if ve, ok := err.(*tour.ValidationError); ok {
			blocker.TourID = ve.TourID
		}
		result.Blockers = append(result.Blockers, blocker)
		v.finalize(result, defs)
		return result, nil
	}

	healthResults, err := v.checker.CheckMultipleTours(ctx, defs)
	if err != nil {
		return nil, fmt.Errorf("deployment health pass: %w", err)
	}
	result.Health = healthResults

	for i, hr := range healthResults {
		v.foldHealth(defs[i], hr, result)
	}

	for _, def := range defs {
		v.checkSecurity(def, result)
		if v.cfg.CheckCrossBrowser {
			v.checkCrossBrowser(def, result)
		}
	}

	if v.cfg.SimulatePerformance {
		result.Performance = v.simulatePerformance(defs, result)
	}
	if v.cfg.SimulateLoad {
		load, err := v.simulateLoad(ctx, defs)
		if err != nil {
			return nil, err
		}
		result.Load = load
		if load.Degraded {
			result.Warnings = append(result.Warnings, schemas.DeploymentWarning{
				Category: schemas.CategoryPerformance,
				Message: fmt.Sprintf("load simulation degraded: average response %s over %d sessions",
					load.AverageResponse, load.Sessions),
			})
		}
	}

	v.finalize(result, defs)

	v.logger.Info("Deployment validation complete",
		zap.Bool("can_deploy", result.CanDeploy),
		zap.Int("tours", len(defs)),
		zap.Int("blockers", len(result.Blockers)),
		zap.Int("warnings", len(result.Warnings)),
		zap.String("environment", string(v.cfg.Environment)))
	return result, nil
}

// foldHealth converts one tour's health outcome into gate findings.
func (v *Validator) foldHealth(def *schemas.TourDefinition, hr *schemas.HealthCheckResult, result *schemas.DeploymentValidationResult) {
	for _, issue := range hr.Issues {
		if issue.Severity == schemas.SeverityCritical {
			result.Blockers = append(result.Blockers, schemas.DeploymentBlocker{
				TourID:   def.ID,
				Category: issue.Category,
				Message:  issue.Message,
			})
		} else {
			result.Warnings = append(result.Warnings, schemas.DeploymentWarning{
				TourID:   def.ID,
				Category: issue.Category,
				Message:  issue.Message,
			})
		}
	}
	for _, warn := range hr.Warnings {
		result.Warnings = append(result.Warnings, schemas.DeploymentWarning{
			TourID:   def.ID,
			Category: warn.Category,
			Message:  warn.Message,
		})
	}

	if v.cfg.Strict && hr.AccessibilityScore < v.cfg.MinAccessibility {
		result.Blockers = append(result.Blockers, schemas.DeploymentBlocker{
			TourID:   def.ID,
			Category: schemas.CategoryAccessibility,
			Message: fmt.Sprintf("strict mode: accessibility score %d below the floor %d",
				hr.AccessibilityScore, v.cfg.MinAccessibility),
		})
	}
}

// -- Security Heuristics --

var (
	scriptTagPattern = regexp.MustCompile(`(?i)<\s*script`)
	// credentialWords in authored copy suggest a tour walking users through
	// sensitive surfaces; those ship only after review.
	credentialWords = []string{"password", "secret", "token", "api-key", "api_key"}
	cardDigitRun    = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
)

// checkSecurity applies the injection and sensitive-content heuristics.
// Injection vectors block outright; sensitive copy only warns.
func (v *Validator) checkSecurity(def *schemas.TourDefinition, result *schemas.DeploymentValidationResult) {
	for i := range def.Steps {
		step := &def.Steps[i]

		for _, field := range []string{step.Title, step.Description} {
			if scriptTagPattern.MatchString(field) {
				result.Blockers = append(result.Blockers, schemas.DeploymentBlocker{
					TourID:   def.ID,
					Category: schemas.CategorySecurity,
					Message:  fmt.Sprintf("step %d: content contains a script tag", i),
				})
			}
			lowered := strings.ToLower(field)
			for _, word := range credentialWords {
				if strings.Contains(lowered, word) {
					result.Warnings = append(result.Warnings, schemas.DeploymentWarning{
						TourID:   def.ID,
						Category: schemas.CategorySecurity,
						Message:  fmt.Sprintf("step %d: content mentions %q; confirm no sensitive data is exposed", i, word),
					})
					break
				}
			}
			if cardDigitRun.MatchString(field) {
				result.Warnings = append(result.Warnings, schemas.DeploymentWarning{
					TourID:   def.ID,
					Category: schemas.CategorySecurity,
					Message:  fmt.Sprintf("step %d: content contains a card-number-like digit run", i),
				})
			}
		}

		selector := strings.ToLower(step.Element)
		if strings.Contains(selector, "javascript:") || strings.Contains(selector, "data:") {
			result.Blockers = append(result.Blockers, schemas.DeploymentBlocker{
				TourID:   def.ID,
				Category: schemas.CategorySecurity,
				Message:  fmt.Sprintf("step %d: selector embeds a script URL scheme", i),
			})
		}
	}
}

// -- Cross-Browser --

func (v *Validator) checkCrossBrowser(def *schemas.TourDefinition, result *schemas.DeploymentValidationResult) {
	for i := range def.Steps {
		cost := dom.AnalyzeSelector(def.Steps[i].Element)
		if cost.VendorPrefixed {
			result.Warnings = append(result.Warnings, schemas.DeploymentWarning{
				TourID:   def.ID,
				Category: schemas.CategoryPerformance,
				Message: fmt.Sprintf("step %d: selector %q uses a vendor prefix and will not match in every browser",
					i, def.Steps[i].Element),
			})
		}
	}
}

// -- Performance Simulation --

// simulatePerformance models per-tour load cost from serialized payload size.
// The model is linear in payload bytes; it exists to catch tours that grew an
// order of magnitude, not to predict real latency.
func (v *Validator) simulatePerformance(defs []*schemas.TourDefinition, result *schemas.DeploymentValidationResult) *schemas.PerformanceSimulation {
	sim := &schemas.PerformanceSimulation{SimulatedTours: len(defs)}

	var totalLoad time.Duration
	for _, def := range defs {
		payload, err := json.Marshal(def)
		if err != nil {
			continue
		}
		kb := float64(len(payload)) / 1024.0
		sim.TotalPayloadKB += kb

		// 5ms per KB plus a 50ms base, the tuned approximation of parse,
		// validate, and first-step resolution cost.
		loadTime := 50*time.Millisecond + time.Duration(kb*5)*time.Millisecond
		totalLoad += loadTime

		if loadTime > v.cfg.SlowLoadThreshold {
			sim.SlowTours = append(sim.SlowTours, def.ID)
			result.Warnings = append(result.Warnings, schemas.DeploymentWarning{
				TourID:   def.ID,
				Category: schemas.CategoryPerformance,
				Message: fmt.Sprintf("simulated load time %s exceeds %s (payload %.1fKB)",
					loadTime, v.cfg.SlowLoadThreshold, kb),
			})
		}
	}
	if len(defs) > 0 {
		sim.AverageLoadTime = totalLoad / time.Duration(len(defs))
	}
	return sim
}

// -- Load Simulation --

// simulateLoad runs rate-limited concurrent pseudo-sessions, each costing the
// batch's aggregate payload processing time.
func (v *Validator) simulateLoad(ctx context.Context, defs []*schemas.TourDefinition) (*schemas.LoadSimulation, error) {
	sessions := v.cfg.LoadSessions
	if sessions <= 0 {
		sessions = 1
	}
	limiter := rate.NewLimiter(rate.Limit(v.cfg.LoadSessionRate), 1)

	responses := make([]time.Duration, sessions)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < sessions; i++ {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			start := time.Now()
			// A session revalidates the batch, the dominant engine cost a
			// client pays at tour startup.
			for _, def := range defs {
				if _, err := tour.Validate(def); err != nil {
					break
				}
				if _, err := json.Marshal(def); err != nil {
					break
				}
			}
			responses[i] = time.Since(start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load simulation: %w", err)
	}

	var total time.Duration
	for _, r := range responses {
		total += r
	}
	avg := total / time.Duration(sessions)
	return &schemas.LoadSimulation{
		Sessions:        sessions,
		AverageResponse: avg,
		Degraded:        avg > v.cfg.SlowResponseThreshold,
	}, nil
}

// -- Gate --

// finalize computes the summary and the deploy decision: no blockers, the
// warning count within budget, and the average score at or above the floor.
func (v *Validator) finalize(result *schemas.DeploymentValidationResult, defs []*schemas.TourDefinition) {
	summary := schemas.DeploymentSummary{
		TotalTours:    len(defs),
		BlockerCount:  len(result.Blockers),
		WarningCount:  len(result.Warnings),
		Environment:   string(v.cfg.Environment),
		StrictMode:    v.cfg.Strict,
		ValidatedAt:   v.clock().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
	}

	var scoreSum float64
	for _, hr := range result.Health {
		scoreSum += float64(hr.Score)
		if hr.IsHealthy {
			summary.HealthyTours++
		}
	}
	if len(result.Health) > 0 {
		summary.AverageScore = scoreSum / float64(len(result.Health))
	}

	result.Summary = summary
	result.CanDeploy = len(result.Blockers) == 0 &&
		len(result.Warnings) <= v.cfg.MaxWarnings &&
		(len(result.Health) == 0 || summary.AverageScore >= v.cfg.MinAverageScore)
}
