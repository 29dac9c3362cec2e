// internal/health/checker.go
//
// Package health scores tour definitions through a staged pipeline:
// configuration, element availability, accessibility, performance, and
// navigation flow. Findings deduct from a 100-point score; a tour is healthy
// when it scores at or above the healthy threshold with zero critical issues.
package health

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"github.com/xkilldash9x/tourguard-cli/internal/config"
	"github.com/xkilldash9x/tourguard-cli/internal/dom"
	"github.com/xkilldash9x/tourguard-cli/internal/tour"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentChecks bounds the fan-out of CheckMultipleTours.
const maxConcurrentChecks = 4

type cacheEntry struct {
	result  *schemas.HealthCheckResult
	expires time.Time
}

// Checker runs the health pipeline. Safe for concurrent use.
type Checker struct {
	resolver *dom.Resolver
	cfg      config.HealthConfig
	logger   *zap.Logger
	clock    func() time.Time

	mu     sync.Mutex
	cache  map[string]cacheEntry
	hits   int64
	misses int64
}

// NewChecker builds a checker. The resolver may be nil for static-only runs;
// the element availability stage is then skipped and noted on the result.
func NewChecker(resolver *dom.Resolver, cfg config.HealthConfig, logger *zap.Logger) *Checker {
	return &Checker{
		resolver: resolver,
		cfg:      cfg,
		logger:   logger.Named("health"),
		clock:    time.Now,
		cache:    make(map[string]cacheEntry),
	}
}

// setClock swaps the time source, for tests in this package.
func (c *Checker) setClock(clock func() time.Time) { c.clock = clock }

// CheckTour runs the full pipeline for one tour. Results are cached by tour
// ID; within the TTL the identical cached result is returned, lastChecked
// included. The pipeline itself never returns an error for a bad tour; only
// a cancelled context aborts it.
func (c *Checker) CheckTour(ctx context.Context, def *schemas.TourDefinition) (*schemas.HealthCheckResult, error) {
	id := ""
	if def != nil {
		id = def.ID
	}

	if cached := c.lookup(id); cached != nil {
		c.logger.Debug("Health cache hit", zap.String("tour_id", id))
		return cached, nil
	}

	result := c.run(ctx, def)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.store(id, result)
	c.logger.Info("Health check complete",
		zap.String("tour_id", id),
		zap.Int("score", result.Score),
		zap.Bool("healthy", result.IsHealthy),
		zap.Int("issues", len(result.Issues)),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

// run executes the stages and scores the outcome. A panic inside a stage is
// converted into a single critical internal issue so one broken tour cannot
// take down a batch.
func (c *Checker) run(ctx context.Context, def *schemas.TourDefinition) (result *schemas.HealthCheckResult) {
	started := c.clock()
	id := ""
	if def != nil {
		id = def.ID
	}
	result = &schemas.HealthCheckResult{
		TourID:      id,
		LastChecked: started,
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Health pipeline panicked",
				zap.String("tour_id", id), zap.Any("panic", r))
			result.Issues = []schemas.HealthCheckIssue{{
				Severity: schemas.SeverityCritical,
				Category: schemas.CategoryInternal,
				Message:  fmt.Sprintf("health check failed internally: %v", r),
			}}
			result.Warnings = nil
		}
		result.Performance.TotalDuration = c.clock().Sub(started)
		c.score(result)
	}()

	c.checkConfiguration(def, result)

	// Stages append independently so one tour yields a complete diagnostic,
	// not just the first failure. Only a nil definition leaves the later
	// stages nothing to walk.
	if def == nil {
		return result
	}

	c.checkElements(ctx, def, result)
	c.checkAccessibility(def, result)
	c.checkPerformance(def, result)
	c.checkNavigation(def, result)
	return result
}

// -- Stage 1: Configuration --

func (c *Checker) checkConfiguration(def *schemas.TourDefinition, result *schemas.HealthCheckResult) {
	if _, err := tour.Validate(def); err != nil {
		result.Issues = append(result.Issues, schemas.HealthCheckIssue{
			Severity: schemas.SeverityCritical,
			Category: schemas.CategoryConfiguration,
			Message:  err.Error(),
		})
		return
	}

	if len(def.Steps) > c.cfg.MaxSteps {
		result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
			Impact:   schemas.ImpactMedium,
			Category: schemas.CategoryConfiguration,
			Message: fmt.Sprintf("tour has %d steps; more than %d steps fatigues users",
				len(def.Steps), c.cfg.MaxSteps),
		})
	}
	if est := time.Duration(def.Metadata.EstimatedDurationMs) * time.Millisecond; est > c.cfg.MaxDuration {
		result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
			Impact:   schemas.ImpactMedium,
			Category: schemas.CategoryConfiguration,
			Message: fmt.Sprintf("estimated duration %s exceeds %s; consider splitting the tour",
				est, c.cfg.MaxDuration),
		})
	}
}

// -- Stage 2: Element Availability --

func (c *Checker) checkElements(ctx context.Context, def *schemas.TourDefinition, result *schemas.HealthCheckResult) {
	if c.resolver == nil {
		result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
			Impact:   schemas.ImpactLow,
			Category: schemas.CategoryElement,
			Message:  "no page attached; element availability not verified",
		})
		return
	}

	var lookupTotal time.Duration
	for i := range def.Steps {
		step := &def.Steps[i]
		idx := i

		lookupStart := c.clock()
		el, err := c.resolver.FindElement(ctx, step.Element, c.cfg.ElementTimeout)
		elapsed := c.clock().Sub(lookupStart)
		lookupTotal += elapsed
		result.Performance.ElementLookups++
		if elapsed > c.cfg.SlowStepThreshold {
			result.Performance.SlowSteps = append(result.Performance.SlowSteps, schemas.SlowStep{
				StepIndex: idx,
				Selector:  step.Element,
				Duration:  elapsed,
			})
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			result.Issues = append(result.Issues, schemas.HealthCheckIssue{
				Severity:  schemas.SeverityError,
				Category:  schemas.CategoryElement,
				Message:   fmt.Sprintf("step %d: selector could not be evaluated: %v", idx, err),
				StepIndex: &idx,
				Selector:  step.Element,
			})
			continue
		}
		if el == nil {
			result.Issues = append(result.Issues, schemas.HealthCheckIssue{
				Severity:  schemas.SeverityError,
				Category:  schemas.CategoryElement,
				Message:   fmt.Sprintf("step %d: element not found", idx),
				StepIndex: &idx,
				Selector:  step.Element,
			})
			continue
		}

		if !c.resolver.IsVisible(el) {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactHigh,
				Category: schemas.CategoryElement,
				Message:  fmt.Sprintf("step %d: element %s exists but is not visible", idx, el.Describe()),
				StepIndex: &idx,
			})
		} else if !c.resolver.IsInteractable(el) {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactMedium,
				Category: schemas.CategoryUsability,
				Message:  fmt.Sprintf("step %d: element %s is visible but not interactable", idx, el.Describe()),
				StepIndex: &idx,
			})
		}
	}

	if result.Performance.ElementLookups > 0 {
		result.Performance.AverageLookupMs =
			float64(lookupTotal.Milliseconds()) / float64(result.Performance.ElementLookups)
	}
}

// -- Stage 3: Accessibility --

var (
	colorWordPattern = regexp.MustCompile(`(?i)\b(red|green|blue|yellow|orange|purple|pink|gr[ae]y)\b`)
	colorCuePattern  = regexp.MustCompile(`(?i)\b(click|tap|press|select|choose|find|look for|highlighted|marked|shown|colou?red)\b`)
)

// colorOnlyLanguage reports whether copy directs the user by color alone,
// which color-blind users cannot follow without a second cue.
func colorOnlyLanguage(text string) bool {
	return colorWordPattern.MatchString(text) && colorCuePattern.MatchString(text)
}

func (c *Checker) checkAccessibility(def *schemas.TourDefinition, result *schemas.HealthCheckResult) {
	for i := range def.Steps {
		step := &def.Steps[i]
		idx := i

		if step.Accessibility == nil ||
			(step.Accessibility.AriaLabel == "" && step.Accessibility.AriaDescription == "") {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactMedium,
				Category: schemas.CategoryAccessibility,
				Message:  fmt.Sprintf("step %d: no ariaLabel or ariaDescription; screen readers announce nothing useful", idx),
				StepIndex: &idx,
			})
		}
		for _, text := range []string{step.Title, step.Description} {
			if colorOnlyLanguage(text) {
				result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
					Impact:   schemas.ImpactMedium,
					Category: schemas.CategoryAccessibility,
					Message: fmt.Sprintf("step %d: copy relies on color alone (%q); add a non-color cue",
						idx, text),
					StepIndex: &idx,
				})
				break
			}
		}
		if len(step.Title) > c.cfg.MaxTitleLength {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactLow,
				Category: schemas.CategoryAccessibility,
				Message: fmt.Sprintf("step %d: title is %d characters, over the %d character guideline",
					idx, len(step.Title), c.cfg.MaxTitleLength),
				StepIndex: &idx,
			})
		}
		if len(step.Description) > c.cfg.MaxDescLength {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactMedium,
				Category: schemas.CategoryAccessibility,
				Message: fmt.Sprintf("step %d: description is %d characters, over the %d character guideline",
					idx, len(step.Description), c.cfg.MaxDescLength),
				StepIndex: &idx,
			})
		}

		// Focusability needs a live element; skip silently without a page.
		if c.resolver == nil {
			continue
		}
		if el, err := c.resolver.Document().Query(step.Element); err == nil && el != nil && !el.Focusable() {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactMedium,
				Category: schemas.CategoryAccessibility,
				Message: fmt.Sprintf("step %d: target %s cannot receive keyboard focus",
					idx, el.Describe()),
				StepIndex: &idx,
			})
		}
	}
}

// -- Stage 4: Performance --

func (c *Checker) checkPerformance(def *schemas.TourDefinition, result *schemas.HealthCheckResult) {
	for i := range def.Steps {
		step := &def.Steps[i]
		idx := i

		cost := dom.AnalyzeSelector(step.Element)
		if cost.Expensive(c.cfg.MaxSelectorParts) {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactLow,
				Category: schemas.CategoryPerformance,
				Message: fmt.Sprintf("step %d: selector %q is expensive to evaluate (%s)",
					idx, step.Element, describeCost(cost)),
				StepIndex: &idx,
			})
		}
		if step.CustomComponent != "" {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactLow,
				Category: schemas.CategoryPerformance,
				Message: fmt.Sprintf("step %d: custom component %q adds render cost",
					idx, step.CustomComponent),
				StepIndex: &idx,
			})
		}
	}
}

func describeCost(cost dom.SelectorCost) string {
	switch {
	case cost.Universal:
		return "universal selector"
	case cost.PositionalPseudo:
		return "positional pseudo-class"
	case cost.AttributeMatch:
		return "substring attribute matcher"
	default:
		return fmt.Sprintf("%d compound parts", cost.CompoundParts)
	}
}

// -- Stage 5: Navigation Flow --

func (c *Checker) checkNavigation(def *schemas.TourDefinition, result *schemas.HealthCheckResult) {
	prevPath := ""
	for i := range def.Steps {
		step := &def.Steps[i]
		idx := i

		if step.NavigateTo != "" {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactLow,
				Category: schemas.CategoryNavigation,
				Message: fmt.Sprintf("step %d: navigates to %q; verify the hook exists in the host app",
					idx, step.NavigateTo),
				StepIndex: &idx,
			})
		}

		path := dom.InferPagePath(step.Element)
		if path != "" && prevPath != "" && path != prevPath {
			result.Warnings = append(result.Warnings, schemas.HealthCheckWarning{
				Impact:   schemas.ImpactMedium,
				Category: schemas.CategoryNavigation,
				Message: fmt.Sprintf("step %d: appears to jump from %q to %q without a navigation hook",
					idx, prevPath, path),
				StepIndex: &idx,
			})
		}
		if path != "" {
			prevPath = path
		}
	}
}

// -- Scoring --

// score applies the configured deductions, clamps to [0,100], and sets the
// healthy flag. Critical issues make a tour unhealthy regardless of score.
// The accessibility sub-score applies the same deductions restricted to
// accessibility findings.
func (c *Checker) score(result *schemas.HealthCheckResult) {
	w := c.cfg.Deductions
	score := 100
	accessScore := 100

	for _, issue := range result.Issues {
		var d int
		switch issue.Severity {
		case schemas.SeverityCritical:
			d = w.Critical
		case schemas.SeverityError:
			d = w.Error
		default:
			d = w.Warning
		}
		score -= d
		if issue.Category == schemas.CategoryAccessibility {
			accessScore -= d
		}
	}
	for _, warn := range result.Warnings {
		var d int
		switch warn.Impact {
		case schemas.ImpactHigh:
			d = w.HighImpact
		case schemas.ImpactMedium:
			d = w.MediumImpact
		default:
			d = w.LowImpact
		}
		score -= d
		if warn.Category == schemas.CategoryAccessibility {
			accessScore -= d
		}
	}
	score -= w.SlowStep * len(result.Performance.SlowSteps)

	result.Score = clampScore(score)
	result.AccessibilityScore = clampScore(accessScore)
	result.IsHealthy = result.Score >= c.cfg.HealthyScore && result.CriticalCount() == 0
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// -- Batch --

// CheckMultipleTours checks a batch concurrently, preserving input order in
// the results. The first context cancellation aborts the batch.
func (c *Checker) CheckMultipleTours(ctx context.Context, defs []*schemas.TourDefinition) ([]*schemas.HealthCheckResult, error) {
	results := make([]*schemas.HealthCheckResult, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	for i, def := range defs {
		g.Go(func() error {
			res, err := c.CheckTour(gctx, def)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// -- Cache --

func (c *Checker) lookup(id string) *schemas.HealthCheckResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[id]
	if !ok || c.clock().After(entry.expires) {
		if ok {
			delete(c.cache, id)
		}
		c.misses++
		return nil
	}
	c.hits++
	return entry.result
}

func (c *Checker) store(id string, result *schemas.HealthCheckResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[id] = cacheEntry{result: result, expires: c.clock().Add(c.cfg.CacheTTL)}
}

// ClearCache drops all cached results.
func (c *Checker) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cacheEntry)
	c.logger.Debug("Health cache cleared")
}

// CacheStats reports cache occupancy and hit rates.
func (c *Checker) CacheStats() schemas.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return schemas.CacheStats{
		Entries: len(c.cache),
		TTL:     c.cfg.CacheTTL,
		Hits:    c.hits,
		Misses:  c.misses,
	}
}
