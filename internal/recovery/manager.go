// internal/recovery/manager.go
package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"github.com/xkilldash9x/tourguard-cli/internal/bus"
	"go.uber.org/zap"
)

// Strategy is the host's chance to repair a failed tour step. A hook returns
// nil when it recovered the situation and an error when it could not. Hooks
// run synchronously on the engine's error path; slow work belongs elsewhere.
type Strategy interface {
	OnElementNotFound(ctx context.Context, err *ElementNotFoundError) error
	OnNavigationError(ctx context.Context, err *NavigationError) error
	OnPermissionError(ctx context.Context, err *PermissionError) error
	OnTimeout(ctx context.Context, err *TimeoutError) error
	// OnGenericError handles anything outside the typed taxonomy.
	OnGenericError(ctx context.Context, tourID string, err error) error
}

// Manager classifies runtime errors, drives the strategy, accumulates error
// reports, and publishes the error event family on the bus.
type Manager struct {
	strategy Strategy
	events   *bus.Bus
	logger   *zap.Logger
	clock    func() time.Time

	mu      sync.Mutex
	reports []schemas.ErrorReport
}

// NewManager wires the recovery pipeline. strategy may be nil, in which case
// nothing is ever recovered and every error is reported as-is.
func NewManager(strategy Strategy, events *bus.Bus, logger *zap.Logger) *Manager {
	return &Manager{
		strategy: strategy,
		events:   events,
		logger:   logger.Named("recovery"),
		clock:    time.Now,
	}
}

func (m *Manager) setClock(clock func() time.Time) { m.clock = clock }

// HandleError runs the full error pipeline: classify, attempt recovery,
// record, publish. The returned report states whether the error was
// recovered; HandleError itself only errors on a cancelled context.
func (m *Manager) HandleError(ctx context.Context, tourID string, err error) (schemas.ErrorReport, error) {
	if err == nil {
		return schemas.ErrorReport{}, fmt.Errorf("recovery: nil error for tour %q", tourID)
	}
	if ctx.Err() != nil {
		return schemas.ErrorReport{}, ctx.Err()
	}

	report := m.classify(tourID, err)

	m.publish(ctx, schemas.EventTourError, report)

	if report.Recoverable && m.strategy != nil {
		report.Recovered = m.attempt(ctx, err, tourID)
		if report.Recovered {
			m.publish(ctx, schemas.EventTourErrorRecovery, report)
		}
	}

	m.mu.Lock()
	m.reports = append(m.reports, report)
	m.mu.Unlock()

	m.publish(ctx, schemas.EventTourErrorHandled, report)

	// A failure nobody can recover from is the host's problem now; the
	// handled event above carries the report, and the log keeps the trail.
	if !report.Recovered {
		m.logger.Warn("Tour error not recovered",
			zap.String("tour_id", report.TourID),
			zap.String("kind", string(report.Kind)),
			zap.String("message", report.Message))
	}

	return report, nil
}

// classify maps an error into a report via the typed taxonomy.
func (m *Manager) classify(tourID string, err error) schemas.ErrorReport {
	report := schemas.ErrorReport{
		TourID:    tourID,
		Message:   err.Error(),
		Timestamp: m.clock().UTC(),
	}

	if te, ok := err.(TourError); ok {
		report.Kind = te.Kind()
		report.Recoverable = te.Recoverable()
		report.StepIndex = te.Step()
		if te.Tour() != "" {
			report.TourID = te.Tour()
		}
		return report
	}

	report.Kind = schemas.ErrKindGeneric
	report.Recoverable = true
	return report
}

// attempt dispatches to the matching strategy hook. A hook that errors or
// panics counts as a failed recovery, never as a crash.
func (m *Manager) attempt(ctx context.Context, err error, tourID string) (recovered bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Recovery strategy panicked",
				zap.String("tour_id", tourID), zap.Any("panic", r))
			recovered = false
		}
	}()

	var hookErr error
	switch e := err.(type) {
	case *ElementNotFoundError:
		hookErr = m.strategy.OnElementNotFound(ctx, e)
	case *NavigationError:
		hookErr = m.strategy.OnNavigationError(ctx, e)
	case *PermissionError:
		hookErr = m.strategy.OnPermissionError(ctx, e)
	case *TimeoutError:
		hookErr = m.strategy.OnTimeout(ctx, e)
	default:
		hookErr = m.strategy.OnGenericError(ctx, tourID, err)
	}

	if hookErr != nil {
		m.logger.Debug("Recovery strategy declined",
			zap.String("tour_id", tourID), zap.Error(hookErr))
		return false
	}
	return true
}

func (m *Manager) publish(ctx context.Context, eventType schemas.EventType, report schemas.ErrorReport) {
	if m.events == nil {
		return
	}
	if err := m.events.Publish(ctx, eventType, schemas.ErrorEventPayload{Report: report}); err != nil {
		m.logger.Debug("Event publish failed", zap.String("type", string(eventType)), zap.Error(err))
	}
}

// GetErrorStats computes aggregate counters over the accumulated reports.
func (m *Manager) GetErrorStats() schemas.ErrorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := schemas.ErrorStats{
		ErrorsByType: make(map[schemas.ErrorKind]int),
	}
	for _, r := range m.reports {
		stats.TotalErrors++
		if r.Recoverable {
			stats.RecoverableErrors++
		}
		if r.Recovered {
			stats.RecoveredErrors++
		}
		stats.ErrorsByType[r.Kind]++
	}
	return stats
}

// ErrorReports returns a copy of the accumulated report list.
func (m *Manager) ErrorReports() []schemas.ErrorReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]schemas.ErrorReport, len(m.reports))
	copy(out, m.reports)
	return out
}

// ClearErrorReports drops the accumulated report list.
func (m *Manager) ClearErrorReports() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = nil
}
