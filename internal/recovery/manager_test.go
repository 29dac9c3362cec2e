// internal/recovery/manager_test.go
package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"github.com/xkilldash9x/tourguard-cli/internal/bus"
	"go.uber.org/zap/zaptest"
)

// stubStrategy records which hook ran and returns a scripted outcome.
type stubStrategy struct {
	lastHook string
	fail     bool
	panics   bool
}

func (s *stubStrategy) outcome() error {
	if s.panics {
		panic("strategy exploded")
	}
	if s.fail {
		return errors.New("could not recover")
	}
	return nil
}

func (s *stubStrategy) OnElementNotFound(ctx context.Context, err *ElementNotFoundError) error {
	s.lastHook = "element"
	return s.outcome()
}
func (s *stubStrategy) OnNavigationError(ctx context.Context, err *NavigationError) error {
	s.lastHook = "navigation"
	return s.outcome()
}
func (s *stubStrategy) OnPermissionError(ctx context.Context, err *PermissionError) error {
	s.lastHook = "permission"
	return s.outcome()
}
func (s *stubStrategy) OnTimeout(ctx context.Context, err *TimeoutError) error {
	s.lastHook = "timeout"
	return s.outcome()
}
func (s *stubStrategy) OnGenericError(ctx context.Context, tourID string, err error) error {
	s.lastHook = "generic"
	return s.outcome()
}

func TestHandleErrorDispatchesByType(t *testing.T) {
	step := 2
	tests := []struct {
		name     string
		err      error
		wantHook string
		wantKind schemas.ErrorKind
	}{
		{"element", NewElementNotFound("t1", 0, "#gone"), "element", schemas.ErrKindElementNotFound},
		{"navigation", NewNavigationError("t1", &step, "/settings", nil), "navigation", schemas.ErrKindNavigation},
		{"timeout", NewTimeoutError("t1", nil, "find-element"), "timeout", schemas.ErrKindTimeout},
		{"generic", errors.New("boom"), "generic", schemas.ErrKindGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			strategy := &stubStrategy{}
			m := NewManager(strategy, nil, zaptest.NewLogger(t))

			report, err := m.HandleError(context.Background(), "t1", tt.err)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHook, strategy.lastHook)
			assert.Equal(t, tt.wantKind, report.Kind)
			assert.True(t, report.Recovered)
			assert.Equal(t, "t1", report.TourID)
		})
	}
}

func TestHandleErrorPermissionNeverConsultsStrategy(t *testing.T) {
	strategy := &stubStrategy{}
	m := NewManager(strategy, nil, zaptest.NewLogger(t))

	report, err := m.HandleError(context.Background(), "t1", NewPermissionError("t1", "admin"))
	require.NoError(t, err)
	assert.Empty(t, strategy.lastHook, "non-recoverable errors skip the strategy")
	assert.False(t, report.Recoverable)
	assert.False(t, report.Recovered)
	assert.Equal(t, schemas.ErrKindPermission, report.Kind)
}

func TestHandleErrorFailedRecovery(t *testing.T) {
	strategy := &stubStrategy{fail: true}
	m := NewManager(strategy, nil, zaptest.NewLogger(t))

	report, err := m.HandleError(context.Background(), "t1", NewElementNotFound("t1", 0, "#gone"))
	require.NoError(t, err)
	assert.True(t, report.Recoverable)
	assert.False(t, report.Recovered)
}

func TestHandleErrorStrategyPanicIsContained(t *testing.T) {
	strategy := &stubStrategy{panics: true}
	m := NewManager(strategy, nil, zaptest.NewLogger(t))

	report, err := m.HandleError(context.Background(), "t1", NewElementNotFound("t1", 0, "#gone"))
	require.NoError(t, err, "a panicking strategy must not crash the pipeline")
	assert.False(t, report.Recovered)
}

func TestHandleErrorWithoutStrategy(t *testing.T) {
	m := NewManager(nil, nil, zaptest.NewLogger(t))
	report, err := m.HandleError(context.Background(), "t1", NewElementNotFound("t1", 0, "#gone"))
	require.NoError(t, err)
	assert.False(t, report.Recovered)
}

func TestHandleErrorNilError(t *testing.T) {
	m := NewManager(nil, nil, zaptest.NewLogger(t))
	_, err := m.HandleError(context.Background(), "t1", nil)
	assert.Error(t, err)
}

func TestHandleErrorPublishesEventFamily(t *testing.T) {
	events := bus.New(zaptest.NewLogger(t), 16)
	defer events.Shutdown()

	ch, unsubscribe := events.Subscribe(
		schemas.EventTourError,
		schemas.EventTourErrorRecovery,
		schemas.EventTourErrorHandled,
	)
	defer unsubscribe()

	m := NewManager(&stubStrategy{}, events, zaptest.NewLogger(t))
	_, err := m.HandleError(context.Background(), "t1", NewElementNotFound("t1", 0, "#gone"))
	require.NoError(t, err)

	var types []schemas.EventType
	for i := 0; i < 3; i++ {
		select {
		case evt := <-ch:
			types = append(types, evt.Type)
			payload, ok := evt.Payload.(schemas.ErrorEventPayload)
			require.True(t, ok)
			assert.Equal(t, "t1", payload.Report.TourID)
		case <-time.After(time.Second):
			t.Fatalf("expected 3 events, got %d", len(types))
		}
	}
	assert.Equal(t, []schemas.EventType{
		schemas.EventTourError,
		schemas.EventTourErrorRecovery,
		schemas.EventTourErrorHandled,
	}, types)
}

func TestErrorStatsAndReports(t *testing.T) {
	m := NewManager(&stubStrategy{fail: true}, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := m.HandleError(ctx, "t1", NewElementNotFound("t1", 0, "#a"))
	require.NoError(t, err)
	_, err = m.HandleError(ctx, "t1", NewElementNotFound("t1", 1, "#b"))
	require.NoError(t, err)
	_, err = m.HandleError(ctx, "t2", NewPermissionError("t2", "admin"))
	require.NoError(t, err)

	stats := m.GetErrorStats()
	assert.Equal(t, 3, stats.TotalErrors)
	assert.Equal(t, 2, stats.RecoverableErrors)
	assert.Equal(t, 0, stats.RecoveredErrors)
	assert.Equal(t, 2, stats.ErrorsByType[schemas.ErrKindElementNotFound])
	assert.Equal(t, 1, stats.ErrorsByType[schemas.ErrKindPermission])

	reports := m.ErrorReports()
	require.Len(t, reports, 3)
	require.NotNil(t, reports[0].StepIndex)
	assert.Equal(t, 0, *reports[0].StepIndex)

	m.ClearErrorReports()
	assert.Equal(t, 0, m.GetErrorStats().TotalErrors)
}

func TestTypedErrorMessages(t *testing.T) {
	assert.Contains(t, NewElementNotFound("t", 3, "#x").Error(), "step 3")
	assert.Contains(t, NewPermissionError("t", "admin").Error(), "admin")

	cause := errors.New("dns failure")
	nav := NewNavigationError("t", nil, "/x", cause)
	assert.ErrorIs(t, nav, cause)
}
