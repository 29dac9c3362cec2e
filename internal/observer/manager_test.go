// internal/observer/manager_test.go
package observer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/tourguard-cli/internal/config"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig() config.ObserverConfig {
	return config.ObserverConfig{
		SweepInterval:       30 * time.Second,
		MaxObserverAge:      5 * time.Minute,
		LeakActiveThreshold: 20,
		LeakAgeThreshold:    10 * time.Minute,
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(testConfig(), zaptest.NewLogger(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, m.Close(ctx))
	})
	return m
}

func TestRegisterAndUnregister(t *testing.T) {
	m := newTestManager(t)

	disconnected := false
	h := m.Register(KindMutation, func() error {
		disconnected = true
		return nil
	})
	require.True(t, h.Active())
	assert.Equal(t, KindMutation, h.Kind())
	assert.NotEmpty(t, h.ID())

	m.Unregister(h)
	assert.True(t, disconnected)
	assert.False(t, h.Active())
	assert.Equal(t, 0, m.GetStatistics().ActiveCount)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	m := newTestManager(t)

	calls := 0
	h := m.Register(KindTimer, func() error {
		calls++
		return nil
	})

	m.Unregister(h)
	m.Unregister(h)
	m.Unregister(nil)
	assert.Equal(t, 1, calls, "disconnect must run exactly once")
}

func TestConcurrentUnregisterRunsDisconnectOnce(t *testing.T) {
	m := newTestManager(t)

	var mu sync.Mutex
	calls := 0
	h := m.Register(KindMutation, func() error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Unregister(h)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, calls)
}

func TestDisconnectFailureDoesNotPropagate(t *testing.T) {
	m := newTestManager(t)

	h := m.Register(KindMutation, func() error {
		return errors.New("browser went away")
	})
	m.Unregister(h) // must not panic
	assert.Equal(t, 0, m.GetStatistics().ActiveCount)

	p := m.Register(KindMutation, func() error {
		panic("disconnect blew up")
	})
	m.Unregister(p) // must not panic either
	assert.Equal(t, 0, m.GetStatistics().ActiveCount)
}

func TestEmergencyCleanupByAge(t *testing.T) {
	m := newTestManager(t)

	now := time.Now()
	m.setClock(func() time.Time { return now })

	oldDisconnected := false
	m.Register(KindMutation, func() error {
		oldDisconnected = true
		return nil
	})

	// Fresh record registered six minutes later, past the old one's max age.
	now = now.Add(6 * time.Minute)
	freshDisconnected := false
	fresh := m.Register(KindMutation, func() error {
		freshDisconnected = true
		return nil
	})

	cleaned := m.PerformEmergencyCleanup()
	assert.Equal(t, 1, cleaned)
	assert.True(t, oldDisconnected)
	assert.False(t, freshDisconnected)
	assert.True(t, fresh.Active())
}

func TestStatisticsAndLeakRisk(t *testing.T) {
	m := newTestManager(t)

	now := time.Now()
	m.setClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		m.Register(KindMutation, func() error { return nil })
	}

	now = now.Add(2 * time.Minute)
	stats := m.GetStatistics()
	assert.Equal(t, 3, stats.ActiveCount)
	assert.Equal(t, 2*time.Minute, stats.OldestAge)
	assert.Equal(t, 2*time.Minute, stats.AverageAge)
	assert.False(t, stats.MemoryLeakRisk)

	// Crossing the age threshold flips the risk flag.
	now = now.Add(9 * time.Minute)
	assert.True(t, m.GetStatistics().MemoryLeakRisk)
}

func TestLeakRiskByActiveCount(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 21; i++ {
		m.Register(KindTimer, func() error { return nil })
	}
	stats := m.GetStatistics()
	assert.Equal(t, 21, stats.ActiveCount)
	assert.True(t, stats.MemoryLeakRisk)
}

func TestCloseDisconnectsEverything(t *testing.T) {
	m := NewManager(testConfig(), zaptest.NewLogger(t))
	m.Start()

	var mu sync.Mutex
	disconnects := 0
	for i := 0; i < 5; i++ {
		m.Register(KindMutation, func() error {
			mu.Lock()
			disconnects++
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))
	assert.Equal(t, 5, disconnects)
	assert.Equal(t, 0, m.GetStatistics().ActiveCount)

	// A second close is a no-op.
	require.NoError(t, m.Close(ctx))
}

func TestCloseWithoutStart(t *testing.T) {
	m := NewManager(testConfig(), zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))
}
