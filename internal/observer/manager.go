// internal/observer/manager.go
package observer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xkilldash9x/tourguard-cli/internal/config"
	"go.uber.org/zap"
)

// Kind distinguishes what a registered record is tracking.
type Kind string

const (
	KindMutation Kind = "mutation"
	KindTimer    Kind = "timer"
)

// DisconnectFunc tears down the underlying observer or timer. It must be safe
// to call from the manager's sweep goroutine.
type DisconnectFunc func() error

// Handle is the caller-owned reference to a registered observer record.
type Handle struct {
	id        string
	kind      Kind
	createdAt time.Time

	mu         sync.Mutex
	active     bool
	disconnect DisconnectFunc
}

// ID returns the record's identity, for logging and correlation.
func (h *Handle) ID() string { return h.id }

// Kind returns what the record tracks.
func (h *Handle) Kind() Kind { return h.kind }

// Active reports whether the record has not yet been cleaned up.
func (h *Handle) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

// deactivate flips the active flag. Returns false when the record was already
// inactive, which makes double-cleanup a no-op.
func (h *Handle) deactivate() (DisconnectFunc, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.active {
		return nil, false
	}
	h.active = false
	fn := h.disconnect
	h.disconnect = nil
	return fn, true
}

// Statistics describes the registry for leak monitoring.
type Statistics struct {
	ActiveCount    int           `json:"activeCount"`
	OldestAge      time.Duration `json:"oldestAge"`
	AverageAge     time.Duration `json:"averageAge"`
	MemoryLeakRisk bool          `json:"memoryLeakRisk"`
}

// Manager tracks every mutation observer and timer created while waiting for
// elements, and guarantees cleanup. One manager serves the whole process; the
// host constructs it once and passes it by reference.
type Manager struct {
	logger *zap.Logger
	cfg    config.ObserverConfig
	now    func() time.Time

	mu      sync.Mutex
	records map[string]*Handle

	sweepOnce sync.Once
	stopOnce  sync.Once
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewManager creates the lifecycle manager. Call Start to enable the periodic
// emergency sweep; Register/Unregister work without it.
func NewManager(cfg config.ObserverConfig, logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger.Named("observer"),
		cfg:      cfg,
		now:      time.Now,
		records:  make(map[string]*Handle),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Register tracks a new observer or timer. The returned handle is what the
// caller (and the sweep) uses for cleanup.
func (m *Manager) Register(kind Kind, disconnect DisconnectFunc) *Handle {
	h := &Handle{
		id:         uuid.New().String(),
		kind:       kind,
		createdAt:  m.now(),
		active:     true,
		disconnect: disconnect,
	}

	m.mu.Lock()
	m.records[h.id] = h
	m.mu.Unlock()

	m.logger.Debug("Registered observer", zap.String("id", h.id), zap.String("kind", string(kind)))
	return h
}

// Unregister cleans up a record. It is idempotent: the active flag is cleared
// before the disconnect runs, so a concurrent second call sees "already
// inactive" and exits without touching the underlying observer again.
func (m *Manager) Unregister(h *Handle) {
	if h == nil {
		return
	}

	disconnect, wasActive := h.deactivate()
	if !wasActive {
		return
	}

	m.safeDisconnect(h, disconnect)

	m.mu.Lock()
	delete(m.records, h.id)
	m.mu.Unlock()
}

// safeDisconnect runs a disconnect function, logging and swallowing any
// failure or panic. Cleanup must never crash the caller or abort a sweep.
func (m *Manager) safeDisconnect(h *Handle, disconnect DisconnectFunc) {
	if disconnect == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("Observer disconnect panicked",
				zap.String("id", h.id), zap.Any("panic", r))
		}
	}()
	if err := disconnect(); err != nil {
		m.logger.Warn("Observer disconnect failed",
			zap.String("id", h.id), zap.String("kind", string(h.kind)), zap.Error(err))
	}
}

// Start launches the periodic emergency sweep. Subsequent calls are no-ops.
func (m *Manager) Start() {
	m.sweepOnce.Do(func() {
		go m.sweepLoop()
	})
}

func (m *Manager) sweepLoop() {
	defer close(m.doneChan)
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.PerformEmergencyCleanup(); n > 0 {
				m.logger.Info("Emergency sweep disconnected stale observers", zap.Int("count", n))
			}
		case <-m.stopChan:
			return
		}
	}
}

// PerformEmergencyCleanup disconnects every record that is inactive or older
// than the configured maximum age, and returns how many were removed. A
// failure on one record never aborts the sweep of the others.
func (m *Manager) PerformEmergencyCleanup() int {
	now := m.now()

	m.mu.Lock()
	stale := make([]*Handle, 0)
	for _, h := range m.records {
		if !h.Active() || now.Sub(h.createdAt) > m.cfg.MaxObserverAge {
			stale = append(stale, h)
		}
	}
	m.mu.Unlock()

	cleaned := 0
	for _, h := range stale {
		if disconnect, wasActive := h.deactivate(); wasActive {
			m.safeDisconnect(h, disconnect)
		}
		m.mu.Lock()
		if _, ok := m.records[h.id]; ok {
			delete(m.records, h.id)
			cleaned++
		}
		m.mu.Unlock()
	}
	return cleaned
}

// GetStatistics reports the registry state. MemoryLeakRisk flips when the
// active count or the oldest record's age crosses the configured thresholds.
func (m *Manager) GetStatistics() Statistics {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{}
	var totalAge time.Duration
	for _, h := range m.records {
		if !h.Active() {
			continue
		}
		age := now.Sub(h.createdAt)
		stats.ActiveCount++
		totalAge += age
		if age > stats.OldestAge {
			stats.OldestAge = age
		}
	}
	if stats.ActiveCount > 0 {
		stats.AverageAge = totalAge / time.Duration(stats.ActiveCount)
	}
	stats.MemoryLeakRisk = stats.ActiveCount > m.cfg.LeakActiveThreshold ||
		stats.OldestAge > m.cfg.LeakAgeThreshold
	return stats
}

// Close stops the sweep goroutine and disconnects every remaining record.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() {
		close(m.stopChan)
	})

	// Wait for the sweep loop only if it was ever started.
	m.sweepOnce.Do(func() {
		close(m.doneChan)
	})
	select {
	case <-m.doneChan:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	remaining := make([]*Handle, 0, len(m.records))
	for _, h := range m.records {
		remaining = append(remaining, h)
	}
	m.records = make(map[string]*Handle)
	m.mu.Unlock()

	for _, h := range remaining {
		if disconnect, wasActive := h.deactivate(); wasActive {
			m.safeDisconnect(h, disconnect)
		}
	}
	return nil
}

// setClock overrides the time source. Tests only.
func (m *Manager) setClock(now func() time.Time) { m.now = now }
