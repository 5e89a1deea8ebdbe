// Package liveness tracks keep-alives per subscriber and reports the ones that
// went silent.
package liveness

import (
	"context"
	"sync"
	"time"

	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

// Clock lets tests control the monitor's notion of now.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Monitor maps subscriber keys to the instant of their last keep-alive. A key
// is active while it has a record.
type Monitor struct {
	timeout time.Duration
	clock   Clock
	logger  *logger.Logger

	mu       sync.Mutex
	lastSeen map[models.SubscriberKey]time.Time
}

// -----------------------------------------------------------------------------

func NewMonitor(timeout time.Duration, log *logger.Logger) *Monitor {
	return NewMonitorWithClock(timeout, wallClock{}, log)
}

func NewMonitorWithClock(timeout time.Duration, clock Clock, log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Monitor{
		timeout:  timeout,
		clock:    clock,
		logger:   log,
		lastSeen: make(map[models.SubscriberKey]time.Time),
	}
}

// Timeout returns the configured silence threshold.
func (m *Monitor) Timeout() time.Duration { return m.timeout }

// -----------------------------------------------------------------------------

// Update records a keep-alive for key now.
func (m *Monitor) Update(key models.SubscriberKey) {
	now := m.clock.Now()
	m.mu.Lock()
	m.lastSeen[key] = now
	m.mu.Unlock()
}

// IsActive reports whether key has an unexpired record.
func (m *Monitor) IsActive(key models.SubscriberKey) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.lastSeen[key]
	return ok
}

// Forget drops key without reporting it.
func (m *Monitor) Forget(key models.SubscriberKey) {
	m.mu.Lock()
	delete(m.lastSeen, key)
	m.mu.Unlock()
}

func (m *Monitor) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lastSeen)
}

// -----------------------------------------------------------------------------

// CheckTimeouts removes and returns every key whose last keep-alive is
// strictly older than the timeout. A removed key is reported once; it is
// tracked again only after a new Update.
func (m *Monitor) CheckTimeouts() []models.SubscriberKey {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []models.SubscriberKey
	for key, seen := range m.lastSeen {
		if now.Sub(seen) > m.timeout {
			expired = append(expired, key)
			delete(m.lastSeen, key)
		}
	}
	return expired
}

// -----------------------------------------------------------------------------

// RunScanner calls CheckTimeouts every interval and hands each expired key to
// onTimeout. It returns when ctx is cancelled.
func (m *Monitor) RunScanner(ctx context.Context, interval time.Duration, onTimeout func(models.SubscriberKey)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("Liveness scanner started (timeout %v, interval %v)", m.timeout, interval)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Liveness scanner stopped")
			return
		case <-ticker.C:
			for _, key := range m.CheckTimeouts() {
				m.logger.Warning("Subscriber %s timed out after %v without keep-alive", key, m.timeout)
				onTimeout(key)
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Evictor drops a subscriber whose keep-alives stopped. It reports false when
// the key had no subscription.
type Evictor interface {
	Evict(key models.SubscriberKey) bool
}

// RunEvictions runs the scanner and evicts every timed-out key from ev.
func (m *Monitor) RunEvictions(ctx context.Context, interval time.Duration, ev Evictor) {
	m.RunScanner(ctx, interval, func(key models.SubscriberKey) {
		if ev.Evict(key) {
			m.logger.Info("Evicted %s after missed keep-alives", key)
			return
		}
		m.logger.Debug("Timed-out key %s had no subscription", key)
	})
}
