package liveness

import (
	"context"
	"sync"
	"testing"
	"time"

	"quote-streamer/src/models"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(offset time.Duration) {
	c.mu.Lock()
	c.now = time.Unix(0, 0).Add(offset)
	c.mu.Unlock()
}

func mustKey(t *testing.T, raw string) models.SubscriberKey {
	t.Helper()
	k, err := models.ParseSubscriberKey(raw)
	if err != nil {
		t.Fatal(err)
	}
	return k
}

// -----------------------------------------------------------------------------

func TestUpdateIsIdempotent(t *testing.T) {
	clock := &manualClock{}
	m := NewMonitorWithClock(5*time.Second, clock, nil)
	key := mustKey(t, "127.0.0.1:4000")

	m.Update(key)
	m.Update(key)
	m.Update(key)

	if m.Len() != 1 || !m.IsActive(key) {
		t.Fatalf("got %d records, active=%v", m.Len(), m.IsActive(key))
	}
}

func TestKeepAliveScenarioReportsExactlyOnce(t *testing.T) {
	clock := &manualClock{}
	m := NewMonitorWithClock(5*time.Second, clock, nil)
	key := mustKey(t, "10.0.0.7:5000")

	for _, at := range []time.Duration{0, 2 * time.Second, 4 * time.Second} {
		clock.Set(at)
		m.Update(key)
	}

	clock.Set(9 * time.Second)
	if got := m.CheckTimeouts(); len(got) != 0 {
		t.Fatalf("at t=9s got %v, want nothing", got)
	}

	clock.Set(9*time.Second + time.Millisecond)
	got := m.CheckTimeouts()
	if len(got) != 1 || got[0] != key {
		t.Fatalf("after t=9s got %v, want [%s]", got, key)
	}

	clock.Set(15 * time.Second)
	if got := m.CheckTimeouts(); len(got) != 0 {
		t.Fatalf("key reported twice: %v", got)
	}
	if m.IsActive(key) {
		t.Error("timed out key still active")
	}

	// a fresh keep-alive starts a new silence period
	m.Update(key)
	clock.Set(20*time.Second + time.Millisecond)
	if got := m.CheckTimeouts(); len(got) != 1 {
		t.Errorf("second silence period: got %v", got)
	}
}

func TestForgetDropsWithoutReport(t *testing.T) {
	clock := &manualClock{}
	m := NewMonitorWithClock(time.Second, clock, nil)
	key := mustKey(t, "[::ffff:127.0.0.1]:4000")

	m.Update(key)
	m.Forget(key)
	m.Forget(key)
	clock.Set(time.Minute)
	if got := m.CheckTimeouts(); len(got) != 0 {
		t.Errorf("forgotten key reported: %v", got)
	}
	if m.IsActive(mustKey(t, "127.0.0.1:4000")) {
		t.Error("unmapped key should match the forgotten one")
	}
}

func TestRunScannerInvokesCallback(t *testing.T) {
	clock := &manualClock{}
	m := NewMonitorWithClock(time.Second, clock, nil)
	key := mustKey(t, "127.0.0.1:4001")
	m.Update(key)
	clock.Set(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reported := make(chan models.SubscriberKey, 4)
	go m.RunScanner(ctx, 5*time.Millisecond, func(k models.SubscriberKey) { reported <- k })

	select {
	case got := <-reported:
		if got != key {
			t.Errorf("got %s, want %s", got, key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scanner never reported the silent key")
	}

	select {
	case extra := <-reported:
		t.Fatalf("key reported twice: %s", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

type recordingEvictor struct {
	mu      sync.Mutex
	evicted []models.SubscriberKey
}

func (e *recordingEvictor) Evict(key models.SubscriberKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evicted = append(e.evicted, key)
	return true
}

func (e *recordingEvictor) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.evicted)
}

func TestRunEvictionsEvictsSilentKeysOnly(t *testing.T) {
	clock := &manualClock{}
	m := NewMonitorWithClock(5*time.Second, clock, nil)
	silent := mustKey(t, "10.0.0.1:4000")
	alive := mustKey(t, "10.0.0.2:4000")
	clock.Set(0)
	m.Update(silent)
	clock.Set(4 * time.Second)
	m.Update(alive)
	clock.Set(6 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ev := &recordingEvictor{}
	go m.RunEvictions(ctx, 5*time.Millisecond, ev)

	deadline := time.Now().Add(2 * time.Second)
	for ev.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("silent key never evicted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(30 * time.Millisecond)

	ev.mu.Lock()
	defer ev.mu.Unlock()
	if len(ev.evicted) != 1 || ev.evicted[0] != silent {
		t.Errorf("evicted %v, want only %s", ev.evicted, silent)
	}
	if !m.IsActive(alive) {
		t.Error("key with a recent keep-alive was dropped")
	}
}
