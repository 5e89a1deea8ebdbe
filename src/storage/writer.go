package storage

import (
	"strings"
	"sync"

	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

const (
	journalBuffer = 1024
	journalBatch  = 128
)

// asyncWriter decouples Record from the database. Events are batched and
// handed to flush on a single goroutine.
type asyncWriter struct {
	flush  func([]models.MSessionEvent) error
	logger *logger.Logger

	mu     sync.RWMutex
	events chan models.MSessionEvent
	closed bool
	done   chan struct{}
}

// -----------------------------------------------------------------------------

func newAsyncWriter(flush func([]models.MSessionEvent) error, log *logger.Logger) *asyncWriter {
	w := &asyncWriter{
		flush:  flush,
		logger: log,
		events: make(chan models.MSessionEvent, journalBuffer),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// enqueue never blocks; events are dropped when the buffer is full or the
// writer is closed.
func (w *asyncWriter) enqueue(ev models.MSessionEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
		w.logger.Warning("Journal buffer full, dropping %s event for %s", ev.Event, ev.Subscriber)
	}
}

// close drains pending events and waits for the final flush.
func (w *asyncWriter) close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.events)
	}
	w.mu.Unlock()
	<-w.done
}

// -----------------------------------------------------------------------------

func (w *asyncWriter) run() {
	defer close(w.done)

	batch := make([]models.MSessionEvent, 0, journalBatch)
	for ev := range w.events {
		batch = append(batch, ev)

		// 1. Collect whatever is already queued
	collect:
		for len(batch) < journalBatch {
			select {
			case next, ok := <-w.events:
				if !ok {
					break collect
				}
				batch = append(batch, next)
			default:
				break collect
			}
		}

		// 2. Write the batch
		if err := w.flush(batch); err != nil {
			w.logger.Error("Failed to write %d journal events: %v", len(batch), err)
		}
		batch = batch[:0]
	}
}

// -----------------------------------------------------------------------------

func joinSymbols(symbols []models.Symbol) string {
	parts := make([]string, len(symbols))
	for i, s := range symbols {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}

func splitSymbols(raw string) []models.Symbol {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]models.Symbol, len(parts))
	for i, p := range parts {
		out[i] = models.Symbol(p)
	}
	return out
}
