// Package registry turns one-shot subscriptions into long-lived filtered quote
// streams, one dispatcher goroutine per subscriber key.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"

	"github.com/google/uuid"
)

var (
	ErrClosed       = errors.New("registry is closed")
	ErrNoSymbols    = errors.New("subscription has no supported symbols")
	ErrSourceClosed = errors.New("quote source has shut down")
	ErrKeyInUse     = errors.New("key is subscribed over another transport")
)

// Registry holds at most one running dispatcher per subscriber key. A key is
// present in active exactly while its dispatcher runs.
type Registry struct {
	source  interfaces.IQuoteSource
	codec   interfaces.IQuoteCodec
	journal interfaces.ISessionJournal
	logger  *logger.Logger

	mu     sync.Mutex
	active map[models.SubscriberKey]*subscription
	closed bool

	wg sync.WaitGroup
}

// -----------------------------------------------------------------------------

// NewRegistry creates an empty registry. journal may be nil.
func NewRegistry(source interfaces.IQuoteSource, codec interfaces.IQuoteCodec, journal interfaces.ISessionJournal, log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	return &Registry{
		source:  source,
		codec:   codec,
		journal: journal,
		logger:  log,
		active:  make(map[models.SubscriberKey]*subscription),
	}
}

// -----------------------------------------------------------------------------

// Register starts a dispatcher that forwards quotes for symbols to key over
// transport. An existing subscription for key on the same transport is
// replaced: its dispatcher is stopped and has exited before the new one starts.
// A key held by another transport is refused with ErrKeyInUse.
func (r *Registry) Register(key models.SubscriberKey, symbols []models.Symbol, transport interfaces.ITransport) (string, error) {
	set, list := symbolSet(symbols)
	if len(set) == 0 {
		return "", ErrNoSymbols
	}

	sub := &subscription{
		id:        uuid.NewString(),
		key:       key,
		symbols:   set,
		list:      list,
		transport: transport,
		createdAt: time.Now().UTC(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return "", ErrClosed
		}
		old, exists := r.active[key]
		if !exists {
			sub.sourceID, sub.events = r.source.Subscribe()
			if sub.sourceID == 0 {
				r.mu.Unlock()
				return "", ErrSourceClosed
			}
			r.active[key] = sub
			r.record(sub, models.SessionSubscribed, "")
			r.wg.Add(1)
			go r.dispatch(sub)
			r.mu.Unlock()
			break
		}
		if old.transport.Name() != transport.Name() {
			r.mu.Unlock()
			return "", ErrKeyInUse
		}
		delete(r.active, key)
		old.terminate(models.SessionReplaced, "re-subscribed")
		r.mu.Unlock()

		<-old.done
		r.logger.Info("Replaced subscription %s for %s", old.id, key)
	}

	r.logger.Info("Subscribed %s via %s to %v (id %s)", key, transport.Name(), list, sub.id)
	return sub.id, nil
}

// -----------------------------------------------------------------------------

// Stop ends the subscription for key and waits for its dispatcher to exit. It
// reports false when key has no subscription.
func (r *Registry) Stop(key models.SubscriberKey) bool {
	return r.stopWith(key, models.SessionStopped, "stop requested")
}

// Evict is Stop for subscribers that stopped sending keep-alives.
func (r *Registry) Evict(key models.SubscriberKey) bool {
	return r.stopWith(key, models.SessionEvicted, "keep-alive timeout")
}

// StopSubscription is Stop limited to the subscription with the given id. A
// newer subscription for the same key is left running.
func (r *Registry) StopSubscription(key models.SubscriberKey, id string) bool {
	return r.stopMatching(key, id, models.SessionStopped, "stop requested")
}

func (r *Registry) stopWith(key models.SubscriberKey, event, reason string) bool {
	return r.stopMatching(key, "", event, reason)
}

func (r *Registry) stopMatching(key models.SubscriberKey, id, event, reason string) bool {
	r.mu.Lock()
	sub, ok := r.active[key]
	if ok && id != "" && sub.id != id {
		ok = false
	}
	if ok {
		delete(r.active, key)
		sub.terminate(event, reason)
	}
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("No subscription for %s (%s)", key, event)
		return false
	}
	<-sub.done
	return true
}

// -----------------------------------------------------------------------------

// Close stops every dispatcher and rejects further registrations.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	subs := make([]*subscription, 0, len(r.active))
	for key, sub := range r.active {
		delete(r.active, key)
		sub.terminate(models.SessionShutdown, "server shutdown")
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	r.wg.Wait()
	r.logger.Info("Registry closed, %d subscriptions stopped", len(subs))
}

// -----------------------------------------------------------------------------

// Len returns the number of running dispatchers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// List returns a snapshot of active subscriptions ordered by key.
func (r *Registry) List() []models.MSubscriberInfo {
	r.mu.Lock()
	out := make([]models.MSubscriberInfo, 0, len(r.active))
	for _, sub := range r.active {
		out = append(out, sub.info())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Lookup returns the subscription for key, if any.
func (r *Registry) Lookup(key models.SubscriberKey) (models.MSubscriberInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.active[key]
	if !ok {
		return models.MSubscriberInfo{}, false
	}
	return sub.info(), true
}

// -----------------------------------------------------------------------------

// release removes sub from the active map unless it was already replaced or
// stopped.
func (r *Registry) release(sub *subscription) {
	r.mu.Lock()
	if cur, ok := r.active[sub.key]; ok && cur == sub {
		delete(r.active, sub.key)
	}
	r.mu.Unlock()
}

func (r *Registry) record(sub *subscription, event, reason string) {
	if r.journal == nil {
		return
	}
	r.journal.Record(models.MSessionEvent{
		SubscriptionID: sub.id,
		Subscriber:     sub.key.String(),
		Event:          event,
		Symbols:        sub.list,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	})
}

// -----------------------------------------------------------------------------

func symbolSet(symbols []models.Symbol) (map[models.Symbol]struct{}, []models.Symbol) {
	set := make(map[models.Symbol]struct{}, len(symbols))
	var list []models.Symbol
	for _, s := range symbols {
		if s == models.Unknown {
			continue
		}
		if _, dup := set[s]; dup {
			continue
		}
		set[s] = struct{}{}
		list = append(list, s)
	}
	return set, list
}
