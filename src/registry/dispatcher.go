package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"quote-streamer/src/interfaces"
	"quote-streamer/src/models"
)

type subscription struct {
	id        string
	key       models.SubscriberKey
	symbols   map[models.Symbol]struct{}
	list      []models.Symbol
	transport interfaces.ITransport
	createdAt time.Time

	sourceID uint64
	events   <-chan models.MQuote

	stop chan struct{}
	done chan struct{}

	once      sync.Once
	endEvent  string
	endReason string

	sent     atomic.Uint64
	filtered atomic.Uint64
}

// terminate records why the dispatcher ends and signals it. Only the first
// call has an effect.
func (s *subscription) terminate(event, reason string) {
	s.once.Do(func() {
		s.endEvent = event
		s.endReason = reason
		close(s.stop)
	})
}

func (s *subscription) info() models.MSubscriberInfo {
	return models.MSubscriberInfo{
		SubscriptionID: s.id,
		Key:            s.key.String(),
		Transport:      s.transport.Name(),
		Symbols:        append([]models.Symbol(nil), s.list...),
		Sent:           s.sent.Load(),
		Filtered:       s.filtered.Load(),
		CreatedAt:      s.createdAt,
	}
}

// -----------------------------------------------------------------------------

// dispatch forwards matching quotes until the subscription is stopped, the
// quote stream closes, or the transport fails.
func (r *Registry) dispatch(sub *subscription) {
	defer func() {
		r.source.Unsubscribe(sub.sourceID)
		r.release(sub)
		r.record(sub, sub.endEvent, sub.endReason)
		r.logger.Info("Dispatcher for %s ended: %s (sent %d, filtered %d)",
			sub.key, sub.endEvent, sub.sent.Load(), sub.filtered.Load())
		close(sub.done)
		r.wg.Done()
	}()

	for {
		select {
		case <-sub.stop:
			return

		case q, ok := <-sub.events:
			if !ok {
				sub.terminate(models.SessionShutdown, "quote stream closed")
				return
			}
			if _, want := sub.symbols[q.Symbol]; !want {
				sub.filtered.Add(1)
				continue
			}

			payload, err := r.codec.EncodeQuote(q)
			if err != nil {
				sub.terminate(models.SessionSendFailed, fmt.Sprintf("encode %s: %v", q.Symbol, err))
				return
			}
			if err := sub.transport.Send(sub.key, payload); err != nil {
				r.logger.Warning("Send to %s failed, dropping subscriber: %v", sub.key, err)
				sub.terminate(models.SessionSendFailed, err.Error())
				return
			}
			sub.sent.Add(1)
		}
	}
}
