// Package sinks mirrors the full quote stream to external systems.
package sinks

import (
	"context"
	"time"

	"quote-streamer/src/interfaces"
	"quote-streamer/src/logger"
	"quote-streamer/src/models"
)

const publishTimeout = 2 * time.Second

// Pump subscribes sink to every quote from source until ctx is cancelled or
// the source shuts down. Publish failures are logged and skipped.
func Pump(ctx context.Context, source interfaces.IQuoteSource, sink interfaces.IQuoteSink, log *logger.Logger) {
	id, quotes := source.Subscribe()
	defer source.Unsubscribe(id)

	log.Info("Mirroring quotes to %s", sink.Name())
	var failures uint64
	for {
		select {
		case <-ctx.Done():
			return
		case q, ok := <-quotes:
			if !ok {
				log.Info("Quote stream closed, %s sink stopping", sink.Name())
				return
			}
			if err := publishOne(ctx, sink, q); err != nil {
				failures++
				// log the first failure and every 100th after it
				if failures%100 == 1 {
					log.Warning("%s publish failed (%d so far): %v", sink.Name(), failures, err)
				}
			}
		}
	}
}

func publishOne(ctx context.Context, sink interfaces.IQuoteSink, q models.MQuote) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return sink.Publish(ctx, q)
}
