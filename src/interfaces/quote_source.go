package interfaces

import "quote-streamer/src/models"

// -----------------------------------------------------------------------------
// IQuoteSource is the broadcast side of the tick generator.
// -----------------------------------------------------------------------------

type IQuoteSource interface {

	// Subscribe returns a receiver id and its quote channel. The channel is
	// closed when the source shuts down or drops the receiver. Id 0 means the
	// source has already shut down.
	Subscribe() (uint64, <-chan models.MQuote)

	// -----------------------------------------------------------------------------

	// Unsubscribe releases a receiver.
	Unsubscribe(id uint64)
}

// -----------------------------------------------------------------------------
// IQuoteFeed is a quote source that also reports generator statistics.
// -----------------------------------------------------------------------------

type IQuoteFeed interface {
	IQuoteSource

	// Symbols returns the symbols ticked every cycle.
	Symbols() []models.Symbol

	// Subscribers returns the number of admitted receivers.
	Subscribers() int

	// Ticks returns the number of completed cycles.
	Ticks() uint64
}
