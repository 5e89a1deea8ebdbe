package interfaces

import (
	"context"

	"quote-streamer/src/models"
)

// -----------------------------------------------------------------------------
// IQuoteSink mirrors the full quote stream to an external system.
// -----------------------------------------------------------------------------

type IQuoteSink interface {

	// Name identifies the sink for logs.
	Name() string

	// -----------------------------------------------------------------------------

	// Publish forwards one quote.
	Publish(ctx context.Context, q models.MQuote) error

	// -----------------------------------------------------------------------------

	// Close releases the sink's connections.
	Close() error
}
