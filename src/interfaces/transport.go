package interfaces

import "quote-streamer/src/models"

// -----------------------------------------------------------------------------
// ITransport delivers encoded quotes to a subscriber.
// -----------------------------------------------------------------------------

type ITransport interface {

	// Send writes one payload to the subscriber. An error means the
	// subscriber is unreachable and its dispatcher should stop.
	Send(key models.SubscriberKey, payload []byte) error

	// -----------------------------------------------------------------------------

	// Name identifies the transport kind ("udp", "websocket").
	Name() string
}
