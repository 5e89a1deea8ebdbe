package interfaces

import "quote-streamer/src/models"

// -----------------------------------------------------------------------------
// ISubscriberRegistry owns the running dispatcher of every subscriber key.
// -----------------------------------------------------------------------------

type ISubscriberRegistry interface {

	// Register starts or replaces the dispatcher for key.
	Register(key models.SubscriberKey, symbols []models.Symbol, transport ITransport) (string, error)

	// -----------------------------------------------------------------------------

	// Stop ends the dispatcher for key. False means key was not registered.
	Stop(key models.SubscriberKey) bool

	// -----------------------------------------------------------------------------

	// StopSubscription ends the dispatcher for key only while it still runs
	// the subscription with the given id.
	StopSubscription(key models.SubscriberKey, id string) bool

	// -----------------------------------------------------------------------------

	// Evict is Stop for subscribers whose keep-alives lapsed.
	Evict(key models.SubscriberKey) bool

	// -----------------------------------------------------------------------------

	// List returns a snapshot of active subscriptions.
	List() []models.MSubscriberInfo

	// -----------------------------------------------------------------------------

	// Len returns the number of active subscriptions.
	Len() int
}
