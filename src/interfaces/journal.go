package interfaces

import "quote-streamer/src/models"

// -----------------------------------------------------------------------------
// ISessionJournal records subscriber lifecycle transitions.
// -----------------------------------------------------------------------------

type ISessionJournal interface {

	// Initialize sets up the database schema and starts the writer.
	Initialize() error

	// -----------------------------------------------------------------------------

	// Record enqueues an event without blocking the caller.
	Record(event models.MSessionEvent)

	// -----------------------------------------------------------------------------

	// RecentSessions returns up to limit events, newest first.
	RecentSessions(limit int) ([]models.MSessionEvent, error)

	// -----------------------------------------------------------------------------

	// Close flushes pending events and closes the connection.
	Close() error
}
