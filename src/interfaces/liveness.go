package interfaces

import (
	"time"

	"quote-streamer/src/models"
)

// -----------------------------------------------------------------------------
// ILivenessMonitor tracks keep-alives per subscriber key.
// -----------------------------------------------------------------------------

type ILivenessMonitor interface {
	Update(key models.SubscriberKey)
	Forget(key models.SubscriberKey)
	IsActive(key models.SubscriberKey) bool
	Len() int
}

// -----------------------------------------------------------------------------
// IMarketHours reports whether the tracked exchange is in session.
// -----------------------------------------------------------------------------

type IMarketHours interface {
	IsOpen(t time.Time) bool
}
