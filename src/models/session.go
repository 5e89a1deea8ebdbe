package models

import "time"

// Session lifecycle event names recorded by the journal.
const (
	SessionSubscribed = "subscribed"
	SessionReplaced   = "replaced"
	SessionStopped    = "stopped"
	SessionEvicted    = "evicted"
	SessionSendFailed = "send_failed"
	SessionShutdown   = "shutdown"
)

// MSessionEvent is one subscriber lifecycle transition.
type MSessionEvent struct {
	ID             int64     `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	Subscriber     string    `json:"subscriber"`
	Event          string    `json:"event"`
	Symbols        []Symbol  `json:"symbols"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
