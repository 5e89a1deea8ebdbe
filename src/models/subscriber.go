package models

import (
	"fmt"
	"net/netip"
	"time"
)

// SubscriberKey is the canonical subscriber identity: the client IP observed by
// the server paired with the client's data port.
type SubscriberKey = netip.AddrPort

// -----------------------------------------------------------------------------

// NewSubscriberKey normalizes ip/port into a SubscriberKey. IPv4-mapped IPv6
// addresses are unmapped so both forms compare equal.
func NewSubscriberKey(ip netip.Addr, port uint16) SubscriberKey {
	return netip.AddrPortFrom(ip.Unmap(), port)
}

// -----------------------------------------------------------------------------

// ParseSubscriberKey parses "ip:port" into a normalized key.
func ParseSubscriberKey(raw string) (SubscriberKey, error) {
	ap, err := netip.ParseAddrPort(raw)
	if err != nil {
		return SubscriberKey{}, fmt.Errorf("invalid subscriber key %q: %w", raw, err)
	}
	if ap.Port() == 0 {
		return SubscriberKey{}, fmt.Errorf("invalid subscriber key %q: port must be non-zero", raw)
	}
	return NewSubscriberKey(ap.Addr(), ap.Port()), nil
}

// -----------------------------------------------------------------------------

// MSubscriberInfo is a read-only view of an active subscription.
type MSubscriberInfo struct {
	SubscriptionID string    `json:"subscription_id"`
	Key            string    `json:"key"`
	Transport      string    `json:"transport"`
	Symbols        []Symbol  `json:"symbols"`
	Sent           uint64    `json:"sent"`
	Filtered       uint64    `json:"filtered"`
	CreatedAt      time.Time `json:"created_at"`
}
