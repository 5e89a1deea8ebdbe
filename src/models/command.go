package models

// MCommand is a decoded control message. Concrete types are
// MSubscribeCommand and MKeepAliveCommand.
type MCommand interface {
	commandKind() string
}

// -----------------------------------------------------------------------------

// MSubscribeCommand requests a filtered quote stream to DataPort on the
// sender's host. Address is the client-declared host and is informational.
type MSubscribeCommand struct {
	Connection string
	Address    string
	DataPort   uint16
	Symbols    []Symbol
	Rejected   []string // requested tickers that are not supported
}

func (MSubscribeCommand) commandKind() string { return "subscribe" }

// -----------------------------------------------------------------------------

// MKeepAliveCommand marks the subscriber on DataPort as alive. DataPort may be
// zero when the sender did not declare it.
type MKeepAliveCommand struct {
	DataPort uint16
}

func (MKeepAliveCommand) commandKind() string { return "keepalive" }

// -----------------------------------------------------------------------------

// CommandKind names the command variant for logging.
func CommandKind(c MCommand) string {
	if c == nil {
		return "none"
	}
	return c.commandKind()
}

// -----------------------------------------------------------------------------

// MCommandAck is the one-line reply written on the command connection.
type MCommandAck struct {
	Status         string   `json:"status"` // "ok" or "error"
	Error          string   `json:"error,omitempty"`
	SubscriptionID string   `json:"subscription_id,omitempty"`
	Key            string   `json:"key,omitempty"`
	Symbols        []Symbol `json:"symbols,omitempty"`
	Rejected       []string `json:"rejected,omitempty"`
}
