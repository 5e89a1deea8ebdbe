package models

import "time"

// MQuote is one synthesized tick for a symbol. It is a value type and is
// copied into every subscriber channel.
type MQuote struct {
	Symbol    Symbol  `json:"ticker"`
	Price     float64 `json:"price"`
	Volume    uint32  `json:"volume"`
	Timestamp int64   `json:"timestamp"` // Unix milliseconds
}

// Time returns the quote timestamp as a time.Time.
func (q MQuote) Time() time.Time {
	return time.UnixMilli(q.Timestamp)
}
