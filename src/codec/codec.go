// Package codec holds the wire formats of the quote server: quote payloads
// for the data channel and control commands for the command channel.
package codec

import (
	"fmt"
	"strings"

	"quote-streamer/src/interfaces"
)

// NewQuoteCodec returns the codec registered under name.
func NewQuoteCodec(name string) (interfaces.IQuoteCodec, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return JSONCodec{}, nil
	case "protobuf", "proto":
		return ProtoCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported codec: %s", name)
	}
}
