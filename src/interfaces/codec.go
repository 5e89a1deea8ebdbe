package interfaces

import "quote-streamer/src/models"

// -----------------------------------------------------------------------------
// IQuoteCodec encodes quotes for the data channel. Each encoded quote must be
// independently decodable from a single datagram or frame.
// -----------------------------------------------------------------------------

type IQuoteCodec interface {

	// Name identifies the codec ("json" or "protobuf").
	Name() string

	// -----------------------------------------------------------------------------

	// EncodeQuote serializes one quote.
	EncodeQuote(q models.MQuote) ([]byte, error)

	// -----------------------------------------------------------------------------

	// DecodeQuote parses one quote from a complete payload.
	DecodeQuote(data []byte) (models.MQuote, error)
}
