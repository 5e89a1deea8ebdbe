package codec

import (
	"encoding/json"

	"quote-streamer/src/helpers"
	"quote-streamer/src/models"
)

// JSONCodec encodes quotes as a single JSON object per datagram.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) EncodeQuote(q models.MQuote) ([]byte, error) {
	return json.Marshal(q)
}

func (JSONCodec) DecodeQuote(data []byte) (models.MQuote, error) {
	var q models.MQuote
	if err := json.Unmarshal(data, &q); err != nil {
		return models.MQuote{}, helpers.NewDecodeError("invalid JSON quote", err)
	}
	if q.Symbol == "" {
		return models.MQuote{}, helpers.NewDecodeError("quote has no ticker", nil)
	}
	q.Symbol = models.ParseSymbol(string(q.Symbol))
	return q, nil
}
