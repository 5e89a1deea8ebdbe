package codec

import (
	"fmt"
	"math"

	"quote-streamer/src/helpers"
	"quote-streamer/src/models"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the binary quote message.
const (
	fieldTicker    protowire.Number = 1
	fieldPrice     protowire.Number = 2
	fieldVolume    protowire.Number = 3
	fieldTimestamp protowire.Number = 4
)

// ProtoCodec encodes quotes in protobuf wire format:
//
//	message Quote { string ticker = 1; double price = 2; uint32 volume = 3; int64 timestamp = 4; }
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "protobuf" }

func (ProtoCodec) EncodeQuote(q models.MQuote) ([]byte, error) {
	b := make([]byte, 0, 32)
	b = protowire.AppendTag(b, fieldTicker, protowire.BytesType)
	b = protowire.AppendString(b, string(q.Symbol))
	b = protowire.AppendTag(b, fieldPrice, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(q.Price))
	b = protowire.AppendTag(b, fieldVolume, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(q.Volume))
	b = protowire.AppendTag(b, fieldTimestamp, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(q.Timestamp))
	return b, nil
}

func (ProtoCodec) DecodeQuote(data []byte) (models.MQuote, error) {
	var q models.MQuote
	var sawTicker bool

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return models.MQuote{}, helpers.NewDecodeError("invalid quote tag", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == fieldTicker && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(data)
			if m < 0 {
				return models.MQuote{}, helpers.NewDecodeError("invalid ticker field", protowire.ParseError(m))
			}
			q.Symbol = models.ParseSymbol(v)
			sawTicker = true
			n = m
		case num == fieldPrice && typ == protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return models.MQuote{}, helpers.NewDecodeError("invalid price field", protowire.ParseError(m))
			}
			q.Price = math.Float64frombits(v)
			n = m
		case num == fieldVolume && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return models.MQuote{}, helpers.NewDecodeError("invalid volume field", protowire.ParseError(m))
			}
			if v > math.MaxUint32 {
				return models.MQuote{}, helpers.NewDecodeError(fmt.Sprintf("volume %d overflows uint32", v), nil)
			}
			q.Volume = uint32(v)
			n = m
		case num == fieldTimestamp && typ == protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return models.MQuote{}, helpers.NewDecodeError("invalid timestamp field", protowire.ParseError(m))
			}
			q.Timestamp = int64(v)
			n = m
		default:
			// unknown field
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return models.MQuote{}, helpers.NewDecodeError("invalid field", protowire.ParseError(m))
			}
			n = m
		}
		data = data[n:]
	}

	if !sawTicker {
		return models.MQuote{}, helpers.NewDecodeError("quote has no ticker", nil)
	}
	return q, nil
}
