package codec

import (
	"encoding/binary"

	"riskcore/internal/schema"
)

const MarginCallPayloadSize = 48

// EncodeMarginCall serializes a margin call into a fixed-size payload.
func EncodeMarginCall(dst []byte, call schema.MarginCall) []byte {
	if cap(dst) < MarginCallPayloadSize {
		dst = make([]byte, MarginCallPayloadSize)
	} else {
		dst = dst[:MarginCallPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], call.AccountID)
	binary.LittleEndian.PutUint32(dst[4:8], call.InstrumentID)
	binary.LittleEndian.PutUint64(dst[8:16], uint64(call.NetQty))
	binary.LittleEndian.PutUint64(dst[16:24], uint64(call.MarkPrice))
	binary.LittleEndian.PutUint64(dst[24:32], uint64(call.Equity))
	binary.LittleEndian.PutUint64(dst[32:40], uint64(call.Maintenance))
	binary.LittleEndian.PutUint64(dst[40:48], uint64(call.LiquidationPrice))

	return dst
}

// DecodeMarginCall parses a fixed-size margin call payload.
func DecodeMarginCall(src []byte) (schema.MarginCall, bool) {
	if len(src) < MarginCallPayloadSize {
		return schema.MarginCall{}, false
	}
	return schema.MarginCall{
		AccountID:        binary.LittleEndian.Uint32(src[0:4]),
		InstrumentID:     binary.LittleEndian.Uint32(src[4:8]),
		NetQty:           schema.Quantity(int64(binary.LittleEndian.Uint64(src[8:16]))),
		MarkPrice:        schema.Price(int64(binary.LittleEndian.Uint64(src[16:24]))),
		Equity:           schema.Money(int64(binary.LittleEndian.Uint64(src[24:32]))),
		Maintenance:      schema.Money(int64(binary.LittleEndian.Uint64(src[32:40]))),
		LiquidationPrice: schema.Price(int64(binary.LittleEndian.Uint64(src[40:48]))),
	}, true
}
