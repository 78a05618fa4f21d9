package codec

import (
	"encoding/binary"

	"riskcore/internal/schema"
)

const BreakerEventPayloadSize = 40

// EncodeBreakerEvent serializes a breaker transition into a fixed-size payload.
func EncodeBreakerEvent(dst []byte, ev schema.BreakerEvent) []byte {
	if cap(dst) < BreakerEventPayloadSize {
		dst = make([]byte, BreakerEventPayloadSize)
	} else {
		dst = dst[:BreakerEventPayloadSize]
	}

	binary.LittleEndian.PutUint32(dst[0:4], ev.InstrumentID)
	binary.LittleEndian.PutUint16(dst[4:6], uint16(ev.State))
	binary.LittleEndian.PutUint16(dst[6:8], uint16(ev.Cause))
	binary.LittleEndian.PutUint16(dst[8:10], ev.Flags)
	binary.LittleEndian.PutUint16(dst[10:12], ev.Reserved)
	binary.LittleEndian.PutUint32(dst[12:16], ev.FillsInWindow)
	binary.LittleEndian.PutUint64(dst[16:24], uint64(ev.FillPrice))
	binary.LittleEndian.PutUint64(dst[24:32], uint64(ev.ReferencePrice))
	binary.LittleEndian.PutUint64(dst[32:40], uint64(ev.WindowStartNs))

	return dst
}

// DecodeBreakerEvent parses a fixed-size breaker transition payload.
func DecodeBreakerEvent(src []byte) (schema.BreakerEvent, bool) {
	if len(src) < BreakerEventPayloadSize {
		return schema.BreakerEvent{}, false
	}
	return schema.BreakerEvent{
		InstrumentID:   binary.LittleEndian.Uint32(src[0:4]),
		State:          schema.BreakerState(binary.LittleEndian.Uint16(src[4:6])),
		Cause:          schema.BreakerCause(binary.LittleEndian.Uint16(src[6:8])),
		Flags:          binary.LittleEndian.Uint16(src[8:10]),
		Reserved:       binary.LittleEndian.Uint16(src[10:12]),
		FillsInWindow:  binary.LittleEndian.Uint32(src[12:16]),
		FillPrice:      schema.Price(int64(binary.LittleEndian.Uint64(src[16:24]))),
		ReferencePrice: schema.Price(int64(binary.LittleEndian.Uint64(src[24:32]))),
		WindowStartNs:  int64(binary.LittleEndian.Uint64(src[32:40])),
	}, true
}
