package codec

import (
	"testing"

	"riskcore/internal/schema"
)

func TestRiskDecisionRoundTrip(t *testing.T) {
	orig := schema.RiskDecision{
		OrderID:      7,
		AccountID:    1,
		InstrumentID: 3,
		Action:       schema.RiskActionDeny,
		Reason:       schema.RejectPositionLimit,
		Price:        -1_000,
		Qty:          100,
		Observed:     1_050,
		Bound:        1_000,
		CurrentPos:   950,
		ProjectedPos: 1_050,
	}

	buf := EncodeRiskDecision(nil, orig)
	if len(buf) != RiskDecisionPayloadSize {
		t.Fatalf("encoded size: got %d want %d", len(buf), RiskDecisionPayloadSize)
	}
	decoded, ok := DecodeRiskDecision(buf)
	if !ok {
		t.Fatal("decode failed")
	}
	if decoded != orig {
		t.Fatalf("risk decision round-trip mismatch: got %+v want %+v", decoded, orig)
	}

	if _, ok := DecodeRiskDecision(buf[:RiskDecisionPayloadSize-1]); ok {
		t.Fatal("short payload should fail to decode")
	}
}

func TestFillRoundTripReusesBuffer(t *testing.T) {
	orig := schema.Fill{
		OrderID:      9,
		AccountID:    2,
		InstrumentID: 1,
		Side:         schema.OrderSideSell,
		Price:        10_500,
		Qty:          25,
		Fee:          -3,
	}

	scratch := make([]byte, 0, FillPayloadSize)
	buf := EncodeFill(scratch, orig)
	if &buf[0] != &scratch[:1][0] {
		t.Fatal("encode should reuse a buffer with enough capacity")
	}
	decoded, ok := DecodeFill(buf)
	if !ok {
		t.Fatal("decode failed")
	}
	if decoded != orig {
		t.Fatalf("fill round-trip mismatch: got %+v want %+v", decoded, orig)
	}
}

func TestBreakerEventRoundTrip(t *testing.T) {
	orig := schema.BreakerEvent{
		InstrumentID:   4,
		State:          schema.BreakerStateTripped,
		Cause:          schema.BreakerCausePriceMove,
		FillsInWindow:  3,
		FillPrice:      10_501,
		ReferencePrice: 10_000,
		WindowStartNs:  1_000_000_000,
	}

	decoded, ok := DecodeBreakerEvent(EncodeBreakerEvent(nil, orig))
	if !ok {
		t.Fatal("decode failed")
	}
	if decoded != orig {
		t.Fatalf("breaker event round-trip mismatch: got %+v want %+v", decoded, orig)
	}
}

func TestOrderNegativeFieldsSurvive(t *testing.T) {
	orig := schema.Order{
		OrderID:      1,
		AccountID:    1,
		InstrumentID: 2,
		Side:         schema.OrderSideSell,
		Type:         schema.OrderTypeLimit,
		TimeInForce:  schema.TimeInForceIOC,
		Price:        -42,
		Qty:          10,
	}
	decoded, ok := DecodeOrder(EncodeOrder(nil, orig))
	if !ok {
		t.Fatal("decode failed")
	}
	if decoded.Price != -42 {
		t.Fatalf("negative price: got %d want -42", decoded.Price)
	}
	if decoded != orig {
		t.Fatalf("order round-trip mismatch: got %+v want %+v", decoded, orig)
	}
}
