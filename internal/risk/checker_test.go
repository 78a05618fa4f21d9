package risk

import (
	"testing"

	"riskcore/internal/schema"
)

func testOrder(side schema.OrderSide, price schema.Price, qty schema.Quantity) schema.Order {
	return schema.Order{
		OrderID:      1,
		AccountID:    1,
		InstrumentID: 1,
		Side:         side,
		Type:         schema.OrderTypeLimit,
		TimeInForce:  schema.TimeInForceGTC,
		Price:        price,
		Qty:          qty,
	}
}

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	want := Limits{
		MaxPosition:   1000,
		MaxOrderSize:  100,
		MaxNotional:   100_000_000,
		MaxOpenOrders: 500,
		MaxDailyLoss:  -500_000,
	}
	if l != want {
		t.Fatalf("default limits mismatch: got %+v want %+v", l, want)
	}
}

func TestEvaluateAcceptsOrderWithinLimits(t *testing.T) {
	c := NewChecker(DefaultLimits())
	if rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 10), nil); rej != nil {
		t.Fatalf("expected accept, got %v", rej)
	}
}

func TestEvaluateOrderSizeAtLimitPasses(t *testing.T) {
	c := NewChecker(DefaultLimits())
	if rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 100), nil); rej != nil {
		t.Fatalf("expected accept at exact size limit, got %v", rej)
	}
}

func TestEvaluateOrderSizeOverLimitRejects(t *testing.T) {
	c := NewChecker(DefaultLimits())
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 101), nil)
	sizeRej, ok := rej.(OrderSizeReject)
	if !ok {
		t.Fatalf("expected OrderSizeReject, got %T (%v)", rej, rej)
	}
	if sizeRej.Size != 101 || sizeRej.Limit != 100 {
		t.Fatalf("order size reject fields: got %+v", sizeRej)
	}
}

func TestEvaluateKillSwitchDominates(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.EngageKillSwitch()
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 101), nil)
	if _, ok := rej.(KillSwitchReject); !ok {
		t.Fatalf("expected KillSwitchReject, got %T (%v)", rej, rej)
	}

	c.ReleaseKillSwitch()
	rej = c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 101), nil)
	if _, ok := rej.(OrderSizeReject); !ok {
		t.Fatalf("expected OrderSizeReject after release, got %T (%v)", rej, rej)
	}
}

func TestEvaluatePositionLimitExactPasses(t *testing.T) {
	c := NewChecker(DefaultLimits())
	pos := &schema.Position{AccountID: 1, InstrumentID: 1, NetQty: 900}
	if rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 100), pos); rej != nil {
		t.Fatalf("expected accept at exact position limit, got %v", rej)
	}
}

func TestEvaluatePositionLimitOverRejects(t *testing.T) {
	c := NewChecker(DefaultLimits())
	pos := &schema.Position{AccountID: 1, InstrumentID: 1, NetQty: 950}
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 100), pos)
	posRej, ok := rej.(PositionLimitReject)
	if !ok {
		t.Fatalf("expected PositionLimitReject, got %T (%v)", rej, rej)
	}
	if posRej.Current != 950 || posRej.Projected != 1050 || posRej.Limit != 1000 {
		t.Fatalf("position reject fields: got %+v", posRej)
	}
}

func TestEvaluateShortPositionLimit(t *testing.T) {
	c := NewChecker(DefaultLimits())
	pos := &schema.Position{AccountID: 1, InstrumentID: 1, NetQty: -950}
	rej := c.Evaluate(testOrder(schema.OrderSideSell, 1000, 100), pos)
	posRej, ok := rej.(PositionLimitReject)
	if !ok {
		t.Fatalf("expected PositionLimitReject, got %T (%v)", rej, rej)
	}
	if posRej.Current != -950 || posRej.Projected != -1050 {
		t.Fatalf("short position reject fields: got %+v", posRej)
	}
}

func TestEvaluateReducingOrderPasses(t *testing.T) {
	c := NewChecker(DefaultLimits())
	pos := &schema.Position{AccountID: 1, InstrumentID: 1, NetQty: 1000}
	if rej := c.Evaluate(testOrder(schema.OrderSideSell, 1000, 100), pos); rej != nil {
		t.Fatalf("expected reducing order to pass, got %v", rej)
	}
}

func TestEvaluateNilPositionDefaultsToZero(t *testing.T) {
	c := NewChecker(DefaultLimits())
	if rej := c.Evaluate(testOrder(schema.OrderSideSell, 1000, 100), nil); rej != nil {
		t.Fatalf("expected accept with no position, got %v", rej)
	}
}

func TestEvaluateNotionalAtLimitPasses(t *testing.T) {
	c := NewChecker(DefaultLimits())
	if rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1_000_000, 100), nil); rej != nil {
		t.Fatalf("expected accept at exact notional limit, got %v", rej)
	}
}

func TestEvaluateNotionalOverLimitRejects(t *testing.T) {
	c := NewChecker(DefaultLimits())
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1_000_001, 100), nil)
	notRej, ok := rej.(NotionalReject)
	if !ok {
		t.Fatalf("expected NotionalReject, got %T (%v)", rej, rej)
	}
	if notRej.Notional != 100_000_100 || notRej.Limit != 100_000_000 {
		t.Fatalf("notional reject fields: got %+v", notRej)
	}
}

func TestEvaluateNotionalOverflowSaturates(t *testing.T) {
	c := NewChecker(DefaultLimits())
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, schema.Price(maxInt64), 2), nil)
	notRej, ok := rej.(NotionalReject)
	if !ok {
		t.Fatalf("expected NotionalReject, got %T (%v)", rej, rej)
	}
	if int64(notRej.Notional) != maxInt64 {
		t.Fatalf("overflowed notional should clamp: got %d want %d", notRej.Notional, maxInt64)
	}

	unbounded := NewChecker(Limits{
		MaxPosition:   1000,
		MaxOrderSize:  100,
		MaxNotional:   schema.Notional(maxInt64),
		MaxOpenOrders: 500,
		MaxDailyLoss:  -500_000,
	})
	if rej := unbounded.Evaluate(testOrder(schema.OrderSideBuy, schema.Price(maxInt64), 2), nil); rej != nil {
		t.Fatalf("clamped notional at unbounded limit should pass, got %v", rej)
	}
}

func TestEvaluateOpenOrdersAtCapacityRejects(t *testing.T) {
	c := NewChecker(DefaultLimits())
	for i := 0; i < 499; i++ {
		c.IncOpenOrders()
	}
	if rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 10), nil); rej != nil {
		t.Fatalf("expected accept below capacity, got %v", rej)
	}

	c.IncOpenOrders()
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 10), nil)
	openRej, ok := rej.(OpenOrdersReject)
	if !ok {
		t.Fatalf("expected OpenOrdersReject, got %T (%v)", rej, rej)
	}
	if openRej.Count != 500 || openRej.Limit != 500 {
		t.Fatalf("open orders reject fields: got %+v", openRej)
	}
}

func TestEvaluateDailyLossAtFloorRejects(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.UpdateDailyPnl(-499_999)
	if rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 10), nil); rej != nil {
		t.Fatalf("expected accept above loss floor, got %v", rej)
	}

	c.UpdateDailyPnl(-1)
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 10), nil)
	lossRej, ok := rej.(DailyLossReject)
	if !ok {
		t.Fatalf("expected DailyLossReject, got %T (%v)", rej, rej)
	}
	if lossRej.Loss != -500_000 || lossRej.Limit != -500_000 {
		t.Fatalf("daily loss reject fields: got %+v", lossRej)
	}
}

func TestEvaluateCascadeOrder(t *testing.T) {
	c := NewChecker(DefaultLimits())
	pos := &schema.Position{AccountID: 1, InstrumentID: 1, NetQty: 1000}
	// Position (check 3) and notional (check 4) both violated: position wins.
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 2_000_000, 100), pos)
	if _, ok := rej.(PositionLimitReject); !ok {
		t.Fatalf("expected PositionLimitReject first, got %T (%v)", rej, rej)
	}

	// Open orders (check 5) and daily loss (check 6) both violated: open orders wins.
	c = NewChecker(DefaultLimits())
	c.RestoreSession(-500_000, 500, false)
	rej = c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 10), nil)
	if _, ok := rej.(OpenOrdersReject); !ok {
		t.Fatalf("expected OpenOrdersReject first, got %T (%v)", rej, rej)
	}
}

func TestUpdateDailyPnlAccumulates(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.UpdateDailyPnl(100)
	c.UpdateDailyPnl(-50)
	c.UpdateDailyPnl(25)
	if got := c.DailyPnl(); got != 75 {
		t.Fatalf("daily pnl: got %d want 75", got)
	}
}

func TestUpdateDailyPnlSaturates(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.UpdateDailyPnl(schema.Money(maxInt64))
	c.UpdateDailyPnl(1)
	if got := int64(c.DailyPnl()); got != maxInt64 {
		t.Fatalf("daily pnl should clamp high: got %d", got)
	}

	c.RestoreSession(schema.Money(minInt64), 0, false)
	c.UpdateDailyPnl(-1)
	if got := int64(c.DailyPnl()); got != minInt64 {
		t.Fatalf("daily pnl should clamp low: got %d", got)
	}
}

func TestDecOpenOrdersStopsAtZero(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.IncOpenOrders()
	c.IncOpenOrders()
	c.DecOpenOrders()
	c.DecOpenOrders()
	c.DecOpenOrders()
	if got := c.OpenOrders(); got != 0 {
		t.Fatalf("open orders: got %d want 0", got)
	}
}

func TestIncOpenOrdersSaturates(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.RestoreSession(0, ^uint32(0), false)
	c.IncOpenOrders()
	if got := c.OpenOrders(); got != ^uint32(0) {
		t.Fatalf("open orders should clamp: got %d", got)
	}
}

func TestResetDailyPreservesKillSwitch(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.EngageKillSwitch()
	c.UpdateDailyPnl(-100)
	c.IncOpenOrders()

	c.ResetDaily()
	if got := c.DailyPnl(); got != 0 {
		t.Fatalf("daily pnl after reset: got %d want 0", got)
	}
	if got := c.OpenOrders(); got != 0 {
		t.Fatalf("open orders after reset: got %d want 0", got)
	}
	if !c.KillSwitchEngaged() {
		t.Fatal("kill switch should survive daily reset")
	}
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 10), nil)
	if _, ok := rej.(KillSwitchReject); !ok {
		t.Fatalf("expected KillSwitchReject after reset, got %T (%v)", rej, rej)
	}
}

func TestEvaluateZeroLimits(t *testing.T) {
	c := NewChecker(Limits{})
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 1), nil)
	if _, ok := rej.(OrderSizeReject); !ok {
		t.Fatalf("expected OrderSizeReject with zero limits, got %T (%v)", rej, rej)
	}

	rej = c.Evaluate(testOrder(schema.OrderSideBuy, 0, 0), nil)
	if _, ok := rej.(OpenOrdersReject); !ok {
		t.Fatalf("expected OpenOrdersReject for zero-qty order, got %T (%v)", rej, rej)
	}
}

func TestEvaluateExtremeLimitsNeverReject(t *testing.T) {
	c := NewChecker(Limits{
		MaxPosition:   schema.Quantity(maxInt64),
		MaxOrderSize:  schema.Quantity(maxInt64),
		MaxNotional:   schema.Notional(maxInt64),
		MaxOpenOrders: ^uint32(0),
		MaxDailyLoss:  schema.Money(minInt64),
	})
	pos := &schema.Position{AccountID: 1, InstrumentID: 1, NetQty: schema.Quantity(maxInt64)}
	order := testOrder(schema.OrderSideBuy, schema.Price(maxInt64), schema.Quantity(maxInt64))
	if rej := c.Evaluate(order, pos); rej != nil {
		t.Fatalf("extreme order should pass extreme limits, got %v", rej)
	}
}

func TestUpdateLimitsKeepsSession(t *testing.T) {
	c := NewChecker(DefaultLimits())
	c.UpdateDailyPnl(-100)
	c.IncOpenOrders()

	tighter := DefaultLimits()
	tighter.MaxOrderSize = 10
	c.UpdateLimits(tighter)

	if got := c.DailyPnl(); got != -100 {
		t.Fatalf("daily pnl after limits swap: got %d want -100", got)
	}
	if got := c.OpenOrders(); got != 1 {
		t.Fatalf("open orders after limits swap: got %d want 1", got)
	}
	rej := c.Evaluate(testOrder(schema.OrderSideBuy, 1000, 11), nil)
	if _, ok := rej.(OrderSizeReject); !ok {
		t.Fatalf("expected new size limit to apply, got %T (%v)", rej, rej)
	}
}

func TestRejectionReasonCodes(t *testing.T) {
	pairs := []struct {
		rej  Rejection
		want schema.RejectReason
	}{
		{KillSwitchReject{}, schema.RejectKillSwitch},
		{OrderSizeReject{}, schema.RejectOrderSize},
		{PositionLimitReject{}, schema.RejectPositionLimit},
		{NotionalReject{}, schema.RejectNotional},
		{OpenOrdersReject{}, schema.RejectOpenOrders},
		{DailyLossReject{}, schema.RejectDailyLoss},
	}
	for _, p := range pairs {
		if got := p.rej.Reason(); got != p.want {
			t.Fatalf("reason for %T: got %v want %v", p.rej, got, p.want)
		}
		if p.rej.String() == "" {
			t.Fatalf("empty description for %T", p.rej)
		}
	}
}
