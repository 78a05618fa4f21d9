package risk

import "riskcore/internal/schema"

// Checker is the pre-trade gate for one account partition. It owns the
// session state the checks read: daily P&L, open-order count and the kill
// switch. It holds no locks; one goroutine owns a checker and serializes
// access to it.
type Checker struct {
	limits     Limits
	dailyPnl   schema.Money
	openOrders uint32
	killSwitch bool
}

// NewChecker creates a checker with zeroed session state.
func NewChecker(limits Limits) *Checker {
	return &Checker{limits: limits}
}

// Evaluate runs the check cascade against one order and returns the first
// failure, or nil on accept. It never mutates the checker; callers record
// accepted orders with IncOpenOrders once the order is actually working.
// A nil position means no exposure in the order's instrument.
func (c *Checker) Evaluate(order schema.Order, position *schema.Position) Rejection {
	if c.killSwitch {
		return KillSwitchReject{}
	}

	if order.Qty > c.limits.MaxOrderSize {
		return OrderSizeReject{Size: order.Qty, Limit: c.limits.MaxOrderSize}
	}

	var current schema.Quantity
	if position != nil {
		current = position.NetQty
	}
	projected := projectPosition(current, order.Side, order.Qty)
	if satAbs64(int64(projected)) > int64(c.limits.MaxPosition) {
		return PositionLimitReject{Current: current, Projected: projected, Limit: c.limits.MaxPosition}
	}

	notional := schema.Notional(satMul64(int64(order.Price), int64(order.Qty)))
	if notional > c.limits.MaxNotional {
		return NotionalReject{Notional: notional, Limit: c.limits.MaxNotional}
	}

	if c.openOrders >= c.limits.MaxOpenOrders {
		return OpenOrdersReject{Count: c.openOrders, Limit: c.limits.MaxOpenOrders}
	}

	if c.dailyPnl <= c.limits.MaxDailyLoss {
		return DailyLossReject{Loss: c.dailyPnl, Limit: c.limits.MaxDailyLoss}
	}

	return nil
}

// UpdateDailyPnl folds realized profit or loss into the session total.
func (c *Checker) UpdateDailyPnl(delta schema.Money) {
	c.dailyPnl = schema.Money(satAdd64(int64(c.dailyPnl), int64(delta)))
}

// IncOpenOrders records a newly working order.
func (c *Checker) IncOpenOrders() {
	c.openOrders = satAddU32(c.openOrders, 1)
}

// DecOpenOrders records a terminal order. The count stops at zero.
func (c *Checker) DecOpenOrders() {
	if c.openOrders > 0 {
		c.openOrders--
	}
}

// EngageKillSwitch blocks every subsequent order until release.
func (c *Checker) EngageKillSwitch() {
	c.killSwitch = true
}

// ReleaseKillSwitch re-opens the gate.
func (c *Checker) ReleaseKillSwitch() {
	c.killSwitch = false
}

// ResetDaily zeroes the daily P&L and open-order count at session roll.
// The kill switch survives the reset and must be released explicitly.
func (c *Checker) ResetDaily() {
	c.dailyPnl = 0
	c.openOrders = 0
}

// UpdateLimits swaps the limit profile. Session state is untouched.
func (c *Checker) UpdateLimits(limits Limits) {
	c.limits = limits
}

// RestoreSession reinstalls session state captured in a snapshot.
func (c *Checker) RestoreSession(dailyPnl schema.Money, openOrders uint32, killSwitch bool) {
	c.dailyPnl = dailyPnl
	c.openOrders = openOrders
	c.killSwitch = killSwitch
}

// DailyPnl returns the accumulated session P&L.
func (c *Checker) DailyPnl() schema.Money {
	return c.dailyPnl
}

// OpenOrders returns the tracked working-order count.
func (c *Checker) OpenOrders() uint32 {
	return c.openOrders
}

// KillSwitchEngaged reports whether the gate is closed.
func (c *Checker) KillSwitchEngaged() bool {
	return c.killSwitch
}

// Limits returns the active limit profile.
func (c *Checker) Limits() Limits {
	return c.limits
}

// ProjectPosition returns the net position after an order executes in
// full, saturating at the int64 bounds.
func ProjectPosition(current schema.Quantity, side schema.OrderSide, qty schema.Quantity) schema.Quantity {
	return projectPosition(current, side, qty)
}

func projectPosition(current schema.Quantity, side schema.OrderSide, qty schema.Quantity) schema.Quantity {
	switch side {
	case schema.OrderSideBuy:
		return schema.Quantity(satAdd64(int64(current), int64(qty)))
	case schema.OrderSideSell:
		return schema.Quantity(satSub64(int64(current), int64(qty)))
	default:
		return current
	}
}
