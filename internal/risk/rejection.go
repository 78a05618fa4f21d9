package risk

import (
	"fmt"

	"riskcore/internal/schema"
)

// Rejection reports why Evaluate refused an order. A nil Rejection is an
// accept. Rejections are informational values, not errors; each concrete
// type carries the observed value next to the limit it broke, and callers
// switch over the closed set of types below.
type Rejection interface {
	// Reason maps the rejection onto its wire reason code.
	Reason() schema.RejectReason
	String() string

	rejection()
}

// KillSwitchReject reports that the kill switch was engaged.
type KillSwitchReject struct{}

func (KillSwitchReject) Reason() schema.RejectReason { return schema.RejectKillSwitch }
func (KillSwitchReject) String() string              { return "kill switch engaged" }
func (KillSwitchReject) rejection()                  {}

// OrderSizeReject reports an order quantity above the per-order limit.
type OrderSizeReject struct {
	Size  schema.Quantity
	Limit schema.Quantity
}

func (OrderSizeReject) Reason() schema.RejectReason { return schema.RejectOrderSize }
func (r OrderSizeReject) String() string {
	return fmt.Sprintf("order size %d exceeds limit %d", r.Size, r.Limit)
}
func (OrderSizeReject) rejection() {}

// PositionLimitReject reports that the projected net position leaves the
// allowed band.
type PositionLimitReject struct {
	Current   schema.Quantity
	Projected schema.Quantity
	Limit     schema.Quantity
}

func (PositionLimitReject) Reason() schema.RejectReason { return schema.RejectPositionLimit }
func (r PositionLimitReject) String() string {
	return fmt.Sprintf("position %d projected to %d exceeds limit %d", r.Current, r.Projected, r.Limit)
}
func (PositionLimitReject) rejection() {}

// NotionalReject reports an order notional above the per-order limit.
type NotionalReject struct {
	Notional schema.Notional
	Limit    schema.Notional
}

func (NotionalReject) Reason() schema.RejectReason { return schema.RejectNotional }
func (r NotionalReject) String() string {
	return fmt.Sprintf("notional %d exceeds limit %d", r.Notional, r.Limit)
}
func (NotionalReject) rejection() {}

// OpenOrdersReject reports that the account is at its open-order capacity.
type OpenOrdersReject struct {
	Count uint32
	Limit uint32
}

func (OpenOrdersReject) Reason() schema.RejectReason { return schema.RejectOpenOrders }
func (r OpenOrdersReject) String() string {
	return fmt.Sprintf("open orders %d at limit %d", r.Count, r.Limit)
}
func (OpenOrdersReject) rejection() {}

// DailyLossReject reports that the session P&L reached the loss floor.
type DailyLossReject struct {
	Loss  schema.Money
	Limit schema.Money
}

func (DailyLossReject) Reason() schema.RejectReason { return schema.RejectDailyLoss }
func (r DailyLossReject) String() string {
	return fmt.Sprintf("daily pnl %d at loss limit %d", r.Loss, r.Limit)
}
func (DailyLossReject) rejection() {}
