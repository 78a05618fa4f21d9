package risk

import "riskcore/internal/schema"

// Limits is the immutable limit profile one checker enforces. Values use
// the same scaled-integer units as the order flow they gate.
type Limits struct {
	// MaxPosition bounds the absolute net position after an order.
	MaxPosition schema.Quantity
	// MaxOrderSize bounds the quantity of a single order.
	MaxOrderSize schema.Quantity
	// MaxNotional bounds price*qty of a single order.
	MaxNotional schema.Notional
	// MaxOpenOrders bounds the number of simultaneously working orders.
	MaxOpenOrders uint32
	// MaxDailyLoss is the loss floor, expressed as a non-positive number.
	// A session P&L at or below it blocks new orders.
	MaxDailyLoss schema.Money
}

// DefaultLimits returns the standard conservative profile.
func DefaultLimits() Limits {
	return Limits{
		MaxPosition:   1000,
		MaxOrderSize:  100,
		MaxNotional:   100_000_000,
		MaxOpenOrders: 500,
		MaxDailyLoss:  -500_000,
	}
}
