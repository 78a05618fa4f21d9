package schema

// Price is a scaled integer in ticks. The scale is defined per instrument.
type Price int64

// Quantity is a scaled integer in lots. The scale is defined per instrument.
type Quantity int64

// Notional is a scaled integer. The scale is defined per instrument.
type Notional int64

// Money is a scaled integer amount in the account currency.
type Money int64

// Fee is a scaled integer. The scale is defined per instrument.
type Fee int64

// OrderSide describes order direction.
//
//go:generate enumstr
type OrderSide uint16

const (
	OrderSideUnknown OrderSide = iota
	OrderSideBuy
	OrderSideSell
)

// OrderType describes order type.
//
//go:generate enumstr
type OrderType uint16

const (
	OrderTypeUnknown OrderType = iota
	OrderTypeLimit
	OrderTypeMarket
)

// TimeInForce describes order time-in-force.
//
//go:generate enumstr
type TimeInForce uint16

const (
	TimeInForceUnknown TimeInForce = iota
	TimeInForceGTC
	TimeInForceIOC
	TimeInForceFOK
)

// Order is the payload for EventOrder.
type Order struct {
	OrderID      uint64
	AccountID    uint32
	InstrumentID uint32
	Side         OrderSide
	Type         OrderType
	TimeInForce  TimeInForce
	Flags        uint16
	Price        Price
	Qty          Quantity
}

// OrderAckStatus describes the outcome of an order acknowledgment.
//
//go:generate enumstr
type OrderAckStatus uint16

const (
	OrderAckStatusUnknown OrderAckStatus = iota
	OrderAckStatusAcked
	OrderAckStatusRejected
	OrderAckStatusCanceled
	OrderAckStatusExpired
	OrderAckStatusPartFilled
	OrderAckStatusFilled
)

// OrderAckReason describes the reason for an order acknowledgment.
//
//go:generate enumstr
type OrderAckReason uint16

const (
	OrderAckReasonNone OrderAckReason = iota
	OrderAckReasonRiskReject
	OrderAckReasonVenueHalt
	OrderAckReasonInvalidPrice
	OrderAckReasonInvalidQty
	OrderAckReasonNotAllowed
)

// OrderAck is the payload for EventOrderAck.
type OrderAck struct {
	OrderID      uint64
	AccountID    uint32
	InstrumentID uint32
	Status       OrderAckStatus
	Reason       OrderAckReason
	Flags        uint16
	Reserved     uint16
	Price        Price
	Qty          Quantity
	LeavesQty    Quantity
}

// RiskAction is the outcome of a pre-trade decision.
//
//go:generate enumstr
type RiskAction uint16

const (
	RiskActionUnknown RiskAction = iota
	RiskActionAllow
	RiskActionDeny
)

// RejectReason identifies which pre-trade check rejected an order.
//
//go:generate enumstr
type RejectReason uint16

const (
	RejectNone RejectReason = iota
	RejectKillSwitch
	RejectOrderSize
	RejectPositionLimit
	RejectNotional
	RejectOpenOrders
	RejectDailyLoss
)

// RiskDecision is the payload for EventRiskDecision. Observed and Bound
// carry the measured value and the limit it was checked against for the
// rejecting check; both are zero on allow.
type RiskDecision struct {
	OrderID      uint64
	AccountID    uint32
	InstrumentID uint32
	Action       RiskAction
	Reason       RejectReason
	Flags        uint16
	Reserved     uint16
	Price        Price
	Qty          Quantity
	Observed     int64
	Bound        int64
	CurrentPos   Quantity
	ProjectedPos Quantity
}

// Fill is the payload for EventFill.
type Fill struct {
	OrderID      uint64
	AccountID    uint32
	InstrumentID uint32
	Side         OrderSide
	Flags        uint16
	Reserved     uint32
	Price        Price
	Qty          Quantity
	Fee          Fee
}

// BreakerState describes whether a circuit breaker accepts fills.
//
//go:generate enumstr
type BreakerState uint16

const (
	BreakerStateUnknown BreakerState = iota
	BreakerStateArmed
	BreakerStateTripped
)

// BreakerCause identifies which condition tripped a circuit breaker.
//
//go:generate enumstr
type BreakerCause uint16

const (
	BreakerCauseNone BreakerCause = iota
	BreakerCausePriceMove
	BreakerCauseFillRate
)

// BreakerEvent is the payload for EventBreaker.
type BreakerEvent struct {
	InstrumentID   uint32
	State          BreakerState
	Cause          BreakerCause
	Flags          uint16
	Reserved       uint16
	FillsInWindow  uint32
	FillPrice      Price
	ReferencePrice Price
	WindowStartNs  int64
}

// MarginCall is the payload for EventMarginCall.
type MarginCall struct {
	AccountID        uint32
	InstrumentID     uint32
	NetQty           Quantity
	MarkPrice        Price
	Equity           Money
	Maintenance      Money
	LiquidationPrice Price
}

// Position is the per-account per-instrument ledger view consumed by the
// pre-trade checks. It is not a wire payload; the position book rebuilds it
// from fills.
type Position struct {
	AccountID     uint32
	InstrumentID  uint32
	NetQty        Quantity
	AvgEntryPrice Price
	RealizedPnl   Money
	TradeCount    uint32
}
