package risk

import (
	"math/bits"

	"riskcore/internal/schema"
)

// MarginParams sets initial and maintenance requirements in basis points of
// notional.
type MarginParams struct {
	InitialMarginBps     uint32
	MaintenanceMarginBps uint32
}

// DefaultMarginParams returns 10% initial and 5% maintenance margin.
func DefaultMarginParams() MarginParams {
	return MarginParams{
		InitialMarginBps:     1000,
		MaintenanceMarginBps: 500,
	}
}

// MarginCalculator prices margin requirements. It keeps no state; every
// method is a pure function of its arguments and the params.
type MarginCalculator struct {
	params MarginParams
}

// NewMarginCalculator creates a calculator with the given params.
func NewMarginCalculator(params MarginParams) MarginCalculator {
	return MarginCalculator{params: params}
}

// Params returns the configured requirement rates.
func (m MarginCalculator) Params() MarginParams {
	return m.params
}

// InitialMargin returns floor(price*qty*bps/10000) for the initial rate,
// computed wide and clamped to the output range. Quantity enters as a
// magnitude; the sign of the result follows the price.
func (m MarginCalculator) InitialMargin(price schema.Price, qty schema.Quantity) schema.Money {
	return marginRequirement(price, qty, m.params.InitialMarginBps)
}

// MaintenanceMargin returns floor(price*qty*bps/10000) for the maintenance
// rate, computed wide and clamped to the output range.
func (m MarginCalculator) MaintenanceMargin(price schema.Price, qty schema.Quantity) schema.Money {
	return marginRequirement(price, qty, m.params.MaintenanceMarginBps)
}

// IsMarginCall reports whether equity no longer covers the maintenance
// requirement at the given mark. Equity exactly at the requirement is not
// a call.
func (m MarginCalculator) IsMarginCall(price schema.Price, qty schema.Quantity, equity schema.Money) bool {
	return equity < m.MaintenanceMargin(price, qty)
}

// LiquidationPrice returns the mark at which equity is exhausted for the
// given entry. A zero quantity or a zero maintenance rate returns the entry
// unchanged. Longs liquidate below the entry, shorts above.
func (m MarginCalculator) LiquidationPrice(entry schema.Price, qty schema.Quantity, equity schema.Money, long bool) schema.Price {
	if qty == 0 || m.params.MaintenanceMarginBps == 0 {
		return entry
	}
	distance := liquidationDistance(equity, qty, m.params.MaintenanceMarginBps)
	if long {
		return schema.Price(satSub64(int64(entry), distance))
	}
	return schema.Price(satAdd64(int64(entry), distance))
}

// marginRequirement computes price*qty*bps/10000 with a 128-bit
// intermediate, clamped to the int64 range. The sign follows the price.
func marginRequirement(price schema.Price, qty schema.Quantity, bps uint32) schema.Money {
	if price == 0 || qty == 0 || bps == 0 {
		return 0
	}
	neg := price < 0
	pHi, pLo := bits.Mul64(absU64(int64(price)), absU64(int64(qty)))
	hiHi, hiLo := bits.Mul64(pHi, uint64(bps))
	loHi, loLo := bits.Mul64(pLo, uint64(bps))
	midSum, carry := bits.Add64(hiLo, loHi, 0)
	if hiHi != 0 || carry != 0 {
		return schema.Money(clampMagnitude(^uint64(0), neg))
	}
	qHi, qLo := div128by64(midSum, loLo, 10_000)
	if qHi != 0 {
		qLo = ^uint64(0)
	}
	return schema.Money(clampMagnitude(qLo, neg))
}

// liquidationDistance computes equity*10000/(qty*bps) with a 128-bit
// intermediate, clamped to the int64 range. Quantity enters as a magnitude;
// the sign follows the equity, so negative equity moves the liquidation
// price through the entry.
func liquidationDistance(equity schema.Money, qty schema.Quantity, bps uint32) int64 {
	neg := equity < 0
	nHi, nLo := bits.Mul64(absU64(int64(equity)), 10_000)
	qHi, qLo := div128by64(nHi, nLo, absU64(int64(qty)))
	qHi, qLo = div128by64(qHi, qLo, uint64(bps))
	if qHi != 0 {
		qLo = ^uint64(0)
	}
	return clampMagnitude(qLo, neg)
}
