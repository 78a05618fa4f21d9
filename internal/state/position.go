package state

import (
	"sort"

	"riskcore/internal/schema"
)

type bookKey struct {
	account    uint32
	instrument uint32
}

// PositionBook folds fills into per-account, per-instrument positions.
// Entry prices use a weighted average on increase; reductions realize
// P&L against the average and flips re-open at the fill price.
//
// Position accounting runs on plain int64 ticks. Saturation lives in the
// risk kernel, which guards its own inputs.
type PositionBook struct {
	positions map[bookKey]schema.Position
}

// NewPositionBook creates an empty book.
func NewPositionBook() *PositionBook {
	return &PositionBook{positions: make(map[bookKey]schema.Position)}
}

// ApplyFill updates the position hit by the fill and returns the new
// position along with the realized P&L delta of this fill.
func (b *PositionBook) ApplyFill(fill schema.Fill) (schema.Position, schema.Money) {
	key := bookKey{fill.AccountID, fill.InstrumentID}
	pos, ok := b.positions[key]
	if !ok {
		pos = schema.Position{AccountID: fill.AccountID, InstrumentID: fill.InstrumentID}
	}

	signed := int64(fill.Qty)
	switch fill.Side {
	case schema.OrderSideBuy:
	case schema.OrderSideSell:
		signed = -signed
	default:
		return pos, 0
	}

	oldNet := int64(pos.NetQty)
	price := int64(fill.Price)
	avg := int64(pos.AvgEntryPrice)
	net := oldNet + signed
	var realized int64

	if oldNet == 0 || (oldNet > 0) == (signed > 0) {
		if net != 0 {
			avg = (avg*absInt64(oldNet) + price*absInt64(signed)) / absInt64(net)
		}
	} else {
		closing := absInt64(oldNet)
		if absInt64(signed) < closing {
			closing = absInt64(signed)
		}
		if oldNet > 0 {
			realized = (price - avg) * closing
		} else {
			realized = (avg - price) * closing
		}
		switch {
		case net == 0:
			avg = 0
		case (net > 0) != (oldNet > 0):
			avg = price
		}
	}

	pos.NetQty = schema.Quantity(net)
	pos.AvgEntryPrice = schema.Price(avg)
	pos.RealizedPnl += schema.Money(realized)
	pos.TradeCount++
	b.positions[key] = pos
	return pos, schema.Money(realized)
}

// Position returns the current position for an account and instrument.
// A missing entry reads as a flat position carrying the given IDs.
func (b *PositionBook) Position(accountID, instrumentID uint32) schema.Position {
	if pos, ok := b.positions[bookKey{accountID, instrumentID}]; ok {
		return pos
	}
	return schema.Position{AccountID: accountID, InstrumentID: instrumentID}
}

// Positions returns all tracked positions ordered by account then
// instrument.
func (b *PositionBook) Positions() []schema.Position {
	out := make([]schema.Position, 0, len(b.positions))
	for _, pos := range b.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AccountID != out[j].AccountID {
			return out[i].AccountID < out[j].AccountID
		}
		return out[i].InstrumentID < out[j].InstrumentID
	})
	return out
}

// ApplySnapshot replaces the book contents with snapshot entries.
func (b *PositionBook) ApplySnapshot(snapshot Snapshot) {
	if b.positions == nil {
		b.positions = make(map[bookKey]schema.Position, len(snapshot.Positions))
	} else {
		for key := range b.positions {
			delete(b.positions, key)
		}
	}
	for _, entry := range snapshot.Positions {
		b.positions[bookKey{entry.AccountID, entry.InstrumentID}] = schema.Position{
			AccountID:     entry.AccountID,
			InstrumentID:  entry.InstrumentID,
			NetQty:        entry.NetQty,
			AvgEntryPrice: entry.AvgEntryPrice,
			RealizedPnl:   entry.RealizedPnl,
			TradeCount:    entry.TradeCount,
		}
	}
}

// Count returns the number of tracked positions.
func (b *PositionBook) Count() int {
	return len(b.positions)
}

// Unrealized values an open position against a mark price.
func Unrealized(p schema.Position, mark schema.Price) schema.Money {
	return schema.Money((int64(mark) - int64(p.AvgEntryPrice)) * int64(p.NetQty))
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
