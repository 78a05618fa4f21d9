// Package fillgen produces deterministic synthetic order flow for soak
// runs and journal fixtures. An optional injector perturbs the fill
// stream with price spikes and duplicate bursts to exercise the circuit
// breaker paths.
package fillgen

import (
	"fmt"
	"math/rand"
	"time"

	"riskcore/internal/schema"
)

// Config controls the synthetic order stream. A fixed Seed yields an
// identical stream across runs.
type Config struct {
	AccountID    uint32
	InstrumentID uint32 // 0 round-robins all registry instruments
	BasePrice    schema.Price
	Qty          schema.Quantity
	Seed         uint64
	DriftTicks   int64
	JitterTicks  int64
}

// Generator emits orders that drift from a base price with bounded
// jitter, cycling through the configured instruments.
type Generator struct {
	instruments []schema.Instrument
	cfg         Config
	rng         *rand.Rand
	index       int
	step        int64
	nextID      uint64
}

// NewGenerator creates a generator over the registry's instruments.
func NewGenerator(reg *schema.Registry, cfg Config) (*Generator, error) {
	if reg == nil || reg.InstrumentCount() == 0 {
		return nil, fmt.Errorf("registry has no instruments")
	}
	if _, ok := reg.Account(schema.AccountID(cfg.AccountID)); !ok {
		return nil, fmt.Errorf("account not in registry: %d", cfg.AccountID)
	}
	if cfg.BasePrice <= 0 {
		return nil, fmt.Errorf("basePrice must be > 0")
	}
	if cfg.Qty <= 0 {
		return nil, fmt.Errorf("qty must be > 0")
	}
	if cfg.JitterTicks < 0 {
		return nil, fmt.Errorf("jitterTicks must be >= 0")
	}

	var instruments []schema.Instrument
	if cfg.InstrumentID != 0 {
		inst, ok := reg.Instrument(schema.InstrumentID(cfg.InstrumentID))
		if !ok {
			return nil, fmt.Errorf("instrument not in registry: %d", cfg.InstrumentID)
		}
		instruments = []schema.Instrument{inst}
	} else {
		instruments = make([]schema.Instrument, 0, reg.InstrumentCount())
		for i := 0; i < reg.InstrumentCount(); i++ {
			inst, ok := reg.InstrumentAt(i)
			if !ok {
				continue
			}
			instruments = append(instruments, inst)
		}
	}

	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UTC().UnixNano())
	}
	return &Generator{
		instruments: instruments,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(int64(cfg.Seed))),
		nextID:      1,
	}, nil
}

// Next creates the next order in sequence.
func (g *Generator) Next() schema.Order {
	inst := g.instruments[g.index]
	g.index = (g.index + 1) % len(g.instruments)

	price := int64(g.cfg.BasePrice) + g.cfg.DriftTicks*g.step
	if g.cfg.JitterTicks > 0 {
		price += g.rng.Int63n(2*g.cfg.JitterTicks+1) - g.cfg.JitterTicks
	}
	if price < 1 {
		price = 1
	}
	g.step++

	side := schema.OrderSideBuy
	if g.rng.Intn(2) == 1 {
		side = schema.OrderSideSell
	}

	id := g.nextID
	g.nextID++
	return schema.Order{
		OrderID:      id,
		AccountID:    g.cfg.AccountID,
		InstrumentID: uint32(inst.ID),
		Side:         side,
		Type:         schema.OrderTypeLimit,
		TimeInForce:  schema.TimeInForceGTC,
		Price:        schema.Price(price),
		Qty:          g.cfg.Qty,
	}
}

// FillFor builds the fill that completes an accepted order at its limit
// price with no fee.
func FillFor(order schema.Order) schema.Fill {
	return schema.Fill{
		OrderID:      order.OrderID,
		AccountID:    order.AccountID,
		InstrumentID: order.InstrumentID,
		Side:         order.Side,
		Price:        order.Price,
		Qty:          order.Qty,
	}
}
