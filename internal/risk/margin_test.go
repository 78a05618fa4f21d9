package risk

import (
	"testing"

	"riskcore/internal/schema"
)

func TestDefaultMarginParams(t *testing.T) {
	p := DefaultMarginParams()
	if p.InitialMarginBps != 1000 || p.MaintenanceMarginBps != 500 {
		t.Fatalf("default margin params mismatch: got %+v", p)
	}
}

func TestInitialMargin(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if got := m.InitialMargin(10_000, 10); got != 10_000 {
		t.Fatalf("initial margin: got %d want 10000", got)
	}
}

func TestMaintenanceMargin(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if got := m.MaintenanceMargin(10_000, 10); got != 5_000 {
		t.Fatalf("maintenance margin: got %d want 5000", got)
	}
}

func TestMarginZeroInputs(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if got := m.InitialMargin(0, 10); got != 0 {
		t.Fatalf("zero price margin: got %d want 0", got)
	}
	if got := m.InitialMargin(10_000, 0); got != 0 {
		t.Fatalf("zero qty margin: got %d want 0", got)
	}
	zero := NewMarginCalculator(MarginParams{})
	if got := zero.InitialMargin(10_000, 10); got != 0 {
		t.Fatalf("zero rate margin: got %d want 0", got)
	}
}

func TestMarginRequirementFloors(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	// 999 * 1 * 500 / 10000 = 49.95, floored.
	if got := m.MaintenanceMargin(999, 1); got != 49 {
		t.Fatalf("floored maintenance margin: got %d want 49", got)
	}
}

func TestIsMarginCallBoundary(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if m.IsMarginCall(10_000, 10, 5_000) {
		t.Fatal("equity at the requirement is not a margin call")
	}
	if !m.IsMarginCall(10_000, 10, 4_999) {
		t.Fatal("equity below the requirement is a margin call")
	}
}

func TestLiquidationPriceLong(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if got := m.LiquidationPrice(10_000, 10, 5_000, true); got != 0 {
		t.Fatalf("long liquidation price: got %d want 0", got)
	}
}

func TestLiquidationPriceShort(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if got := m.LiquidationPrice(10_000, 10, 5_000, false); got != 20_000 {
		t.Fatalf("short liquidation price: got %d want 20000", got)
	}
}

func TestLiquidationPriceZeroQty(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if got := m.LiquidationPrice(10_000, 0, 5_000, true); got != 10_000 {
		t.Fatalf("zero qty liquidation price: got %d want entry", got)
	}
}

func TestLiquidationPriceZeroMaintenanceRate(t *testing.T) {
	m := NewMarginCalculator(MarginParams{InitialMarginBps: 1000})
	if got := m.LiquidationPrice(10_000, 10, 5_000, true); got != 10_000 {
		t.Fatalf("zero rate liquidation price: got %d want entry", got)
	}
}

func TestLiquidationPriceNegativeEquity(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	// Negative equity pushes the liquidation price through the entry.
	if got := m.LiquidationPrice(10_000, 10, -5_000, true); got != 20_000 {
		t.Fatalf("long liquidation with negative equity: got %d want 20000", got)
	}
	if got := m.LiquidationPrice(10_000, 10, -5_000, false); got != 0 {
		t.Fatalf("short liquidation with negative equity: got %d want 0", got)
	}
}

func TestMarginNegativePriceFollowsSign(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if got := m.InitialMargin(-10_000, 10); got != -10_000 {
		t.Fatalf("negative price margin: got %d want -10000", got)
	}
}

func TestMarginExtremeValuesSaturate(t *testing.T) {
	m := NewMarginCalculator(DefaultMarginParams())
	if got := int64(m.InitialMargin(schema.Price(maxInt64), schema.Quantity(maxInt64))); got != maxInt64 {
		t.Fatalf("extreme margin should clamp: got %d", got)
	}
	if got := int64(m.InitialMargin(schema.Price(minInt64), schema.Quantity(maxInt64))); got != minInt64 {
		t.Fatalf("extreme negative margin should clamp: got %d", got)
	}

	liq := m.LiquidationPrice(100, 1, schema.Money(maxInt64), false)
	if int64(liq) != maxInt64 {
		t.Fatalf("extreme short liquidation should clamp: got %d", liq)
	}
}
