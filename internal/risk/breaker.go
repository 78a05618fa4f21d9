package risk

import "riskcore/internal/schema"

// BreakerConfig bounds the fill flow of one instrument inside a fixed
// observation window.
type BreakerConfig struct {
	// MaxMove is the largest tolerated absolute deviation from the window
	// reference price, in ticks.
	MaxMove schema.Price
	// MaxFillsPerWindow is the largest tolerated fill count per window.
	MaxFillsPerWindow uint32
	// WindowNs is the window length in nanoseconds.
	WindowNs int64
}

// CircuitBreaker watches the fill stream of one instrument and latches when
// prices move too far or fills arrive too fast. Once tripped it stays
// tripped until Reset; further fills are reported but never recorded.
//
// The window is anchored: it starts at the first fill past the previous
// window and runs for exactly WindowNs. It does not slide with each fill.
type CircuitBreaker struct {
	cfg           BreakerConfig
	fillsInWindow uint32
	windowStartNs int64
	refPrice      schema.Price
	tripped       bool
	cause         schema.BreakerCause
}

// NewCircuitBreaker creates an armed breaker with a zero anchor and
// reference. Callers normally Reset with a live reference before use.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg}
}

// OnFill folds one fill into the window and reports whether the breaker is
// tripped afterward. A fill whose timestamp reaches the end of the current
// window starts a new one and becomes its reference price, so it can only
// trip on fill rate, never on price.
func (b *CircuitBreaker) OnFill(price schema.Price, tsNs int64) bool {
	if b.tripped {
		return true
	}

	elapsed := satSub64(tsNs, b.windowStartNs)
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= b.cfg.WindowNs {
		b.windowStartNs = tsNs
		b.fillsInWindow = 0
		b.refPrice = price
	}

	deviation := satAbs64(satSub64(int64(price), int64(b.refPrice)))
	if deviation > int64(b.cfg.MaxMove) {
		b.tripped = true
		b.cause = schema.BreakerCausePriceMove
		return true
	}

	b.fillsInWindow = satAddU32(b.fillsInWindow, 1)
	if b.fillsInWindow > b.cfg.MaxFillsPerWindow {
		b.tripped = true
		b.cause = schema.BreakerCauseFillRate
		return true
	}

	return false
}

// Tripped reports whether the breaker has latched.
func (b *CircuitBreaker) Tripped() bool {
	return b.tripped
}

// TripCause reports which condition latched the breaker, or none.
func (b *CircuitBreaker) TripCause() schema.BreakerCause {
	return b.cause
}

// Reset clears the latch and fill count and starts a fresh window at tsNs
// with the given reference price.
func (b *CircuitBreaker) Reset(referencePrice schema.Price, tsNs int64) {
	b.tripped = false
	b.cause = schema.BreakerCauseNone
	b.fillsInWindow = 0
	b.windowStartNs = tsNs
	b.refPrice = referencePrice
}

// SetReferencePrice re-bases the deviation check. The latch, window anchor
// and fill count are untouched.
func (b *CircuitBreaker) SetReferencePrice(price schema.Price) {
	b.refPrice = price
}

// RestoreSession reinstates breaker state captured in a snapshot. A latch
// restored here holds until Reset, the same as a live trip.
func (b *CircuitBreaker) RestoreSession(referencePrice schema.Price, windowStartNs int64, fills uint32, tripped bool, cause schema.BreakerCause) {
	b.refPrice = referencePrice
	b.windowStartNs = windowStartNs
	b.fillsInWindow = fills
	b.tripped = tripped
	b.cause = cause
	if !tripped {
		b.cause = schema.BreakerCauseNone
	}
}

// ReferencePrice returns the current deviation baseline.
func (b *CircuitBreaker) ReferencePrice() schema.Price {
	return b.refPrice
}

// WindowStart returns the anchor timestamp of the current window.
func (b *CircuitBreaker) WindowStart() int64 {
	return b.windowStartNs
}

// FillsInWindow returns the fill count of the current window.
func (b *CircuitBreaker) FillsInWindow() uint32 {
	return b.fillsInWindow
}

// Config returns the breaker bounds.
func (b *CircuitBreaker) Config() BreakerConfig {
	return b.cfg
}
