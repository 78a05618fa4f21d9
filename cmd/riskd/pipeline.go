package main

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/yanun0323/logs"

	"riskcore/internal/admin"
	"riskcore/internal/bus"
	"riskcore/internal/codec"
	"riskcore/internal/fillgen"
	"riskcore/internal/obs"
	"riskcore/internal/ops"
	"riskcore/internal/orders"
	"riskcore/internal/risk"
	"riskcore/internal/schema"
	"riskcore/internal/state"
)

// eventSource identifies this daemon in event headers.
const eventSource uint16 = 1

type marginKey struct {
	account    uint32
	instrument uint32
}

// pipeline is the single-writer decision path. One mutex serializes the
// order flow against admin commands; every order runs gate, checks,
// position update and breaker accounting under it, so the checkers and
// breakers themselves stay lock-free.
type pipeline struct {
	mu sync.Mutex

	registry *schema.Registry
	checkers map[uint32]*risk.Checker
	breakers map[uint32]*risk.CircuitBreaker
	margin   risk.MarginCalculator
	equity   schema.Money
	features ops.FeatureFlags
	version  uint64

	book    *state.PositionBook
	tracker *orders.Tracker
	inCall  map[marginKey]bool

	queue    *bus.Queue
	injector *fillgen.Injector
	traceGen *obs.TraceGenerator
	evalLat  obs.LatencyStats

	primaryAccount uint32
	seq            uint64
	lastEventTs    int64
}

func newPipeline(loaded ops.Loaded, queue *bus.Queue, injector *fillgen.Injector) *pipeline {
	p := &pipeline{
		registry:       loaded.Registry,
		checkers:       make(map[uint32]*risk.Checker, loaded.Registry.AccountCount()),
		breakers:       make(map[uint32]*risk.CircuitBreaker, len(loaded.Breakers)),
		margin:         risk.NewMarginCalculator(loaded.Margin),
		equity:         loaded.Equity,
		features:       loaded.Features,
		version:        loaded.Version,
		book:           state.NewPositionBook(),
		tracker:        orders.NewTracker(),
		inCall:         make(map[marginKey]bool),
		queue:          queue,
		injector:       injector,
		traceGen:       obs.NewTraceGenerator(0),
		primaryAccount: primaryAccount(loaded),
	}
	for i := 0; i < loaded.Registry.AccountCount(); i++ {
		acct, ok := loaded.Registry.AccountAt(i)
		if !ok {
			continue
		}
		p.checkers[uint32(acct.ID)] = risk.NewChecker(loaded.LimitsFor(uint32(acct.ID)))
	}
	for id, cfg := range loaded.Breakers {
		p.breakers[id] = risk.NewCircuitBreaker(cfg)
	}
	return p
}

// primaryAccount picks the account whose session state feeds the gauges
// and the snapshot: the flow account when a flow is configured, otherwise
// the first registry account.
func primaryAccount(loaded ops.Loaded) uint32 {
	if loaded.Flow.Enabled() {
		return loaded.Flow.AccountID
	}
	if acct, ok := loaded.Registry.AccountAt(0); ok {
		return uint32(acct.ID)
	}
	return 0
}

// handleOrder runs one order through the decision path: journal the order,
// gate on the instrument breaker, evaluate the checks, journal decision and
// ack, then fold the resulting fills back in when fills are enabled.
func (p *pipeline) handleOrder(order schema.Order) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	checker := p.checkers[order.AccountID]
	if checker == nil {
		return fmt.Errorf("no checker for account %d", order.AccountID)
	}

	traceID := p.traceGen.Next()
	if err := p.publish(schema.EventOrder, codec.EncodeOrder(nil, order), traceID); err != nil {
		return err
	}

	// A tripped breaker refuses orders at the gate; the checks never run
	// and no decision event is journaled for them.
	if b := p.breakers[order.InstrumentID]; b != nil && b.Tripped() {
		ack := rejectAck(order, schema.OrderAckReasonVenueHalt)
		return p.publish(schema.EventOrderAck, codec.EncodeOrderAck(nil, ack), traceID)
	}

	position := p.book.Position(order.AccountID, order.InstrumentID)
	start := time.Now()
	rejection := checker.Evaluate(order, &position)
	elapsed := time.Since(start)
	p.evalLat.Observe(elapsed)
	obs.ObserveEvalLatency(elapsed)

	decision := buildDecision(order, position.NetQty, rejection)
	obs.RecordDecision(decision.Action, decision.Reason)
	if err := p.publish(schema.EventRiskDecision, codec.EncodeRiskDecision(nil, decision), traceID); err != nil {
		return err
	}

	var ack schema.OrderAck
	if rejection != nil {
		ack = rejectAck(order, schema.OrderAckReasonRiskReject)
	} else {
		if err := p.tracker.Submit(order); err != nil {
			return err
		}
		checker.IncOpenOrders()
		if order.AccountID == p.primaryAccount {
			obs.SetOpenOrders(checker.OpenOrders())
		}
		ack = schema.OrderAck{
			OrderID:      order.OrderID,
			AccountID:    order.AccountID,
			InstrumentID: order.InstrumentID,
			Status:       schema.OrderAckStatusAcked,
			Reason:       schema.OrderAckReasonNone,
			Price:        order.Price,
			Qty:          order.Qty,
			LeavesQty:    order.Qty,
		}
	}
	if err := p.publish(schema.EventOrderAck, codec.EncodeOrderAck(nil, ack), traceID); err != nil {
		return err
	}
	if rejection != nil {
		return nil
	}
	if _, err := p.tracker.OnAck(ack); err != nil {
		return err
	}

	if !p.features.EnableFills {
		return nil
	}
	for _, fill := range p.injector.Process(fillgen.FillFor(order)) {
		p.applyFill(checker, fill, traceID)
	}
	return nil
}

// applyFill folds one fill into the tracker, the position book, the
// session P&L and the instrument breaker, journaling the fill plus any
// breaker trip or margin call it causes. Injected duplicate fills can
// over-fill a terminal order; the book and breaker still see them.
func (p *pipeline) applyFill(checker *risk.Checker, fill schema.Fill, traceID uint64) {
	released, err := p.tracker.OnFill(fill)
	if err != nil {
		if !errors.Is(err, orders.ErrInvalidTransition) && !errors.Is(err, orders.ErrUnknownOrder) {
			logs.Errorf("fill for order %d: %v", fill.OrderID, err)
		}
	} else if released {
		checker.DecOpenOrders()
	}

	pos, realized := p.book.ApplyFill(fill)
	checker.UpdateDailyPnl(realized)
	if fill.AccountID == p.primaryAccount {
		obs.SetOpenOrders(checker.OpenOrders())
		obs.SetDailyPnl(checker.DailyPnl())
	}

	tsNs := time.Now().UTC().UnixNano()
	if err := p.publish(schema.EventFill, codec.EncodeFill(nil, fill), traceID); err != nil {
		logs.Errorf("journal fill for order %d: %v", fill.OrderID, err)
	}

	if b := p.breakers[fill.InstrumentID]; b != nil && !b.Tripped() {
		if b.OnFill(fill.Price, tsNs) {
			obs.RecordBreakerTrip(b.TripCause())
			ev := schema.BreakerEvent{
				InstrumentID:   fill.InstrumentID,
				State:          schema.BreakerStateTripped,
				Cause:          b.TripCause(),
				FillsInWindow:  b.FillsInWindow(),
				FillPrice:      fill.Price,
				ReferencePrice: b.ReferencePrice(),
				WindowStartNs:  b.WindowStart(),
			}
			if err := p.publish(schema.EventBreaker, codec.EncodeBreakerEvent(nil, ev), traceID); err != nil {
				logs.Errorf("journal breaker trip for instrument %d: %v", fill.InstrumentID, err)
			}
			logs.Infof("breaker tripped: instrument=%d cause=%s fill=%d ref=%d",
				fill.InstrumentID, ev.Cause, fill.Price, ev.ReferencePrice)
		}
	}

	if p.features.EnableMarginWatch {
		p.watchMargin(checker, fill, pos, traceID)
	}
}

// watchMargin marks the position to the fill price and emits a margin
// call when equity first drops below the maintenance requirement. The
// call latches per position until equity recovers.
func (p *pipeline) watchMargin(checker *risk.Checker, fill schema.Fill, pos schema.Position, traceID uint64) {
	key := marginKey{fill.AccountID, fill.InstrumentID}
	if pos.NetQty == 0 {
		delete(p.inCall, key)
		return
	}

	qty := pos.NetQty
	if qty < 0 {
		qty = -qty
	}
	mark := fill.Price
	equity := schema.Money(int64(p.equity) + int64(checker.DailyPnl()) + int64(state.Unrealized(pos, mark)))
	if !p.margin.IsMarginCall(mark, qty, equity) {
		delete(p.inCall, key)
		return
	}
	if p.inCall[key] {
		return
	}
	p.inCall[key] = true

	call := schema.MarginCall{
		AccountID:        fill.AccountID,
		InstrumentID:     fill.InstrumentID,
		NetQty:           pos.NetQty,
		MarkPrice:        mark,
		Equity:           equity,
		Maintenance:      p.margin.MaintenanceMargin(mark, qty),
		LiquidationPrice: p.margin.LiquidationPrice(pos.AvgEntryPrice, qty, equity, pos.NetQty > 0),
	}
	obs.RecordMarginCall()
	if err := p.publish(schema.EventMarginCall, codec.EncodeMarginCall(nil, call), traceID); err != nil {
		logs.Errorf("journal margin call for account %d: %v", fill.AccountID, err)
	}
	logs.Infof("margin call: account=%d instrument=%d equity=%d maintenance=%d liquidation=%d",
		call.AccountID, call.InstrumentID, call.Equity, call.Maintenance, call.LiquidationPrice)
}

// publish stamps the next sequence number on an event and hands it to the
// journal queue. A full queue drops the event and counts it; the decision
// path never blocks on the journal.
func (p *pipeline) publish(eventType schema.EventType, payload []byte, traceID uint64) error {
	tsNs := time.Now().UTC().UnixNano()
	p.seq++
	p.lastEventTs = tsNs
	header := schema.NewHeader(eventType, eventSource, p.seq, tsNs, tsNs)
	header.TraceID = traceID
	if err := p.queue.TryPublish(bus.Event{Header: header, Payload: payload}); err != nil {
		if errors.Is(err, bus.ErrQueueFull) {
			obs.RecordQueueDrop()
			return nil
		}
		return err
	}
	obs.RecordEvent(eventType)
	return nil
}

// applyConfig swaps in a newer resolved config. Limits, margin rates,
// equity and feature flags take effect immediately; breaker bounds stay
// fixed for the life of the process because the latch and window are
// live state.
func (p *pipeline) applyConfig(loaded ops.Loaded) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if loaded.Version == p.version {
		return
	}
	for id, checker := range p.checkers {
		checker.UpdateLimits(loaded.LimitsFor(id))
	}
	p.margin = risk.NewMarginCalculator(loaded.Margin)
	p.equity = loaded.Equity
	p.features = loaded.Features
	p.version = loaded.Version
	logs.Infof("limits updated to version %d", loaded.Version)
}

// restore reinstates state rebuilt from a snapshot and the journal tail.
// Session counters land on the primary account's checker; the journal
// does not record which account they belonged to.
func (p *pipeline) restore(result state.RecoverResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.book = result.Book
	p.seq = result.LastSeq
	p.lastEventTs = result.LastEventTs
	if checker := p.checkers[p.primaryAccount]; checker != nil {
		checker.RestoreSession(result.Session.DailyPnl, result.Session.OpenOrders, result.Session.KillSwitch)
		obs.SetOpenOrders(checker.OpenOrders())
		obs.SetDailyPnl(checker.DailyPnl())
	}
	for _, entry := range result.Breakers {
		if b := p.breakers[entry.InstrumentID]; b != nil {
			b.RestoreSession(entry.ReferencePrice, entry.WindowStartNs, entry.FillsInWindow, entry.Tripped, entry.Cause)
		}
	}
}

// snapshot captures positions, the primary session and every breaker for
// the shutdown snapshot.
func (p *pipeline) snapshot() state.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := p.book.SnapshotWithMeta(p.seq, p.lastEventTs)
	if checker := p.checkers[p.primaryAccount]; checker != nil {
		snapshot.Session = state.SessionState{
			DailyPnl:   checker.DailyPnl(),
			OpenOrders: checker.OpenOrders(),
			KillSwitch: checker.KillSwitchEngaged(),
		}
	}
	for i := 0; i < p.registry.InstrumentCount(); i++ {
		inst, ok := p.registry.InstrumentAt(i)
		if !ok {
			continue
		}
		b := p.breakers[uint32(inst.ID)]
		if b == nil {
			continue
		}
		snapshot.Breakers = append(snapshot.Breakers, state.BreakerEntry{
			InstrumentID:   uint32(inst.ID),
			ReferencePrice: b.ReferencePrice(),
			WindowStartNs:  b.WindowStart(),
			FillsInWindow:  b.FillsInWindow(),
			Tripped:        b.Tripped(),
			Cause:          b.TripCause(),
		})
	}
	return snapshot
}

// Status implements admin.Handler.
func (p *pipeline) Status() admin.Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := admin.Status{Eval: p.evalLat.Snapshot()}
	for i := 0; i < p.registry.AccountCount(); i++ {
		acct, ok := p.registry.AccountAt(i)
		if !ok {
			continue
		}
		checker := p.checkers[uint32(acct.ID)]
		if checker == nil {
			continue
		}
		st.Sessions = append(st.Sessions, admin.SessionStatus{
			Account:    acct.Name,
			DailyPnl:   checker.DailyPnl(),
			OpenOrders: checker.OpenOrders(),
			KillSwitch: checker.KillSwitchEngaged(),
		})
	}
	for i := 0; i < p.registry.InstrumentCount(); i++ {
		inst, ok := p.registry.InstrumentAt(i)
		if !ok {
			continue
		}
		b := p.breakers[uint32(inst.ID)]
		if b == nil {
			continue
		}
		breakerState := schema.BreakerStateArmed
		if b.Tripped() {
			breakerState = schema.BreakerStateTripped
		}
		st.Breakers = append(st.Breakers, admin.BreakerStatus{
			Instrument:     inst.Name,
			InstrumentID:   uint32(inst.ID),
			State:          breakerState,
			Cause:          b.TripCause(),
			ReferencePrice: b.ReferencePrice(),
			FillsInWindow:  b.FillsInWindow(),
			WindowStartNs:  b.WindowStart(),
		})
	}
	return st
}

// SetKillSwitch implements admin.Handler. The switch is venue-wide: it
// engages or releases every account's gate at once.
func (p *pipeline) SetKillSwitch(engaged bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, checker := range p.checkers {
		if engaged {
			checker.EngageKillSwitch()
		} else {
			checker.ReleaseKillSwitch()
		}
	}
	if engaged {
		logs.Info("kill switch engaged")
	} else {
		logs.Info("kill switch released")
	}
}

// ResetBreaker implements admin.Handler. The re-arm is journaled so
// recovery replays it over any earlier trip.
func (p *pipeline) ResetBreaker(instrumentID uint32, price schema.Price) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.breakers[instrumentID]
	if b == nil {
		return fmt.Errorf("unknown instrument %d", instrumentID)
	}
	tsNs := time.Now().UTC().UnixNano()
	b.Reset(price, tsNs)
	ev := schema.BreakerEvent{
		InstrumentID:   instrumentID,
		State:          schema.BreakerStateArmed,
		Cause:          schema.BreakerCauseNone,
		ReferencePrice: price,
		WindowStartNs:  tsNs,
	}
	if err := p.publish(schema.EventBreaker, codec.EncodeBreakerEvent(nil, ev), p.traceGen.Next()); err != nil {
		return err
	}
	logs.Infof("breaker reset: instrument=%d ref=%d", instrumentID, price)
	return nil
}

// SetReferencePrice implements admin.Handler. Rebasing leaves the latch,
// window and fill count alone, so it is not journaled as a transition.
func (p *pipeline) SetReferencePrice(instrumentID uint32, price schema.Price) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := p.breakers[instrumentID]
	if b == nil {
		return fmt.Errorf("unknown instrument %d", instrumentID)
	}
	b.SetReferencePrice(price)
	logs.Infof("breaker reference updated: instrument=%d ref=%d", instrumentID, price)
	return nil
}

// ResetDaily implements admin.Handler. Every account rolls at once; kill
// switches stay as they are.
func (p *pipeline) ResetDaily() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, checker := range p.checkers {
		checker.ResetDaily()
	}
	if checker := p.checkers[p.primaryAccount]; checker != nil {
		obs.SetOpenOrders(checker.OpenOrders())
		obs.SetDailyPnl(checker.DailyPnl())
	}
	logs.Info("daily counters reset")
}

// logSummary prints end-of-run counters.
func (p *pipeline) logSummary() {
	p.mu.Lock()
	defer p.mu.Unlock()

	eval := p.evalLat.Snapshot()
	logs.Infof("run summary: events=%d positions=%d open_orders=%d eval_count=%d eval_avg=%s",
		p.seq, p.book.Count(), p.tracker.OpenCount(), eval.Count, eval.Avg)
}

// buildDecision captures an evaluation outcome for the journal, including
// the measured value and bound of the rejecting check.
func buildDecision(order schema.Order, current schema.Quantity, rejection risk.Rejection) schema.RiskDecision {
	decision := schema.RiskDecision{
		OrderID:      order.OrderID,
		AccountID:    order.AccountID,
		InstrumentID: order.InstrumentID,
		Action:       schema.RiskActionAllow,
		Reason:       schema.RejectNone,
		Price:        order.Price,
		Qty:          order.Qty,
		CurrentPos:   current,
		ProjectedPos: risk.ProjectPosition(current, order.Side, order.Qty),
	}
	if rejection == nil {
		return decision
	}
	decision.Action = schema.RiskActionDeny
	decision.Reason = rejection.Reason()
	switch r := rejection.(type) {
	case risk.OrderSizeReject:
		decision.Observed = int64(r.Size)
		decision.Bound = int64(r.Limit)
	case risk.PositionLimitReject:
		decision.Observed = absInt64(int64(r.Projected))
		decision.Bound = int64(r.Limit)
	case risk.NotionalReject:
		decision.Observed = int64(r.Notional)
		decision.Bound = int64(r.Limit)
	case risk.OpenOrdersReject:
		decision.Observed = int64(r.Count)
		decision.Bound = int64(r.Limit)
	case risk.DailyLossReject:
		decision.Observed = int64(r.Loss)
		decision.Bound = int64(r.Limit)
	}
	return decision
}

func rejectAck(order schema.Order, reason schema.OrderAckReason) schema.OrderAck {
	return schema.OrderAck{
		OrderID:      order.OrderID,
		AccountID:    order.AccountID,
		InstrumentID: order.InstrumentID,
		Status:       schema.OrderAckStatusRejected,
		Reason:       reason,
		Price:        order.Price,
		Qty:          order.Qty,
	}
}

func absInt64(v int64) int64 {
	if v == math.MinInt64 {
		return math.MaxInt64
	}
	if v < 0 {
		return -v
	}
	return v
}
