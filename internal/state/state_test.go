package state

import (
	"context"
	"path/filepath"
	"testing"

	"riskcore/internal/codec"
	"riskcore/internal/recorder"
	"riskcore/internal/schema"
)

func fill(account, instrument uint32, side schema.OrderSide, price schema.Price, qty schema.Quantity) schema.Fill {
	return schema.Fill{
		OrderID:      1,
		AccountID:    account,
		InstrumentID: instrument,
		Side:         side,
		Price:        price,
		Qty:          qty,
	}
}

func TestApplyFillOpensLong(t *testing.T) {
	book := NewPositionBook()
	pos, realized := book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 100, 10))
	if realized != 0 {
		t.Fatalf("opening fill realized %d", realized)
	}
	if pos.NetQty != 10 || pos.AvgEntryPrice != 100 || pos.TradeCount != 1 {
		t.Fatalf("opened position: got %+v", pos)
	}
}

func TestApplyFillWeightedAverageEntry(t *testing.T) {
	book := NewPositionBook()
	book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 100, 10))
	pos, realized := book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 200, 10))
	if realized != 0 {
		t.Fatalf("increase realized %d", realized)
	}
	if pos.NetQty != 20 || pos.AvgEntryPrice != 150 {
		t.Fatalf("averaged position: got %+v", pos)
	}
}

func TestApplyFillRealizesOnReduce(t *testing.T) {
	book := NewPositionBook()
	book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 100, 10))
	pos, realized := book.ApplyFill(fill(1, 1, schema.OrderSideSell, 150, 4))
	if realized != 200 {
		t.Fatalf("realized: got %d want 200", realized)
	}
	if pos.NetQty != 6 || pos.AvgEntryPrice != 100 || pos.RealizedPnl != 200 {
		t.Fatalf("reduced position: got %+v", pos)
	}
}

func TestApplyFillFlatClearsEntry(t *testing.T) {
	book := NewPositionBook()
	book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 100, 10))
	pos, realized := book.ApplyFill(fill(1, 1, schema.OrderSideSell, 110, 10))
	if realized != 100 {
		t.Fatalf("realized: got %d want 100", realized)
	}
	if pos.NetQty != 0 || pos.AvgEntryPrice != 0 {
		t.Fatalf("flat position: got %+v", pos)
	}
}

func TestApplyFillFlipsThroughZero(t *testing.T) {
	book := NewPositionBook()
	book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 100, 10))
	pos, realized := book.ApplyFill(fill(1, 1, schema.OrderSideSell, 120, 15))
	if realized != 200 {
		t.Fatalf("realized on flip: got %d want 200", realized)
	}
	if pos.NetQty != -5 || pos.AvgEntryPrice != 120 {
		t.Fatalf("flipped position: got %+v", pos)
	}
}

func TestApplyFillShortSide(t *testing.T) {
	book := NewPositionBook()
	book.ApplyFill(fill(1, 1, schema.OrderSideSell, 100, 10))
	pos, realized := book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 80, 5))
	if realized != 100 {
		t.Fatalf("short cover realized: got %d want 100", realized)
	}
	if pos.NetQty != -5 || pos.AvgEntryPrice != 100 {
		t.Fatalf("short position: got %+v", pos)
	}
}

func TestApplyFillKeysByAccountAndInstrument(t *testing.T) {
	book := NewPositionBook()
	book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 100, 10))
	book.ApplyFill(fill(1, 2, schema.OrderSideBuy, 100, 20))
	book.ApplyFill(fill(2, 1, schema.OrderSideSell, 100, 30))

	if got := book.Count(); got != 3 {
		t.Fatalf("tracked positions: got %d want 3", got)
	}
	if pos := book.Position(1, 2); pos.NetQty != 20 {
		t.Fatalf("account 1 instrument 2: got %+v", pos)
	}
	if pos := book.Position(2, 1); pos.NetQty != -30 {
		t.Fatalf("account 2 instrument 1: got %+v", pos)
	}
	if pos := book.Position(9, 9); pos.NetQty != 0 || pos.AccountID != 9 {
		t.Fatalf("missing position: got %+v", pos)
	}
}

func TestUnrealizedValuation(t *testing.T) {
	long := schema.Position{NetQty: 10, AvgEntryPrice: 100}
	if got := Unrealized(long, 130); got != 300 {
		t.Fatalf("long unrealized: got %d want 300", got)
	}
	short := schema.Position{NetQty: -10, AvgEntryPrice: 100}
	if got := Unrealized(short, 90); got != 100 {
		t.Fatalf("short unrealized: got %d want 100", got)
	}
	if got := Unrealized(short, 110); got != -100 {
		t.Fatalf("short underwater: got %d want -100", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	book := NewPositionBook()
	book.ApplyFill(fill(1, 1, schema.OrderSideBuy, 100, 10))
	book.ApplyFill(fill(2, 1, schema.OrderSideSell, 200, 5))

	snap := book.SnapshotWithMeta(42, 999)
	snap.Session = SessionState{DailyPnl: -150, OpenOrders: 3, KillSwitch: true}
	snap.Breakers = []BreakerEntry{{
		InstrumentID:   1,
		ReferencePrice: 100,
		WindowStartNs:  500,
		FillsInWindow:  2,
		Tripped:        true,
		Cause:          schema.BreakerCausePriceMove,
	}}

	path := filepath.Join(t.TempDir(), "snapshots", "risk.json")
	if err := WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	loaded, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if loaded.LastSeq != 42 || loaded.LastEventTs != 999 {
		t.Fatalf("watermarks: got %+v", loaded)
	}
	if loaded.Session != snap.Session {
		t.Fatalf("session: got %+v want %+v", loaded.Session, snap.Session)
	}
	if len(loaded.Breakers) != 1 || !loaded.Breakers[0].Tripped {
		t.Fatalf("breakers: got %+v", loaded.Breakers)
	}
	if err := CompareSnapshots(snap, loaded); err != nil {
		t.Fatalf("compare: %v", err)
	}

	loaded.Positions[0].NetQty++
	if err := CompareSnapshots(snap, loaded); err == nil {
		t.Fatal("mutated snapshot should not compare equal")
	}
}

func TestRecoverReplaysJournalTail(t *testing.T) {
	dir := t.TempDir()
	journalDir := filepath.Join(dir, "journal")
	snapPath := filepath.Join(dir, "snapshot.json")

	w, err := recorder.NewWriter(recorder.DefaultConfig(journalDir))
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	fills := []schema.Fill{
		fill(1, 1, schema.OrderSideBuy, 100, 10),
		fill(1, 1, schema.OrderSideBuy, 200, 10),
		fill(1, 1, schema.OrderSideSell, 250, 5),
		fill(1, 1, schema.OrderSideSell, 50, 5),
	}
	for i, f := range fills {
		header := schema.NewHeader(schema.EventFill, 1, uint64(i+1), int64(1000+i), int64(1000+i))
		if err := w.TryAppend(header, codec.EncodeFill(nil, f)); err != nil {
			t.Fatalf("append fill %d: %v", i, err)
		}
	}
	breakerEv := schema.BreakerEvent{
		InstrumentID:   1,
		State:          schema.BreakerStateTripped,
		Cause:          schema.BreakerCauseFillRate,
		FillsInWindow:  6,
		FillPrice:      50,
		ReferencePrice: 55,
		WindowStartNs:  1003,
	}
	header := schema.NewHeader(schema.EventBreaker, 1, 5, 1004, 1004)
	if err := w.TryAppend(header, codec.EncodeBreakerEvent(nil, breakerEv)); err != nil {
		t.Fatalf("append breaker event: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Snapshot taken after the first two fills: net 20 at avg 150.
	seed := NewPositionBook()
	seed.ApplyFill(fills[0])
	seed.ApplyFill(fills[1])
	snap := seed.SnapshotWithMeta(2, 1001)
	snap.Session = SessionState{OpenOrders: 2, KillSwitch: false}
	if err := WriteSnapshot(snapPath, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	result, err := Recover(context.Background(), RecoverConfig{
		JournalDir:   journalDir,
		SnapshotPath: snapPath,
	})
	if err != nil {
		t.Fatalf("recover: %v", err)
	}

	// Tail fills 3 and 4 apply on top of the snapshot.
	pos := result.Book.Position(1, 1)
	if pos.NetQty != 10 || pos.AvgEntryPrice != 150 {
		t.Fatalf("recovered position: got %+v", pos)
	}
	// (250-150)*5 + (50-150)*5 = 0.
	if pos.RealizedPnl != 0 || result.Session.DailyPnl != 0 {
		t.Fatalf("recovered pnl: pos=%d session=%d", pos.RealizedPnl, result.Session.DailyPnl)
	}
	if result.Session.OpenOrders != 2 {
		t.Fatalf("open orders from snapshot: got %d", result.Session.OpenOrders)
	}
	if result.LastSeq != 5 || result.LastEventTs != 1004 {
		t.Fatalf("watermarks: got seq=%d ts=%d", result.LastSeq, result.LastEventTs)
	}
	if len(result.Breakers) != 1 {
		t.Fatalf("breakers: got %+v", result.Breakers)
	}
	entry := result.Breakers[0]
	if !entry.Tripped || entry.Cause != schema.BreakerCauseFillRate || entry.ReferencePrice != 55 {
		t.Fatalf("breaker entry: got %+v", entry)
	}
}

func TestRecoverWithoutSnapshot(t *testing.T) {
	dir := t.TempDir()
	journalDir := filepath.Join(dir, "journal")

	w, err := recorder.NewWriter(recorder.DefaultConfig(journalDir))
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	f := fill(1, 1, schema.OrderSideBuy, 100, 7)
	if err := w.TryAppend(schema.NewHeader(schema.EventFill, 1, 1, 10, 10), codec.EncodeFill(nil, f)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	result, err := Recover(context.Background(), RecoverConfig{JournalDir: journalDir})
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if pos := result.Book.Position(1, 1); pos.NetQty != 7 {
		t.Fatalf("replayed position: got %+v", pos)
	}
	if result.LastSeq != 1 {
		t.Fatalf("watermark: got %d", result.LastSeq)
	}
}
