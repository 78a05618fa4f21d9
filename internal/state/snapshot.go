package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"riskcore/internal/schema"
)

// Snapshot captures positions and session risk state at a point in time.
type Snapshot struct {
	Timestamp   int64           `json:"timestamp"`
	LastSeq     uint64          `json:"lastSeq"`
	LastEventTs int64           `json:"lastEventTs"`
	Session     SessionState    `json:"session"`
	Breakers    []BreakerEntry  `json:"breakers,omitempty"`
	Positions   []PositionEntry `json:"positions"`
}

// SessionState carries the checker counters that survive a restart.
type SessionState struct {
	DailyPnl   schema.Money `json:"dailyPnl"`
	OpenOrders uint32       `json:"openOrders"`
	KillSwitch bool         `json:"killSwitch"`
}

// BreakerEntry is one instrument's circuit breaker state.
type BreakerEntry struct {
	InstrumentID   uint32              `json:"instrumentId"`
	ReferencePrice schema.Price        `json:"referencePrice"`
	WindowStartNs  int64               `json:"windowStartNs"`
	FillsInWindow  uint32              `json:"fillsInWindow"`
	Tripped        bool                `json:"tripped"`
	Cause          schema.BreakerCause `json:"cause,omitempty"`
}

// PositionEntry is a single account and instrument position entry.
type PositionEntry struct {
	AccountID     uint32          `json:"accountId"`
	InstrumentID  uint32          `json:"instrumentId"`
	NetQty        schema.Quantity `json:"netQty"`
	AvgEntryPrice schema.Price    `json:"avgEntryPrice"`
	RealizedPnl   schema.Money    `json:"realizedPnl"`
	TradeCount    uint32          `json:"tradeCount"`
}

// Snapshot builds a snapshot from current positions.
func (b *PositionBook) Snapshot() Snapshot {
	return b.SnapshotWithMeta(0, 0)
}

// SnapshotWithMeta builds a snapshot with journal watermarks. Session and
// breaker state are the caller's to fill in before writing.
func (b *PositionBook) SnapshotWithMeta(lastSeq uint64, lastEventTs int64) Snapshot {
	positions := b.Positions()
	entries := make([]PositionEntry, 0, len(positions))
	for _, pos := range positions {
		entries = append(entries, PositionEntry{
			AccountID:     pos.AccountID,
			InstrumentID:  pos.InstrumentID,
			NetQty:        pos.NetQty,
			AvgEntryPrice: pos.AvgEntryPrice,
			RealizedPnl:   pos.RealizedPnl,
			TradeCount:    pos.TradeCount,
		})
	}
	return Snapshot{
		Timestamp:   time.Now().UTC().UnixNano(),
		LastSeq:     lastSeq,
		LastEventTs: lastEventTs,
		Positions:   entries,
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// CompareSnapshots checks that two snapshots carry the same session state
// and positions.
func CompareSnapshots(expected, actual Snapshot) error {
	if expected.Session != actual.Session {
		return fmt.Errorf("snapshot session mismatch: expected=%+v actual=%+v", expected.Session, actual.Session)
	}
	if len(expected.Positions) != len(actual.Positions) {
		return fmt.Errorf("snapshot length mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	expectedMap := make(map[bookKey]PositionEntry, len(expected.Positions))
	for _, entry := range expected.Positions {
		expectedMap[bookKey{entry.AccountID, entry.InstrumentID}] = entry
	}
	for _, entry := range actual.Positions {
		want, ok := expectedMap[bookKey{entry.AccountID, entry.InstrumentID}]
		if !ok {
			return fmt.Errorf("snapshot missing position: account=%d instrument=%d", entry.AccountID, entry.InstrumentID)
		}
		if want.NetQty != entry.NetQty {
			return fmt.Errorf("snapshot qty mismatch: account=%d instrument=%d expected=%d actual=%d",
				entry.AccountID, entry.InstrumentID, want.NetQty, entry.NetQty)
		}
		if want.RealizedPnl != entry.RealizedPnl {
			return fmt.Errorf("snapshot pnl mismatch: account=%d instrument=%d expected=%d actual=%d",
				entry.AccountID, entry.InstrumentID, want.RealizedPnl, entry.RealizedPnl)
		}
	}
	return nil
}
