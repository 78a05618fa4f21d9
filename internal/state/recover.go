package state

import (
	"context"
	"fmt"
	"sort"

	"riskcore/internal/codec"
	"riskcore/internal/recorder"
	"riskcore/internal/schema"
)

// RecoverConfig controls snapshot + journal recovery.
type RecoverConfig struct {
	JournalDir      string
	SnapshotPath    string
	FilePrefix      string
	DisableChecksum bool
	MaxPayloadSize  int
	UseRecvTime     bool
}

// RecoverResult contains the rebuilt state and journal watermarks.
type RecoverResult struct {
	Book        *PositionBook
	Session     SessionState
	Breakers    []BreakerEntry
	LastSeq     uint64
	LastEventTs int64
}

// Recover loads the snapshot, then replays the journal tail past the
// watermark. Fills move the position book and the daily P&L; breaker
// events reinstate latches that fired after the snapshot. The kill switch
// and open-order count come from the snapshot alone since no journal
// event carries them.
func Recover(ctx context.Context, cfg RecoverConfig) (RecoverResult, error) {
	if cfg.JournalDir == "" {
		return RecoverResult{}, fmt.Errorf("journal dir is empty")
	}
	book := NewPositionBook()
	var session SessionState
	breakers := make(map[uint32]BreakerEntry)
	var lastSeq uint64
	var lastEventTs int64

	if cfg.SnapshotPath != "" {
		snapshot, err := ReadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return RecoverResult{}, err
		}
		book.ApplySnapshot(snapshot)
		session = snapshot.Session
		for _, entry := range snapshot.Breakers {
			breakers[entry.InstrumentID] = entry
		}
		lastSeq = snapshot.LastSeq
		lastEventTs = snapshot.LastEventTs
	}

	playbackCfg := recorder.PlaybackConfig{
		Dir:             cfg.JournalDir,
		FilePrefix:      cfg.FilePrefix,
		Speed:           0,
		UseRecvTime:     cfg.UseRecvTime,
		DisableChecksum: cfg.DisableChecksum,
		MaxPayloadSize:  cfg.MaxPayloadSize,
	}
	pb, err := recorder.NewPlayback(playbackCfg)
	if err != nil {
		return RecoverResult{}, err
	}

	err = pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		if lastSeq > 0 && header.Seq <= lastSeq {
			return nil
		}
		if lastSeq == 0 && lastEventTs > 0 {
			ts := header.TsEvent
			if cfg.UseRecvTime {
				ts = header.TsRecv
			}
			if ts <= lastEventTs {
				return nil
			}
		}
		if header.Seq > lastSeq {
			lastSeq = header.Seq
		}
		if header.TsEvent > lastEventTs {
			lastEventTs = header.TsEvent
		}

		switch header.Type {
		case schema.EventFill:
			fill, ok := codec.DecodeFill(payload)
			if !ok {
				return fmt.Errorf("decode fill failed: seq=%d", header.Seq)
			}
			_, realized := book.ApplyFill(fill)
			session.DailyPnl += realized
		case schema.EventBreaker:
			ev, ok := codec.DecodeBreakerEvent(payload)
			if !ok {
				return fmt.Errorf("decode breaker event failed: seq=%d", header.Seq)
			}
			breakers[ev.InstrumentID] = BreakerEntry{
				InstrumentID:   ev.InstrumentID,
				ReferencePrice: ev.ReferencePrice,
				WindowStartNs:  ev.WindowStartNs,
				FillsInWindow:  ev.FillsInWindow,
				Tripped:        ev.State == schema.BreakerStateTripped,
				Cause:          ev.Cause,
			}
		}
		return nil
	})
	if err != nil {
		return RecoverResult{}, err
	}

	entries := make([]BreakerEntry, 0, len(breakers))
	for _, entry := range breakers {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].InstrumentID < entries[j].InstrumentID
	})

	return RecoverResult{
		Book:        book,
		Session:     session,
		Breakers:    entries,
		LastSeq:     lastSeq,
		LastEventTs: lastEventTs,
	}, nil
}
