package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yanun0323/logs"

	"riskcore/internal/bus"
	"riskcore/internal/codec"
	"riskcore/internal/orders"
	"riskcore/internal/recorder"
	"riskcore/internal/schema"
	"riskcore/internal/state"
)

// replayState rebuilds decision-path state from the journal alone.
type replayState struct {
	tracker  *orders.Tracker
	book     *state.PositionBook
	dailyPnl schema.Money
}

func newReplayState() *replayState {
	return &replayState{
		tracker: orders.NewTracker(),
		book:    state.NewPositionBook(),
	}
}

// apply folds one journaled event into the rebuilt state. Every order is
// journaled before its ack, and rejected orders leave the working set
// through their terminal ack. Events against a terminal, missing or
// already-known order come from injected bursts, duplicated records or
// journal drops; the book absorbs them the same way the live path did.
func (rs *replayState) apply(e bus.Event) error {
	switch e.Header.Type {
	case schema.EventOrder:
		order, ok := codec.DecodeOrder(e.Payload)
		if !ok {
			return fmt.Errorf("decode order failed: seq=%d", e.Header.Seq)
		}
		if err := rs.tracker.Submit(order); err != nil && !errors.Is(err, orders.ErrDuplicateOrder) {
			return err
		}
		return nil
	case schema.EventOrderAck:
		ack, ok := codec.DecodeOrderAck(e.Payload)
		if !ok {
			return fmt.Errorf("decode order ack failed: seq=%d", e.Header.Seq)
		}
		if _, err := rs.tracker.OnAck(ack); err != nil &&
			!errors.Is(err, orders.ErrInvalidTransition) && !errors.Is(err, orders.ErrUnknownOrder) {
			return err
		}
		return nil
	case schema.EventFill:
		fill, ok := codec.DecodeFill(e.Payload)
		if !ok {
			return fmt.Errorf("decode fill failed: seq=%d", e.Header.Seq)
		}
		if _, err := rs.tracker.OnFill(fill); err != nil &&
			!errors.Is(err, orders.ErrInvalidTransition) && !errors.Is(err, orders.ErrUnknownOrder) {
			return err
		}
		_, realized := rs.book.ApplyFill(fill)
		rs.dailyPnl += realized
		return nil
	default:
		return nil
	}
}

func runReplay(ctx context.Context, cfg recorder.PlaybackConfig, snapshotPath string, verifySnapshot bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := bus.NewQueue(1024)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup
	counts := make(map[schema.EventType]int)
	total := 0
	rs := newReplayState()

	wg.Add(1)
	go func() {
		defer wg.Done()
		queue.Run(ctx, func(e bus.Event) {
			total++
			counts[e.Header.Type]++
			if err := rs.apply(e); err != nil {
				select {
				case errCh <- err:
				default:
				}
				cancel()
			}
		})
	}()

	pb, err := recorder.NewPlayback(cfg)
	if err != nil {
		return err
	}
	err = pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		var copied []byte
		if len(payload) > 0 {
			copied = make([]byte, len(payload))
			copy(copied, payload)
		}
		return queue.TryPublish(bus.Event{Header: header, Payload: copied})
	})

	queue.Close()
	wg.Wait()

	if err != nil {
		return err
	}
	var applyErr error
	select {
	case applyErr = <-errCh:
	default:
	}
	if applyErr != nil {
		return applyErr
	}

	if verifySnapshot {
		if snapshotPath == "" {
			return fmt.Errorf("snapshot path is empty")
		}
		expected, err := state.ReadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		actual := rs.book.Snapshot()
		actual.Session = state.SessionState{
			DailyPnl:   rs.dailyPnl,
			OpenOrders: uint32(rs.tracker.OpenCount()),
			// no journal event carries the kill switch; it verifies
			// through the snapshot alone
			KillSwitch: expected.Session.KillSwitch,
		}
		if err := state.CompareSnapshots(expected, actual); err != nil {
			return err
		}
		logs.Infof("snapshot verified: positions=%d", len(actual.Positions))
	}
	logs.Infof("replay completed: total=%d counts=%v positions=%d open_orders=%d",
		total, counts, rs.book.Count(), rs.tracker.OpenCount())
	return nil
}
