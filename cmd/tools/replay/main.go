package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"riskcore/internal/codec"
	"riskcore/internal/ops"
	"riskcore/internal/recorder"
	"riskcore/internal/schema"
	"riskcore/internal/state"
)

type breakerRow struct {
	seq uint64
	ev  schema.BreakerEvent
}

type marginRow struct {
	seq  uint64
	call schema.MarginCall
}

// summary aggregates one journal pass for the report tables.
type summary struct {
	total      int
	byType     map[schema.EventType]int
	allow      int
	deny       map[schema.RejectReason]int
	acks       map[schema.OrderAckReason]int
	breakers   []breakerRow
	margins    []marginRow
	book       *state.PositionBook
	realized   schema.Money
	firstSeq   uint64
	lastSeq    uint64
	decodeErrs int
}

func newSummary() *summary {
	return &summary{
		byType: make(map[schema.EventType]int),
		deny:   make(map[schema.RejectReason]int),
		acks:   make(map[schema.OrderAckReason]int),
		book:   state.NewPositionBook(),
	}
}

// names resolves journal IDs to registry names when a config was given.
type names struct {
	reg *schema.Registry
}

func (n names) account(id uint32) string {
	if n.reg != nil {
		if acct, ok := n.reg.Account(schema.AccountID(id)); ok {
			return acct.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}

func (n names) instrument(id uint32) string {
	if n.reg != nil {
		if inst, ok := n.reg.Instrument(schema.InstrumentID(id)); ok {
			return inst.Name
		}
	}
	return fmt.Sprintf("#%d", id)
}

func main() {
	dir := flag.String("dir", "testdata/wal", "Journal directory")
	prefix := flag.String("prefix", "", "Journal file prefix (default: risk)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	useRecv := flag.Bool("use-recv-time", false, "Use receive timestamp for pacing")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	decode := flag.Bool("decode", false, "Print every event with its decoded payload")
	configPath := flag.String("config", "", "Config path for account and instrument names")
	flag.Parse()

	var resolve names
	if *configPath != "" {
		reg, err := ops.LoadRegistry(*configPath)
		if err != nil {
			log.Fatalf("registry load failed: %v", err)
		}
		resolve.reg = reg
	}

	cfg := recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		UseRecvTime:     *useRecv,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	}
	pb, err := recorder.NewPlayback(cfg)
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	sum := newSummary()
	ctx := context.Background()
	err = pb.Run(ctx, func(header schema.EventHeader, payload []byte) error {
		sum.observe(header, payload, *decode, resolve)
		return nil
	})
	if err != nil {
		log.Fatalf("playback run failed: %v", err)
	}

	sum.render(*dir, resolve)
}

func (s *summary) observe(header schema.EventHeader, payload []byte, print bool, resolve names) {
	s.total++
	s.byType[header.Type]++
	if s.firstSeq == 0 {
		s.firstSeq = header.Seq
	}
	s.lastSeq = header.Seq
	if print {
		fmt.Printf("%06d seq=%d type=%s trace=%d len=%d\n",
			s.total, header.Seq, header.Type, header.TraceID, len(payload))
	}

	switch header.Type {
	case schema.EventOrder:
		order, ok := codec.DecodeOrder(payload)
		if !ok {
			s.decodeFailed(header, print)
			return
		}
		if print {
			fmt.Printf("  order id=%d account=%s instrument=%s side=%s type=%s tif=%s price=%d qty=%d\n",
				order.OrderID, resolve.account(order.AccountID), resolve.instrument(order.InstrumentID),
				order.Side, order.Type, order.TimeInForce, order.Price, order.Qty)
		}
	case schema.EventOrderAck:
		ack, ok := codec.DecodeOrderAck(payload)
		if !ok {
			s.decodeFailed(header, print)
			return
		}
		s.acks[ack.Reason]++
		if print {
			fmt.Printf("  ack id=%d status=%s reason=%s price=%d qty=%d leaves=%d\n",
				ack.OrderID, ack.Status, ack.Reason, ack.Price, ack.Qty, ack.LeavesQty)
		}
	case schema.EventRiskDecision:
		decision, ok := codec.DecodeRiskDecision(payload)
		if !ok {
			s.decodeFailed(header, print)
			return
		}
		if decision.Action == schema.RiskActionAllow {
			s.allow++
		} else {
			s.deny[decision.Reason]++
		}
		if print {
			fmt.Printf("  decision id=%d action=%s reason=%s observed=%d bound=%d pos=%d->%d\n",
				decision.OrderID, decision.Action, decision.Reason, decision.Observed, decision.Bound,
				decision.CurrentPos, decision.ProjectedPos)
		}
	case schema.EventFill:
		fill, ok := codec.DecodeFill(payload)
		if !ok {
			s.decodeFailed(header, print)
			return
		}
		_, realized := s.book.ApplyFill(fill)
		s.realized += realized
		if print {
			fmt.Printf("  fill id=%d account=%s instrument=%s side=%s price=%d qty=%d fee=%d\n",
				fill.OrderID, resolve.account(fill.AccountID), resolve.instrument(fill.InstrumentID),
				fill.Side, fill.Price, fill.Qty, fill.Fee)
		}
	case schema.EventBreaker:
		ev, ok := codec.DecodeBreakerEvent(payload)
		if !ok {
			s.decodeFailed(header, print)
			return
		}
		s.breakers = append(s.breakers, breakerRow{seq: header.Seq, ev: ev})
		if print {
			fmt.Printf("  breaker instrument=%s state=%s cause=%s fill=%d ref=%d fills=%d\n",
				resolve.instrument(ev.InstrumentID), ev.State, ev.Cause,
				ev.FillPrice, ev.ReferencePrice, ev.FillsInWindow)
		}
	case schema.EventMarginCall:
		call, ok := codec.DecodeMarginCall(payload)
		if !ok {
			s.decodeFailed(header, print)
			return
		}
		s.margins = append(s.margins, marginRow{seq: header.Seq, call: call})
		if print {
			fmt.Printf("  margin account=%s instrument=%s net=%d mark=%d equity=%d maintenance=%d liquidation=%d\n",
				resolve.account(call.AccountID), resolve.instrument(call.InstrumentID),
				call.NetQty, call.MarkPrice, call.Equity, call.Maintenance, call.LiquidationPrice)
		}
	}
}

func (s *summary) decodeFailed(header schema.EventHeader, print bool) {
	s.decodeErrs++
	if print {
		fmt.Printf("  decode %s failed: seq=%d\n", header.Type, header.Seq)
	}
}

func (s *summary) render(dir string, resolve names) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("JOURNAL SUMMARY")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Directory", dir},
		{"Events", s.total},
		{"Seq range", fmt.Sprintf("%d..%d", s.firstSeq, s.lastSeq)},
		{"Realized P&L", int64(s.realized)},
		{"Decode errors", s.decodeErrs},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 14, Align: text.AlignLeft},
		{Number: 2, WidthMin: 24, Align: text.AlignLeft},
	})
	t.Render()
	fmt.Println()

	s.renderEvents()
	s.renderDecisions()
	s.renderBreakers(resolve)
	s.renderMargins(resolve)
	s.renderPositions(resolve)
}

func (s *summary) renderEvents() {
	if len(s.byType) == 0 {
		return
	}
	types := make([]schema.EventType, 0, len(s.byType))
	for eventType := range s.byType {
		types = append(types, eventType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("EVENTS BY TYPE")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Type", "Count"})
	for _, eventType := range types {
		t.AppendRow(table.Row{eventType.String(), s.byType[eventType]})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()
}

func (s *summary) renderDecisions() {
	if s.allow == 0 && len(s.deny) == 0 && len(s.acks) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("DECISIONS AND ACKS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Outcome", "Count"})
	t.AppendRow(table.Row{"allow", s.allow})
	reasons := make([]schema.RejectReason, 0, len(s.deny))
	for reason := range s.deny {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		t.AppendRow(table.Row{"deny " + reason.String(), s.deny[reason]})
	}
	t.AppendSeparator()
	ackReasons := make([]schema.OrderAckReason, 0, len(s.acks))
	for reason := range s.acks {
		ackReasons = append(ackReasons, reason)
	}
	sort.Slice(ackReasons, func(i, j int) bool { return ackReasons[i] < ackReasons[j] })
	for _, reason := range ackReasons {
		t.AppendRow(table.Row{"ack " + reason.String(), s.acks[reason]})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()
}

func (s *summary) renderBreakers(resolve names) {
	if len(s.breakers) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BREAKER TRANSITIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Seq", "Instrument", "State", "Cause", "Fill", "Ref", "Fills"})
	for _, row := range s.breakers {
		t.AppendRow(table.Row{
			row.seq,
			resolve.instrument(row.ev.InstrumentID),
			row.ev.State.String(),
			row.ev.Cause.String(),
			int64(row.ev.FillPrice),
			int64(row.ev.ReferencePrice),
			row.ev.FillsInWindow,
		})
	}
	t.Render()
	fmt.Println()
}

func (s *summary) renderMargins(resolve names) {
	if len(s.margins) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("MARGIN CALLS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Seq", "Account", "Instrument", "Net", "Mark", "Equity", "Maintenance", "Liquidation"})
	for _, row := range s.margins {
		t.AppendRow(table.Row{
			row.seq,
			resolve.account(row.call.AccountID),
			resolve.instrument(row.call.InstrumentID),
			int64(row.call.NetQty),
			int64(row.call.MarkPrice),
			int64(row.call.Equity),
			int64(row.call.Maintenance),
			int64(row.call.LiquidationPrice),
		})
	}
	t.Render()
	fmt.Println()
}

func (s *summary) renderPositions(resolve names) {
	positions := s.book.Positions()
	if len(positions) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("POSITIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Account", "Instrument", "Net", "Avg Entry", "Realized", "Trades"})
	for _, pos := range positions {
		t.AppendRow(table.Row{
			resolve.account(pos.AccountID),
			resolve.instrument(pos.InstrumentID),
			int64(pos.NetQty),
			int64(pos.AvgEntryPrice),
			int64(pos.RealizedPnl),
			pos.TradeCount,
		})
	}
	t.Render()
}
