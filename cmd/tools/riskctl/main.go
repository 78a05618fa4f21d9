package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"riskcore/internal/admin"
	"riskcore/internal/schema"
)

// riskctl drives a running daemon over its admin socket.
func main() {
	socket := flag.String("socket", "/tmp/riskd.sock", "Admin unix socket path")
	timeout := flag.Duration("timeout", admin.DefaultTimeout, "Request timeout")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	client, err := admin.NewClient(*socket)
	if err != nil {
		log.Fatalf("client init failed: %v", err)
	}
	client.SetTimeout(*timeout)

	switch args[0] {
	case "status":
		st, err := client.Status()
		if err != nil {
			log.Fatalf("status failed: %v", err)
		}
		renderStatus(st)
	case "kill":
		if len(args) != 2 || (args[1] != "on" && args[1] != "off") {
			log.Fatalf("usage: riskctl kill on|off")
		}
		engaged := args[1] == "on"
		if err := client.SetKillSwitch(engaged); err != nil {
			log.Fatalf("kill failed: %v", err)
		}
		if engaged {
			log.Printf("kill switch engaged")
		} else {
			log.Printf("kill switch released")
		}
	case "breaker-reset":
		instrumentID, price := parseBreakerArgs(args, "breaker-reset")
		if err := client.ResetBreaker(instrumentID, price); err != nil {
			log.Fatalf("breaker-reset failed: %v", err)
		}
		log.Printf("breaker re-armed: instrument=%d ref=%d", instrumentID, int64(price))
	case "breaker-ref":
		instrumentID, price := parseBreakerArgs(args, "breaker-ref")
		if err := client.SetReferencePrice(instrumentID, price); err != nil {
			log.Fatalf("breaker-ref failed: %v", err)
		}
		log.Printf("reference price set: instrument=%d ref=%d", instrumentID, int64(price))
	case "reset-daily":
		if err := client.ResetDaily(); err != nil {
			log.Fatalf("reset-daily failed: %v", err)
		}
		log.Printf("daily counters reset")
	default:
		log.Fatalf("unknown command: %s", args[0])
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: riskctl [flags] <command>

commands:
  status                                 print sessions, breakers and eval latency
  kill on|off                            engage or release the kill switch
  breaker-reset <instrument-id> <price>  re-arm a breaker at a reference price
  breaker-ref <instrument-id> <price>    re-base a breaker's reference price
  reset-daily                            zero daily P&L on every account

flags:
`)
	flag.PrintDefaults()
}

func parseBreakerArgs(args []string, cmd string) (uint32, schema.Price) {
	if len(args) != 3 {
		log.Fatalf("usage: riskctl %s <instrument-id> <price>", cmd)
	}
	instrumentID, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		log.Fatalf("invalid instrument id %q: %v", args[1], err)
	}
	price, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		log.Fatalf("invalid price %q: %v", args[2], err)
	}
	if price <= 0 {
		log.Fatalf("price must be > 0")
	}
	return uint32(instrumentID), schema.Price(price)
}

func renderStatus(st admin.Status) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("SESSIONS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Account", "Daily P&L", "Open Orders", "Kill Switch"})
	for _, s := range st.Sessions {
		t.AppendRow(table.Row{s.Account, int64(s.DailyPnl), s.OpenOrders, s.KillSwitch})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()

	t = table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BREAKERS")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Instrument", "State", "Cause", "Ref Price", "Fills", "Window Start"})
	for _, br := range st.Breakers {
		t.AppendRow(table.Row{
			br.Instrument,
			br.State.String(),
			br.Cause.String(),
			int64(br.ReferencePrice),
			br.FillsInWindow,
			formatWindow(br.WindowStartNs),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
	fmt.Println()

	t = table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("EVAL LATENCY")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Samples", st.Eval.Count},
		{"Min", st.Eval.Min},
		{"Max", st.Eval.Max},
		{"Avg", st.Eval.Avg},
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 10, Align: text.AlignLeft},
		{Number: 2, WidthMin: 14, Align: text.AlignRight},
	})
	t.Render()
}

func formatWindow(ns int64) string {
	if ns <= 0 {
		return "-"
	}
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}
