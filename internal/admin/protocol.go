// Package admin implements the control socket of the risk daemon: a
// line-oriented protocol over a Unix domain socket. Requests are
// single-line JSON objects, replies are plain text. A reply is either
// "ok", "err <message>", or for status a block of key=value lines
// between "ok" and "end".
package admin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"riskcore/internal/obs"
	"riskcore/internal/schema"
	"riskcore/pkg/scanner"
)

// Command names accepted on the control socket.
const (
	CmdStatus       = "status"
	CmdKill         = "kill"
	CmdBreakerReset = "breaker_reset"
	CmdBreakerRef   = "breaker_ref"
	CmdResetDaily   = "reset_daily"
)

var (
	// ErrMissingCommand is returned when a request has no cmd field.
	ErrMissingCommand = errors.New("admin: missing cmd field")
	// ErrUnknownCommand is returned for an unrecognized command name.
	ErrUnknownCommand = errors.New("admin: unknown command")
)

var (
	keyCmd        = []byte(`"cmd"`)
	keyMode       = []byte(`"mode"`)
	keyInstrument = []byte(`"instrument"`)
	keyPrice      = []byte(`"price"`)
)

// Command is one parsed control request.
type Command struct {
	Name       string
	Engage     bool   // kill only
	Instrument uint32 // breaker commands only
	Price      schema.Price
}

// ParseCommand parses a single-line control request.
func ParseCommand(line []byte) (Command, error) {
	name, ok := scanner.ScanStringField(line, keyCmd)
	if !ok {
		return Command{}, ErrMissingCommand
	}
	cmd := Command{Name: string(name)}
	switch cmd.Name {
	case CmdStatus, CmdResetDaily:
		return cmd, nil
	case CmdKill:
		mode, ok := scanner.ScanStringField(line, keyMode)
		if !ok {
			return Command{}, fmt.Errorf("admin: kill needs mode on or off")
		}
		switch string(mode) {
		case "on":
			cmd.Engage = true
		case "off":
			cmd.Engage = false
		default:
			return Command{}, fmt.Errorf("admin: bad kill mode %q", mode)
		}
		return cmd, nil
	case CmdBreakerReset, CmdBreakerRef:
		inst, ok := scanner.ScanUintField(line, keyInstrument)
		if !ok || inst == 0 || inst > uint64(^uint32(0)) {
			return Command{}, fmt.Errorf("admin: %s needs an instrument id", cmd.Name)
		}
		price, ok := scanner.ScanIntField(line, keyPrice)
		if !ok || price <= 0 {
			return Command{}, fmt.Errorf("admin: %s needs a positive price in ticks", cmd.Name)
		}
		cmd.Instrument = uint32(inst)
		cmd.Price = schema.Price(price)
		return cmd, nil
	}
	return Command{}, ErrUnknownCommand
}

// EncodeCommand renders a command as a single-line request without the
// trailing newline.
func EncodeCommand(cmd Command) ([]byte, error) {
	switch cmd.Name {
	case CmdStatus, CmdResetDaily:
		return []byte(`{"cmd":"` + cmd.Name + `"}`), nil
	case CmdKill:
		mode := "off"
		if cmd.Engage {
			mode = "on"
		}
		return []byte(`{"cmd":"kill","mode":"` + mode + `"}`), nil
	case CmdBreakerReset, CmdBreakerRef:
		return []byte(fmt.Sprintf(`{"cmd":%q,"instrument":%d,"price":%d}`,
			cmd.Name, cmd.Instrument, int64(cmd.Price))), nil
	}
	return nil, ErrUnknownCommand
}

// SessionStatus is one account's session view.
type SessionStatus struct {
	Account    string
	DailyPnl   schema.Money
	OpenOrders uint32
	KillSwitch bool
}

// BreakerStatus is one instrument's breaker view.
type BreakerStatus struct {
	Instrument     string
	InstrumentID   uint32
	State          schema.BreakerState
	Cause          schema.BreakerCause
	ReferencePrice schema.Price
	FillsInWindow  uint32
	WindowStartNs  int64
}

// Status is the full status reply.
type Status struct {
	Sessions []SessionStatus
	Breakers []BreakerStatus
	Eval     obs.LatencySnapshot
}

// FormatStatus renders a status reply, "ok" through "end" inclusive.
func FormatStatus(st Status) []byte {
	var b strings.Builder
	b.WriteString("ok\n")
	for _, s := range st.Sessions {
		fmt.Fprintf(&b, "session account=%s daily_pnl=%d open_orders=%d kill_switch=%t\n",
			s.Account, int64(s.DailyPnl), s.OpenOrders, s.KillSwitch)
	}
	for _, br := range st.Breakers {
		fmt.Fprintf(&b, "breaker instrument=%s id=%d state=%s cause=%s ref=%d fills=%d window_start=%d\n",
			br.Instrument, br.InstrumentID, br.State, br.Cause,
			int64(br.ReferencePrice), br.FillsInWindow, br.WindowStartNs)
	}
	fmt.Fprintf(&b, "eval count=%d min_ns=%d max_ns=%d avg_ns=%d\n",
		st.Eval.Count, int64(st.Eval.Min), int64(st.Eval.Max), int64(st.Eval.Avg))
	b.WriteString("end\n")
	return []byte(b.String())
}

// ParseStatusLines rebuilds a Status from the lines between "ok" and
// "end".
func ParseStatusLines(lines []string) (Status, error) {
	var st Status
	for _, line := range lines {
		kind, rest, _ := strings.Cut(line, " ")
		fields, err := parseKeyValues(rest)
		if err != nil {
			return Status{}, fmt.Errorf("admin: bad status line %q: %w", line, err)
		}
		switch kind {
		case "session":
			s, err := parseSession(fields)
			if err != nil {
				return Status{}, fmt.Errorf("admin: bad session line %q: %w", line, err)
			}
			st.Sessions = append(st.Sessions, s)
		case "breaker":
			br, err := parseBreaker(fields)
			if err != nil {
				return Status{}, fmt.Errorf("admin: bad breaker line %q: %w", line, err)
			}
			st.Breakers = append(st.Breakers, br)
		case "eval":
			ev, err := parseEval(fields)
			if err != nil {
				return Status{}, fmt.Errorf("admin: bad eval line %q: %w", line, err)
			}
			st.Eval = ev
		default:
			return Status{}, fmt.Errorf("admin: unknown status line %q", line)
		}
	}
	return st, nil
}

func parseKeyValues(s string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, f := range strings.Fields(s) {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("field %q has no value", f)
		}
		fields[key] = value
	}
	return fields, nil
}

func parseSession(fields map[string]string) (SessionStatus, error) {
	pnl, err := strconv.ParseInt(fields["daily_pnl"], 10, 64)
	if err != nil {
		return SessionStatus{}, err
	}
	open, err := strconv.ParseUint(fields["open_orders"], 10, 32)
	if err != nil {
		return SessionStatus{}, err
	}
	kill, err := strconv.ParseBool(fields["kill_switch"])
	if err != nil {
		return SessionStatus{}, err
	}
	return SessionStatus{
		Account:    fields["account"],
		DailyPnl:   schema.Money(pnl),
		OpenOrders: uint32(open),
		KillSwitch: kill,
	}, nil
}

func parseBreaker(fields map[string]string) (BreakerStatus, error) {
	id, err := strconv.ParseUint(fields["id"], 10, 32)
	if err != nil {
		return BreakerStatus{}, err
	}
	state, err := parseBreakerState(fields["state"])
	if err != nil {
		return BreakerStatus{}, err
	}
	cause, err := parseBreakerCause(fields["cause"])
	if err != nil {
		return BreakerStatus{}, err
	}
	ref, err := strconv.ParseInt(fields["ref"], 10, 64)
	if err != nil {
		return BreakerStatus{}, err
	}
	fills, err := strconv.ParseUint(fields["fills"], 10, 32)
	if err != nil {
		return BreakerStatus{}, err
	}
	windowStart, err := strconv.ParseInt(fields["window_start"], 10, 64)
	if err != nil {
		return BreakerStatus{}, err
	}
	return BreakerStatus{
		Instrument:     fields["instrument"],
		InstrumentID:   uint32(id),
		State:          state,
		Cause:          cause,
		ReferencePrice: schema.Price(ref),
		FillsInWindow:  uint32(fills),
		WindowStartNs:  windowStart,
	}, nil
}

func parseEval(fields map[string]string) (obs.LatencySnapshot, error) {
	count, err := strconv.ParseUint(fields["count"], 10, 64)
	if err != nil {
		return obs.LatencySnapshot{}, err
	}
	minNs, err := strconv.ParseInt(fields["min_ns"], 10, 64)
	if err != nil {
		return obs.LatencySnapshot{}, err
	}
	maxNs, err := strconv.ParseInt(fields["max_ns"], 10, 64)
	if err != nil {
		return obs.LatencySnapshot{}, err
	}
	avgNs, err := strconv.ParseInt(fields["avg_ns"], 10, 64)
	if err != nil {
		return obs.LatencySnapshot{}, err
	}
	return obs.LatencySnapshot{
		Count: count,
		Min:   time.Duration(minNs),
		Max:   time.Duration(maxNs),
		Avg:   time.Duration(avgNs),
	}, nil
}

func parseBreakerState(s string) (schema.BreakerState, error) {
	switch s {
	case "unknown":
		return schema.BreakerStateUnknown, nil
	case "armed":
		return schema.BreakerStateArmed, nil
	case "tripped":
		return schema.BreakerStateTripped, nil
	}
	return 0, fmt.Errorf("unknown breaker state %q", s)
}

func parseBreakerCause(s string) (schema.BreakerCause, error) {
	switch s {
	case "none":
		return schema.BreakerCauseNone, nil
	case "price_move":
		return schema.BreakerCausePriceMove, nil
	case "fill_rate":
		return schema.BreakerCauseFillRate, nil
	}
	return 0, fmt.Errorf("unknown breaker cause %q", s)
}
