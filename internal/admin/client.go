package admin

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"riskcore/internal/schema"
	"riskcore/pkg/uds"
)

// DefaultTimeout bounds one request round trip.
const DefaultTimeout = 5 * time.Second

// Client issues control commands over the daemon's socket. Each call
// dials a fresh connection.
type Client struct {
	client  *uds.Client
	timeout time.Duration
}

// NewClient creates a client for the given socket path.
func NewClient(path string) (*Client, error) {
	c, err := uds.NewClient(path)
	if err != nil {
		return nil, err
	}
	return &Client{client: c, timeout: DefaultTimeout}, nil
}

// SetTimeout overrides the per-request deadline.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.timeout = d
	}
}

// Status fetches the daemon's session, breaker and latency view.
func (c *Client) Status() (Status, error) {
	lines, err := c.do(Command{Name: CmdStatus})
	if err != nil {
		return Status{}, err
	}
	return ParseStatusLines(lines)
}

// SetKillSwitch engages or releases the kill switch on every account.
func (c *Client) SetKillSwitch(engaged bool) error {
	_, err := c.do(Command{Name: CmdKill, Engage: engaged})
	return err
}

// ResetBreaker re-arms an instrument's breaker at the given reference
// price.
func (c *Client) ResetBreaker(instrumentID uint32, price schema.Price) error {
	_, err := c.do(Command{Name: CmdBreakerReset, Instrument: instrumentID, Price: price})
	return err
}

// SetReferencePrice re-bases an instrument's breaker deviation check
// without touching the latch or window.
func (c *Client) SetReferencePrice(instrumentID uint32, price schema.Price) error {
	_, err := c.do(Command{Name: CmdBreakerRef, Instrument: instrumentID, Price: price})
	return err
}

// ResetDaily zeroes the daily realized P&L on every account.
func (c *Client) ResetDaily() error {
	_, err := c.do(Command{Name: CmdResetDaily})
	return err
}

// do sends one request and collects the reply. For status it returns
// the lines between "ok" and "end"; for other commands it returns nil.
func (c *Client) do(cmd Command) ([]string, error) {
	req, err := EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	conn, err := c.client.Dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write(append(req, '\n')); err != nil {
		return nil, err
	}

	r := bufio.NewReader(conn)
	first, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	first = strings.TrimSpace(first)
	if rest, found := strings.CutPrefix(first, "err "); found {
		return nil, fmt.Errorf("admin: daemon: %s", rest)
	}
	if first != "ok" {
		return nil, fmt.Errorf("admin: unexpected reply %q", first)
	}
	if cmd.Name != CmdStatus {
		return nil, nil
	}

	var lines []string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "end" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}
