package admin

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"sync"

	"github.com/yanun0323/logs"

	"riskcore/internal/schema"
	"riskcore/pkg/uds"
)

// maxRequestBytes bounds a single request line.
const maxRequestBytes = 4096

// Handler executes control commands against the live risk state. The
// server calls it from connection goroutines; implementations guard
// their own state.
type Handler interface {
	Status() Status
	SetKillSwitch(engaged bool)
	ResetBreaker(instrumentID uint32, price schema.Price) error
	SetReferencePrice(instrumentID uint32, price schema.Price) error
	ResetDaily()
}

// Server answers control requests on a Unix domain socket. Connection
// handlers exit when the Start context is canceled.
type Server struct {
	srv     *uds.Server
	handler Handler
	wg      sync.WaitGroup
}

// NewServer creates a server for the given socket path.
func NewServer(path string, handler Handler) (*Server, error) {
	if handler == nil {
		return nil, errors.New("admin: nil handler")
	}
	srv, err := uds.NewServer(path)
	if err != nil {
		return nil, err
	}
	return &Server{srv: srv, handler: handler}, nil
}

// Path returns the socket path.
func (s *Server) Path() string {
	return s.srv.Path()
}

// Start listens on the socket and serves until ctx is canceled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.srv.Listen(); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = s.srv.Close()
	}()
	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

// Close stops the listener and waits for connection handlers. Callers
// cancel the Start context first so open connections unblock.
func (s *Server) Close() error {
	err := s.srv.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.srv.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) || errors.Is(err, uds.ErrNotListening) {
				return
			}
			logs.Errorf("admin accept: %v", err)
			continue
		}
		s.wg.Add(1)
		go func(c *net.UnixConn) {
			defer s.wg.Done()
			s.handleConn(ctx, c)
		}(conn)
	}
}

func (s *Server) handleConn(ctx context.Context, conn *net.UnixConn) {
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, maxRequestBytes), maxRequestBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := writeFull(conn, s.execute(line)); err != nil {
			return
		}
	}
}

func (s *Server) execute(line []byte) []byte {
	cmd, err := ParseCommand(line)
	if err != nil {
		return errReply(err)
	}
	switch cmd.Name {
	case CmdStatus:
		return FormatStatus(s.handler.Status())
	case CmdKill:
		s.handler.SetKillSwitch(cmd.Engage)
	case CmdBreakerReset:
		if err := s.handler.ResetBreaker(cmd.Instrument, cmd.Price); err != nil {
			return errReply(err)
		}
	case CmdBreakerRef:
		if err := s.handler.SetReferencePrice(cmd.Instrument, cmd.Price); err != nil {
			return errReply(err)
		}
	case CmdResetDaily:
		s.handler.ResetDaily()
	default:
		return errReply(ErrUnknownCommand)
	}
	return []byte("ok\n")
}

func errReply(err error) []byte {
	return []byte("err " + err.Error() + "\n")
}

func writeFull(conn *net.UnixConn, buf []byte) error {
	for len(buf) > 0 {
		n, err := conn.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
