package twitch

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/john/chatqa/internal/command"
	"github.com/john/chatqa/internal/irc"
	"github.com/john/chatqa/internal/status"
)

// Twitch allows 30 messages per 30 seconds for normal users; the loop
// paces itself at one iteration per 1/30 s.
const linesPerSecond = 30

var (
	// ErrDisconnected is returned when the server closes the connection
	ErrDisconnected = errors.New("disconnected by server")
	// ErrInvalidEncoding is returned when a line is not valid UTF-8
	ErrInvalidEncoding = errors.New("line is not valid UTF-8")
)

// State is the lifecycle stage of a session
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateJoined
	StateReading
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateJoined:
		return "joined"
	case StateReading:
		return "reading"
	default:
		return "disconnected"
	}
}

// Enqueuer accepts commands for the dispatcher
type Enqueuer = command.Enqueuer

// session is a single connection to the chat server
type session struct {
	opts    Options
	queue   Enqueuer
	status  status.Setter
	limiter *rate.Limiter

	conn  net.Conn
	rd    *bufio.Reader
	state State
}

func newSession(opts Options, q Enqueuer, st status.Setter) *session {
	return &session{
		opts:    opts,
		queue:   q,
		status:  st,
		limiter: rate.NewLimiter(rate.Limit(linesPerSecond), 1),
		state:   StateConnecting,
	}
}

// run dials, logs in, joins and reads until the connection ends or ctx is
// cancelled. It always returns a non-nil error.
func (s *session) run(ctx context.Context) error {
	defer s.setState(StateDisconnected)

	s.setState(StateConnecting)
	if err := s.dial(ctx); err != nil {
		return err
	}
	defer s.conn.Close()

	// Unblock a pending read when ctx is cancelled
	stop := context.AfterFunc(ctx, func() {
		s.conn.Close()
	})
	defer stop()

	s.setState(StateAuthenticating)
	if err := s.writeLine("PASS " + s.opts.OAuth); err != nil {
		return err
	}
	if err := s.writeLine("NICK " + s.opts.Nickname); err != nil {
		return err
	}

	s.setState(StateJoined)
	if err := s.writeLine("JOIN " + s.opts.Channel); err != nil {
		return err
	}
	log.Printf("Joined channel: %s", s.opts.Channel)

	s.setState(StateReading)
	for {
		if err := s.readOnce(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}
}

func (s *session) dial(ctx context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, fmt.Sprint(s.opts.Port))
	dialer := &net.Dialer{Timeout: s.opts.DialTimeout}

	var (
		conn net.Conn
		err  error
	)
	if s.opts.TLS {
		tlsDialer := &tls.Dialer{
			NetDialer: dialer,
			Config:    &tls.Config{ServerName: s.opts.Host, MinVersion: tls.VersionTLS12},
		}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	log.Printf("Connected to %s", addr)
	s.conn = conn
	s.rd = bufio.NewReader(conn)
	return nil
}

// readOnce reads and handles a single line
func (s *session) readOnce() error {
	if s.opts.ReadTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}
	}

	line, err := s.rd.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrDisconnected
		}
		return fmt.Errorf("read line: %w", err)
	}
	if !utf8.ValidString(line) {
		return ErrInvalidEncoding
	}

	return s.handle(line)
}

func (s *session) handle(line string) error {
	ev := irc.Parse(line)

	switch ev.Kind {
	case irc.EventKeepalive:
		pong := "PONG"
		if ev.Text != "" {
			pong += " " + ev.Text
		}
		return s.writeLine(pong)

	case irc.EventMessage:
		command.Enqueue(platform, strings.TrimPrefix(s.opts.Channel, "#"), ev.Sender, ev.Text, s.queue, s.status)
	}

	return nil
}

func (s *session) writeLine(line string) error {
	if s.opts.WriteTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
	}
	if _, err := io.WriteString(s.conn, line+"\r\n"); err != nil {
		verb, _, _ := strings.Cut(line, " ")
		return fmt.Errorf("write %s: %w", verb, err)
	}
	return nil
}

func (s *session) setState(state State) {
	s.state = state
}
