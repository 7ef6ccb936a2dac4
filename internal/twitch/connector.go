package twitch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/john/chatqa/internal/status"
)

const platform = "twitch"

// Transport selects how the connector talks to the chat server
type Transport string

const (
	// TransportSocket runs the built-in line loop over a plain socket
	TransportSocket Transport = "socket"
	// TransportLibrary hands the connection to go-twitch-irc
	TransportLibrary Transport = "library"
)

// ParseTransport validates a configured transport name. Empty means socket.
func ParseTransport(s string) (Transport, error) {
	switch Transport(s) {
	case "", TransportSocket:
		return TransportSocket, nil
	case TransportLibrary:
		return TransportLibrary, nil
	default:
		return "", fmt.Errorf("unknown twitch transport %q", s)
	}
}

const maxBackoff = 60 * time.Second

// Options configures a Connector
type Options struct {
	Host      string
	Port      int
	TLS       bool
	Nickname  string
	OAuth     string // Sent verbatim as PASS, e.g. "oauth:abc123"
	Channel   string // Including the leading '#'
	Transport Transport
	Reconnect bool

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Connector manages the Twitch chat connection
type Connector struct {
	opts    Options
	backoff func(attempt int) time.Duration
}

// New creates a new Twitch connector
func New(opts Options) *Connector {
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.ReadTimeout == 0 {
		// Twitch pings roughly every five minutes
		opts.ReadTimeout = 6 * time.Minute
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.Transport == "" {
		opts.Transport = TransportSocket
	}
	return &Connector{opts: opts, backoff: reconnectBackoff}
}

// Start reads chat and pushes commands onto q until ctx is cancelled or,
// with reconnect disabled, until the connection drops.
func (c *Connector) Start(ctx context.Context, q Enqueuer, st status.Setter) error {
	if c.opts.Transport == TransportLibrary {
		return c.startLibrary(ctx, q, st)
	}

	attempt := 0
	for {
		started := time.Now()
		err := newSession(c.opts, q, st).run(ctx)
		if ctx.Err() != nil {
			log.Println("Disconnected from Twitch IRC")
			return ctx.Err()
		}
		if !c.opts.Reconnect {
			return fmt.Errorf("twitch session: %w", err)
		}

		// A session that stayed up for a while resets the backoff
		if time.Since(started) > maxBackoff {
			attempt = 0
		}
		backoff := c.backoff(attempt)
		attempt++

		log.Printf("Twitch connection lost: %v. Reconnecting in %v", err, backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func reconnectBackoff(attempt int) time.Duration {
	if attempt > 6 {
		return maxBackoff
	}
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
