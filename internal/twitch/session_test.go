package twitch

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john/chatqa/internal/message"
	"github.com/john/chatqa/internal/status"
)

type recordingQueue struct {
	mu   sync.Mutex
	cmds []message.Command
}

func (r *recordingQueue) Push(cmd message.Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *recordingQueue) all() []message.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message.Command(nil), r.cmds...)
}

// fakeServer accepts one connection and hands it to script
func fakeServer(t *testing.T, script func(rd *bufio.Reader, conn net.Conn)) Options {
	t.Helper()
	return fakeServerSeq(t, script)
}

// fakeServerSeq accepts one connection per script, in order
func fakeServerSeq(t *testing.T, scripts ...func(rd *bufio.Reader, conn net.Conn)) Options {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for _, script := range scripts {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			script(bufio.NewReader(conn), conn)
			conn.Close()
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return Options{
		Host:     "127.0.0.1",
		Port:     addr.Port,
		Nickname: "qabot",
		OAuth:    "oauth:secret",
		Channel:  "#chan",
	}
}

func readLine(t *testing.T, rd *bufio.Reader) string {
	line, err := rd.ReadString('\n')
	if err != nil {
		t.Errorf("server read: %v", err)
		return ""
	}
	return line
}

func TestSessionEndToEnd(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
	)

	opts := fakeServer(t, func(rd *bufio.Reader, conn net.Conn) {
		for i := 0; i < 3; i++ {
			line := readLine(t, rd)
			mu.Lock()
			received = append(received, line)
			mu.Unlock()
		}

		conn.Write([]byte(":tmi.twitch.tv 001 qabot :Welcome, GLHF!\r\n"))
		conn.Write([]byte(":alice!alice@host PRIVMSG #chan :!q what time is it\r\n"))
		conn.Write([]byte(":bob!bob@host PRIVMSG #chan :just chatting\r\n"))
		conn.Write([]byte(":carol!carol@host PRIVMSG #chan :!q\r\n"))
		conn.Write([]byte("PING :tmi.twitch.tv\r\n"))

		pong := readLine(t, rd)
		mu.Lock()
		received = append(received, pong)
		mu.Unlock()
	})

	q := &recordingQueue{}
	board := status.NewBoard(nil)

	err := New(opts).Start(context.Background(), q, board)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDisconnected)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"PASS oauth:secret\r\n",
		"NICK qabot\r\n",
		"JOIN #chan\r\n",
		"PONG :tmi.twitch.tv\r\n",
	}, received)

	cmds := q.all()
	require.Len(t, cmds, 2)
	assert.Equal(t, "alice", cmds[0].Sender)
	assert.Equal(t, "what time is it", cmds[0].Question)
	assert.Equal(t, "twitch", cmds[0].Platform)
	assert.Equal(t, "chan", cmds[0].Channel)
	assert.NotEmpty(t, cmds[0].ID)
	assert.Equal(t, "carol", cmds[1].Sender)
	assert.Equal(t, "", cmds[1].Question)

	assert.Equal(t, status.Processing, board.Current())
}

func TestSessionPingDoesNotEnqueue(t *testing.T) {
	pongCh := make(chan string, 1)
	opts := fakeServer(t, func(rd *bufio.Reader, conn net.Conn) {
		for i := 0; i < 3; i++ {
			readLine(t, rd)
		}
		conn.Write([]byte("PING :tmi.twitch.tv\r\n"))
		pongCh <- readLine(t, rd)
	})

	q := &recordingQueue{}
	board := status.NewBoard(nil)
	err := New(opts).Start(context.Background(), q, board)
	assert.ErrorIs(t, err, ErrDisconnected)

	assert.True(t, strings.HasPrefix(<-pongCh, "PONG"))
	assert.Empty(t, q.all())
	assert.Equal(t, status.Waiting, board.Current())
}

func TestSessionInvalidUTF8IsFatal(t *testing.T) {
	opts := fakeServer(t, func(rd *bufio.Reader, conn net.Conn) {
		for i := 0; i < 3; i++ {
			readLine(t, rd)
		}
		conn.Write([]byte(":alice!alice@host PRIVMSG #chan :!q \xff\xfe\r\n"))
		// Hold the connection open until the client gives up
		rd.ReadString('\n')
	})

	q := &recordingQueue{}
	err := New(opts).Start(context.Background(), q, nil)
	assert.ErrorIs(t, err, ErrInvalidEncoding)
	assert.Empty(t, q.all())
}

func TestSessionStopsOnCancel(t *testing.T) {
	joined := make(chan struct{})
	opts := fakeServer(t, func(rd *bufio.Reader, conn net.Conn) {
		for i := 0; i < 3; i++ {
			readLine(t, rd)
		}
		close(joined)
		// Stay silent until the client hangs up
		rd.ReadString('\n')
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- New(opts).Start(ctx, &recordingQueue{}, nil)
	}()

	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("client never joined")
	}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestSessionDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	err = New(Options{Host: "127.0.0.1", Port: port, Channel: "#chan"}).Start(context.Background(), &recordingQueue{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestSessionEndsDisconnected(t *testing.T) {
	opts := fakeServer(t, func(rd *bufio.Reader, conn net.Conn) {
		for i := 0; i < 3; i++ {
			readLine(t, rd)
		}
	})

	s := newSession(New(opts).opts, &recordingQueue{}, nil)
	assert.ErrorIs(t, s.run(context.Background()), ErrDisconnected)
	assert.Equal(t, StateDisconnected, s.state)
}

func TestReconnectAfterServerDrop(t *testing.T) {
	var (
		mu     sync.Mutex
		logins [][]string
	)
	login := func(rd *bufio.Reader) {
		lines := make([]string, 0, 3)
		for i := 0; i < 3; i++ {
			lines = append(lines, readLine(t, rd))
		}
		mu.Lock()
		logins = append(logins, lines)
		mu.Unlock()
	}

	opts := fakeServerSeq(t,
		func(rd *bufio.Reader, conn net.Conn) {
			login(rd)
			conn.Write([]byte(":alice!alice@host PRIVMSG #chan :!q first\r\n"))
			// Returning drops the connection
		},
		func(rd *bufio.Reader, conn net.Conn) {
			login(rd)
			conn.Write([]byte(":bob!bob@host PRIVMSG #chan :!q second\r\n"))
			// Stay open until the client hangs up
			rd.ReadString('\n')
		},
	)
	opts.Reconnect = true

	c := New(opts)
	var attempts []int
	c.backoff = func(attempt int) time.Duration {
		attempts = append(attempts, attempt)
		return 10 * time.Millisecond
	}

	q := &recordingQueue{}
	board := status.NewBoard(nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx, q, board) }()

	require.Eventually(t, func() bool { return len(q.all()) == 2 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	assert.Equal(t, []int{0}, attempts)

	mu.Lock()
	defer mu.Unlock()
	want := []string{"PASS oauth:secret\r\n", "NICK qabot\r\n", "JOIN #chan\r\n"}
	require.Len(t, logins, 2)
	assert.Equal(t, want, logins[0])
	assert.Equal(t, want, logins[1])

	cmds := q.all()
	assert.Equal(t, "first", cmds[0].Question)
	assert.Equal(t, "bob", cmds[1].Sender)
	assert.Equal(t, "second", cmds[1].Question)
	assert.Equal(t, status.Processing, board.Current())
}

func TestNoReconnectByDefault(t *testing.T) {
	accepted := make(chan struct{}, 2)
	script := func(rd *bufio.Reader, conn net.Conn) {
		accepted <- struct{}{}
		for i := 0; i < 3; i++ {
			readLine(t, rd)
		}
	}
	opts := fakeServerSeq(t, script, script)

	err := New(opts).Start(context.Background(), &recordingQueue{}, nil)
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.Len(t, accepted, 1)
}

func TestParseTransport(t *testing.T) {
	tr, err := ParseTransport("")
	require.NoError(t, err)
	assert.Equal(t, TransportSocket, tr)

	tr, err = ParseTransport("library")
	require.NoError(t, err)
	assert.Equal(t, TransportLibrary, tr)

	_, err = ParseTransport("carrier-pigeon")
	assert.Error(t, err)
}

func TestReconnectBackoff(t *testing.T) {
	assert.Equal(t, time.Second, reconnectBackoff(0))
	assert.Equal(t, 2*time.Second, reconnectBackoff(1))
	assert.Equal(t, 32*time.Second, reconnectBackoff(5))
	assert.Equal(t, maxBackoff, reconnectBackoff(6))
	assert.Equal(t, maxBackoff, reconnectBackoff(40))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "reading", StateReading.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
}
