package twitch

import (
	"context"
	"errors"
	"log"
	"net"
	"strconv"
	"strings"

	twitchirc "github.com/gempir/go-twitch-irc/v4"

	"github.com/john/chatqa/internal/command"
	"github.com/john/chatqa/internal/status"
)

// startLibrary runs the connection through go-twitch-irc, which answers
// PINGs and reconnects on its own.
func (c *Connector) startLibrary(ctx context.Context, q Enqueuer, st status.Setter) error {
	client := twitchirc.NewClient(c.opts.Nickname, c.opts.OAuth)
	client.IrcAddress = net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.Port))
	client.TLS = c.opts.TLS

	channel := strings.TrimPrefix(c.opts.Channel, "#")

	client.OnPrivateMessage(func(msg twitchirc.PrivateMessage) {
		handlePrivateMessage(msg, q, st)
	})

	client.OnConnect(func() {
		log.Println("Connected to Twitch IRC")
	})

	client.OnReconnectMessage(func(msg twitchirc.ReconnectMessage) {
		log.Println("Reconnecting to Twitch IRC...")
	})

	client.Join(channel)
	log.Printf("Joined channel: %s", channel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Connect()
	}()

	select {
	case err := <-errCh:
		// Connect only returns on its own when reconnecting is impossible
		if errors.Is(err, twitchirc.ErrClientDisconnected) {
			return ErrDisconnected
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Disconnecting from Twitch IRC...")
	if err := client.Disconnect(); err != nil {
		log.Printf("Error disconnecting from Twitch IRC: %v", err)
	}
	return ctx.Err()
}

func handlePrivateMessage(msg twitchirc.PrivateMessage, q Enqueuer, st status.Setter) bool {
	return command.Enqueue(platform, strings.TrimPrefix(msg.Channel, "#"), msg.User.Name, msg.Message, q, st)
}
