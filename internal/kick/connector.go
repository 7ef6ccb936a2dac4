// Package kick listens to Kick chatrooms for question commands.
package kick

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	kickchat "github.com/johanvandegriff/kick-chat-wrapper"

	"github.com/john/chatqa/internal/command"
	"github.com/john/chatqa/internal/status"
)

const platform = "kick"

// APIBaseURL is where channel slugs are resolved
var APIBaseURL = "https://kick.com/api/v2/channels/"

// Channel is a Kick channel, optionally with its chatroom ID already known
type Channel struct {
	Slug       string
	ChatroomID int // 0 means resolve through the API
}

// Enqueuer accepts commands for the dispatcher
type Enqueuer = command.Enqueuer

// Connector manages Kick chat connections
type Connector struct {
	channels []Channel
	idToSlug map[int]string
}

// New creates a new Kick connector
func New(channels []Channel) *Connector {
	return &Connector{
		channels: channels,
		idToSlug: make(map[int]string),
	}
}

// Start joins every resolvable chatroom and pushes "!q" commands onto q
// until ctx is cancelled
func (c *Connector) Start(ctx context.Context, q Enqueuer, st status.Setter) error {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	for _, ch := range c.channels {
		id, slug := ch.ChatroomID, ch.Slug
		if id == 0 {
			var err error
			id, slug, err = ResolveChannel(ctx, httpClient, ch.Slug)
			if err != nil {
				log.Printf("Warning: Failed to resolve Kick channel '%s': %v (skipping)", ch.Slug, err)
				continue
			}
		}
		c.idToSlug[id] = slug
	}
	if len(c.idToSlug) == 0 {
		return fmt.Errorf("no valid Kick channels could be resolved")
	}

	client, err := kickchat.NewClient()
	if err != nil {
		return fmt.Errorf("create Kick client: %w", err)
	}
	defer client.Close()

	for id, slug := range c.idToSlug {
		if err := client.JoinChannelByID(id); err != nil {
			log.Printf("Warning: Failed to join Kick channel '%s' (ID %d): %v", slug, id, err)
			continue
		}
		log.Printf("Joined Kick channel: %s", slug)
	}

	messages := client.ListenForMessages()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("kick message channel closed")
			}
			c.handle(msg, q, st)

		case <-ctx.Done():
			log.Println("Disconnecting from Kick chat...")
			return ctx.Err()
		}
	}
}

func (c *Connector) handle(msg kickchat.ChatMessage, q Enqueuer, st status.Setter) {
	slug, ok := c.idToSlug[msg.ChatroomID]
	if !ok {
		log.Printf("Warning: Received message from unknown chatroom ID: %d", msg.ChatroomID)
		return
	}

	command.Enqueue(platform, slug, msg.Sender.Username, msg.Content, q, st)
}

type channelResponse struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Chatroom struct {
		ID int `json:"id"`
	} `json:"chatroom"`
}

// ResolveChannel looks up the chatroom ID and canonical slug of a channel
func ResolveChannel(ctx context.Context, client *http.Client, slug string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, APIBaseURL+slug, nil)
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}

	// Kick sits behind Cloudflare and rejects obviously non-browser clients
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/143.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://kick.com/")
	req.Header.Set("Origin", "https://kick.com")

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("request channel: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var info channelResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return 0, "", fmt.Errorf("decode channel: %w", err)
	}
	if info.Chatroom.ID == 0 {
		return 0, "", fmt.Errorf("channel %s has no chatroom", slug)
	}
	if info.Slug == "" {
		info.Slug = slug
	}

	return info.Chatroom.ID, info.Slug, nil
}
