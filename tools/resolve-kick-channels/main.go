// Command resolve-kick-channels looks up Kick chatroom IDs so they can be
// pinned in the chatqa config instead of resolved at every startup.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/john/chatqa/internal/kick"
)

type channelEntry struct {
	Slug       string `yaml:"slug"`
	ChatroomID int    `yaml:"chatroom_id"`
}

type snippet struct {
	Kick struct {
		Enabled  bool           `yaml:"enabled"`
		Channels []channelEntry `yaml:"channels"`
	} `yaml:"kick"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: resolve-kick-channels <channel1> [channel2] ...")
		fmt.Println("\nExample:")
		fmt.Println("  resolve-kick-channels paymoneywubby xqc")
		os.Exit(1)
	}

	slugs := os.Args[1:]
	fmt.Printf("Resolving %d Kick channel(s)...\n\n", len(slugs))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	client := &http.Client{Timeout: 10 * time.Second}

	var out snippet
	failed := 0
	for _, slug := range slugs {
		id, canonical, err := kick.ResolveChannel(ctx, client, slug)
		if err != nil {
			fmt.Printf("✗ %s: %v\n", slug, err)
			failed++
			continue
		}
		fmt.Printf("✓ %s: %d\n", canonical, id)
		out.Kick.Channels = append(out.Kick.Channels, channelEntry{Slug: canonical, ChatroomID: id})
	}

	if len(out.Kick.Channels) == 0 {
		os.Exit(1)
	}
	out.Kick.Enabled = true

	body, err := yaml.Marshal(&out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode snippet: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Println("---")
	fmt.Print(string(body))

	if failed > 0 {
		os.Exit(2)
	}
}
