package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/john/chatqa/internal/answer"
	"github.com/john/chatqa/internal/command"
	"github.com/john/chatqa/internal/config"
	"github.com/john/chatqa/internal/dispatch"
	"github.com/john/chatqa/internal/health"
	"github.com/john/chatqa/internal/history"
	"github.com/john/chatqa/internal/kick"
	"github.com/john/chatqa/internal/message"
	"github.com/john/chatqa/internal/narrator"
	"github.com/john/chatqa/internal/queue"
	"github.com/john/chatqa/internal/recorder"
	"github.com/john/chatqa/internal/status"
	"github.com/john/chatqa/internal/twitch"
	"github.com/john/chatqa/internal/ui"
	"github.com/john/chatqa/internal/uploader"
)

// pipelineState feeds the /status endpoint
type pipelineState struct {
	board   *status.Board
	queue   *queue.Queue
	history *history.Log
}

func (p pipelineState) Status() string { return p.board.Current() }
func (p pipelineState) Queued() int    { return p.queue.Len() }
func (p pipelineState) Answered() int  { return p.history.Len() }

func main() {
	// Get config path from environment variable or use default
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dispatchMode, err := dispatch.ParseMode(cfg.Dispatch.Mode)
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	transport, err := twitch.ParseTransport(cfg.Twitch.Client)
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// The TUI owns the terminal, so logs go to a file
	var (
		presenter ui.Presenter
		program   *ui.Program
	)
	if cfg.UI.Mode == "tui" {
		logFile, err := tea.LogToFile(cfg.UI.LogFile, "chatqa")
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()

		program = ui.NewProgram()
		presenter = program
	} else {
		presenter = ui.Headless{}
	}

	log.Println("Chatqa starting...")
	log.Printf("Configuration loaded from %s", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	board := status.NewBoard(presenter)
	commands := queue.New()
	hist := history.New()

	engine := answer.New(answer.Options{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.Model,
		Prompt:  cfg.OpenAI.Prompt,
		Timeout: time.Duration(cfg.OpenAI.TimeoutSeconds) * time.Second,
	}, board)

	var speaker dispatch.Speaker = narrator.Silent{}
	if cfg.Narrator.Enabled {
		sys, err := narrator.NewSystem(cfg.Narrator.Command)
		if err != nil {
			log.Printf("Warning: narration disabled: %v", err)
		} else {
			speaker = sys
		}
	}

	// Transcript archive and S3 upload are both optional
	var (
		answers chan message.Answer
		files   chan string
		rec     *recorder.Recorder
		up      *uploader.Uploader
	)
	if cfg.Transcript.OutputDir != "" {
		answers = make(chan message.Answer, 100)
		rec = recorder.New(cfg.Transcript.OutputDir, cfg.Transcript.RotateMinutes, cfg.Transcript.RotateMegabytes)
	}
	if cfg.S3.Bucket != "" {
		files = make(chan string, 100)
		up, err = uploader.New(ctx, uploader.Options{
			Bucket:            cfg.S3.Bucket,
			Region:            cfg.S3.Region,
			Endpoint:          cfg.S3.Endpoint,
			RoleARN:           cfg.S3.RoleARN,
			AccessKeyID:       cfg.S3.AccessKeyID,
			SecretAccessKey:   cfg.S3.SecretAccessKey,
			DeleteAfterUpload: cfg.Uploader.DeleteAfterUpload,
			MaxRetries:        cfg.Uploader.MaxRetries,
		})
		if err != nil {
			log.Fatalf("Failed to create uploader: %v", err)
		}
		if err := up.ScanAndUploadExisting(ctx, cfg.Transcript.OutputDir); err != nil {
			log.Printf("Warning: Failed to scan for existing transcripts: %v", err)
		}
	}

	dispatcher := dispatch.New(dispatch.Options{
		Queue:     commands,
		History:   hist,
		Generator: engine,
		Speaker:   speaker,
		Renderer:  presenter,
		Status:    board,
		Archive:   answers,
		Interval:  time.Duration(cfg.Dispatch.IntervalSeconds) * time.Second,
		Mode:      dispatchMode,
	})

	twitchConn := twitch.New(twitch.Options{
		Host:      cfg.Twitch.Host,
		Port:      cfg.Twitch.Port,
		TLS:       cfg.Twitch.TLS,
		Nickname:  cfg.Twitch.Nickname,
		OAuth:     cfg.Twitch.OAuth,
		Channel:   cfg.Twitch.Channel,
		Transport: transport,
		Reconnect: cfg.Twitch.Reconnect,
	})
	log.Printf("Listening for %s commands in %s", command.Prefix, cfg.Twitch.Channel)

	var kickConn *kick.Connector
	if cfg.Kick.Enabled {
		channels := make([]kick.Channel, 0, len(cfg.Kick.Channels))
		for _, ch := range cfg.Kick.Channels {
			channels = append(channels, kick.Channel{Slug: ch.Slug, ChatroomID: ch.ChatroomID})
		}
		kickConn = kick.New(channels)
		log.Printf("Listening on %d Kick channel(s)", len(channels))
	}

	healthServer := health.New(cfg.Health.Addr, pipelineState{board: board, queue: commands, history: hist})

	var wg sync.WaitGroup
	run := func(name string, fn func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(); err != nil && !errors.Is(err, context.Canceled) {
				if errors.Is(err, twitch.ErrDisconnected) {
					log.Printf("%s stopped: connection closed by server", name)
					return
				}
				log.Printf("%s error: %v", name, err)
			}
		}()
	}

	run("Dispatcher", func() error { return dispatcher.Start(ctx) })
	run("Twitch connector", func() error { return twitchConn.Start(ctx, commands, board) })
	if kickConn != nil {
		run("Kick connector", func() error { return kickConn.Start(ctx, commands, board) })
	}
	if rec != nil {
		run("Recorder", func() error { return rec.Start(ctx, answers, files) })
	}
	if up != nil {
		run("Uploader", func() error { return up.Start(ctx, files) })
	}
	run("Health server", func() error {
		if err := healthServer.Start(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	shutdown := func(reason string) {
		log.Printf("%s, initiating graceful shutdown...", reason)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down health server: %v", err)
		}

		cancel()

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			log.Println("All components stopped gracefully")
		case <-shutdownCtx.Done():
			log.Println("Shutdown timeout exceeded, forcing exit")
			os.Exit(1)
		}
	}

	log.Println("All components started successfully")

	if program != nil {
		// The window closing ends the app just like a signal
		uiDone := make(chan error, 1)
		go func() { uiDone <- program.Run(ctx) }()

		select {
		case err := <-uiDone:
			if err != nil {
				log.Printf("UI error: %v", err)
			}
			shutdown("Window closed")
		case <-sigChan:
			shutdown("Shutdown signal received")
			<-uiDone
		}
	} else {
		<-sigChan
		shutdown("Shutdown signal received")
	}

	log.Println("Chatqa stopped")
}
