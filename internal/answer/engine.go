// Package answer asks a chat-completions service to answer viewer questions.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/john/chatqa/internal/status"
)

// DefaultTimeout bounds a single generation call
const DefaultTimeout = 60 * time.Second

// ErrNoChoices is returned when the service answers without any choices
var ErrNoChoices = errors.New("response has no choices")

// ServiceError wraps any failure of the generation call
type ServiceError struct {
	Model string
	Err   error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("generate with %s: %v", e.Model, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Options configures an Engine
type Options struct {
	APIKey  string
	BaseURL string // Optional, for OpenAI-compatible endpoints
	Model   string
	Prompt  string // System prompt sent with every question
	Timeout time.Duration
}

// Engine turns a question into an answer with one chat-completions round trip
type Engine struct {
	client  *openai.Client
	model   string
	prompt  string
	timeout time.Duration
	status  status.Setter
}

// New creates an engine. statusSetter may be nil.
func New(opts Options, statusSetter status.Setter) *Engine {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Engine{
		client:  openai.NewClientWithConfig(cfg),
		model:   opts.Model,
		prompt:  opts.Prompt,
		timeout: timeout,
		status:  statusSetter,
	}
}

// Generate returns the trimmed answer to question. Failures come back as
// *ServiceError.
func (e *Engine) Generate(ctx context.Context, question string) (string, error) {
	if e.status != nil {
		e.status.SetStatus(status.Reading)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: e.prompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
	})
	if err != nil {
		return "", &ServiceError{Model: e.model, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ServiceError{Model: e.model, Err: ErrNoChoices}
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
