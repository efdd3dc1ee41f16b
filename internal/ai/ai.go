// Package ai wraps the OpenAI API for Tecnos: reply polishing, problem
// classification and photo diagnosis.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Constants for retry behavior on transient API failures.
const (
	// MaxRetries is the number of attempts after the initial call.
	MaxRetries = 3
	// BaseRetryDelay doubles on every attempt: 1s, 2s, 4s.
	BaseRetryDelay = 1000 * time.Millisecond
	// VisionTimeout bounds a single vision call.
	VisionTimeout = 30 * time.Second
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// Error variables for better error handling and testability
var (
	ErrNoAPIKey          = errors.New("OPENAI_API_KEY not set")
	ErrNoChoicesReturned = errors.New("no choices returned")
)

// retryableSubstrings lists error fragments considered transient. Anything
// else propagates immediately.
var retryableSubstrings = []string{
	"rate_limit_exceeded",
	"server_error",
	"timeout",
}

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the real client to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the AI client.
type Opts struct {
	APIKey      string
	Model       string
	Temperature float64
}

// Option defines a configuration option for the AI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat        chatService
	model       string
	temperature float64
}

// NewClient initializes a new AI client. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	slog.Debug("ai.NewClient: configured", "model", cfg.Model, "temperature", cfg.Temperature)

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{
		chat:        &openaiChatService{client: cli},
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

// Generate sends a system/user prompt pair and returns the completion text.
// Transient failures (rate limit, server error, timeout) are retried up to
// MaxRetries times with a doubling delay.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	resp, err := c.createWithRetry(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoicesReturned
	}
	recordUsage(c.model, resp.Usage)
	return resp.Choices[0].Message.Content, nil
}

// createWithRetry performs the completion call with the fixed retry policy.
func (c *Client) createWithRetry(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			delay := BaseRetryDelay * (1 << (attempt - 1))
			slog.Warn("ai.createWithRetry: retrying after transient error", "attempt", attempt, "delay", delay, "error", lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return openai.ChatCompletion{}, ctx.Err()
			}
		}
		resp, err := c.chat.Create(ctx, params)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return openai.ChatCompletion{}, err
		}
	}
	return openai.ChatCompletion{}, fmt.Errorf("exhausted %d retries: %w", MaxRetries, lastErr)
}

// isRetryable checks the error message against the transient fragments.
func isRetryable(err error) bool {
	msg := err.Error()
	for _, s := range retryableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// recordUsage logs token usage and the estimated cost of a completed call.
func recordUsage(model string, usage openai.CompletionUsage) {
	cost := EstimateCost(model, usage.PromptTokens, usage.CompletionTokens)
	slog.Debug("ai.recordUsage",
		"model", model,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"estimated_cost_usd", cost)
}
