// Package genai provides the text-generation client for EventPilot using the
// OpenAI chat completion API. OpenRouter and other OpenAI-compatible
// providers are reached through a base URL override.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// Default generation configuration. Matches the event-planner persona:
// a handful of creative suggestions, mildly adventurous temperature.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
	DefaultTimeout     = 30 * time.Second
)

// ErrNoChoicesReturned indicates the provider returned an empty choice set.
var ErrNoChoicesReturned = errors.New("no choices returned")

// ErrorKind classifies a generation failure.
type ErrorKind string

const (
	// ErrorTimeout means the bounded deadline elapsed before a response arrived.
	ErrorTimeout ErrorKind = "timeout"
	// ErrorTransport covers connection faults and provider-reported errors.
	ErrorTransport ErrorKind = "transport"
	// ErrorPayload means the response arrived but carried nothing usable.
	ErrorPayload ErrorKind = "payload"
)

// GenerationError is the only error type Generate returns. Raw transport
// faults never cross this boundary.
type GenerationError struct {
	Kind ErrorKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// sdkChatService adapts the OpenAI SDK to chatService.
type sdkChatService struct {
	client openai.Client
}

func (s sdkChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the provider API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint such as
// https://openrouter.ai/api/v1.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithModel sets the model identifier sent with each request.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Opts) { o.Temperature = t }
}

// WithMaxTokens bounds the generated output length.
func WithMaxTokens(n int64) Option {
	return func(o *Opts) { o.MaxTokens = n }
}

// WithTimeout bounds each generation call.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// ClientInterface abstracts the generation capability for callers and tests.
type ClientInterface interface {
	Generate(ctx context.Context, prompt models.PromptSpec) (string, error)
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat        chatService
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration
}

// NewClient initializes a GenAI client. The API key falls back to
// OPENAI_API_KEY then OPENROUTER_API_KEY; the base URL to GENAI_BASE_URL.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("GENAI_BASE_URL")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("GENAI_MODEL")
	}
	slog.Debug("GenAI client config loaded", "api_key_set", cfg.APIKey != "", "base_url_set", cfg.BaseURL != "", "model", cfg.Model)

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generation API key not set")
	}

	requestOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}
	cli := openai.NewClient(requestOpts...)

	return newClientWithService(sdkChatService{client: cli}, cfg), nil
}

func newClientWithService(chat chatService, cfg Opts) *Client {
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT4oMini)
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		chat:        chat,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
	}
}

// Generate performs a single generation attempt with a bounded timeout and
// returns the raw text verbatim. There is no retry here; callers that want
// one wrap this themselves.
func (c *Client) Generate(ctx context.Context, prompt models.PromptSpec) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	slog.Debug("GenAI Generate invoked", "model", c.model, "system_length", len(prompt.System), "user_length", len(prompt.User))

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		kind := ErrorTransport
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = ErrorTimeout
		}
		slog.Error("GenAI Generate failed", "kind", string(kind), "error", err)
		return "", &GenerationError{Kind: kind, Err: err}
	}

	if len(resp.Choices) == 0 {
		slog.Error("GenAI Generate returned no choices", "model", c.model)
		return "", &GenerationError{Kind: ErrorPayload, Err: ErrNoChoicesReturned}
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		slog.Error("GenAI Generate returned empty content", "model", c.model)
		return "", &GenerationError{Kind: ErrorPayload, Err: ErrNoChoicesReturned}
	}

	slog.Debug("GenAI Generate succeeded", "model", c.model, "content_length", len(content))
	return content, nil
}
