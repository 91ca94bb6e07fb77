// Package telegram wraps the Telegram Bot API client for EventPilot.
//
// It provides methods for sending messages, inline keyboards, and typing
// indicators, and exposes the long-polling update stream.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// DefaultUpdateTimeout is the long-poll timeout in seconds for GetUpdates.
const DefaultUpdateTimeout = 60

// Sender is an interface for sending Telegram messages (for production and testing)
type Sender interface {
	SendText(ctx context.Context, chatID string, body string) error
	SendChoices(ctx context.Context, chatID string, prompt string, choices []models.Choice) error
	SendTyping(ctx context.Context, chatID string) error
}

// Opts holds configuration options for the Telegram client.
type Opts struct {
	Token         string // bot token from BotFather
	UpdateTimeout int    // long-poll timeout in seconds
	Debug         bool   // enable tgbotapi debug logging
}

// Option defines a configuration option for the Telegram client.
type Option func(*Opts)

// WithToken sets the bot token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithUpdateTimeout sets the long-poll timeout in seconds.
func WithUpdateTimeout(seconds int) Option {
	return func(o *Opts) { o.UpdateTimeout = seconds }
}

// WithDebug enables the underlying library's debug logging.
func WithDebug() Option {
	return func(o *Opts) { o.Debug = true }
}

// Client wraps the Telegram Bot API client for modular use.
type Client struct {
	bot           *tgbotapi.BotAPI
	updateTimeout int
}

// NewClient creates a new Telegram client, applying any provided options.
// The token falls back to the TELEGRAM_BOT_TOKEN environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := Opts{UpdateTimeout: DefaultUpdateTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	}
	slog.Debug("Telegram NewClient options set", "token_set", cfg.Token != "", "update_timeout", cfg.UpdateTimeout)

	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram bot token must be provided")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		slog.Error("Failed to initialize Telegram bot", "error", err)
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	slog.Info("Telegram client authorized", "username", bot.Self.UserName)
	return &Client{bot: bot, updateTimeout: cfg.UpdateTimeout}, nil
}

// ParseChatID converts a canonical recipient string into a Telegram chat ID.
// Group chat IDs are negative, so a leading minus sign is accepted.
func ParseChatID(chatID string) (int64, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	return id, nil
}

// SendText sends a plain text message to the given chat.
func (c *Client) SendText(ctx context.Context, chatID string, body string) error {
	if body == "" {
		return models.ErrEmptyBody
	}
	id, err := ParseChatID(chatID)
	if err != nil {
		return err
	}

	slog.Debug("Sending Telegram message", "chatID", chatID, "body_length", len(body))
	msg := tgbotapi.NewMessage(id, body)
	if _, err := c.bot.Send(msg); err != nil {
		slog.Error("Failed to send Telegram message", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send message to %s: %w", chatID, err)
	}
	return nil
}

// SendChoices sends a prompt with an inline keyboard, one button per choice.
// Button presses come back as callback queries carrying the choice token.
func (c *Client) SendChoices(ctx context.Context, chatID string, prompt string, choices []models.Choice) error {
	if err := models.ValidateChoices(choices); err != nil {
		return err
	}
	id, err := ParseChatID(chatID)
	if err != nil {
		return err
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, choice := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(choice.Label, choice.Token),
		))
	}

	slog.Debug("Sending Telegram inline keyboard", "chatID", chatID, "choices", len(choices))
	msg := tgbotapi.NewMessage(id, prompt)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := c.bot.Send(msg); err != nil {
		slog.Error("Failed to send Telegram inline keyboard", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send choices to %s: %w", chatID, err)
	}
	return nil
}

// SendTyping shows the typing chat action.
func (c *Client) SendTyping(ctx context.Context, chatID string) error {
	id, err := ParseChatID(chatID)
	if err != nil {
		return err
	}
	action := tgbotapi.NewChatAction(id, tgbotapi.ChatTyping)
	if _, err := c.bot.Request(action); err != nil {
		slog.Debug("Failed to send Telegram typing action", "error", err, "chatID", chatID)
		return fmt.Errorf("failed to send typing action to %s: %w", chatID, err)
	}
	return nil
}

// Updates starts long polling and returns the raw update channel.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = c.updateTimeout
	return c.bot.GetUpdatesChan(u)
}

// AnswerCallback acknowledges a callback query so the client stops showing
// its loading spinner.
func (c *Client) AnswerCallback(callbackID string) error {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("failed to answer callback %s: %w", callbackID, err)
	}
	return nil
}

// StopReceivingUpdates stops the long-poll loop.
func (c *Client) StopReceivingUpdates() {
	c.bot.StopReceivingUpdates()
}

// MockClient implements Sender but records sends instead of calling Telegram.
// Use telegram.NewMockClient() in tests to avoid real network access.
type MockClient struct {
	TextMessages   []MockMessage
	ChoiceMessages []MockChoiceMessage
	TypingChats    []string
}

// MockMessage is one recorded text send.
type MockMessage struct {
	ChatID string
	Body   string
}

// MockChoiceMessage is one recorded choice-prompt send.
type MockChoiceMessage struct {
	ChatID  string
	Prompt  string
	Choices []models.Choice
}

// NewMockClient creates an empty MockClient.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SendText(ctx context.Context, chatID string, body string) error {
	m.TextMessages = append(m.TextMessages, MockMessage{ChatID: chatID, Body: body})
	return nil
}

func (m *MockClient) SendChoices(ctx context.Context, chatID string, prompt string, choices []models.Choice) error {
	m.ChoiceMessages = append(m.ChoiceMessages, MockChoiceMessage{ChatID: chatID, Prompt: prompt, Choices: choices})
	return nil
}

func (m *MockClient) SendTyping(ctx context.Context, chatID string) error {
	m.TypingChats = append(m.TypingChats, chatID)
	return nil
}
