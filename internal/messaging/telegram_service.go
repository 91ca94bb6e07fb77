package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/telegram"
)

// TelegramService implements Service using the Telegram Bot API client.
// Telegram has native inline buttons, so choices go out as keyboards and come
// back as callback queries carrying the selection token directly.
type TelegramService struct {
	client   telegram.Sender
	tgClient *telegram.Client // access to the underlying client for update polling
	receipts chan models.Receipt
	events   chan models.InboundEvent
	done     chan struct{}
	mu       sync.RWMutex
	stopped  bool
}

// NewTelegramService creates a new TelegramService wrapping the given Sender.
func NewTelegramService(client telegram.Sender) *TelegramService {
	service := &TelegramService{
		client:   client,
		receipts: make(chan models.Receipt, DefaultChannelBufferSize),
		events:   make(chan models.InboundEvent, DefaultChannelBufferSize),
		done:     make(chan struct{}),
	}

	if tgClient, ok := client.(*telegram.Client); ok {
		service.tgClient = tgClient
		slog.Debug("TelegramService created with full client for update polling")
	} else {
		slog.Debug("TelegramService created with interface client (likely mock)")
	}

	return service
}

// ValidateAndCanonicalizeRecipient validates a Telegram chat identifier.
// Chat IDs are signed integers; group chats are negative.
func (s *TelegramService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	trimmed := strings.TrimSpace(recipient)
	if trimmed == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid telegram chat id %q: %w", recipient, err)
	}
	return strconv.FormatInt(id, 10), nil
}

// Start begins polling Telegram for updates.
func (s *TelegramService) Start(ctx context.Context) error {
	slog.Debug("TelegramService Start invoked")

	if s.tgClient != nil {
		go s.handleUpdates(ctx)
		slog.Debug("TelegramService update handler started")
	} else {
		slog.Debug("TelegramService no full client available, skipping update polling (likely mock)")
	}

	return nil
}

// Stop stops polling and closes the channels. Safe to call more than once.
func (s *TelegramService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	slog.Info("TelegramService Stop invoked")
	if s.tgClient != nil {
		s.tgClient.StopReceivingUpdates()
	}
	close(s.done)

	// The update handler may still be draining an already-dequeued update;
	// the stopped flag keeps its emits away from the channels while they
	// close behind this grace period.
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.receipts)
		close(s.events)
		slog.Info("TelegramService stopped and channels closed")
	}()
	return nil
}

// SendText sends a text message and emits a sent receipt.
func (s *TelegramService) SendText(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	slog.Debug("TelegramService SendText invoked", "to", to, "body_length", len(body))
	if err := s.client.SendText(ctx, to, body); err != nil {
		slog.Error("TelegramService SendText error", "error", err, "to", to)
		return err
	}
	s.safeEmitReceipt(models.Receipt{To: to, Status: models.StatusTypeSent, Time: time.Now().Unix()})
	return nil
}

// SendChoices sends a prompt with an inline keyboard and emits a sent receipt.
func (s *TelegramService) SendChoices(ctx context.Context, to string, prompt string, choices []models.Choice) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	slog.Debug("TelegramService SendChoices invoked", "to", to, "choices", len(choices))
	if err := s.client.SendChoices(ctx, to, prompt, choices); err != nil {
		slog.Error("TelegramService SendChoices error", "error", err, "to", to)
		return err
	}
	s.safeEmitReceipt(models.Receipt{To: to, Status: models.StatusTypeSent, Time: time.Now().Unix()})
	return nil
}

// SendTyping shows the typing chat action. Failures are not fatal.
func (s *TelegramService) SendTyping(ctx context.Context, to string) error {
	return s.client.SendTyping(ctx, to)
}

// Receipts returns a channel of delivery events.
func (s *TelegramService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Events returns a channel of classified inbound events.
func (s *TelegramService) Events() <-chan models.InboundEvent {
	return s.events
}

// handleUpdates converts raw Telegram updates into InboundEvents.
func (s *TelegramService) handleUpdates(ctx context.Context) {
	slog.Debug("TelegramService handleUpdates starting")

	updates := s.tgClient.Updates()
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				slog.Debug("TelegramService updates channel closed")
				return
			}
			s.handleUpdate(update)
		case <-ctx.Done():
			slog.Debug("TelegramService handleUpdates stopping due to context cancellation")
			return
		case <-s.done:
			return
		}
	}
}

// handleUpdate classifies one update. Callback queries become selections,
// command messages become commands, other text stays free text. Non-text
// payloads (photos, stickers, etc.) are ignored.
func (s *TelegramService) handleUpdate(update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		cq := update.CallbackQuery
		if err := s.tgClient.AnswerCallback(cq.ID); err != nil {
			slog.Debug("TelegramService callback answer failed", "error", err)
		}

		var chatID int64
		if cq.Message != nil {
			chatID = cq.Message.Chat.ID
		} else {
			chatID = cq.From.ID
		}
		s.safeEmitEvent(models.InboundEvent{
			From: strconv.FormatInt(chatID, 10),
			Kind: models.EventSelection,
			Body: cq.Data,
			Time: time.Now().Unix(),
		})
		return
	}

	if update.Message == nil || update.Message.Text == "" {
		slog.Debug("TelegramService ignoring non-text update")
		return
	}

	msg := update.Message
	evt := models.InboundEvent{
		From: strconv.FormatInt(msg.Chat.ID, 10),
		Time: msg.Time().Unix(),
	}
	if msg.IsCommand() {
		evt.Kind = models.EventCommand
		evt.Body = strings.ToLower(msg.Command())
	} else {
		evt.Kind = models.EventText
		evt.Body = msg.Text
	}
	s.safeEmitEvent(evt)
}

// safeEmitEvent forwards an inbound event without blocking the update loop.
// Events arriving after Stop are dropped instead of racing the channel close.
func (s *TelegramService) safeEmitEvent(evt models.InboundEvent) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		slog.Warn("TelegramService dropping inbound event (service stopped)", "from", evt.From)
		return
	}

	select {
	case s.events <- evt:
		slog.Debug("TelegramService inbound event forwarded", "from", evt.From, "kind", evt.Kind)
	case <-s.done:
		slog.Warn("TelegramService dropping inbound event (service stopping)", "from", evt.From)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TelegramService events channel blocked, dropping event", "from", evt.From, "timeout", DefaultChannelTimeout)
	}
}

func (s *TelegramService) safeEmitReceipt(receipt models.Receipt) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case s.receipts <- receipt:
	case <-s.done:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TelegramService receipts channel blocked, dropping receipt", "to", receipt.To)
	}
}
