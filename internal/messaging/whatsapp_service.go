package messaging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/whatsapp"
)

// WhatsAppService implements Service using the Whatsmeow-based whatsapp
// client. WhatsApp has no inline buttons here, so choices go out as numbered
// lists and numeric replies are resolved back into selection tokens through
// the choice registry.
type WhatsAppService struct {
	client   whatsapp.Sender
	waClient *whatsapp.Client // access to the underlying client for event handling
	registry *ChoiceRegistry
	receipts chan models.Receipt
	events   chan models.InboundEvent
	done     chan struct{}
	mu       sync.RWMutex
	stopped  bool
}

// NewWhatsAppService creates a new WhatsAppService wrapping the given Sender.
func NewWhatsAppService(client whatsapp.Sender) *WhatsAppService {
	service := &WhatsAppService{
		client:   client,
		registry: NewChoiceRegistry(),
		receipts: make(chan models.Receipt, DefaultChannelBufferSize),
		events:   make(chan models.InboundEvent, DefaultChannelBufferSize),
		done:     make(chan struct{}),
	}

	if waClient, ok := client.(*whatsapp.Client); ok {
		service.waClient = waClient
		slog.Debug("WhatsAppService created with full client for event handling")
	} else {
		slog.Debug("WhatsAppService created with interface client (likely mock)")
	}

	return service
}

// ValidateAndCanonicalizeRecipient validates a WhatsApp phone number.
func (s *WhatsAppService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start begins background processing of WhatsApp events.
func (s *WhatsAppService) Start(ctx context.Context) error {
	slog.Debug("WhatsAppService Start invoked")

	if s.waClient != nil {
		go s.handleEvents(ctx)
		slog.Debug("WhatsAppService event handler started")
	} else {
		slog.Debug("WhatsAppService no full client available, skipping event handling (likely mock)")
	}

	return nil
}

// Stop stops background processing and closes the channels. Safe to call
// more than once.
func (s *WhatsAppService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	slog.Info("WhatsAppService Stop invoked")
	close(s.done)

	// The whatsmeow event handler may still be mid-emit for an event it
	// already dequeued; the stopped flag keeps those emits away from the
	// channels while they close behind this grace period.
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.receipts)
		close(s.events)
		slog.Info("WhatsAppService stopped and channels closed")
	}()
	return nil
}

// SendText sends a message and emits a sent receipt.
func (s *WhatsAppService) SendText(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	slog.Debug("WhatsAppService SendText invoked", "to", to, "body_length", len(body))
	if err := s.client.SendMessage(ctx, to, body); err != nil {
		slog.Error("WhatsAppService SendText error", "error", err, "to", to)
		return err
	}
	s.safeEmitReceipt(models.Receipt{To: to, Status: models.StatusTypeSent, Time: time.Now().Unix()})
	return nil
}

// SendChoices renders the options as a numbered list and remembers them so
// the user's numeric reply can be resolved to the matching token.
func (s *WhatsAppService) SendChoices(ctx context.Context, to string, prompt string, choices []models.Choice) error {
	if err := models.ValidateChoices(choices); err != nil {
		return err
	}
	if err := s.SendText(ctx, to, RenderNumbered(prompt, choices)); err != nil {
		return err
	}
	s.registry.Remember(to, choices)
	return nil
}

// SendTyping is a no-op; typing presence is not wired for this transport.
func (s *WhatsAppService) SendTyping(ctx context.Context, to string) error {
	slog.Debug("WhatsAppService SendTyping ignored (unsupported)", "to", to)
	return nil
}

// Receipts returns a channel of delivery events.
func (s *WhatsAppService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Events returns a channel of classified inbound events.
func (s *WhatsAppService) Events() <-chan models.InboundEvent {
	return s.events
}

// handleEvents registers a Whatsmeow event handler that feeds messages and
// receipts into the service channels.
func (s *WhatsAppService) handleEvents(ctx context.Context) {
	slog.Debug("WhatsAppService handleEvents starting")

	if s.waClient == nil || s.waClient.GetClient() == nil {
		slog.Error("WhatsAppService handleEvents: no client available")
		return
	}

	s.waClient.GetClient().AddEventHandler(func(evt interface{}) {
		switch v := evt.(type) {
		case *events.Message:
			s.handleIncomingMessage(v)
		case *events.Receipt:
			s.handleMessageReceipt(v)
		default:
			// Ignore other event types
		}
	})

	slog.Debug("WhatsAppService event handler registered")

	<-ctx.Done()
	slog.Debug("WhatsAppService handleEvents stopping due to context cancellation")
}

// handleIncomingMessage classifies an incoming text message and forwards it.
func (s *WhatsAppService) handleIncomingMessage(evt *events.Message) {
	if evt.Message == nil {
		return
	}

	var messageText string
	if evt.Message.Conversation != nil {
		messageText = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil && evt.Message.ExtendedTextMessage.Text != nil {
		messageText = *evt.Message.ExtendedTextMessage.Text
	} else {
		// Skip non-text messages (images, audio, etc.)
		slog.Debug("WhatsAppService ignoring non-text message", "from", evt.Info.Sender.String())
		return
	}

	from, err := canonicalizePhone(evt.Info.Sender.User)
	if err != nil {
		slog.Warn("WhatsAppService dropping message with invalid sender", "error", err, "from", evt.Info.Sender.String())
		return
	}

	kind, body := ClassifyBody(s.registry, from, messageText)
	// Bare keywords work too on this transport, where slash commands are
	// unfamiliar to most users.
	if kind == models.EventText {
		switch strings.ToLower(body) {
		case models.CommandStart, models.CommandHelp, models.CommandExit:
			kind = models.EventCommand
			body = strings.ToLower(body)
		}
	}
	if kind == models.EventSelection {
		s.registry.Clear(from)
	}

	event := models.InboundEvent{
		From: from,
		Kind: kind,
		Body: body,
		Time: evt.Info.Timestamp.Unix(),
	}

	slog.Debug("WhatsAppService processing incoming message", "from", event.From, "kind", event.Kind)
	s.safeEmitEvent(event)
}

// handleMessageReceipt processes delivery and read receipts.
func (s *WhatsAppService) handleMessageReceipt(evt *events.Receipt) {
	to, err := canonicalizePhone(evt.MessageSource.Sender.User)
	if err != nil {
		return
	}

	var status models.MessageStatus
	switch evt.Type {
	case events.ReceiptTypeDelivered:
		status = models.StatusTypeDelivered
	case events.ReceiptTypeRead:
		status = models.StatusTypeRead
	case events.ReceiptTypeReadSelf:
		// Skip self-read receipts
		return
	default:
		slog.Debug("WhatsAppService ignoring receipt type", "type", evt.Type, "to", to)
		return
	}

	s.safeEmitReceipt(models.Receipt{To: to, Status: status, Time: evt.Timestamp.Unix()})
}

// safeEmitEvent forwards an inbound event without blocking the whatsmeow
// handler. Events arriving after Stop are dropped instead of racing the
// channel close.
func (s *WhatsAppService) safeEmitEvent(evt models.InboundEvent) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		slog.Warn("WhatsAppService dropping inbound event (service stopped)", "from", evt.From)
		return
	}

	select {
	case s.events <- evt:
		slog.Info("WhatsAppService incoming message forwarded", "from", evt.From)
	case <-s.done:
		slog.Warn("WhatsAppService dropping inbound event (service stopping)", "from", evt.From)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService events channel blocked, dropping message", "from", evt.From, "timeout", DefaultChannelTimeout)
	}
}

func (s *WhatsAppService) safeEmitReceipt(receipt models.Receipt) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case s.receipts <- receipt:
		slog.Debug("WhatsAppService receipt forwarded", "to", receipt.To, "status", receipt.Status)
	case <-s.done:
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("WhatsAppService receipts channel blocked, dropping receipt", "to", receipt.To)
	}
}
