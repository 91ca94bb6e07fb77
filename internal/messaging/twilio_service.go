package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/twiliosms"
)

// TwilioService implements Service over SMS via the Twilio REST API. SMS has
// no buttons and no push channel: choices go out as numbered lists resolved
// through the choice registry, and inbound messages arrive through the
// webhook handler that Twilio is configured to call.
type TwilioService struct {
	client   twiliosms.Sender
	registry *ChoiceRegistry
	receipts chan models.Receipt
	events   chan models.InboundEvent
	done     chan struct{}
	mu       sync.RWMutex
	stopped  bool
}

// NewTwilioService creates a new TwilioService wrapping the given Sender.
func NewTwilioService(client twiliosms.Sender) *TwilioService {
	return &TwilioService{
		client:   client,
		registry: NewChoiceRegistry(),
		receipts: make(chan models.Receipt, DefaultChannelBufferSize),
		events:   make(chan models.InboundEvent, DefaultChannelBufferSize),
		done:     make(chan struct{}),
	}
}

// ValidateAndCanonicalizeRecipient validates an SMS phone number.
func (s *TwilioService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return canonicalizePhone(recipient)
}

// Start is a no-op; inbound traffic arrives via the webhook handler.
func (s *TwilioService) Start(ctx context.Context) error {
	return nil
}

// Stop closes channels and stops the service.
func (s *TwilioService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.done)

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(s.receipts)
		close(s.events)
	}()

	return nil
}

// SendText sends an SMS and emits a sent receipt.
func (s *TwilioService) SendText(ctx context.Context, to string, body string) error {
	s.mu.RLock()
	if s.stopped {
		s.mu.RUnlock()
		return ErrServiceStopped
	}
	s.mu.RUnlock()

	canonicalTo, err := canonicalizePhone(to)
	if err != nil {
		slog.Error("TwilioService SendText validation error", "error", err, "to", to)
		return err
	}

	if err := s.client.SendMessage(ctx, canonicalTo, body); err != nil {
		return err
	}

	s.safeEmitReceipt(models.Receipt{To: canonicalTo, Status: models.StatusTypeSent, Time: time.Now().Unix()})
	return nil
}

// SendChoices renders the options as a numbered list and remembers them so
// the numeric reply can be resolved to the matching token.
func (s *TwilioService) SendChoices(ctx context.Context, to string, prompt string, choices []models.Choice) error {
	if err := models.ValidateChoices(choices); err != nil {
		return err
	}
	canonicalTo, err := canonicalizePhone(to)
	if err != nil {
		return err
	}
	if err := s.SendText(ctx, canonicalTo, RenderNumbered(prompt, choices)); err != nil {
		return err
	}
	s.registry.Remember(canonicalTo, choices)
	return nil
}

// SendTyping is a no-op; SMS has no typing indicators.
func (s *TwilioService) SendTyping(ctx context.Context, to string) error {
	slog.Debug("TwilioService SendTyping ignored (unsupported)", "to", to)
	return nil
}

// Receipts returns the channel for sent message receipts.
func (s *TwilioService) Receipts() <-chan models.Receipt {
	return s.receipts
}

// Events returns the channel for classified inbound events.
func (s *TwilioService) Events() <-chan models.InboundEvent {
	return s.events
}

// WebhookHandler handles inbound Twilio webhook requests, classifying each
// message and emitting it as an InboundEvent.
func (s *TwilioService) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	slog.Info("Twilio webhook received")

	if err := r.ParseForm(); err != nil {
		slog.Error("Failed to parse Twilio webhook form", "error", err)
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	from := r.FormValue("From")
	body := r.FormValue("Body")
	if from == "" || body == "" {
		slog.Warn("Twilio webhook missing fields", "from_set", from != "", "body_set", body != "")
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	canonicalFrom, err := canonicalizePhone(from)
	if err != nil {
		slog.Warn("Twilio webhook invalid sender", "error", err, "from", from)
		http.Error(w, "Invalid sender", http.StatusBadRequest)
		return
	}

	kind, payload := ClassifyBody(s.registry, canonicalFrom, body)
	if kind == models.EventSelection {
		s.registry.Clear(canonicalFrom)
	}

	s.safeEmitEvent(models.InboundEvent{
		From: canonicalFrom,
		Kind: kind,
		Body: payload,
		Time: time.Now().Unix(),
	})

	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *TwilioService) safeEmitReceipt(receipt models.Receipt) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		return
	}

	select {
	case s.receipts <- receipt:
	case <-time.After(DefaultChannelTimeout):
	}
}

func (s *TwilioService) safeEmitEvent(evt models.InboundEvent) {
	s.mu.RLock()
	stopped := s.stopped
	s.mu.RUnlock()
	if stopped {
		slog.Warn("TwilioService dropping inbound event (service stopped)", "from", evt.From)
		return
	}

	select {
	case s.events <- evt:
		slog.Debug("TwilioService emitted inbound event", "from", evt.From, "kind", evt.Kind)
	case <-time.After(DefaultChannelTimeout):
		slog.Warn("TwilioService events channel blocked, dropping event", "from", evt.From)
	}
}
