// Package messaging provides the pluggable chat transport abstraction and the
// router that feeds inbound events into the conversation engine.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// Constants for messaging service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for receipt and event channels
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
)

// ErrServiceStopped is returned when an operation is attempted on a stopped service.
var ErrServiceStopped = errors.New("messaging service is stopped")

// phoneNumberRegex strips everything but digits from a phone-style recipient.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// canonicalizePhone validates and canonicalizes a phone-style recipient by
// removing all non-numeric characters. Shared by the phone-based transports.
func canonicalizePhone(recipient string) (string, error) {
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}

	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < 6 {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum 6 digits required)", canonical)
	}

	if recipient != canonical {
		slog.Debug("canonicalized phone recipient", "original", recipient, "canonical", canonical)
	}
	return canonical, nil
}

// Service defines a pluggable chat transport.
// It sends the three outbound shapes the conversation engine produces and
// surfaces inbound user activity as a channel of InboundEvents.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient
	// identifier. Each transport implements its own recipient rules.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendText sends a plain text message to a recipient.
	SendText(ctx context.Context, to string, body string) error

	// SendChoices presents a prompt with selectable options. Transports
	// without native buttons render a numbered list and resolve numeric
	// replies back into selection tokens.
	SendChoices(ctx context.Context, to string, prompt string, choices []models.Choice) error

	// SendTyping signals a typing indicator where the transport supports one.
	// Best effort; transports without the concept return nil.
	SendTyping(ctx context.Context, to string) error

	// Start begins any background processing (e.g., polling for updates).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Receipts returns a channel of delivery events (sent, delivered, read).
	Receipts() <-chan models.Receipt

	// Events returns a channel of classified inbound user events.
	Events() <-chan models.InboundEvent
}
