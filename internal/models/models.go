// Package models defines the core data structures for EventPilot.
//
// It includes the per-user conversation session, inbound chat events, prompt
// specifications, formatted bullet plans, and interaction log entries shared
// across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// EventCategory identifies the kind of event a user is planning.
type EventCategory string

const (
	// CategoryBirthday is a birthday celebration.
	CategoryBirthday EventCategory = "birthday"
	// CategoryBusiness is a corporate or professional event.
	CategoryBusiness EventCategory = "business"
	// CategoryWedding is a wedding celebration.
	CategoryWedding EventCategory = "wedding"
)

// Categories lists all selectable event categories in display order.
var Categories = []EventCategory{CategoryBirthday, CategoryBusiness, CategoryWedding}

// ParseEventCategory normalizes a selection token into an EventCategory.
func ParseEventCategory(token string) (EventCategory, bool) {
	switch EventCategory(strings.ToLower(strings.TrimSpace(token))) {
	case CategoryBirthday:
		return CategoryBirthday, true
	case CategoryBusiness:
		return CategoryBusiness, true
	case CategoryWedding:
		return CategoryWedding, true
	default:
		return "", false
	}
}

// Label returns the decorated display label for a category.
func (c EventCategory) Label() string {
	switch c {
	case CategoryBirthday:
		return "🎂 Birthday"
	case CategoryBusiness:
		return "💼 Business"
	case CategoryWedding:
		return "💍 Wedding"
	default:
		return string(c)
	}
}

// Title returns the capitalized category name for headers.
func (c EventCategory) Title() string {
	s := string(c)
	if s == "" {
		return "Event"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Validation constants for input validation
const (
	// MaxDescriptionLength defines the maximum accepted length for a free-text event description
	MaxDescriptionLength = 2000
	// MaxChoiceLabelLength defines the maximum allowed length for choice labels
	MaxChoiceLabelLength = 100
	// MaxChoicesCount defines the maximum number of choices presented at once
	MaxChoicesCount = 10
)

// Error variables for better error handling and testability
var (
	ErrEmptyRecipient     = errors.New("recipient cannot be empty")
	ErrEmptyBody          = errors.New("message body cannot be empty")
	ErrUnknownCategory    = errors.New("unknown event category")
	ErrDescriptionTooLong = errors.New("event description exceeds maximum length")
	ErrEmptyChoices       = errors.New("at least one choice is required")
	ErrTooManyChoices     = errors.New("too many choices")
	ErrChoiceLabelTooLong = errors.New("choice label exceeds maximum length")
)

// EventKind identifies the type of an inbound chat event.
type EventKind string

const (
	// EventCommand is a slash command such as start, help, or exit.
	EventCommand EventKind = "command"
	// EventSelection is a button press carrying an opaque token.
	EventSelection EventKind = "selection"
	// EventText is free-text user input.
	EventText EventKind = "text"
)

// Well-known command names. Exact spellings are transport policy, not contract.
const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandExit  = "exit"
)

// InboundEvent represents one incoming chat event from a user.
type InboundEvent struct {
	From string    `json:"from"`
	Kind EventKind `json:"kind"`
	Body string    `json:"body"` // command name, selection token, or message text
	Time int64     `json:"time"`
}

// Choice represents a selectable option presented to the user.
type Choice struct {
	Label string `json:"label"` // text shown on the button
	Token string `json:"token"` // opaque token returned on selection
}

// ValidateChoices checks a choice set before it is presented.
func ValidateChoices(choices []Choice) error {
	if len(choices) == 0 {
		return ErrEmptyChoices
	}
	if len(choices) > MaxChoicesCount {
		return ErrTooManyChoices
	}
	for _, c := range choices {
		if c.Label == "" {
			return ErrEmptyBody
		}
		if len(c.Label) > MaxChoiceLabelLength {
			return ErrChoiceLabelTooLong
		}
	}
	return nil
}

// PromptSpec is a fully assembled generation request.
type PromptSpec struct {
	System string `json:"system"` // persona and style directive
	User   string `json:"user"`   // interpolated conversation content
}

// BulletPlan is the formatted output of one generation call. It is derived,
// never persisted, and lives only for the duration of one reply.
type BulletPlan struct {
	Lines      []string `json:"lines"`
	Degenerate bool     `json:"degenerate"` // true when only the fallback line survived
}

// LogEntry is one record appended to the interaction log.
type LogEntry struct {
	UserID    string        `json:"user_id"`
	Category  EventCategory `json:"category"`
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Timestamp time.Time     `json:"timestamp"`
}

// MessageStatus represents the delivery status of an outbound message.
type MessageStatus string

const (
	// StatusTypeSent indicates the message was handed to the transport.
	StatusTypeSent MessageStatus = "sent"
	// StatusTypeDelivered indicates the transport confirmed delivery.
	StatusTypeDelivered MessageStatus = "delivered"
	// StatusTypeRead indicates the recipient read the message.
	StatusTypeRead MessageStatus = "read"
)

// Receipt represents a delivery event for an outbound message.
type Receipt struct {
	To     string        `json:"to"`
	Status MessageStatus `json:"status"`
	Time   int64         `json:"time"`
}
