// Package flow implements the EventPilot conversation state machine: it
// tracks where each user is in the planning dialogue, drives transitions on
// incoming events, runs the generation pipeline, and decides which follow-up
// choices to present next.
package flow

import (
	"context"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// Messenger is the outbound side of the chat transport as the flow sees it.
// Implementations live in the messaging package.
type Messenger interface {
	// SendText sends a plain text message.
	SendText(ctx context.Context, to string, body string) error
	// SendChoices sends a prompt with selectable options.
	SendChoices(ctx context.Context, to string, prompt string, choices []models.Choice) error
	// SendTyping signals that a reply is being prepared. Best effort.
	SendTyping(ctx context.Context, to string) error
}

// Recorder appends completed turns to an interaction log. Implementations
// must never return an error to the caller: underlying I/O faults are logged
// and swallowed so logging can never abort a conversation.
type Recorder interface {
	Record(ctx context.Context, entry models.LogEntry)
}
