package messaging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// ChoiceRegistry remembers the options most recently presented to each
// recipient so that transports without native buttons can resolve a numeric
// reply back into the selection token it stands for. Only the latest set per
// recipient is kept; presenting new choices replaces the old ones.
type ChoiceRegistry struct {
	pending map[string][]models.Choice
	mu      sync.RWMutex
}

// NewChoiceRegistry creates an empty ChoiceRegistry.
func NewChoiceRegistry() *ChoiceRegistry {
	return &ChoiceRegistry{
		pending: make(map[string][]models.Choice),
	}
}

// Remember stores the choice set just presented to a recipient.
func (cr *ChoiceRegistry) Remember(recipient string, choices []models.Choice) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	snapshot := make([]models.Choice, len(choices))
	copy(snapshot, choices)
	cr.pending[recipient] = snapshot
	slog.Debug("ChoiceRegistry remembered choices", "recipient", recipient, "count", len(choices))
}

// Resolve maps a reply to a pending choice token. It accepts the 1-based
// option number or an exact label match. The pending set stays registered so
// a mistyped reply can be retried.
func (cr *ChoiceRegistry) Resolve(recipient, reply string) (string, bool) {
	cr.mu.RLock()
	choices, exists := cr.pending[recipient]
	cr.mu.RUnlock()
	if !exists {
		return "", false
	}

	reply = strings.TrimSpace(reply)
	if n, err := strconv.Atoi(reply); err == nil {
		if n >= 1 && n <= len(choices) {
			return choices[n-1].Token, true
		}
		return "", false
	}
	for _, c := range choices {
		if strings.EqualFold(reply, c.Label) {
			return c.Token, true
		}
	}
	return "", false
}

// HasPending reports whether a recipient has an unanswered choice set.
func (cr *ChoiceRegistry) HasPending(recipient string) bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	_, exists := cr.pending[recipient]
	return exists
}

// Clear drops the pending choice set for a recipient.
func (cr *ChoiceRegistry) Clear(recipient string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	delete(cr.pending, recipient)
}

// Count returns the number of recipients with pending choices.
func (cr *ChoiceRegistry) Count() int {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return len(cr.pending)
}

// RenderNumbered formats a prompt plus its options as a numbered list for
// transports without native buttons.
func RenderNumbered(prompt string, choices []models.Choice) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n")
	for i, c := range choices {
		b.WriteString(fmt.Sprintf("\n%d. %s", i+1, c.Label))
	}
	b.WriteString("\n\nReply with the number of your choice.")
	return b.String()
}
