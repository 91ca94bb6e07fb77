// Package testutil provides common fakes and helpers for EventPilot tests.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// Outbound message kinds recorded by FakeMessenger.
const (
	KindText    = "text"
	KindChoices = "choices"
	KindTyping  = "typing"
)

// SentMessage is one outbound operation captured by FakeMessenger.
type SentMessage struct {
	To      string
	Kind    string
	Body    string
	Choices []models.Choice
}

// FakeMessenger records outbound operations in order. It satisfies
// flow.Messenger and is safe for concurrent use.
type FakeMessenger struct {
	mu       sync.Mutex
	Messages []SentMessage
	// FailSends makes every send return an error, for transport-fault tests.
	FailSends bool
}

// ErrSendFailed is returned by FakeMessenger when FailSends is set.
var ErrSendFailed = errors.New("send failed")

// SendText records a text send.
func (m *FakeMessenger) SendText(ctx context.Context, to, body string) error {
	return m.append(SentMessage{To: to, Kind: KindText, Body: body})
}

// SendChoices records a choice-prompt send.
func (m *FakeMessenger) SendChoices(ctx context.Context, to, prompt string, choices []models.Choice) error {
	return m.append(SentMessage{To: to, Kind: KindChoices, Body: prompt, Choices: choices})
}

// SendTyping records a typing indicator.
func (m *FakeMessenger) SendTyping(ctx context.Context, to string) error {
	return m.append(SentMessage{To: to, Kind: KindTyping})
}

func (m *FakeMessenger) append(msg SentMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSends {
		return ErrSendFailed
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

// Sent returns a snapshot of all captured messages.
func (m *FakeMessenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.Messages))
	copy(out, m.Messages)
	return out
}

// SentTo returns captured messages addressed to one recipient.
func (m *FakeMessenger) SentTo(to string) []SentMessage {
	var out []SentMessage
	for _, msg := range m.Sent() {
		if msg.To == to {
			out = append(out, msg)
		}
	}
	return out
}

// Reset clears captured messages.
func (m *FakeMessenger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = nil
}

// FakeGenerator satisfies genai.ClientInterface with canned output.
type FakeGenerator struct {
	mu       sync.Mutex
	Response string
	Err      error
	// Hook, when set, runs inside Generate before returning. Used to
	// simulate user actions racing an in-flight generation call.
	Hook    func()
	Prompts []models.PromptSpec
}

// Generate returns the canned response or error and records the prompt.
func (g *FakeGenerator) Generate(ctx context.Context, prompt models.PromptSpec) (string, error) {
	g.mu.Lock()
	g.Prompts = append(g.Prompts, prompt)
	hook := g.Hook
	g.mu.Unlock()
	if hook != nil {
		hook()
	}
	if g.Err != nil {
		return "", g.Err
	}
	return g.Response, nil
}

// Calls returns how many times Generate was invoked.
func (g *FakeGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

// FakeRecorder captures interaction log entries.
type FakeRecorder struct {
	mu      sync.Mutex
	Entries []models.LogEntry
}

// Record captures the entry.
func (r *FakeRecorder) Record(ctx context.Context, entry models.LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, entry)
}

// Recorded returns a snapshot of captured entries.
func (r *FakeRecorder) Recorded() []models.LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.LogEntry, len(r.Entries))
	copy(out, r.Entries)
	return out
}
