package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// mockService is an in-memory Service for router tests.
type mockService struct {
	mu       sync.Mutex
	sent     []string
	events   chan models.InboundEvent
	receipts chan models.Receipt
}

func newMockService() *mockService {
	return &mockService{
		events:   make(chan models.InboundEvent, DefaultChannelBufferSize),
		receipts: make(chan models.Receipt, DefaultChannelBufferSize),
	}
}

func (m *mockService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	if recipient == "" {
		return "", errors.New("recipient cannot be empty")
	}
	return recipient, nil
}

func (m *mockService) SendText(ctx context.Context, to string, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+":"+body)
	return nil
}

func (m *mockService) SendChoices(ctx context.Context, to string, prompt string, choices []models.Choice) error {
	return m.SendText(ctx, to, prompt)
}

func (m *mockService) SendTyping(ctx context.Context, to string) error { return nil }
func (m *mockService) Start(ctx context.Context) error                 { return nil }
func (m *mockService) Stop() error                                     { return nil }
func (m *mockService) Receipts() <-chan models.Receipt                 { return m.receipts }
func (m *mockService) Events() <-chan models.InboundEvent              { return m.events }

func (m *mockService) sentMessages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

func TestRouterDispatchesToHandler(t *testing.T) {
	svc := newMockService()
	var mu sync.Mutex
	var got []models.InboundEvent
	handler := HandlerFunc(func(ctx context.Context, evt models.InboundEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, evt)
		return nil
	})

	r := NewRouter(svc, handler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	svc.events <- models.InboundEvent{From: "u1", Kind: models.EventText, Body: "hello"}
	svc.events <- models.InboundEvent{From: "u1", Kind: models.EventText, Body: "world"}
	close(svc.events)
	r.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Body != "hello" || got[1].Body != "world" {
		t.Errorf("events out of order: %+v", got)
	}
}

func TestRouterSerializesPerUser(t *testing.T) {
	svc := newMockService()
	const perUser = 20

	var mu sync.Mutex
	order := make(map[string][]int)
	handler := HandlerFunc(func(ctx context.Context, evt models.InboundEvent) error {
		var n int
		fmt.Sscanf(evt.Body, "%d", &n)
		mu.Lock()
		order[evt.From] = append(order[evt.From], n)
		mu.Unlock()
		return nil
	})

	r := NewRouter(svc, handler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	// Interleave two users; each user's events must stay in order.
	for i := 0; i < perUser; i++ {
		svc.events <- models.InboundEvent{From: "alice", Kind: models.EventText, Body: fmt.Sprintf("%d", i)}
		svc.events <- models.InboundEvent{From: "bob", Kind: models.EventText, Body: fmt.Sprintf("%d", i)}
	}
	close(svc.events)
	r.Stop()

	mu.Lock()
	defer mu.Unlock()
	for _, user := range []string{"alice", "bob"} {
		seen := order[user]
		if len(seen) != perUser {
			t.Fatalf("%s: expected %d events, got %d", user, perUser, len(seen))
		}
		for i, n := range seen {
			if n != i {
				t.Fatalf("%s: event %d arrived out of order (got %d)", user, i, n)
			}
		}
	}
}

func TestRouterSendsErrorReplyOnHandlerFailure(t *testing.T) {
	svc := newMockService()
	handler := HandlerFunc(func(ctx context.Context, evt models.InboundEvent) error {
		return errors.New("boom")
	})

	r := NewRouter(svc, handler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	svc.events <- models.InboundEvent{From: "u1", Kind: models.EventText, Body: "hi"}
	close(svc.events)
	r.Stop()

	sent := svc.sentMessages()
	if len(sent) != 1 || sent[0] != "u1:"+errorReplyMessage {
		t.Errorf("expected error reply, got %+v", sent)
	}
}

func TestRouterDropsInvalidSender(t *testing.T) {
	svc := newMockService()
	called := false
	handler := HandlerFunc(func(ctx context.Context, evt models.InboundEvent) error {
		called = true
		return nil
	})

	r := NewRouter(svc, handler)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	svc.events <- models.InboundEvent{From: "", Kind: models.EventText, Body: "hi"}
	close(svc.events)
	r.Stop()

	if called {
		t.Error("handler should not run for invalid sender")
	}
}

func TestRouterStopIsIdempotent(t *testing.T) {
	svc := newMockService()
	r := NewRouter(svc, HandlerFunc(func(ctx context.Context, evt models.InboundEvent) error { return nil }))
	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	close(svc.events)
	cancel()
	r.Stop()
	r.Stop()
}

func TestClassifyBody(t *testing.T) {
	registry := NewChoiceRegistry()
	registry.Remember("u1", []models.Choice{{Label: "🎂 Birthday", Token: "birthday"}})

	tests := []struct {
		body string
		kind models.EventKind
		out  string
	}{
		{"/start", models.EventCommand, "start"},
		{"  /HELP  ", models.EventCommand, "help"},
		{"1", models.EventSelection, "birthday"},
		{"🎂 birthday", models.EventSelection, "birthday"},
		{"2", models.EventText, "2"},
		{"plan my party", models.EventText, "plan my party"},
		{"/", models.EventText, "/"},
	}
	for _, tt := range tests {
		kind, out := ClassifyBody(registry, "u1", tt.body)
		if kind != tt.kind || out != tt.out {
			t.Errorf("ClassifyBody(%q) = %s, %q; want %s, %q", tt.body, kind, out, tt.kind, tt.out)
		}
	}
}

func TestClassifyBodyNilRegistry(t *testing.T) {
	kind, out := ClassifyBody(nil, "u1", "1")
	if kind != models.EventText || out != "1" {
		t.Errorf("ClassifyBody without registry = %s, %q", kind, out)
	}
}

func TestRouterActiveUsers(t *testing.T) {
	svc := newMockService()
	r := NewRouter(svc, HandlerFunc(func(ctx context.Context, evt models.InboundEvent) error { return nil }))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)

	svc.events <- models.InboundEvent{From: "alice", Kind: models.EventText, Body: "hi"}
	svc.events <- models.InboundEvent{From: "bob", Kind: models.EventText, Body: "hi"}

	deadline := time.Now().Add(2 * time.Second)
	for r.ActiveUsers() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := r.ActiveUsers(); n != 2 {
		t.Errorf("expected 2 active users, got %d", n)
	}
	close(svc.events)
	r.Stop()
}
