package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/store"
)

type fakeRecoverable struct {
	err    error
	called bool
}

func (f *fakeRecoverable) RecoverState(ctx context.Context, registry *Registry) error {
	f.called = true
	return f.err
}

func TestManagerRecoverAll(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	ok := &fakeRecoverable{}
	m.RegisterRecoverable(ok)

	if err := m.RecoverAll(context.Background()); err != nil {
		t.Fatalf("RecoverAll: %v", err)
	}
	if !ok.called {
		t.Error("recoverable was not invoked")
	}
}

func TestManagerRecoverAllReportsErrors(t *testing.T) {
	m := NewManager(store.NewInMemoryStore())
	m.RegisterRecoverable(&fakeRecoverable{err: errors.New("broken")})
	m.RegisterRecoverable(&fakeRecoverable{})

	if err := m.RecoverAll(context.Background()); err == nil {
		t.Error("expected aggregated error")
	}
}

func saveSessionAged(t *testing.T, st store.Store, userID string, age time.Duration) {
	t.Helper()
	now := time.Now()
	err := st.SaveSession(models.Session{
		UserID:    userID,
		State:     models.StateAwaitingDescription,
		Turn:      1,
		CreatedAt: now.Add(-age),
		UpdatedAt: now.Add(-age),
	})
	if err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func TestSessionJanitorPurgesStale(t *testing.T) {
	st := store.NewInMemoryStore()
	saveSessionAged(t, st, "fresh", time.Hour)
	saveSessionAged(t, st, "stale", 10*24*time.Hour)

	j := NewSessionJanitor(st)
	purged, err := j.PurgeStale(context.Background())
	if err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged, got %d", purged)
	}

	if s, _ := st.GetSession("fresh"); s == nil {
		t.Error("fresh session was purged")
	}
	if s, _ := st.GetSession("stale"); s != nil {
		t.Error("stale session survived")
	}
}

func TestSessionJanitorCustomWindow(t *testing.T) {
	st := store.NewInMemoryStore()
	saveSessionAged(t, st, "u1", 2*time.Hour)

	j := NewSessionJanitor(st, WithStaleAfter(time.Hour))
	purged, err := j.PurgeStale(context.Background())
	if err != nil {
		t.Fatalf("PurgeStale: %v", err)
	}
	if purged != 1 {
		t.Errorf("expected 1 purged with narrow window, got %d", purged)
	}
}

func TestSessionJanitorViaManager(t *testing.T) {
	st := store.NewInMemoryStore()
	saveSessionAged(t, st, "stale", 30*24*time.Hour)

	m := NewManager(st)
	m.RegisterRecoverable(NewSessionJanitor(st))
	if err := m.RecoverAll(context.Background()); err != nil {
		t.Fatalf("RecoverAll: %v", err)
	}
	if s, _ := st.GetSession("stale"); s != nil {
		t.Error("stale session survived boot recovery")
	}
}
