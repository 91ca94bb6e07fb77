package flow

import (
	"context"
	"testing"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/store"
)

func TestSessionManagerGetMissingReturnsNil(t *testing.T) {
	sm := NewSessionManager(store.NewInMemoryStore())
	session, err := sm.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if session != nil {
		t.Errorf("expected nil for missing session, got %+v", session)
	}
}

func TestSessionManagerGetOrCreate(t *testing.T) {
	sm := NewSessionManager(store.NewInMemoryStore())
	ctx := context.Background()

	session, err := sm.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if session.State != models.StateAwaitingCategory {
		t.Errorf("new session should start in AwaitingCategory, got %s", session.State)
	}
	if session.Turn != 1 {
		t.Errorf("new session should start at turn 1, got %d", session.Turn)
	}

	again, err := sm.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("second GetOrCreate: %v", err)
	}
	if again.CreatedAt != session.CreatedAt || again.Turn != session.Turn {
		t.Errorf("GetOrCreate should return the existing session, got %+v", again)
	}
}

func TestSessionManagerRestartAdvancesTurn(t *testing.T) {
	sm := NewSessionManager(store.NewInMemoryStore())
	ctx := context.Background()

	first, err := sm.GetOrCreate(ctx, "u1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	first.State = models.StateAwaitingDescription
	first.Category = models.CategoryWedding
	first.LastFollowUp = "some topic"
	if err := sm.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh, err := sm.Restart(ctx, "u1")
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if fresh.Turn != first.Turn+1 {
		t.Errorf("restart should advance the turn counter: %d -> %d", first.Turn, fresh.Turn)
	}
	if fresh.State != models.StateAwaitingCategory {
		t.Errorf("restart should reset to AwaitingCategory, got %s", fresh.State)
	}
	if fresh.Category != "" || fresh.LastFollowUp != "" {
		t.Errorf("restart should clear conversation context, got %+v", fresh)
	}
	if !fresh.CreatedAt.Equal(first.CreatedAt) {
		t.Error("restart should preserve the original creation time")
	}
}

func TestSessionManagerRestartWithoutPrior(t *testing.T) {
	sm := NewSessionManager(store.NewInMemoryStore())
	session, err := sm.Restart(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if session.Turn != 1 || session.State != models.StateAwaitingCategory {
		t.Errorf("fresh restart should yield turn 1 AwaitingCategory, got %+v", session)
	}
}

func TestSessionManagerTransitionValidation(t *testing.T) {
	sm := NewSessionManager(store.NewInMemoryStore())
	session := &models.Session{UserID: "u1", State: models.StateAwaitingCategory}

	if err := sm.Transition(session, models.StateAwaitingDescription); err != nil {
		t.Fatalf("valid transition rejected: %v", err)
	}
	if session.State != models.StateAwaitingDescription {
		t.Errorf("transition should mutate the session, got %s", session.State)
	}

	if err := sm.Transition(session, models.StateAwaitingCategory); err == nil {
		t.Error("expected invalid transition to be rejected")
	}
	if session.State != models.StateAwaitingDescription {
		t.Errorf("rejected transition must not mutate the session, got %s", session.State)
	}
}

func TestSessionManagerTerminatedIsAbsorbing(t *testing.T) {
	sm := NewSessionManager(store.NewInMemoryStore())
	session := &models.Session{UserID: "u1", State: models.StateTerminated}

	for _, to := range []models.SessionState{
		models.StateAwaitingCategory,
		models.StateAwaitingDescription,
		models.StateAwaitingFollowUp,
	} {
		if err := sm.Transition(session, to); err == nil {
			t.Errorf("terminated session transitioned to %s", to)
		}
	}
}
