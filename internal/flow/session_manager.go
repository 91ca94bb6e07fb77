// Package flow provides concrete implementations of session state management.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/store"
)

// SessionManager owns session lifecycle and transition validation on top of
// a Store backend.
type SessionManager struct {
	store store.Store
}

// NewSessionManager creates a new SessionManager backed by a Store.
func NewSessionManager(st store.Store) *SessionManager {
	slog.Debug("Creating SessionManager")
	return &SessionManager{store: st}
}

// Get retrieves the session for a user, or nil when none exists.
func (sm *SessionManager) Get(ctx context.Context, userID string) (*models.Session, error) {
	session, err := sm.store.GetSession(userID)
	if err != nil {
		slog.Error("SessionManager Get error", "error", err, "userID", userID)
		return nil, err
	}
	return session, nil
}

// GetOrCreate retrieves the session for a user, creating one in
// AwaitingCategory if none exists yet.
func (sm *SessionManager) GetOrCreate(ctx context.Context, userID string) (*models.Session, error) {
	session, err := sm.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}

	now := time.Now()
	session = &models.Session{
		UserID:    userID,
		State:     models.StateAwaitingCategory,
		Turn:      1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := sm.store.SaveSession(*session); err != nil {
		slog.Error("SessionManager GetOrCreate save error", "error", err, "userID", userID)
		return nil, err
	}
	slog.Info("SessionManager created session", "userID", userID)
	return session, nil
}

// Save persists a mutated session, refreshing its update timestamp.
func (sm *SessionManager) Save(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now()
	if err := sm.store.SaveSession(*session); err != nil {
		slog.Error("SessionManager Save error", "error", err, "userID", session.UserID, "state", session.State)
		return err
	}
	slog.Debug("SessionManager Save succeeded", "userID", session.UserID, "state", session.State, "turn", session.Turn)
	return nil
}

// Restart replaces a user's session wholesale: a fresh AwaitingCategory
// session whose turn counter moves past the old one, so any in-flight
// generation result for the previous conversation is dropped on arrival.
func (sm *SessionManager) Restart(ctx context.Context, userID string) (*models.Session, error) {
	old, err := sm.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var turn int64 = 1
	created := time.Now()
	if old != nil {
		turn = old.Turn + 1
		created = old.CreatedAt
	}
	session := &models.Session{
		UserID:    userID,
		State:     models.StateAwaitingCategory,
		Turn:      turn,
		CreatedAt: created,
		UpdatedAt: time.Now(),
	}
	if err := sm.store.SaveSession(*session); err != nil {
		slog.Error("SessionManager Restart save error", "error", err, "userID", userID)
		return nil, err
	}
	slog.Info("SessionManager restarted session", "userID", userID, "turn", turn)
	return session, nil
}

// Transition validates and applies a state change on the given session. The
// session is mutated but not persisted; callers Save once the whole turn's
// mutations are in place.
func (sm *SessionManager) Transition(session *models.Session, to models.SessionState) error {
	if !models.CanTransition(session.State, to) {
		err := fmt.Errorf("invalid state transition for %s: %s -> %s", session.UserID, session.State, to)
		slog.Warn("SessionManager invalid transition", "userID", session.UserID, "from", session.State, "to", to)
		return err
	}
	slog.Info("SessionManager transition", "userID", session.UserID, "from", session.State, "to", to)
	session.State = to
	return nil
}
