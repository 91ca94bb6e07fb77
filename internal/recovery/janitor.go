package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/store"
)

// DefaultStaleAfter is how long an untouched session survives before the
// janitor removes it. A removed session means the user's next message starts
// a fresh conversation.
const DefaultStaleAfter = 7 * 24 * time.Hour

// SessionJanitor removes sessions that have not been updated within the
// staleness window. It runs once at boot through the recovery manager and
// periodically through the scheduler.
type SessionJanitor struct {
	store      store.Store
	staleAfter time.Duration
}

// JanitorOption configures a SessionJanitor.
type JanitorOption func(*SessionJanitor)

// WithStaleAfter overrides the staleness window.
func WithStaleAfter(d time.Duration) JanitorOption {
	return func(j *SessionJanitor) { j.staleAfter = d }
}

// NewSessionJanitor creates a janitor over the given store.
func NewSessionJanitor(st store.Store, opts ...JanitorOption) *SessionJanitor {
	j := &SessionJanitor{store: st, staleAfter: DefaultStaleAfter}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RecoverState purges stale sessions at application startup.
func (j *SessionJanitor) RecoverState(ctx context.Context, registry *Registry) error {
	purged, err := j.PurgeStale(ctx)
	if err != nil {
		return fmt.Errorf("session janitor recovery failed: %w", err)
	}
	slog.Info("SessionJanitor boot purge completed", "purged", purged)
	return nil
}

// PurgeStale deletes every session older than the staleness window and
// returns how many were removed.
func (j *SessionJanitor) PurgeStale(ctx context.Context) (int, error) {
	sessions, err := j.store.ListSessions()
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	cutoff := time.Now().Add(-j.staleAfter)
	purged := 0
	for _, session := range sessions {
		if ctx.Err() != nil {
			return purged, ctx.Err()
		}
		if session.UpdatedAt.After(cutoff) {
			continue
		}
		if err := j.store.DeleteSession(session.UserID); err != nil {
			slog.Warn("SessionJanitor failed to delete stale session", "error", err, "userID", session.UserID)
			continue
		}
		slog.Debug("SessionJanitor purged stale session", "userID", session.UserID, "state", session.State, "updated_at", session.UpdatedAt)
		purged++
	}
	return purged, nil
}

// Sweep is the scheduler entrypoint: it purges and only logs failures.
func (j *SessionJanitor) Sweep() {
	purged, err := j.PurgeStale(context.Background())
	if err != nil {
		slog.Error("SessionJanitor sweep failed", "error", err)
		return
	}
	if purged > 0 {
		slog.Info("SessionJanitor sweep completed", "purged", purged)
	}
}
