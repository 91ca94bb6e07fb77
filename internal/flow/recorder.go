package flow

import (
	"context"
	"log/slog"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/store"
)

// StoreRecorder keeps a local copy of the interaction log in the Store.
// Like every Recorder it swallows failures: a broken log never breaks a
// conversation.
type StoreRecorder struct {
	store store.Store
}

// NewStoreRecorder creates a Recorder backed by the given store.
func NewStoreRecorder(st store.Store) *StoreRecorder {
	return &StoreRecorder{store: st}
}

// Record appends the entry, logging and swallowing any store fault.
func (r *StoreRecorder) Record(ctx context.Context, entry models.LogEntry) {
	if err := r.store.AddInteraction(entry); err != nil {
		slog.Warn("StoreRecorder append failed", "error", err, "userID", entry.UserID)
	}
}

// MultiRecorder fans one entry out to several recorders.
type MultiRecorder []Recorder

// Record forwards the entry to every recorder in order.
func (m MultiRecorder) Record(ctx context.Context, entry models.LogEntry) {
	for _, r := range m {
		r.Record(ctx, entry)
	}
}
