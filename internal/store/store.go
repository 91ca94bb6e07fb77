// Package store provides storage backends for EventPilot.
//
// It persists per-user conversation sessions and a local copy of the
// interaction log, with in-memory, SQLite, and PostgreSQL implementations.
package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// Store abstracts session and interaction persistence.
type Store interface {
	// GetSession returns the session for a user, or nil when none exists.
	GetSession(userID string) (*models.Session, error)
	// SaveSession inserts or replaces a session.
	SaveSession(session models.Session) error
	// DeleteSession removes a session; deleting a missing session is not an error.
	DeleteSession(userID string) error
	// ListSessions returns all stored sessions.
	ListSessions() ([]models.Session, error)

	// AddInteraction appends one completed turn to the local interaction log.
	AddInteraction(entry models.LogEntry) error
	// ListInteractions returns up to limit most recent log entries (0 = all).
	ListInteractions(limit int) ([]models.LogEntry, error)

	// AddReceipt records a delivery event for an outbound message.
	AddReceipt(r models.Receipt) error
	// GetReceipts returns all recorded receipts.
	GetReceipts() ([]models.Receipt, error)

	// Close releases any underlying resources.
	Close() error
}

// Opts holds configuration options for persistent store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType reports "postgres" for PostgreSQL-style connection strings
// and "sqlite" for anything else (treated as a file path).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a mutex-guarded in-memory Store, used in tests and as a
// fallback when no DSN is configured.
type InMemoryStore struct {
	mu           sync.RWMutex
	sessions     map[string]models.Session
	interactions []models.LogEntry
	receipts     []models.Receipt
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.Session)}
}

// GetSession returns the session for a user, or nil when none exists.
func (s *InMemoryStore) GetSession(userID string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	if !ok {
		return nil, nil
	}
	copied := session
	return &copied, nil
}

// SaveSession inserts or replaces a session.
func (s *InMemoryStore) SaveSession(session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session
	return nil
}

// DeleteSession removes a session.
func (s *InMemoryStore) DeleteSession(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// ListSessions returns all stored sessions ordered by user id.
func (s *InMemoryStore) ListSessions() ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// AddInteraction appends one completed turn to the log.
func (s *InMemoryStore) AddInteraction(entry models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interactions = append(s.interactions, entry)
	return nil
}

// ListInteractions returns up to limit most recent entries (0 = all).
func (s *InMemoryStore) ListInteractions(limit int) ([]models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.interactions
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]models.LogEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// AddReceipt records a delivery event.
func (s *InMemoryStore) AddReceipt(r models.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

// GetReceipts returns all recorded receipts.
func (s *InMemoryStore) GetReceipts() ([]models.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Receipt, len(s.receipts))
	copy(out, s.receipts)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
