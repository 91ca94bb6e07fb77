// Package store provides storage backends for EventPilot.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/EnigmaBots/EventPilot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions and the interaction log in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// GetSession returns the session for a user, or nil when none exists.
func (s *PostgresStore) GetSession(userID string) (*models.Session, error) {
	row := s.db.QueryRow(
		`SELECT user_id, state, category, last_description, last_followup, turn, created_at, updated_at
		 FROM sessions WHERE user_id = $1`, userID)
	session, err := scanSessionRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSession failed", "error", err, "userID", userID)
		return nil, fmt.Errorf("failed to get session for %s: %w", userID, err)
	}
	return session, nil
}

// SaveSession inserts or replaces a session.
func (s *PostgresStore) SaveSession(session models.Session) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (user_id, state, category, last_description, last_followup, turn, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (user_id) DO UPDATE SET
		   state = EXCLUDED.state, category = EXCLUDED.category,
		   last_description = EXCLUDED.last_description, last_followup = EXCLUDED.last_followup,
		   turn = EXCLUDED.turn, updated_at = EXCLUDED.updated_at`,
		session.UserID, string(session.State), nilIfEmpty(string(session.Category)),
		nilIfEmpty(session.LastDescription), nilIfEmpty(session.LastFollowUp),
		session.Turn, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "userID", session.UserID)
		return fmt.Errorf("failed to save session for %s: %w", session.UserID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "userID", session.UserID, "state", session.State)
	return nil
}

// DeleteSession removes a session.
func (s *PostgresStore) DeleteSession(userID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "userID", userID)
		return fmt.Errorf("failed to delete session for %s: %w", userID, err)
	}
	return nil
}

// ListSessions returns all stored sessions.
func (s *PostgresStore) ListSessions() ([]models.Session, error) {
	rows, err := s.db.Query(
		`SELECT user_id, state, category, last_description, last_followup, turn, created_at, updated_at
		 FROM sessions ORDER BY user_id`)
	if err != nil {
		slog.Error("PostgresStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

// AddInteraction appends one completed turn to the log.
func (s *PostgresStore) AddInteraction(entry models.LogEntry) error {
	_, err := s.db.Exec(
		`INSERT INTO interactions (user_id, category, input, output, timestamp) VALUES ($1, $2, $3, $4, $5)`,
		entry.UserID, string(entry.Category), entry.Input, entry.Output, entry.Timestamp)
	if err != nil {
		slog.Error("PostgresStore AddInteraction failed", "error", err, "userID", entry.UserID)
		return fmt.Errorf("failed to insert interaction for %s: %w", entry.UserID, err)
	}
	return nil
}

// ListInteractions returns up to limit most recent entries (0 = all).
func (s *PostgresStore) ListInteractions(limit int) ([]models.LogEntry, error) {
	query := `SELECT user_id, category, input, output, timestamp FROM interactions ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		slog.Error("PostgresStore ListInteractions query failed", "error", err)
		return nil, fmt.Errorf("failed to query interactions: %w", err)
	}
	defer rows.Close()
	return collectLogEntries(rows)
}

// AddReceipt records a delivery event.
func (s *PostgresStore) AddReceipt(r models.Receipt) error {
	_, err := s.db.Exec(`INSERT INTO receipts (recipient, status, time) VALUES ($1, $2, $3)`, r.To, string(r.Status), r.Time)
	if err != nil {
		slog.Error("PostgresStore AddReceipt failed", "error", err, "to", r.To)
		return fmt.Errorf("failed to insert receipt for %s: %w", r.To, err)
	}
	return nil
}

// GetReceipts returns all recorded receipts.
func (s *PostgresStore) GetReceipts() ([]models.Receipt, error) {
	rows, err := s.db.Query(`SELECT recipient, status, time FROM receipts`)
	if err != nil {
		slog.Error("PostgresStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer rows.Close()
	return collectReceipts(rows)
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
