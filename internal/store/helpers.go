package store

import (
	"database/sql"
	"fmt"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanSessionRow scans a Session from a single sql.Row.
func scanSessionRow(row *sql.Row) (*models.Session, error) {
	var session models.Session
	var state string
	var category, lastDescription, lastFollowUp sql.NullString
	err := row.Scan(&session.UserID, &state, &category, &lastDescription, &lastFollowUp,
		&session.Turn, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	session.State = models.SessionState(state)
	session.Category = models.EventCategory(category.String)
	session.LastDescription = lastDescription.String
	session.LastFollowUp = lastFollowUp.String
	return &session, nil
}

// collectSessions drains session rows.
func collectSessions(rows *sql.Rows) ([]models.Session, error) {
	var sessions []models.Session
	for rows.Next() {
		var session models.Session
		var state string
		var category, lastDescription, lastFollowUp sql.NullString
		if err := rows.Scan(&session.UserID, &state, &category, &lastDescription, &lastFollowUp,
			&session.Turn, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		session.State = models.SessionState(state)
		session.Category = models.EventCategory(category.String)
		session.LastDescription = lastDescription.String
		session.LastFollowUp = lastFollowUp.String
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return sessions, nil
}

// collectLogEntries drains interaction rows.
func collectLogEntries(rows *sql.Rows) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	for rows.Next() {
		var entry models.LogEntry
		var category sql.NullString
		if err := rows.Scan(&entry.UserID, &category, &entry.Input, &entry.Output, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan interaction row: %w", err)
		}
		entry.Category = models.EventCategory(category.String)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate interaction rows: %w", err)
	}
	return entries, nil
}

// collectReceipts drains receipt rows.
func collectReceipts(rows *sql.Rows) ([]models.Receipt, error) {
	var receipts []models.Receipt
	for rows.Next() {
		var r models.Receipt
		var status string
		if err := rows.Scan(&r.To, &status, &r.Time); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		r.Status = models.MessageStatus(status)
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}
