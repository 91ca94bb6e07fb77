package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

type mockAppender struct {
	rows [][]interface{}
	err  error
}

func (m *mockAppender) Append(ctx context.Context, values [][]interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, values...)
	return nil
}

func TestRecorderAppendsRow(t *testing.T) {
	mock := &mockAppender{}
	r := newRecorderWithAppender(mock)

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r.Record(context.Background(), models.LogEntry{
		UserID:    "u1",
		Category:  models.CategoryBirthday,
		Input:     "jungle theme",
		Output:    "🎉 Get a jungle cake.",
		Timestamp: ts,
	})

	if len(mock.rows) != 1 {
		t.Fatalf("expected one row, got %d", len(mock.rows))
	}
	row := mock.rows[0]
	if len(row) != 5 {
		t.Fatalf("expected 5 columns, got %d", len(row))
	}
	if row[0] != "u1" || row[1] != "birthday" || row[2] != "jungle theme" {
		t.Errorf("unexpected row: %+v", row)
	}
	if row[4] != ts.Format(time.RFC3339) {
		t.Errorf("timestamp column = %v", row[4])
	}
}

func TestRecorderSwallowsErrors(t *testing.T) {
	r := newRecorderWithAppender(&mockAppender{err: errors.New("quota exceeded")})
	// Must not panic or propagate.
	r.Record(context.Background(), models.LogEntry{UserID: "u1"})
}

func TestNewRecorderMissingConfig(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("SHEETS_SPREADSHEET_ID", "")

	if _, err := NewRecorder(context.Background()); err == nil {
		t.Error("expected error without spreadsheet ID")
	}
	if _, err := NewRecorder(context.Background(), WithSpreadsheetID("sheet123")); err == nil {
		t.Error("expected error without credentials")
	}
}
