// Package sheets appends interaction log rows to a Google Sheets
// spreadsheet using a service account.
package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/EnigmaBots/EventPilot/internal/models"
)

// DefaultSheetName is the tab rows are appended to when none is configured.
const DefaultSheetName = "Interactions"

// Opts holds configuration options for the sheets recorder.
type Opts struct {
	CredentialsFile string // path to a service account JSON key
	CredentialsJSON []byte // raw service account JSON key, takes precedence over the file
	SpreadsheetID   string // target spreadsheet
	SheetName       string // target tab within the spreadsheet
}

// Option defines a configuration option for the sheets recorder.
type Option func(*Opts)

// WithCredentialsFile sets the path to the service account JSON key.
func WithCredentialsFile(path string) Option {
	return func(o *Opts) { o.CredentialsFile = path }
}

// WithCredentialsJSON sets the raw service account JSON key.
func WithCredentialsJSON(data []byte) Option {
	return func(o *Opts) { o.CredentialsJSON = data }
}

// WithSpreadsheetID sets the target spreadsheet.
func WithSpreadsheetID(id string) Option {
	return func(o *Opts) { o.SpreadsheetID = id }
}

// WithSheetName sets the target tab within the spreadsheet.
func WithSheetName(name string) Option {
	return func(o *Opts) { o.SheetName = name }
}

// rowAppender is the minimal Sheets API surface the recorder needs.
type rowAppender interface {
	Append(ctx context.Context, values [][]interface{}) error
}

// apiAppender appends rows through the real Sheets API service.
type apiAppender struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
}

func (a *apiAppender) Append(ctx context.Context, values [][]interface{}) error {
	rangeA1 := fmt.Sprintf("%s!A1", a.sheetName)
	valueRange := &sheets.ValueRange{Values: values}
	_, err := a.service.Spreadsheets.Values.
		Append(a.spreadsheetID, rangeA1, valueRange).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to spreadsheet %s: %w", a.spreadsheetID, err)
	}
	return nil
}

// Recorder appends one spreadsheet row per recorded interaction. Append
// failures are logged and swallowed so a broken sheet never breaks a
// conversation.
type Recorder struct {
	appender rowAppender
}

// NewRecorder creates a sheets-backed Recorder. The service account key
// falls back to the GOOGLE_APPLICATION_CREDENTIALS path and the spreadsheet
// to SHEETS_SPREADSHEET_ID when not set via options.
func NewRecorder(ctx context.Context, opts ...Option) (*Recorder, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if cfg.SpreadsheetID == "" {
		cfg.SpreadsheetID = os.Getenv("SHEETS_SPREADSHEET_ID")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = DefaultSheetName
	}
	slog.Debug("Sheets NewRecorder options set",
		"credentials_file_set", cfg.CredentialsFile != "",
		"credentials_json_set", len(cfg.CredentialsJSON) > 0,
		"spreadsheet_set", cfg.SpreadsheetID != "",
		"sheet", cfg.SheetName)

	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet ID must be provided")
	}

	keyJSON := cfg.CredentialsJSON
	if len(keyJSON) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, fmt.Errorf("service account credentials must be provided")
		}
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		keyJSON = data
	}

	jwtConfig, err := google.JWTConfigFromJSON(keyJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	service, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	slog.Info("Sheets recorder initialized", "spreadsheet", cfg.SpreadsheetID, "sheet", cfg.SheetName)
	return &Recorder{
		appender: &apiAppender{
			service:       service,
			spreadsheetID: cfg.SpreadsheetID,
			sheetName:     cfg.SheetName,
		},
	}, nil
}

// newRecorderWithAppender is used in tests to bypass the real API client.
func newRecorderWithAppender(a rowAppender) *Recorder {
	return &Recorder{appender: a}
}

// Record appends the entry as a row of user, category, input, output, and
// timestamp, logging and swallowing any API fault.
func (r *Recorder) Record(ctx context.Context, entry models.LogEntry) {
	row := []interface{}{
		entry.UserID,
		string(entry.Category),
		entry.Input,
		entry.Output,
		entry.Timestamp.Format(time.RFC3339),
	}
	if err := r.appender.Append(ctx, [][]interface{}{row}); err != nil {
		slog.Warn("Sheets recorder append failed", "error", err, "userID", entry.UserID)
	}
}
