package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/EnigmaBots/EventPilot/internal/bot"
	"github.com/EnigmaBots/EventPilot/internal/genai"
	"github.com/EnigmaBots/EventPilot/internal/sheets"
	"github.com/EnigmaBots/EventPilot/internal/store"
	"github.com/EnigmaBots/EventPilot/internal/telegram"
	"github.com/EnigmaBots/EventPilot/internal/util"
	"github.com/EnigmaBots/EventPilot/internal/whatsapp"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for EventPilot state data
	DefaultStateDir = "/var/lib/eventpilot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "eventpilot.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	transportOpts := buildTransportOptions(flags)
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	botOpts := buildBotOptions(flags)

	slog.Info("Bootstrapping EventPilot with configured modules")
	slog.Debug("Final configuration", "transport", *flags.transport, "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "addr", *flags.addr)
	if err := bot.Run(transportOpts, storeOpts, genaiOpts, botOpts); err != nil {
		slog.Error("EventPilot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("EventPilot exited successfully")
}

// Config holds environment configuration
type Config struct {
	Transport      string
	StateDir       string
	DatabaseURL    string
	WhatsAppDSN    string
	TelegramToken  string
	OpenAIKey      string
	Addr           string
	SweepCron      string
	SheetsID       string
	SheetsCreds    string
	Pace           time.Duration
	NumericCode    bool
	UpdateTimeout  int
}

// Flags holds command line flag values
type Flags struct {
	transport     *string
	stateDir      *string
	dbDSN         *string
	waDSN         *string
	telegramToken *string
	openaiKey     *string
	addr          *string
	sweepCron     *string
	sheetsID      *string
	sheetsCreds   *string
	qrOutput      *string
	numeric       *bool
	pace          *time.Duration
	updateTimeout *int
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		Transport:     os.Getenv("BOT_TRANSPORT"),
		StateDir:      os.Getenv("EVENTPILOT_STATE_DIR"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		WhatsAppDSN:   os.Getenv("WHATSAPP_DB_DSN"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		Addr:          os.Getenv("API_ADDR"),
		SweepCron:     os.Getenv("SWEEP_SCHEDULE"),
		SheetsID:      os.Getenv("SHEETS_SPREADSHEET_ID"),
		SheetsCreds:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		Pace:          util.ParseDurationEnv("BOT_PACE", 0),
		NumericCode:   util.ParseBoolEnv("WHATSAPP_NUMERIC_CODE", false),
		UpdateTimeout: util.ParseIntEnv("TELEGRAM_UPDATE_TIMEOUT", telegram.DefaultUpdateTimeout),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No EVENTPILOT_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.Transport == "" {
		config.Transport = bot.TransportTelegram
	}

	// Default to SQLite in the state directory when no database URL is set
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"BOT_TRANSPORT", config.Transport,
		"EVENTPILOT_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"TELEGRAM_BOT_TOKEN_SET", config.TelegramToken != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.Addr,
		"SWEEP_SCHEDULE", config.SweepCron,
		"SHEETS_SPREADSHEET_ID_SET", config.SheetsID != "")

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		transport:     flag.String("transport", config.Transport, "messaging transport: telegram, whatsapp, or twilio (overrides $BOT_TRANSPORT)"),
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for EventPilot data (overrides $EVENTPILOT_STATE_DIR)"),
		dbDSN:         flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL)"),
		waDSN:         flag.String("whatsapp-db-dsn", config.WhatsAppDSN, "database DSN for the whatsmeow session store (overrides $WHATSAPP_DB_DSN)"),
		telegramToken: flag.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_BOT_TOKEN)"),
		openaiKey:     flag.String("openai-api-key", config.OpenAIKey, "OpenAI-compatible API key (overrides $OPENAI_API_KEY)"),
		addr:          flag.String("api-addr", config.Addr, "operational HTTP server address (overrides $API_ADDR)"),
		sweepCron:     flag.String("sweep-cron", config.SweepCron, "cron schedule for the stale-session sweep (overrides $SWEEP_SCHEDULE)"),
		sheetsID:      flag.String("sheets-id", config.SheetsID, "Google Sheets spreadsheet ID for the interaction log (overrides $SHEETS_SPREADSHEET_ID)"),
		sheetsCreds:   flag.String("sheets-credentials", config.SheetsCreds, "service account key file for Google Sheets (overrides $GOOGLE_APPLICATION_CREDENTIALS)"),
		qrOutput:      flag.String("qr-output", "", "path to write the WhatsApp login QR code"),
		numeric:       flag.Bool("numeric-code", config.NumericCode, "use a numeric WhatsApp login code instead of a QR code (overrides $WHATSAPP_NUMERIC_CODE)"),
		pace:          flag.Duration("pace", config.Pace, "delay between bullet lines, zero keeps the default (overrides $BOT_PACE)"),
		updateTimeout: flag.Int("update-timeout", config.UpdateTimeout, "Telegram long-poll timeout in seconds (overrides $TELEGRAM_UPDATE_TIMEOUT)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"transport", *flags.transport,
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"telegramTokenSet", *flags.telegramToken != "",
		"openaiKeySet", *flags.openaiKey != "",
		"addr", *flags.addr,
		"sweepCron", *flags.sweepCron,
		"sheetsIDSet", *flags.sheetsID != "")

	// Follow a moved state directory with the default SQLite path
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	return nil
}

// buildTransportOptions constructs the per-transport client options
func buildTransportOptions(flags Flags) bot.TransportOptions {
	var opts bot.TransportOptions

	if *flags.telegramToken != "" {
		opts.Telegram = append(opts.Telegram, telegram.WithToken(*flags.telegramToken))
	}
	if *flags.updateTimeout != telegram.DefaultUpdateTimeout {
		opts.Telegram = append(opts.Telegram, telegram.WithUpdateTimeout(*flags.updateTimeout))
	}

	waDSN := *flags.waDSN
	if waDSN == "" {
		waDSN = filepath.Join(*flags.stateDir, "whatsmeow.db")
	}
	opts.WhatsApp = append(opts.WhatsApp, whatsapp.WithDBDSN(waDSN))
	if *flags.qrOutput != "" {
		opts.WhatsApp = append(opts.WhatsApp, whatsapp.WithQRCodeOutput(*flags.qrOutput))
	}
	if *flags.numeric {
		opts.WhatsApp = append(opts.WhatsApp, whatsapp.WithNumericCode())
	}

	// Twilio credentials come from the environment inside the client
	return opts
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		}
		storeOpts = append(storeOpts, store.WithDSN(*flags.dbDSN))
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs generation client configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// buildBotOptions constructs bot runtime configuration options
func buildBotOptions(flags Flags) []bot.Option {
	botOpts := []bot.Option{
		bot.WithTransport(*flags.transport),
		bot.WithStateDir(*flags.stateDir),
	}
	if *flags.pace > 0 {
		botOpts = append(botOpts, bot.WithPace(*flags.pace))
	}
	if *flags.addr != "" {
		botOpts = append(botOpts, bot.WithAddr(*flags.addr))
	}
	if *flags.sweepCron != "" {
		botOpts = append(botOpts, bot.WithSweepCron(*flags.sweepCron))
	}
	if *flags.sheetsID != "" {
		sheetsOpts := []sheets.Option{sheets.WithSpreadsheetID(*flags.sheetsID)}
		if *flags.sheetsCreds != "" {
			sheetsOpts = append(sheetsOpts, sheets.WithCredentialsFile(*flags.sheetsCreds))
		}
		botOpts = append(botOpts, bot.WithSheets(sheetsOpts...))
	}
	return botOpts
}
