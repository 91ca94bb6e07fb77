// Package bot wires the EventPilot application together: storage, recovery,
// generation, messaging transport, conversation engine, scheduler, and the
// operational HTTP endpoints.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/flow"
	"github.com/EnigmaBots/EventPilot/internal/genai"
	"github.com/EnigmaBots/EventPilot/internal/lockfile"
	"github.com/EnigmaBots/EventPilot/internal/messaging"
	"github.com/EnigmaBots/EventPilot/internal/recovery"
	"github.com/EnigmaBots/EventPilot/internal/scheduler"
	"github.com/EnigmaBots/EventPilot/internal/sheets"
	"github.com/EnigmaBots/EventPilot/internal/store"
	"github.com/EnigmaBots/EventPilot/internal/telegram"
	"github.com/EnigmaBots/EventPilot/internal/twiliosms"
	"github.com/EnigmaBots/EventPilot/internal/whatsapp"
)

// Supported transport kinds.
const (
	TransportTelegram = "telegram"
	TransportWhatsApp = "whatsapp"
	TransportTwilio   = "twilio"
)

const (
	// DefaultStateDir is the default directory for EventPilot state data
	DefaultStateDir = "/var/lib/eventpilot"
	// DefaultSweepCron runs the stale-session sweep hourly
	DefaultSweepCron = "0 * * * *"
	// httpShutdownTimeout bounds the graceful HTTP shutdown
	httpShutdownTimeout = 5 * time.Second
)

// Opts holds configuration options for the bot runtime.
type Opts struct {
	Addr          string        // operational HTTP address; empty disables the server
	Transport     string        // transport kind, defaults to telegram
	Pace          time.Duration // inter-bullet delivery pacing, zero keeps the flow default
	SweepCron     string        // cron expression for the stale-session sweep
	StateDir      string        // directory for the lock file and file-based state
	SheetsEnabled bool          // append interactions to Google Sheets
	SheetsOpts    []sheets.Option
}

// Option defines a configuration option for the bot runtime.
type Option func(*Opts)

// WithAddr enables the operational HTTP server on the given address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithTransport selects the messaging transport.
func WithTransport(kind string) Option {
	return func(o *Opts) { o.Transport = kind }
}

// WithPace overrides the inter-bullet delivery pacing.
func WithPace(d time.Duration) Option {
	return func(o *Opts) { o.Pace = d }
}

// WithSweepCron overrides the stale-session sweep schedule.
func WithSweepCron(expr string) Option {
	return func(o *Opts) { o.SweepCron = expr }
}

// WithStateDir sets the state directory.
func WithStateDir(dir string) Option {
	return func(o *Opts) { o.StateDir = dir }
}

// WithSheets enables the Google Sheets interaction recorder.
func WithSheets(opts ...sheets.Option) Option {
	return func(o *Opts) {
		o.SheetsEnabled = true
		o.SheetsOpts = opts
	}
}

// TransportOptions carries the per-transport client options; only the slice
// matching the selected transport kind is used.
type TransportOptions struct {
	Telegram []telegram.Option
	WhatsApp []whatsapp.Option
	Twilio   []twiliosms.Option
}

// Run starts EventPilot and blocks until SIGINT or SIGTERM.
func Run(transportOpts TransportOptions, storeOpts []store.Option, genaiOpts []genai.Option, botOpts []Option) error {
	cfg := Opts{
		Transport: TransportTelegram,
		SweepCron: DefaultSweepCron,
		StateDir:  DefaultStateDir,
	}
	for _, opt := range botOpts {
		opt(&cfg)
	}
	slog.Debug("Bot Run configuration", "transport", cfg.Transport, "addr", cfg.Addr, "sweep_cron", cfg.SweepCron, "state_dir", cfg.StateDir, "sheets", cfg.SheetsEnabled)

	// A second instance on the same state directory would corrupt sessions.
	lock, err := lockfile.AcquireLock(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("failed to acquire state directory lock: %w", err)
	}
	defer lock.Release()

	st, err := buildStore(storeOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := recovery.NewSessionJanitor(st)
	manager := recovery.NewManager(st)
	manager.RegisterRecoverable(janitor)
	if err := manager.RecoverAll(ctx); err != nil {
		slog.Warn("Bot recovery completed with errors", "error", err)
	}

	gen, err := genai.NewClient(genaiOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize generation client: %w", err)
	}

	recorder := buildRecorder(ctx, st, cfg)

	service, err := buildTransport(cfg.Transport, transportOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize %s transport: %w", cfg.Transport, err)
	}

	sessions := flow.NewSessionManager(st)
	var flowOpts []flow.PlannerOption
	if cfg.Pace > 0 {
		flowOpts = append(flowOpts, flow.WithPace(cfg.Pace))
	}
	engine := flow.NewEventPlannerFlow(sessions, gen, service, recorder, flowOpts...)

	router := messaging.NewRouter(service, engine)

	if err := service.Start(ctx); err != nil {
		return fmt.Errorf("failed to start messaging service: %w", err)
	}
	router.Start(ctx)
	go sinkReceipts(ctx, st, service)

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.AddJob("session-sweep", cfg.SweepCron, janitor.Sweep); err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	var httpErr chan error
	if cfg.Addr != "" {
		httpErr = make(chan error, 1)
		server := newHTTPServer(cfg.Addr, st, router, service)
		go func() {
			slog.Info("Bot HTTP server listening", "addr", cfg.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				httpErr <- err
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Bot HTTP server shutdown failed", "error", err)
			}
		}()
	}

	slog.Info("EventPilot running", "transport", cfg.Transport)

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Bot shutting down on signal")
	case err := <-httpErr:
		stop()
		slog.Error("Bot HTTP server failed", "error", err)
		runErr = fmt.Errorf("http server failed: %w", err)
	}

	// Both exit paths drain the same way: transport first so no new events
	// arrive, then the router so queued events finish.
	stopMessaging(service, router)
	return runErr
}

// stopMessaging stops the transport and drains the router.
func stopMessaging(service messaging.Service, router *messaging.Router) {
	if err := service.Stop(); err != nil {
		slog.Warn("Bot messaging service stop failed", "error", err)
	}
	router.Stop()
}

// buildStore selects a store backend from the configured DSN. No DSN means
// the in-memory store, which loses sessions on restart.
func buildStore(storeOpts []store.Option) (store.Store, error) {
	var opts store.Opts
	for _, opt := range storeOpts {
		opt(&opts)
	}

	if opts.DSN == "" {
		slog.Warn("No database DSN configured, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(opts.DSN) == "postgres" {
		slog.Debug("Bot using PostgreSQL store")
		return store.NewPostgresStore(storeOpts...)
	}
	slog.Debug("Bot using SQLite store", "path", opts.DSN)
	return store.NewSQLiteStore(storeOpts...)
}

// buildRecorder assembles the interaction recorders: always the local store
// copy, plus Google Sheets when configured. A sheets init failure degrades
// to store-only recording rather than failing the boot.
func buildRecorder(ctx context.Context, st store.Store, cfg Opts) flow.Recorder {
	recorders := flow.MultiRecorder{flow.NewStoreRecorder(st)}
	if cfg.SheetsEnabled {
		sheetsRecorder, err := sheets.NewRecorder(ctx, cfg.SheetsOpts...)
		if err != nil {
			slog.Warn("Bot sheets recorder unavailable, recording to store only", "error", err)
		} else {
			recorders = append(recorders, sheetsRecorder)
		}
	}
	return recorders
}

// buildTransport constructs the messaging service for the selected kind.
func buildTransport(kind string, opts TransportOptions) (messaging.Service, error) {
	switch kind {
	case TransportTelegram:
		client, err := telegram.NewClient(opts.Telegram...)
		if err != nil {
			return nil, err
		}
		return messaging.NewTelegramService(client), nil
	case TransportWhatsApp:
		client, err := whatsapp.NewClient(opts.WhatsApp...)
		if err != nil {
			return nil, err
		}
		return messaging.NewWhatsAppService(client), nil
	case TransportTwilio:
		client, err := twiliosms.NewClient(opts.Twilio...)
		if err != nil {
			return nil, err
		}
		return messaging.NewTwilioService(client), nil
	default:
		return nil, fmt.Errorf("unknown transport kind: %s", kind)
	}
}

// sinkReceipts persists delivery receipts as they arrive.
func sinkReceipts(ctx context.Context, st store.Store, service messaging.Service) {
	for {
		select {
		case receipt, ok := <-service.Receipts():
			if !ok {
				return
			}
			if err := st.AddReceipt(receipt); err != nil {
				slog.Warn("Bot failed to persist receipt", "error", err, "to", receipt.To)
			}
		case <-ctx.Done():
			return
		}
	}
}
