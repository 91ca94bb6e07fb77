package bot

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/EnigmaBots/EventPilot/internal/messaging"
	"github.com/EnigmaBots/EventPilot/internal/store"
)

// statsResponse is the payload of the /stats endpoint.
type statsResponse struct {
	Sessions     int            `json:"sessions"`
	States       map[string]int `json:"states"`
	Interactions int            `json:"interactions"`
	Receipts     int            `json:"receipts"`
	ActiveUsers  int            `json:"active_users"`
}

// newHTTPServer builds the operational HTTP server: health, stats, and the
// Twilio webhook when that transport is in use.
func newHTTPServer(addr string, st store.Store, router *messaging.Router, service messaging.Service) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealthz)
	mux.HandleFunc("/stats", handleStats(st, router))

	if twilioService, ok := service.(*messaging.TwilioService); ok {
		mux.HandleFunc("/webhook/twilio", twilioService.WebhookHandler)
		slog.Debug("Bot mounted Twilio webhook", "path", "/webhook/twilio")
	}

	return &http.Server{Addr: addr, Handler: mux}
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleStats reports session, interaction, and routing counters.
func handleStats(st store.Store, router *messaging.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := st.ListSessions()
		if err != nil {
			slog.Error("Stats handler failed to list sessions", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		interactions, err := st.ListInteractions(0)
		if err != nil {
			slog.Error("Stats handler failed to list interactions", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		receipts, err := st.GetReceipts()
		if err != nil {
			slog.Error("Stats handler failed to list receipts", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		states := make(map[string]int)
		for _, session := range sessions {
			states[string(session.State)]++
		}

		resp := statsResponse{
			Sessions:     len(sessions),
			States:       states,
			Interactions: len(interactions),
			Receipts:     len(receipts),
			ActiveUsers:  router.ActiveUsers(),
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			slog.Error("Stats handler failed to encode response", "error", err)
		}
	}
}
