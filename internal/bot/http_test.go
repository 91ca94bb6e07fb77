package bot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/messaging"
	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/store"
	"github.com/EnigmaBots/EventPilot/internal/twiliosms"
)

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	handleHealthz(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestStats(t *testing.T) {
	st := store.NewInMemoryStore()
	now := time.Now()
	for _, s := range []models.Session{
		{UserID: "u1", State: models.StateAwaitingCategory, Turn: 1, CreatedAt: now, UpdatedAt: now},
		{UserID: "u2", State: models.StateAwaitingFollowUp, Turn: 2, CreatedAt: now, UpdatedAt: now},
		{UserID: "u3", State: models.StateAwaitingFollowUp, Turn: 1, CreatedAt: now, UpdatedAt: now},
	} {
		if err := st.SaveSession(s); err != nil {
			t.Fatalf("save session: %v", err)
		}
	}
	if err := st.AddInteraction(models.LogEntry{UserID: "u1", Timestamp: now}); err != nil {
		t.Fatalf("add interaction: %v", err)
	}

	svc := messaging.NewTwilioService(twiliosms.NewMockClient())
	router := messaging.NewRouter(svc, messaging.HandlerFunc(func(ctx context.Context, evt models.InboundEvent) error {
		return nil
	}))

	w := httptest.NewRecorder()
	handleStats(st, router)(w, httptest.NewRequest(http.MethodGet, "/stats", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp statsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Sessions != 3 || resp.Interactions != 1 {
		t.Errorf("unexpected stats: %+v", resp)
	}
	if resp.States[string(models.StateAwaitingFollowUp)] != 2 {
		t.Errorf("state counts wrong: %+v", resp.States)
	}
}

func TestNewHTTPServerMountsTwilioWebhook(t *testing.T) {
	st := store.NewInMemoryStore()
	svc := messaging.NewTwilioService(twiliosms.NewMockClient())
	router := messaging.NewRouter(svc, nil)

	server := newHTTPServer(":0", st, router, svc)
	req := httptest.NewRequest(http.MethodPost, "/webhook/twilio", nil)
	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)

	// An empty POST is rejected by the webhook, which proves it is mounted;
	// an unmounted path would return 404.
	if w.Code == http.StatusNotFound {
		t.Error("twilio webhook not mounted")
	}
}
