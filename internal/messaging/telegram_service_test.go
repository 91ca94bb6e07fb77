package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/EnigmaBots/EventPilot/internal/models"
	"github.com/EnigmaBots/EventPilot/internal/telegram"
)

func TestTelegramServiceValidateRecipient(t *testing.T) {
	s := NewTelegramService(telegram.NewMockClient())

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"123456789", "123456789", false},
		{" 123456789 ", "123456789", false},
		{"-100987654321", "-100987654321", false},
		{"", "", true},
		{"abc", "", true},
		{"whatsapp:+1555", "", true},
	}
	for _, tt := range tests {
		got, err := s.ValidateAndCanonicalizeRecipient(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateAndCanonicalizeRecipient(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateAndCanonicalizeRecipient(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTelegramServiceSendEmitsReceipt(t *testing.T) {
	mock := telegram.NewMockClient()
	s := NewTelegramService(mock)

	if err := s.SendText(context.Background(), "123", "hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if len(mock.TextMessages) != 1 || mock.TextMessages[0].Body != "hello" {
		t.Errorf("unexpected sends: %+v", mock.TextMessages)
	}

	select {
	case receipt := <-s.Receipts():
		if receipt.To != "123" || receipt.Status != models.StatusTypeSent {
			t.Errorf("unexpected receipt: %+v", receipt)
		}
	default:
		t.Error("expected a sent receipt")
	}
}

func TestTelegramServiceSendChoices(t *testing.T) {
	mock := telegram.NewMockClient()
	s := NewTelegramService(mock)

	choices := []models.Choice{{Label: "🎂 Birthday", Token: "birthday"}}
	if err := s.SendChoices(context.Background(), "123", "Pick one:", choices); err != nil {
		t.Fatalf("SendChoices: %v", err)
	}
	if len(mock.ChoiceMessages) != 1 {
		t.Fatalf("expected one choice send, got %d", len(mock.ChoiceMessages))
	}
	sent := mock.ChoiceMessages[0]
	if sent.Prompt != "Pick one:" || len(sent.Choices) != 1 || sent.Choices[0].Token != "birthday" {
		t.Errorf("unexpected choice send: %+v", sent)
	}
}

func TestTelegramServiceStartWithMock(t *testing.T) {
	s := NewTelegramService(telegram.NewMockClient())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestTelegramServiceStopIsIdempotent(t *testing.T) {
	s := NewTelegramService(telegram.NewMockClient())
	if err := s.Stop(); err != nil {
		t.Fatalf("first Stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
}

func TestTelegramServiceSendAfterStop(t *testing.T) {
	s := NewTelegramService(telegram.NewMockClient())
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if err := s.SendText(context.Background(), "123", "late"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("SendText after Stop = %v, want ErrServiceStopped", err)
	}
	choices := []models.Choice{{Label: "🎂 Birthday", Token: "birthday"}}
	if err := s.SendChoices(context.Background(), "123", "Pick one:", choices); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("SendChoices after Stop = %v, want ErrServiceStopped", err)
	}
}

func TestTelegramServiceEmitAfterStopDoesNotPanic(t *testing.T) {
	s := NewTelegramService(telegram.NewMockClient())
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	// Wait out the channel-close grace period so a raced emit would hit
	// closed channels if it were not guarded.
	time.Sleep(100 * time.Millisecond)

	s.safeEmitEvent(models.InboundEvent{From: "123", Kind: models.EventText, Body: "late"})
	s.safeEmitReceipt(models.Receipt{To: "123", Status: models.StatusTypeSent})
}
