package whatsapp

import (
	"context"
	"testing"
)

func TestClientSendMessageValidation(t *testing.T) {
	c := &Client{}
	if err := c.SendMessage(context.Background(), "15551234567", "hi"); err == nil {
		t.Error("expected error for uninitialized client")
	}
}

func TestMockClientSendMessage(t *testing.T) {
	m := NewMockClient()
	if err := m.SendMessage(context.Background(), "15551234567", "hi"); err != nil {
		t.Errorf("mock send failed: %v", err)
	}
}

func TestOptionsApply(t *testing.T) {
	var cfg Opts
	for _, opt := range []Option{
		WithDBDSN("file:wa.db?_foreign_keys=on"),
		WithQRCodeOutput("/tmp/qr.txt"),
		WithNumericCode(),
	} {
		opt(&cfg)
	}
	if cfg.DBDSN != "file:wa.db?_foreign_keys=on" || cfg.QRPath != "/tmp/qr.txt" || !cfg.NumericCode {
		t.Errorf("options not applied: %+v", cfg)
	}
}
