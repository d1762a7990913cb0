package clients

import (
	"anthrometer/clients/notifier"
	"anthrometer/config"
	"testing"

	"go.uber.org/zap"
)

func TestNewClients(t *testing.T) {
	cfg := config.Defaults()
	cfg.Data.BaseURL = "https://example.com/data"

	logger := zap.NewNop()
	clients := NewClients(logger, cfg)

	if clients.Logger != logger {
		t.Error("unexpected logger")
	}
	if clients.Resources == nil {
		t.Fatal("expected Resources client to be set")
	}
	if clients.Resources.BaseURL() != "https://example.com/data" {
		t.Errorf("unexpected base URL: %s", clients.Resources.BaseURL())
	}
	if clients.Gist == nil {
		t.Error("expected Gist client to be set")
	}
	if clients.Discord == nil || clients.Telegram == nil {
		t.Error("expected notifier clients to be set")
	}
}

func TestNewClients_NoChannelsConfigured(t *testing.T) {
	clients := NewClients(zap.NewNop(), config.Defaults())

	mn, ok := clients.Notifier.(*notifier.MultiNotifier)
	if !ok {
		t.Fatalf("unexpected notifier type %T", clients.Notifier)
	}
	if mn.Count() != 0 {
		t.Errorf("expected no active channels, got %d", mn.Count())
	}
	if err := clients.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
}

func TestNewClients_TelegramConfigured(t *testing.T) {
	cfg := config.Defaults()
	cfg.Telegram.BotToken = "token"
	cfg.Telegram.ChatID = "chat"

	clients := NewClients(zap.NewNop(), cfg)

	if mn := clients.Notifier.(*notifier.MultiNotifier); mn.Count() != 1 {
		t.Errorf("expected 1 active channel, got %d", mn.Count())
	}
}

func TestNewClients_NilLogger(t *testing.T) {
	clients := NewClients(nil, config.Defaults())

	if clients.Logger != nil {
		t.Error("expected nil logger to remain nil")
	}
	// Other clients should still be initialized
	if clients.Resources == nil || clients.Discord == nil {
		t.Error("expected clients to be set")
	}
}
