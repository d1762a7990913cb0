package telegram

import (
	"anthrometer/clients/notifier"
	"anthrometer/config"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// TelegramClient posts index updates to a Telegram chat.
// Implements notifier.Notifier interface.
type TelegramClient struct {
	logger   *zap.Logger
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
}

func NewTelegramClient(logger *zap.Logger, cfg *config.Config) *TelegramClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	chatID := cfg.Telegram.ChatID

	token := cfg.Telegram.BotToken
	if token == "" {
		logger.Debug("TELEGRAM_BOT_KEY not set, Telegram updates disabled")
		return &TelegramClient{
			logger:  logger,
			chatID:  chatID,
			baseURL: defaultAPIBaseURL,
		}
	}

	logger.Info("telegram bot initialized", zap.String("chatID", chatID))

	return &TelegramClient{
		logger:   logger,
		botToken: token,
		chatID:   chatID,
		baseURL:  defaultAPIBaseURL,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a token and chat are configured.
func (tc *TelegramClient) Enabled() bool {
	return tc.botToken != "" && tc.chatID != ""
}

// SendIndexUpdate sends an index update notification.
// Implements notifier.Notifier interface.
func (tc *TelegramClient) SendIndexUpdate(update notifier.IndexUpdate) {
	if !tc.Enabled() {
		tc.logger.Debug("telegram not configured, skipping update")
		return
	}

	message := buildUpdateMessage(update)

	if err := tc.sendMessage(message); err != nil {
		tc.logger.Error("failed to send telegram message", zap.Error(err))
		return
	}

	tc.logger.Info("sent telegram index update", zap.String("token", update.Token))
}

func buildUpdateMessage(update notifier.IndexUpdate) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("*%s*\n\n", escapeMarkdown(update.Title())))

	if update.HasData {
		sb.WriteString(fmt.Sprintf("Latest: *%d* (%d)\n", update.Value, update.Year))
	} else {
		sb.WriteString("Latest: No data\n")
	}
	if update.DeltaText != "" {
		sb.WriteString(fmt.Sprintf("Change: %s\n", escapeMarkdown(update.DeltaText)))
	}
	if update.Token != "" {
		sb.WriteString(fmt.Sprintf("Updated: %s\n", escapeMarkdown(update.Token)))
	}
	if update.Note != "" {
		sb.WriteString(fmt.Sprintf("\n_%s_\n", escapeMarkdown(update.Note)))
	}
	if update.DashboardURL != "" {
		sb.WriteString(fmt.Sprintf("\n[Open dashboard](%s)", update.DashboardURL))
	}

	return sb.String()
}

func (tc *TelegramClient) sendMessage(text string) error {
	url := fmt.Sprintf("%s/bot%s/%s", tc.baseURL, tc.botToken, "sendMessage")

	payload := map[string]interface{}{
		"chat_id":    tc.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// Close cleans up resources. Implements notifier.Notifier interface.
func (tc *TelegramClient) Close() error {
	return nil
}

// escapeMarkdown escapes special characters for Telegram Markdown.
func escapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(s)
}
