package clients

import (
	"anthrometer/clients/discord"
	"anthrometer/clients/gist"
	"anthrometer/clients/notifier"
	"anthrometer/clients/resources"
	"anthrometer/clients/telegram"
	"anthrometer/config"

	"go.uber.org/zap"
)

type Clients struct {
	Logger *zap.Logger

	Resources *resources.Client
	Gist      *gist.Client
	Discord   *discord.DiscordClient
	Telegram  *telegram.TelegramClient
	Notifier  notifier.Notifier // Combined notifier for all channels
}

func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	discordClient := discord.NewDiscordClient(logger, cfg)
	telegramClient := telegram.NewTelegramClient(logger, cfg)

	// Only channels with credentials take part in broadcasts
	var channels []notifier.Notifier
	if discordClient.Enabled() {
		channels = append(channels, discordClient)
	}
	if telegramClient.Enabled() {
		channels = append(channels, telegramClient)
	}

	return &Clients{
		Logger:    logger,
		Resources: resources.NewClient(logger, cfg),
		Gist:      gist.NewClient(logger, cfg),
		Discord:   discordClient,
		Telegram:  telegramClient,
		Notifier:  notifier.NewMultiNotifier(channels...),
	}
}

// Close releases every client holding a connection.
func (c *Clients) Close() error {
	return c.Notifier.Close()
}
