package discord

import (
	"anthrometer/clients/notifier"
	"anthrometer/config"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorUp      = 0x2ECC71
	colorDown    = 0xE74C3C
	colorNeutral = 0x0284C7
)

// DiscordClient posts index updates to a Discord channel.
// Implements notifier.Notifier interface.
type DiscordClient struct {
	logger    *zap.Logger
	session   *discordgo.Session
	channelID string
}

func NewDiscordClient(logger *zap.Logger, cfg *config.Config) *DiscordClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	channelID := cfg.Discord.ChannelID

	token := cfg.Discord.BotToken
	if token == "" {
		logger.Debug("DISCORD_BOT_TOKEN not set, Discord updates disabled")
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
		}
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		logger.Error("failed to create discord session", zap.Error(err))
		return &DiscordClient{
			logger:    logger,
			channelID: channelID,
		}
	}

	logger.Info("discord bot initialized", zap.String("channelID", channelID))

	return &DiscordClient{
		logger:    logger,
		session:   session,
		channelID: channelID,
	}
}

// Enabled reports whether a session and channel are configured.
func (dc *DiscordClient) Enabled() bool {
	return dc.session != nil && dc.channelID != ""
}

// SendIndexUpdate posts an embed describing the new snapshot.
// Implements notifier.Notifier interface.
func (dc *DiscordClient) SendIndexUpdate(update notifier.IndexUpdate) {
	if !dc.Enabled() {
		dc.logger.Debug("discord not configured, skipping update")
		return
	}

	embed := buildUpdateEmbed(update)

	_, err := dc.session.ChannelMessageSendEmbed(dc.channelID, embed)
	if err != nil {
		dc.logger.Error("failed to send discord embed", zap.Error(err))
		return
	}

	dc.logger.Info("sent discord index update", zap.String("token", update.Token))
}

func buildUpdateEmbed(update notifier.IndexUpdate) *discordgo.MessageEmbed {
	color := colorNeutral
	switch {
	case strings.HasPrefix(update.DeltaText, "▲"):
		color = colorUp
	case strings.HasPrefix(update.DeltaText, "▼"):
		color = colorDown
	}

	latest := "No data"
	if update.HasData {
		latest = fmt.Sprintf("%d (%d)", update.Value, update.Year)
	}
	delta := update.DeltaText
	if delta == "" {
		delta = "N/A"
	}

	fields := []*discordgo.MessageEmbedField{
		{
			Name:   "Latest",
			Value:  latest,
			Inline: true,
		},
		{
			Name:   "Change",
			Value:  delta,
			Inline: true,
		},
		{
			Name:   "Updated",
			Value:  update.Token,
			Inline: true,
		},
	}

	ts := update.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	embed := &discordgo.MessageEmbed{
		Title:       update.Title(),
		URL:         update.DashboardURL,
		Description: update.Note,
		Color:       color,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "anthrometer * " + ts.UTC().Format("1/2/2006, 3:04:05PM (MST)"),
		},
		Timestamp: ts.Format(time.RFC3339),
	}

	return embed
}

// Close closes the Discord session.
func (dc *DiscordClient) Close() error {
	if dc.session != nil {
		return dc.session.Close()
	}
	return nil
}
