package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Preference backends.
const (
	BackendSQLite = "sqlite"
	BackendGist   = "gist"
	BackendMemory = "memory"
)

// Config holds all application configuration.
type Config struct {
	// Data resources
	Data DataConfig `json:"data" yaml:"data"`

	// Polling
	Poll PollConfig `json:"poll" yaml:"poll"`

	// Year detail panel
	Overlay OverlayConfig `json:"overlay" yaml:"overlay"`

	// Dashboard server
	Server ServerConfig `json:"server" yaml:"server"`

	// Preference persistence
	Prefs PrefsConfig `json:"prefs" yaml:"prefs"`

	// GitHub Gist
	Gist GistConfig `json:"gist" yaml:"gist"`

	// Discord
	Discord DiscordConfig `json:"discord" yaml:"discord"`

	// Telegram
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`

	// Logging
	Log LogConfig `json:"log" yaml:"log"`
}

// DataConfig holds resource fetching configuration.
type DataConfig struct {
	BaseURL string        `json:"base_url" yaml:"base_url"` // http(s):// or file:// directory holding gti.json etc.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// PollConfig holds change polling configuration.
type PollConfig struct {
	Interval    time.Duration `json:"interval" yaml:"interval"`         // Status check cadence
	AgoInterval time.Duration `json:"ago_interval" yaml:"ago_interval"` // "updated N ago" refresh cadence
	AutoRefresh bool          `json:"auto_refresh" yaml:"auto_refresh"` // Initial auto-refresh state
}

// OverlayConfig holds year detail panel configuration.
type OverlayConfig struct {
	Dwell time.Duration `json:"dwell" yaml:"dwell"` // Auto-dismiss delay
}

// ServerConfig holds dashboard server configuration.
type ServerConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Port    int  `json:"port" yaml:"port"`
}

// PrefsConfig holds preference persistence configuration.
type PrefsConfig struct {
	Backend     string `json:"backend" yaml:"backend"` // sqlite, gist or memory
	DBPath      string `json:"db_path" yaml:"db_path"`
	Key         string `json:"key" yaml:"key"`
	PrefersDark bool   `json:"prefers_dark" yaml:"prefers_dark"` // Theme probe result for computed defaults
}

// GistConfig holds GitHub Gist configuration.
type GistConfig struct {
	Token      string `json:"-" yaml:"-"` // Excluded - env var only
	GistID     string `json:"gist_id" yaml:"gist_id"`
	APIBaseURL string `json:"api_base_url" yaml:"api_base_url"`
}

// DiscordConfig holds Discord-related configuration.
type DiscordConfig struct {
	BotToken  string `json:"-" yaml:"-"` // Excluded - env var only
	ChannelID string `json:"channel_id" yaml:"channel_id"`
}

// TelegramConfig holds Telegram-related configuration.
type TelegramConfig struct {
	BotToken string `json:"-" yaml:"-"` // Excluded - env var only
	ChatID   string `json:"chat_id" yaml:"chat_id"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // json or console
}

// Clone creates a copy of the config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// ToJSON serializes the config to JSON. Secrets are omitted.
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// DefaultDBPath is the SQLite file under the XDG data home.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "anthrometer", "state.db")
}

// Defaults returns a config with hardcoded default values.
func Defaults() *Config {
	return &Config{
		Data: DataConfig{
			BaseURL: "http://localhost:8000/data",
			Timeout: 15 * time.Second,
		},
		Poll: PollConfig{
			Interval:    60 * time.Second,
			AgoInterval: 10 * time.Second,
			AutoRefresh: true,
		},
		Overlay: OverlayConfig{
			Dwell: 10 * time.Second,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8080,
		},
		Prefs: PrefsConfig{
			Backend: BackendSQLite,
			DBPath:  DefaultDBPath(),
			Key:     "prefs",
		},
		Gist: GistConfig{
			APIBaseURL: "https://api.github.com",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := envString("CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// mergeFile overlays the YAML file at path onto c.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Data.BaseURL = envString("DATA_BASE_URL", c.Data.BaseURL)
	c.Data.Timeout = envDuration("FETCH_TIMEOUT", c.Data.Timeout)

	c.Poll.Interval = envDuration("POLL_INTERVAL", c.Poll.Interval)
	c.Poll.AgoInterval = envDuration("AGO_INTERVAL", c.Poll.AgoInterval)
	c.Poll.AutoRefresh = envBoolDefault("AUTO_REFRESH", c.Poll.AutoRefresh)

	c.Overlay.Dwell = envDuration("OVERLAY_DWELL", c.Overlay.Dwell)

	c.Server.Enabled = envBoolDefault("SERVER_ENABLED", c.Server.Enabled)
	c.Server.Port = envInt("SERVER_PORT", c.Server.Port)

	c.Prefs.Backend = strings.ToLower(envString("PREFS_BACKEND", c.Prefs.Backend))
	c.Prefs.DBPath = envString("PREFS_DB_PATH", c.Prefs.DBPath)
	c.Prefs.Key = envString("PREFS_KEY", c.Prefs.Key)
	c.Prefs.PrefersDark = envBoolDefault("PREFERS_DARK", c.Prefs.PrefersDark)

	c.Gist.Token = envString("GITHUB_TOKEN", c.Gist.Token)
	c.Gist.GistID = envString("PREFS_GIST_ID", c.Gist.GistID)
	c.Gist.APIBaseURL = envString("GIST_API_URL", c.Gist.APIBaseURL)

	c.Discord.BotToken = envString("DISCORD_BOT_TOKEN", c.Discord.BotToken)
	c.Discord.ChannelID = envString("DISCORD_CHANNEL_ID", c.Discord.ChannelID)

	c.Telegram.BotToken = envString("TELEGRAM_BOT_KEY", c.Telegram.BotToken)
	c.Telegram.ChatID = envString("TELEGRAM_CHAT_ID", c.Telegram.ChatID)

	c.Log.Level = strings.ToLower(envString("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(envString("LOG_FORMAT", c.Log.Format))
}

// Helper functions for parsing environment variables

func envString(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envBoolDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	return strings.EqualFold(v, "true") || strings.EqualFold(v, "1") || strings.EqualFold(v, "yes")
}
