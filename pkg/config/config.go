package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"boardbot/pkg/command"
	"boardbot/pkg/interact"
)

const (
	envConfigPath        = "BOARDBOT_CONFIG"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
	envDiscordBotToken   = "DISCORD_BOT_TOKEN"
	envBoardAPIKey       = "BOARD_API_KEY"
)

const (
	DefaultPrefix       = "!"
	DefaultConfirmToken = "yes"
	DefaultPageSize     = 10
	DefaultStorePath    = "boardbot.sqlite"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Bot      BotConfig      `json:"bot"`
	Channels ChannelsConfig `json:"channels"`
	Board    BoardConfig    `json:"board"`
	Store    StoreConfig    `json:"store"`
	Gateway  GatewayConfig  `json:"gateway"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// BotConfig holds command parsing and conversation behaviour.
type BotConfig struct {
	Prefix             string   `json:"prefix"`
	ConfirmToken       string   `json:"confirm_token"`
	WaitTimeoutSeconds int      `json:"wait_timeout_seconds"`
	PageSize           int      `json:"page_size"`
	CancelWords        []string `json:"cancel_words,omitempty"`
	// Owners are transport-scoped user refs such as "telegram:12345".
	Owners  []string         `json:"owners,omitempty"`
	Phrases interact.Phrases `json:"phrases,omitempty"`
	Replies command.Phrases  `json:"replies,omitempty"`
}

// WaitTimeout is how long conversational flows wait for a reply.
func (b BotConfig) WaitTimeout() time.Duration {
	if b.WaitTimeoutSeconds <= 0 {
		return interact.DefaultTimeout
	}
	return time.Duration(b.WaitTimeoutSeconds) * time.Second
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
	Console  ConsoleConfig  `json:"console"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	Proxy     string   `json:"proxy"`
	AllowFrom []string `json:"allow_from"`
}

// DiscordConfig configures the Discord gateway connection.
type DiscordConfig struct {
	Enabled    bool     `json:"enabled"`
	Token      string   `json:"token"`
	AllowFrom  []string `json:"allow_from"`
	GatewayURL string   `json:"gateway_url,omitempty"`
	APIBaseURL string   `json:"api_base_url,omitempty"`
}

// ConsoleConfig configures the local terminal transport used by `boardbot chat`.
type ConsoleConfig struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// BoardConfig configures the task-board REST client.
type BoardConfig struct {
	BaseURL string `json:"base_url,omitempty"`
	// AuthorizeURL is where users create a token for the API key.
	AuthorizeURL   string `json:"authorize_url,omitempty"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// StoreConfig locates the settings database.
type StoreConfig struct {
	Path string `json:"path"`
}

// GatewayConfig configures HTTP status server bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if token := strings.TrimSpace(os.Getenv(envDiscordBotToken)); token != "" {
		cfg.Channels.Discord.Token = token
	}

	if key := strings.TrimSpace(os.Getenv(envBoardAPIKey)); key != "" {
		cfg.Board.APIKey = key
	}
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Bot.Prefix) == "" {
		cfg.Bot.Prefix = DefaultPrefix
	}
	if strings.TrimSpace(cfg.Bot.ConfirmToken) == "" {
		cfg.Bot.ConfirmToken = DefaultConfirmToken
	}
	if cfg.Bot.PageSize <= 0 {
		cfg.Bot.PageSize = DefaultPageSize
	}
	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is BOARDBOT_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
