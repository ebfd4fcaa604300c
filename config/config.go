// Package config loads the scanner configuration from a JSON file with
// environment variable overrides. Environment values take precedence so
// deployments can tweak a shared config file without editing it.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	MarketConfig       MarketConfig       `json:"market"`
	ScanConfig         ScanConfig         `json:"scan"`
	DetectionConfig    DetectionConfig    `json:"detection"`
	CooldownConfig     CooldownConfig     `json:"cooldown"`
	PostgresConfig     PostgresConfig     `json:"postgres"`
	RedisConfig        RedisConfig        `json:"redis"`
	NotificationConfig NotificationConfig `json:"notification"`
	ServerConfig       ServerConfig       `json:"server"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// MarketConfig holds the market data provider settings
type MarketConfig struct {
	BaseURL      string `json:"base_url"`
	StreamURL    string `json:"stream_url"`
	StreamOn     bool   `json:"stream_on"`
	CandleLimit  int    `json:"candle_limit"`
}

// ScanConfig controls the scan loop
type ScanConfig struct {
	Instruments      []string `json:"instruments"`
	Timeframes       []string `json:"timeframes"`
	Patterns         []string `json:"patterns"`
	IntervalSeconds  int      `json:"interval_seconds"`
	WorkerCount      int      `json:"worker_count"`
	MinConfidence    int      `json:"min_confidence"`
	MinRiskReward    float64  `json:"min_risk_reward"`
	LastCandleClosed bool     `json:"last_candle_closed"`
}

// DetectionConfig carries per-pattern overrides, forwarded verbatim to
// the detector configuration.
type DetectionConfig struct {
	SwingWindow       int     `json:"swing_window"`
	PeakTolerance     float64 `json:"peak_tolerance"`
	MinRetracement    float64 `json:"min_retracement"`
	ShoulderTolerance float64 `json:"shoulder_tolerance"`
	VolumeMultiplier  float64 `json:"volume_multiplier"`
}

// CooldownConfig controls alert deduplication
type CooldownConfig struct {
	Hours      int  `json:"hours"`
	FailClosed bool `json:"fail_closed"`
}

// PostgresConfig holds database settings
type PostgresConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis settings for the cooldown store
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// NotificationConfig holds delivery channel settings
type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Enabled        bool   `json:"enabled"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	ProductionMode bool   `json:"production_mode"`
	JWTSecret      string `json:"jwt_secret"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // structured JSON instead of console
}

// Load reads config.json over the built-in defaults, then applies
// environment overrides. File values win over defaults even when zero,
// so an explicit min_confidence of 0 disables the confidence filter
// instead of snapping back to the default.
func Load() (*Config, error) {
	cfg := defaultConfig()
	if err := loadFromFile("config.json", cfg); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GenerateSample writes a config file populated with the defaults so a
// new deployment has something to edit.
func GenerateSample(path string) error {
	data, err := json.MarshalIndent(defaultConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode sample config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// loadFromFile unmarshals path over cfg. Fields absent from the file
// keep whatever cfg already holds.
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		MarketConfig: MarketConfig{
			BaseURL:     "https://api.binance.com",
			StreamURL:   "wss://stream.binance.com:9443",
			CandleLimit: 300,
		},
		ScanConfig: ScanConfig{
			Instruments:     []string{"BTCUSDT", "ETHUSDT"},
			Timeframes:      []string{"1h", "4h", "1d"},
			IntervalSeconds: 300,
			WorkerCount:     4,
			MinConfidence:   65,
			MinRiskReward:   3.0,
		},
		CooldownConfig: CooldownConfig{Hours: 24},
		PostgresConfig: PostgresConfig{SSLMode: "disable"},
		ServerConfig:   ServerConfig{Port: 8090},
		LoggingConfig:  LoggingConfig{Level: "info"},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.MarketConfig.BaseURL = getEnvOrDefault("MARKET_BASE_URL", cfg.MarketConfig.BaseURL)
	cfg.MarketConfig.StreamURL = getEnvOrDefault("MARKET_STREAM_URL", cfg.MarketConfig.StreamURL)
	cfg.MarketConfig.StreamOn = getEnvBoolOrDefault("MARKET_STREAM_ON", cfg.MarketConfig.StreamOn)
	cfg.MarketConfig.CandleLimit = getEnvIntOrDefault("MARKET_CANDLE_LIMIT", cfg.MarketConfig.CandleLimit)

	if v := os.Getenv("SCAN_INSTRUMENTS"); v != "" {
		cfg.ScanConfig.Instruments = splitList(v)
	}
	if v := os.Getenv("SCAN_TIMEFRAMES"); v != "" {
		cfg.ScanConfig.Timeframes = splitList(v)
	}
	if v := os.Getenv("SCAN_PATTERNS"); v != "" {
		cfg.ScanConfig.Patterns = splitList(v)
	}
	cfg.ScanConfig.IntervalSeconds = getEnvIntOrDefault("SCAN_INTERVAL_SECONDS", cfg.ScanConfig.IntervalSeconds)
	cfg.ScanConfig.WorkerCount = getEnvIntOrDefault("SCAN_WORKER_COUNT", cfg.ScanConfig.WorkerCount)
	cfg.ScanConfig.MinConfidence = getEnvIntOrDefault("SCAN_MIN_CONFIDENCE", cfg.ScanConfig.MinConfidence)
	cfg.ScanConfig.MinRiskReward = getEnvFloatOrDefault("SCAN_MIN_RISK_REWARD", cfg.ScanConfig.MinRiskReward)
	cfg.ScanConfig.LastCandleClosed = getEnvBoolOrDefault("SCAN_LAST_CANDLE_CLOSED", cfg.ScanConfig.LastCandleClosed)

	cfg.CooldownConfig.Hours = getEnvIntOrDefault("COOLDOWN_HOURS", cfg.CooldownConfig.Hours)
	cfg.CooldownConfig.FailClosed = getEnvBoolOrDefault("COOLDOWN_FAIL_CLOSED", cfg.CooldownConfig.FailClosed)

	cfg.PostgresConfig.Enabled = getEnvBoolOrDefault("POSTGRES_ENABLED", cfg.PostgresConfig.Enabled)
	cfg.PostgresConfig.Host = getEnvOrDefault("POSTGRES_HOST", cfg.PostgresConfig.Host)
	cfg.PostgresConfig.Port = getEnvIntOrDefault("POSTGRES_PORT", cfg.PostgresConfig.Port)
	cfg.PostgresConfig.User = getEnvOrDefault("POSTGRES_USER", cfg.PostgresConfig.User)
	cfg.PostgresConfig.Password = getEnvOrDefault("POSTGRES_PASSWORD", cfg.PostgresConfig.Password)
	cfg.PostgresConfig.Database = getEnvOrDefault("POSTGRES_DATABASE", cfg.PostgresConfig.Database)

	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	cfg.NotificationConfig.Enabled = getEnvBoolOrDefault("NOTIFICATIONS_ENABLED", cfg.NotificationConfig.Enabled)
	cfg.NotificationConfig.Telegram.Enabled = getEnvBoolOrDefault("TELEGRAM_ENABLED", cfg.NotificationConfig.Telegram.Enabled)
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvBoolOrDefault("DISCORD_ENABLED", cfg.NotificationConfig.Discord.Enabled)
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	cfg.ServerConfig.Enabled = getEnvBoolOrDefault("SERVER_ENABLED", cfg.ServerConfig.Enabled)
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.ProductionMode = getEnvBoolOrDefault("SERVER_PRODUCTION", cfg.ServerConfig.ProductionMode)
	cfg.ServerConfig.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.ServerConfig.JWTSecret)

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
}

// Validate rejects configurations the scanner cannot run with
func (c *Config) Validate() error {
	if c.ScanConfig.MinConfidence < 0 || c.ScanConfig.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be within [0,100], got %d", c.ScanConfig.MinConfidence)
	}
	if len(c.ScanConfig.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	if len(c.ScanConfig.Timeframes) == 0 {
		return fmt.Errorf("at least one timeframe is required")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
