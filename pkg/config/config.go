// Package config loads artbot configuration from a JSON file with
// environment-variable overrides on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type TelegramConfig struct {
	Enabled bool   `json:"enabled" env:"ARTBOT_TELEGRAM_ENABLED"`
	Token   string `json:"token" env:"TELEGRAM_BOT_TOKEN"`
}

type RedisConfig struct {
	Addr     string `json:"addr" env:"REDIS_ADDR"`
	Password string `json:"password" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB"`
}

type PostgresConfig struct {
	DSN string `json:"dsn" env:"POSTGRES_DSN"`
}

type LemmaConfig struct {
	URL            string `json:"url" env:"LEMMA_SERVICE_URL"`
	TimeoutSeconds int    `json:"timeout_seconds" env:"LEMMA_TIMEOUT_SECONDS"`
}

type SessionConfig struct {
	TTLSeconds int `json:"ttl_seconds" env:"SESSION_TTL_SECONDS"`
}

// DialogueConfig carries the conversational surface: the bot's display
// name, the reset markers, and the menu texts that trigger a question
// batch per category type.
type DialogueConfig struct {
	BotName          string            `json:"bot_name" env:"ARTBOT_NAME"`
	ResetCommands    []string          `json:"reset_commands"`
	CategoryTriggers map[string]string `json:"category_triggers"`
}

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Redis    RedisConfig    `json:"redis"`
	Postgres PostgresConfig `json:"postgres"`
	Lemma    LemmaConfig    `json:"lemma"`
	Session  SessionConfig  `json:"session"`
	Dialogue DialogueConfig `json:"dialogue"`
}

// SessionTTL returns the TTL applied to every conversational session key.
func (c *Config) SessionTTL() time.Duration {
	if c.Session.TTLSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.Session.TTLSeconds) * time.Second
}

// LemmaTimeout returns the per-call timeout for the lemma service client.
func (c *Config) LemmaTimeout() time.Duration {
	if c.Lemma.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Lemma.TimeoutSeconds) * time.Second
}

func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Enabled: true},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Lemma:    LemmaConfig{TimeoutSeconds: 5},
		Session:  SessionConfig{TTLSeconds: 600},
		Dialogue: DialogueConfig{
			BotName:       "Мелодия",
			ResetCommands: []string{"/reset", "Домой"},
			CategoryTriggers: map[string]string{
				"/begin":      "art",
				"Арт-терапия": "art",
			},
		},
	}
}

// LoadConfig reads the JSON config at path (if present) over the defaults,
// then applies environment overrides. A missing file is not an error: env
// vars alone can configure a deployment.
func LoadConfig(path string) (*Config, error) {
	// .env files are optional developer convenience
	for _, p := range []string{".env", "../.env"} {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// defaults + env only
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("applying env overrides: %w", err)
	}

	return cfg, nil
}
