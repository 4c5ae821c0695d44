package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string        `env:"TELEGRAM_TOKEN"`
	DatabaseURL    string        `env:"DATABASE_URL" envDefault:"gatekeeper.db"`
	CallbackSecret string        `env:"CALLBACK_SECRET"`
	RootID         int64         `env:"ROOT_ID"`
	BotUsername    string        `env:"BOT_USERNAME" envDefault:"register_yivrbot"`
	PhonePrefix    string        `env:"PHONE_PREFIX" envDefault:"+375"`
	MuteDuration   time.Duration `env:"MUTE_DURATION" envDefault:"24h"`
	TempMessageTTL time.Duration `env:"TEMP_MESSAGE_TTL" envDefault:"15s"`
	DraftTTL       time.Duration `env:"DRAFT_TTL" envDefault:"24h"`
	SweepInterval  time.Duration `env:"DRAFT_SWEEP_INTERVAL" envDefault:"10m"`
	Debug          bool          `env:"DEBUG" envDefault:"false"`
}

// Load reads configuration from the environment (with an optional .env file).
func Load() (Config, error) {
	// Missing .env is fine: production deployments set real env vars.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if cfg.CallbackSecret == "" {
		return cfg, fmt.Errorf("CALLBACK_SECRET is required")
	}
	if cfg.RootID == 0 {
		return cfg, fmt.Errorf("ROOT_ID is required")
	}
	if cfg.MuteDuration <= 0 {
		return cfg, fmt.Errorf("MUTE_DURATION must be positive")
	}

	return cfg, nil
}
