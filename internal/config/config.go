package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hitoshi/blackjack/internal/database"
	"github.com/hitoshi/blackjack/internal/logger"
	"github.com/joho/godotenv"
)

// envFileVar は読み込む.envファイルのパスを指定する環境変数。
const envFileVar = "ENV_FILE"

// defaultEnvFile は.envファイルのデフォルトパス。
const defaultEnvFile = ".env"

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://card.db"`

	// Server
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`

	// Card API
	CardAPIBaseURL string        `env:"CARD_API_BASE_URL" envDefault:"https://deckofcardsapi.com/api"`
	CardAPITimeout time.Duration `env:"CARD_API_TIMEOUT" envDefault:"0s"`
	DeckCount      int           `env:"DECK_COUNT" envDefault:"1"`

	// Rate Limit（1分あたりのリクエスト数/クライアントIP）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// NATS（URLが空の場合は通知しない）
	NATSURL     string `env:"NATS_URL"`
	NATSToken   string `env:"NATS_TOKEN"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"blackjack.hands.played"`
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
// 既に設定されている環境変数は.envファイルの値で上書きしない。
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile はENV_FILE（未設定時は.env）を読み込む。ファイルがなければ何もしない。
func loadEnvFile() error {
	path := os.Getenv(envFileVar)
	if path == "" {
		path = defaultEnvFile
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// validate は設定値の整合性を検証する。
func (c *Config) validate() error {
	if _, err := database.ParseDialect(c.DatabaseURL); err != nil {
		return fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	port, err := strconv.Atoi(c.ServerPort)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %q", c.ServerPort)
	}

	u, err := url.Parse(c.CardAPIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid CARD_API_BASE_URL: %q", c.CardAPIBaseURL)
	}

	if c.CardAPITimeout < 0 {
		return fmt.Errorf("invalid CARD_API_TIMEOUT: %s", c.CardAPITimeout)
	}

	if c.DeckCount < 1 {
		return fmt.Errorf("invalid DECK_COUNT: %d (must be at least 1)", c.DeckCount)
	}

	if c.RateLimitGeneral < 1 {
		return fmt.Errorf("invalid RATE_LIMIT_GENERAL: %d (must be at least 1)", c.RateLimitGeneral)
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if c.NATSURL != "" && c.NATSSubject == "" {
		return errors.New("NATS_SUBJECT must not be empty when NATS_URL is set")
	}

	return nil
}
