package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBaseURL   = "https://custom-email-sender-production.up.railway.app/api"
	DefaultCallbackAddr = "127.0.0.1:8765"
)

// Config holds everything the client reads from the environment.
type Config struct {
	APIBaseURL         string
	CallbackAddr       string
	SessionFile        string
	SessionDatabaseURL string
	LogServerURL       string
	LogFormat          string
	LogLevel           string
	TelegramToken      string
	TelegramChatID     int64
	LoginTimeout       time.Duration
	HTTPTimeout        time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, relying on environment variables")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a getenv-style lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		APIBaseURL:         getenv("API_BASE_URL"),
		CallbackAddr:       getenv("CALLBACK_ADDR"),
		SessionFile:        getenv("SESSION_FILE"),
		SessionDatabaseURL: getenv("SESSION_DATABASE_URL"),
		LogServerURL:       getenv("LOG_SERVER_URL"),
		LogFormat:          getenv("LOG_FORMAT"),
		LogLevel:           getenv("LOG_LEVEL"),
		TelegramToken:      getenv("TELEGRAM_TOKEN"),
		LoginTimeout:       5 * time.Minute,
		HTTPTimeout:        30 * time.Second,
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.CallbackAddr == "" {
		cfg.CallbackAddr = DefaultCallbackAddr
	}

	if raw := getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if raw := getenv("LOGIN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("LOGIN_TIMEOUT: %w", err)
		}
		cfg.LoginTimeout = d
	}
	if raw := getenv("HTTP_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}

	return cfg, nil
}
