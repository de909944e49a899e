package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config contains all runtime settings for the conversation service.
type Config struct {
	BindAddr         string        `env:"APP_BIND_ADDR" envDefault:":8080"`
	ShutdownTimeout  time.Duration `env:"APP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
	MetricsNamespace string        `env:"APP_METRICS_NAMESPACE" envDefault:"parley"`
	AllowAnyOrigin   bool          `env:"APP_ALLOW_ANY_ORIGIN" envDefault:"false"`

	SessionInactivityTimeout time.Duration `env:"APP_SESSION_INACTIVITY_TIMEOUT" envDefault:"30m"`
	JanitorInterval          time.Duration `env:"APP_JANITOR_INTERVAL" envDefault:"30s"`

	// Backend selection: openai, ollama, mock or auto.
	BackendProvider string `env:"BACKEND_PROVIDER" envDefault:"auto"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	OpenAIModel     string `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	OllamaBaseURL   string `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	OllamaModel     string `env:"OLLAMA_MODEL" envDefault:"llama3.2:1b"`

	// Snapshots go to Postgres when DATABASE_URL is set, otherwise to
	// JSON files under ArchiveDir.
	DatabaseURL string `env:"DATABASE_URL"`
	ArchiveDir  string `env:"ARCHIVE_DIR" envDefault:"conversations"`

	// Cron spec for the periodic autosave of active sessions. Empty
	// disables it.
	AutosaveSpec string `env:"AUTOSAVE_CRON" envDefault:"@every 5m"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
}

// Load reads environment variables and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.BackendProvider {
	case "openai", "ollama", "mock", "auto":
	default:
		return fmt.Errorf("invalid BACKEND_PROVIDER %q", c.BackendProvider)
	}
	if c.BackendProvider == "openai" && c.OpenAIAPIKey == "" {
		return fmt.Errorf("BACKEND_PROVIDER=openai requires OPENAI_API_KEY")
	}
	if c.SessionInactivityTimeout <= 0 {
		return fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("APP_SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}
