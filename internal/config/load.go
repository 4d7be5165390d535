package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Environment variables use the TASKDESK_ prefix with underscores for
	// nesting, e.g. TASKDESK_TELEGRAM_BOT_TOKEN -> telegram.bot_token.
	v.SetEnvPrefix("TASKDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// An optional config file may override defaults; its absence is fine.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind nested keys explicitly so AutomaticEnv sees them even when they
	// are absent from the config file.
	for _, key := range []string{
		"server.port", "server.log_level",
		"database.url",
		"llm.gemini_api_key", "llm.model_name", "llm.timeout_seconds",
		"speech.api_key", "speech.base_url", "speech.model", "speech.language",
		"telegram.bot_token", "telegram.tasks_chat_id", "telegram.webhook_url",
		"ingest.worker_count", "ingest.queue_size", "ingest.max_attempts",
		"reminders.interval_minutes", "reminders.remind_new_minutes",
		"reminders.remind_due_24h", "reminders.remind_due_2h",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.timeout_seconds", 60)

	v.SetDefault("speech.model", "whisper-1")
	v.SetDefault("speech.language", "ru")

	v.SetDefault("ingest.worker_count", 3)
	v.SetDefault("ingest.queue_size", 100)
	v.SetDefault("ingest.max_attempts", 5)

	v.SetDefault("reminders.interval_minutes", 5)
	v.SetDefault("reminders.remind_new_minutes", 30)
	v.SetDefault("reminders.remind_due_24h", true)
	v.SetDefault("reminders.remind_due_2h", true)
}
