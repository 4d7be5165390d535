package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Telegram  TelegramConfig  `mapstructure:"telegram"  validate:"required"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Reminders RemindersConfig `mapstructure:"reminders"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// LLMConfig contains settings for the task classification service.
type LLMConfig struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key"  validate:"required"`
	ModelName      string `mapstructure:"model_name"      validate:"required"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=1,lte=300"`
}

// SpeechConfig contains settings for the speech-to-text collaborator used to
// transcribe voice and video messages. An empty API key disables audio
// ingestion.
type SpeechConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

// TelegramConfig contains the bot credentials and the tracking conversation
// the task board lives in.
type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"     validate:"required"`
	TasksChatID string `mapstructure:"tasks_chat_id" validate:"required"`
	WebhookURL  string `mapstructure:"webhook_url"`
}

// IngestConfig tunes the inbound-message worker pool.
type IngestConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gte=1,lte=64"`
	QueueSize   int `mapstructure:"queue_size"   validate:"gte=1"`
	MaxAttempts int `mapstructure:"max_attempts" validate:"gte=1,lte=20"`
}

// RemindersConfig tunes the reminder scheduler windows and throttle.
type RemindersConfig struct {
	IntervalMinutes  int  `mapstructure:"interval_minutes"   validate:"gte=1"`
	RemindNewMinutes int  `mapstructure:"remind_new_minutes" validate:"gte=1"`
	RemindDue24h     bool `mapstructure:"remind_due_24h"`
	RemindDue2h      bool `mapstructure:"remind_due_2h"`
}
