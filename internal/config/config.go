package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
// Driver selects the storage backend: "postgres" for production, "sqlite"
// for local development and tests.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required"`
}

// LLMConfig contains all text-generation related settings.
type LLMConfig struct {
	GeminiAPIKey          string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName             string `mapstructure:"model_name" validate:"required"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gte=0"`
}

// WorkerConfig contains settings for the background job runner: pool size,
// queue depth, and the bounded retry policy applied to failed jobs.
type WorkerConfig struct {
	Count             int `mapstructure:"count" validate:"required,gt=0"`
	QueueSize         int `mapstructure:"queue_size" validate:"required,gt=0"`
	MaxAttempts       int `mapstructure:"max_attempts" validate:"required,gt=0"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}
