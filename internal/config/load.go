package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is the prefix for all environment variables read by Load,
// e.g. GUIDELINE_DATABASE_URL maps to database.url.
const envPrefix = "GUIDELINE"

// Load reads configuration from environment variables and an optional
// config.yaml in the working directory. Environment variables take
// precedence over values from the config file. Returns a populated Config
// struct or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.request_timeout_seconds", 60)
	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.queue_size", 100)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.retry_delay_seconds", 60)

	// Configure to read from an optional config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can carry everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Configure environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind critical environment variables
	bindEnvs := []struct {
		key    string
		envVar string
	}{
		{"server.port", "GUIDELINE_SERVER_PORT"},
		{"server.log_level", "GUIDELINE_SERVER_LOG_LEVEL"},
		{"database.driver", "GUIDELINE_DATABASE_DRIVER"},
		{"database.url", "GUIDELINE_DATABASE_URL"},
		{"llm.gemini_api_key", "GUIDELINE_LLM_GEMINI_API_KEY"},
		{"llm.model_name", "GUIDELINE_LLM_MODEL_NAME"},
		{"llm.request_timeout_seconds", "GUIDELINE_LLM_REQUEST_TIMEOUT_SECONDS"},
		{"worker.count", "GUIDELINE_WORKER_COUNT"},
		{"worker.queue_size", "GUIDELINE_WORKER_QUEUE_SIZE"},
		{"worker.max_attempts", "GUIDELINE_WORKER_MAX_ATTEMPTS"},
		{"worker.retry_delay_seconds", "GUIDELINE_WORKER_RETRY_DELAY_SECONDS"},
	}

	for _, env := range bindEnvs {
		if err := v.BindEnv(env.key, env.envVar); err != nil {
			return nil, fmt.Errorf("error binding environment variable %s: %w", env.envVar, err)
		}
	}

	// Unmarshal and validate
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
