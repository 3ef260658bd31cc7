package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "REELGEN"

var defaults = map[string]any{
	"server.port":             8080,
	"server.log_level":        "info",
	"server.shutdown_timeout": "15s",

	"database.max_open_conns":    10,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": "30m",
	"database.auto_migrate":      false,

	"providers.chat.backend":                  "openai",
	"providers.chat.model":                    "gpt-4o-mini",
	"providers.chat.retry.max_attempts":       3,
	"providers.chat.retry.initial_delay":      "5s",
	"providers.chat.retry.backoff_multiplier": 2.0,
	"providers.chat.retry.attempt_timeout":    "60s",

	"providers.vision.model":                    "gpt-4o-mini",
	"providers.vision.detail":                   "low",
	"providers.vision.max_tokens":               300,
	"providers.vision.retry.max_attempts":       4,
	"providers.vision.retry.initial_delay":      "1s",
	"providers.vision.retry.backoff_multiplier": 2.0,
	"providers.vision.retry.attempt_timeout":    "30s",

	"providers.tts.voice":                    "female-warm",
	"providers.tts.audio_encoding":           "mp3",
	"providers.tts.sample_rate":              24000,
	"providers.tts.retry.max_attempts":       4,
	"providers.tts.retry.initial_delay":      "1s",
	"providers.tts.retry.backoff_multiplier": 2.0,
	"providers.tts.retry.attempt_timeout":    "30s",

	"generation.cache_ttl":                            "1h",
	"generation.script.base_temperature":              0.7,
	"generation.script.temperature_increment":         0.1,
	"generation.script.max_temperature":               0.9,
	"generation.script.max_regenerations":             5,
	"generation.script.max_tokens":                    1200,
	"generation.publish_assist.base_temperature":      0.8,
	"generation.publish_assist.temperature_increment": 0.1,
	"generation.publish_assist.max_temperature":       1.0,
	"generation.publish_assist.max_regenerations":     3,
	"generation.publish_assist.max_tokens":            600,

	"frames.concurrency": 4,
	"frames.top_n":       2,

	"narration.segment_max_length": 300,
	"narration.concurrency":        3,
	"narration.output_dir":         "./data/narration",

	"tasks.worker_count":   2,
	"tasks.queue_size":     100,
	"tasks.stuck_task_age": "30m",

	"reconcile.enabled":    true,
	"reconcile.schedule":   "@every 5m",
	"reconcile.min_age":    "1m",
	"reconcile.batch_size": 50,
}

// Keys without defaults that must still be read from the environment.
var secretKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"providers.chat.openai_api_key",
	"providers.chat.openai_base_url",
	"providers.chat.gemini_api_key",
	"providers.vision.api_key",
	"providers.vision.base_url",
	"providers.tts.base_url",
	"providers.tts.api_key",
}

// Load configuration from environment variables and optionally a
// config.yaml in the working directory. Environment variables, prefixed
// with REELGEN_, take precedence over values from the file.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
