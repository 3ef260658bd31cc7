package config

import (
	"time"

	"github.com/phrazzld/reelgen-api/internal/retry"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth" validate:"required"`
	Providers  ProvidersConfig  `mapstructure:"providers" validate:"required"`
	Generation GenerationConfig `mapstructure:"generation" validate:"required"`
	Frames     FramesConfig     `mapstructure:"frames" validate:"required"`
	Narration  NarrationConfig  `mapstructure:"narration" validate:"required"`
	Tasks      TaskConfig       `mapstructure:"tasks" validate:"required"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url" validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gte=0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// AuthConfig holds the secret used to verify bearer tokens issued by the
// upstream auth service.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// ProvidersConfig groups the external AI and speech providers.
type ProvidersConfig struct {
	Chat   ChatProviderConfig   `mapstructure:"chat" validate:"required"`
	Vision VisionProviderConfig `mapstructure:"vision" validate:"required"`
	TTS    TTSProviderConfig    `mapstructure:"tts" validate:"required"`
}

// ChatProviderConfig selects and configures the chat-completion backend.
type ChatProviderConfig struct {
	Backend       string      `mapstructure:"backend" validate:"required,oneof=openai gemini"`
	Model         string      `mapstructure:"model" validate:"required"`
	OpenAIAPIKey  string      `mapstructure:"openai_api_key" validate:"required_if=Backend openai"`
	OpenAIBaseURL string      `mapstructure:"openai_base_url" validate:"omitempty,url"`
	GeminiAPIKey  string      `mapstructure:"gemini_api_key" validate:"required_if=Backend gemini"`
	GeminiBaseURL string      `mapstructure:"gemini_base_url" validate:"omitempty,url"`
	Retry         RetryConfig `mapstructure:"retry" validate:"required"`
}

// VisionProviderConfig configures the OpenAI-compatible vision model.
type VisionProviderConfig struct {
	APIKey    string      `mapstructure:"api_key" validate:"required"`
	BaseURL   string      `mapstructure:"base_url" validate:"omitempty,url"`
	Model     string      `mapstructure:"model" validate:"required"`
	Detail    string      `mapstructure:"detail" validate:"oneof=auto low high"`
	MaxTokens int         `mapstructure:"max_tokens" validate:"gte=1"`
	Retry     RetryConfig `mapstructure:"retry" validate:"required"`
}

// TTSProviderConfig configures the text-to-speech HTTP API.
type TTSProviderConfig struct {
	BaseURL       string      `mapstructure:"base_url" validate:"required,url"`
	APIKey        string      `mapstructure:"api_key" validate:"required"`
	Voice         string      `mapstructure:"voice" validate:"required"`
	AudioEncoding string      `mapstructure:"audio_encoding" validate:"required,oneof=mp3 wav pcm"`
	SampleRate    int         `mapstructure:"sample_rate" validate:"gte=8000"`
	Retry         RetryConfig `mapstructure:"retry" validate:"required"`
}

// RetryConfig is the serialized form of a retry.Policy.
type RetryConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts" validate:"gte=1,lte=10"`
	InitialDelay      time.Duration `mapstructure:"initial_delay" validate:"gte=0"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" validate:"gte=1"`
	AttemptTimeout    time.Duration `mapstructure:"attempt_timeout" validate:"gt=0"`
}

// Policy converts the configuration into a retry.Policy with the default classifier.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:       c.MaxAttempts,
		InitialDelay:      c.InitialDelay,
		BackoffMultiplier: c.BackoffMultiplier,
		AttemptTimeout:    c.AttemptTimeout,
	}
}

// GenerationConfig configures the script and publish-assist orchestrators.
type GenerationConfig struct {
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gt=0"`
	Script        KindConfig    `mapstructure:"script" validate:"required"`
	PublishAssist KindConfig    `mapstructure:"publish_assist" validate:"required"`
}

// KindConfig holds the temperature schedule and regeneration ceiling of one
// generation kind.
type KindConfig struct {
	BaseTemperature      float64 `mapstructure:"base_temperature" validate:"gte=0,lte=2"`
	TemperatureIncrement float64 `mapstructure:"temperature_increment" validate:"gte=0"`
	MaxTemperature       float64 `mapstructure:"max_temperature" validate:"gtefield=BaseTemperature,lte=2"`
	MaxRegenerations     int     `mapstructure:"max_regenerations" validate:"gte=0"`
	MaxTokens            int     `mapstructure:"max_tokens" validate:"gte=1"`
}

// FramesConfig configures frame analysis.
type FramesConfig struct {
	Concurrency int `mapstructure:"concurrency" validate:"gte=1,lte=32"`
	TopN        int `mapstructure:"top_n" validate:"gte=1"`
}

// NarrationConfig configures narration synthesis.
type NarrationConfig struct {
	SegmentMaxLength int    `mapstructure:"segment_max_length" validate:"gte=10"`
	Concurrency      int    `mapstructure:"concurrency" validate:"gte=1"`
	OutputDir        string `mapstructure:"output_dir" validate:"required"`
}

// TaskConfig configures the background task runner.
type TaskConfig struct {
	WorkerCount  int           `mapstructure:"worker_count" validate:"gte=1"`
	QueueSize    int           `mapstructure:"queue_size" validate:"gte=1"`
	StuckTaskAge time.Duration `mapstructure:"stuck_task_age" validate:"gt=0"`
}

// ReconcileConfig configures the republishing of completion events that
// were lost after commit.
type ReconcileConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Schedule  string        `mapstructure:"schedule" validate:"required"`
	MinAge    time.Duration `mapstructure:"min_age" validate:"gte=0"`
	BatchSize int           `mapstructure:"batch_size" validate:"gte=1"`
}
