// Package config provides configuration loading and validation for
// TeleLLMgram. Values come from a YAML file, TELELLMGRAM_* environment
// variables (optionally from a local .env file) and built-in defaults.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config is the complete application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Corpus    CorpusConfig    `mapstructure:"corpus"`
	Database  DatabaseConfig  `mapstructure:"database"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// LoggerConfig controls log level and format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// CorpusConfig locates the media index and the directory imports write to.
type CorpusConfig struct {
	IndexPath string `mapstructure:"index_path" validate:"required"`
	ImportDir string `mapstructure:"import_dir" validate:"required"`
}

// DatabaseConfig locates the audit database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"          validate:"oneof=gemini openai"`
	BaseURL         string        `mapstructure:"base_url"          validate:"omitempty,url"`
	APIKey          string        `mapstructure:"api_key"`
	Model           string        `mapstructure:"model"             validate:"required"`
	Temperature     float32       `mapstructure:"temperature"       validate:"min=0,max=2"`
	MaxOutputTokens int           `mapstructure:"max_output_tokens" validate:"min=1"`
	Timeout         time.Duration `mapstructure:"timeout"           validate:"min=1s"`
	MaxRetries      int           `mapstructure:"max_retries"       validate:"min=0,max=10"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`

	// BreakerFailures consecutive failed calls stop further calls for
	// BreakerCooldown. Zero disables the breaker.
	BreakerFailures int           `mapstructure:"breaker_failures" validate:"min=0"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// PipelineConfig bounds the map-reduce orchestrator.
type PipelineConfig struct {
	MaxChars            int  `mapstructure:"max_chars"            validate:"min=1000"`
	Concurrency         int  `mapstructure:"concurrency"          validate:"min=1,max=16"`
	DevelopmentSampling bool `mapstructure:"development_sampling"`
	SampleCap           int  `mapstructure:"sample_cap"           validate:"min=1"`
}

// AnalysisConfig holds the per-variant policy knobs.
type AnalysisConfig struct {
	Language      string             `mapstructure:"language"       validate:"required"`
	TopN          int                `mapstructure:"top_n"          validate:"min=1"`
	IndividualCap int                `mapstructure:"individual_cap" validate:"min=1"`
	KeywordCount  int                `mapstructure:"keyword_count"  validate:"min=1,max=20"`
	Pacing        PacingConfig       `mapstructure:"pacing"`
	WordLimits    WordLimitsConfig   `mapstructure:"word_limits"`
	LetterFloors  LetterFloorsConfig `mapstructure:"letter_floors"`
}

// PacingConfig is the minimum spacing between LLM calls of one run.
type PacingConfig struct {
	Single  time.Duration `mapstructure:"single"`
	Topic   time.Duration `mapstructure:"topic"`
	Window  time.Duration `mapstructure:"window"`
	Keyword time.Duration `mapstructure:"keyword"`
}

// WordLimitsConfig are the word limits requested from the model.
type WordLimitsConfig struct {
	SingleMap    int `mapstructure:"single_map"    validate:"min=1"`
	SingleReduce int `mapstructure:"single_reduce" validate:"min=1"`
	TopicMap     int `mapstructure:"topic_map"     validate:"min=1"`
	TopicReduce  int `mapstructure:"topic_reduce"  validate:"min=1"`
	WindowMap    int `mapstructure:"window_map"    validate:"min=1"`
	WindowReduce int `mapstructure:"window_reduce" validate:"min=1"`
	Individual   int `mapstructure:"individual"    validate:"min=1"`
}

// LetterFloorsConfig is the minimum number of script letters a record needs
// to be chunked.
type LetterFloorsConfig struct {
	Single int `mapstructure:"single" validate:"min=0"`
	Window int `mapstructure:"window" validate:"min=0"`
}

// TelegramConfig configures the bot surface.
type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	AdminUserID int64         `mapstructure:"admin_user_id" validate:"min=0"`
	RunTimeout  time.Duration `mapstructure:"run_timeout"   validate:"min=1m"`

	// BotInfo is filled at startup from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// MessagesConfig holds the user-facing bot texts.
type MessagesConfig struct {
	Welcome              string `mapstructure:"welcome"`
	Help                 string `mapstructure:"help"`
	ErrorUnauthorizedMsg string `mapstructure:"error_unauthorized"`
	ErrorGeneralMsg      string `mapstructure:"error_general"`
	AnalyzeProgressMsg   string `mapstructure:"analyze_progress"`
	AnalyzeTimeoutMsg    string `mapstructure:"analyze_timeout"`
	AnalyzeBusyMsg       string `mapstructure:"analyze_busy"`
	AnalyzeFailedFmt     string `mapstructure:"analyze_failed_fmt"`
	AnalyzeDegradedFmt   string `mapstructure:"analyze_degraded_fmt"`
	UsageFmt             string `mapstructure:"usage_fmt"`
	NoMediaMsg           string `mapstructure:"no_media"`
	MediaHeader          string `mapstructure:"media_header"`
	TrendDigestHeaderFmt string `mapstructure:"trend_digest_header_fmt"`
}

// SchedulerConfig lists the scheduled tasks.
type SchedulerConfig struct {
	Tasks       map[string]TaskConfig `mapstructure:"tasks"`
	TrendDigest TrendDigestConfig     `mapstructure:"trend_digest"`
}

// TaskConfig enables a registered task on a cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// TrendDigestConfig configures the periodic trend digest.
type TrendDigestConfig struct {
	MediaIDs []int64 `mapstructure:"media_ids"`
	Days     int     `mapstructure:"days"    validate:"min=1"`
	ChatID   int64   `mapstructure:"chat_id"`
}

// MetricsConfig configures the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}
