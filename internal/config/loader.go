package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TELELLMGRAM_LLM_API_KEY.
const EnvPrefix = "TELELLMGRAM"

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// LoadConfig loads configuration from, in increasing precedence:
//  1. default values
//  2. the YAML file at path (optional)
//  3. TELELLMGRAM_* environment variables, including those from ./.env
func LoadConfig(path string) (*Config, error) {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read config file %s: %w", ErrConfiguration, path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %w", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	return cfg, nil
}

// setDefaults registers every key so environment overrides are picked up
// by Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("corpus.index_path", DefaultIndexPath)
	v.SetDefault("corpus.import_dir", DefaultImportDir)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("llm.provider", DefaultLLMProvider)
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", DefaultLLMModel)
	v.SetDefault("llm.temperature", DefaultLLMTemperature)
	v.SetDefault("llm.max_output_tokens", DefaultLLMMaxOutputTokens)
	v.SetDefault("llm.timeout", DefaultLLMTimeout)
	v.SetDefault("llm.max_retries", DefaultLLMMaxRetries)
	v.SetDefault("llm.retry_delay", DefaultLLMRetryDelay)
	v.SetDefault("llm.breaker_failures", DefaultLLMBreakerFailures)
	v.SetDefault("llm.breaker_cooldown", DefaultLLMBreakerCooldown)

	v.SetDefault("pipeline.max_chars", DefaultMaxChars)
	v.SetDefault("pipeline.concurrency", DefaultConcurrency)
	v.SetDefault("pipeline.development_sampling", false)
	v.SetDefault("pipeline.sample_cap", DefaultSampleCap)

	v.SetDefault("analysis.language", DefaultLanguage)
	v.SetDefault("analysis.top_n", DefaultTopN)
	v.SetDefault("analysis.individual_cap", DefaultIndividualCap)
	v.SetDefault("analysis.keyword_count", DefaultKeywordCount)
	v.SetDefault("analysis.pacing.single", DefaultPacingSingle)
	v.SetDefault("analysis.pacing.topic", DefaultPacingTopic)
	v.SetDefault("analysis.pacing.window", DefaultPacingWindow)
	v.SetDefault("analysis.pacing.keyword", DefaultPacingKeyword)
	v.SetDefault("analysis.word_limits.single_map", DefaultWordsSingleMap)
	v.SetDefault("analysis.word_limits.single_reduce", DefaultWordsSingleReduce)
	v.SetDefault("analysis.word_limits.topic_map", DefaultWordsTopicMap)
	v.SetDefault("analysis.word_limits.topic_reduce", DefaultWordsTopicReduce)
	v.SetDefault("analysis.word_limits.window_map", DefaultWordsWindowMap)
	v.SetDefault("analysis.word_limits.window_reduce", DefaultWordsWindowReduce)
	v.SetDefault("analysis.word_limits.individual", DefaultWordsIndividual)
	v.SetDefault("analysis.letter_floors.single", DefaultLettersSingle)
	v.SetDefault("analysis.letter_floors.window", DefaultLettersWindow)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)
	v.SetDefault("telegram.run_timeout", DefaultRunTimeout)

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.error_unauthorized", DefaultMessages.ErrorUnauthorizedMsg)
	v.SetDefault("messages.error_general", DefaultMessages.ErrorGeneralMsg)
	v.SetDefault("messages.analyze_progress", DefaultMessages.AnalyzeProgressMsg)
	v.SetDefault("messages.analyze_timeout", DefaultMessages.AnalyzeTimeoutMsg)
	v.SetDefault("messages.analyze_busy", DefaultMessages.AnalyzeBusyMsg)
	v.SetDefault("messages.analyze_failed_fmt", DefaultMessages.AnalyzeFailedFmt)
	v.SetDefault("messages.analyze_degraded_fmt", DefaultMessages.AnalyzeDegradedFmt)
	v.SetDefault("messages.usage_fmt", DefaultMessages.UsageFmt)
	v.SetDefault("messages.no_media", DefaultMessages.NoMediaMsg)
	v.SetDefault("messages.media_header", DefaultMessages.MediaHeader)
	v.SetDefault("messages.trend_digest_header_fmt", DefaultMessages.TrendDigestHeaderFmt)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
		"trend_digest":    map[string]any{"enabled": false, "schedule": "0 0 8 * * 1"},
		"corpus_reload":   map[string]any{"enabled": true, "schedule": "0 */15 * * * *"},
	})
	v.SetDefault("scheduler.trend_digest.media_ids", []int64{})
	v.SetDefault("scheduler.trend_digest.days", DefaultTrendDigestDays)
	v.SetDefault("scheduler.trend_digest.chat_id", 0)

	v.SetDefault("metrics.addr", "")
}
