package config

import "time"

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultIndexPath = "media/index.csv"
	DefaultImportDir = "media"
	DefaultDBPath    = "telellmgram.db"

	DefaultLLMProvider        = "openai"
	DefaultLLMModel           = "gpt-4o-mini"
	DefaultLLMTemperature     = 0.2
	DefaultLLMMaxOutputTokens = 1000
	DefaultLLMTimeout         = 2 * time.Minute
	DefaultLLMMaxRetries      = 2
	DefaultLLMRetryDelay      = 5 * time.Second
	DefaultLLMBreakerFailures = 5
	DefaultLLMBreakerCooldown = 2 * time.Minute

	DefaultMaxChars    = 200_000
	DefaultConcurrency = 1
	DefaultSampleCap   = 5

	DefaultLanguage      = "Persian"
	DefaultTopN          = 200
	DefaultIndividualCap = 1000
	DefaultKeywordCount  = 5

	DefaultPacingSingle  = 25 * time.Second
	DefaultPacingTopic   = 30 * time.Second
	DefaultPacingWindow  = 60 * time.Second
	DefaultPacingKeyword = 20 * time.Second

	DefaultWordsSingleMap    = 500
	DefaultWordsSingleReduce = 800
	DefaultWordsTopicMap     = 1000
	DefaultWordsTopicReduce  = 1500
	DefaultWordsWindowMap    = 500
	DefaultWordsWindowReduce = 300
	DefaultWordsIndividual   = 500

	DefaultLettersSingle = 20
	DefaultLettersWindow = 10

	DefaultRunTimeout      = 2 * time.Hour
	DefaultTrendDigestDays = 7
)

// DefaultMessages are the bot texts used when none are configured.
var DefaultMessages = MessagesConfig{
	Welcome: "TeleLLMgram is ready. Send /help to see the available analyses.",
	Help: "Available commands:\n" +
		"/media - list the imported channels and groups\n" +
		"/analyze <media_id> [dd/mm/yy dd/mm/yy] <question> - analyze one media\n" +
		"/topic <id,id,...> <question> - topic analysis across media\n" +
		"/window <media_id> <dd/mm/yy> <dd/mm/yy> <question> - what was discussed in a period\n" +
		"/trend <media_id> <dd/mm/yy> <dd/mm/yy> - trending topics in a period\n" +
		"/user <media_id> <sender_id> <question> - analyze one group member",
	ErrorUnauthorizedMsg: "You are not authorized to use this command.",
	ErrorGeneralMsg:      "An error occurred. Please try again later.",
	AnalyzeProgressMsg:   "Analysis started. This can take a while; the result will be sent here.",
	AnalyzeTimeoutMsg:    "The analysis did not finish in time.",
	AnalyzeBusyMsg:       "Another analysis is still running. Try again when it has finished.",
	AnalyzeFailedFmt:     "The analysis failed: %s",
	AnalyzeDegradedFmt:   "Note: %d of %d partial analyses failed and were skipped.",
	UsageFmt:             "Usage: %s",
	NoMediaMsg:           "No media have been imported yet.",
	MediaHeader:          "Imported media:",
	TrendDigestHeaderFmt: "Trend digest for %s (%s):",
}
