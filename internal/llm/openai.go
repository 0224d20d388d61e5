package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/edgard/telellmgram/internal/config"
)

// OpenAICompleter completes prompts with any OpenAI-compatible chat
// completions endpoint.
type OpenAICompleter struct {
	client      *openai.Client
	log         *slog.Logger
	model       string
	temperature float64
	maxTokens   int64
}

// NewOpenAICompleter creates an OpenAI-compatible backend from cfg.
func NewOpenAICompleter(cfg config.LLMConfig, log *slog.Logger) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	client := openai.NewClient(opts...)

	logger := log.With("component", "openai_completer")
	logger.Info("OpenAI completer initialized", "model", cfg.Model, "base_url", cfg.BaseURL)
	return &OpenAICompleter{
		client:      &client,
		log:         logger,
		model:       cfg.Model,
		temperature: float64(cfg.Temperature),
		maxTokens:   int64(cfg.MaxOutputTokens),
	}, nil
}

// Complete sends prompt as a single user message.
func (c *OpenAICompleter) Complete(ctx context.Context, prompt string) Result {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	})
	if err != nil {
		c.log.WarnContext(ctx, "OpenAI chat completion failed", "error", err)
		return Failure(fmt.Errorf("chat completion failed: %w", err))
	}

	if len(resp.Choices) == 0 {
		return Failure(fmt.Errorf("%w: no choices", ErrEmptyResponse))
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return Failure(fmt.Errorf("%w, finish reason: %s", ErrEmptyResponse, resp.Choices[0].FinishReason))
	}
	return Success(text)
}
