package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/telellmgram/internal/config"
	"github.com/edgard/telellmgram/internal/metrics"
)

// Supported providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// NewCompleter creates the backend selected by cfg.Provider, behind a
// circuit breaker when cfg.BreakerFailures is set.
func NewCompleter(ctx context.Context, cfg config.LLMConfig, log *slog.Logger) (Completer, error) {
	var (
		backend Completer
		err     error
	)
	switch cfg.Provider {
	case ProviderGemini:
		backend, err = NewGeminiCompleter(ctx, cfg, log)
	case ProviderOpenAI:
		backend, err = NewOpenAICompleter(cfg, log)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewBreaker(backend, BreakerConfig{MaxFailures: cfg.BreakerFailures, Cooldown: cfg.BreakerCooldown}, log), nil
}

// Instrumented records the stage, status and latency of every call made
// through next.
type Instrumented struct {
	next    Completer
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewInstrumented wraps next.
func NewInstrumented(next Completer, m *metrics.Metrics, log *slog.Logger) *Instrumented {
	return &Instrumented{next: next, metrics: m, log: log.With("component", "llm")}
}

// Complete calls the wrapped completer.
func (i *Instrumented) Complete(ctx context.Context, prompt string) Result {
	stage := StageFrom(ctx)
	start := time.Now()

	res := i.next.Complete(ctx, prompt)

	elapsed := time.Since(start)
	i.metrics.ObserveCall(stage, res.OK(), elapsed)
	if res.OK() {
		i.log.DebugContext(ctx, "LLM call completed", "stage", stage, "prompt_chars", len([]rune(prompt)), "duration", elapsed)
	} else {
		i.log.WarnContext(ctx, "LLM call failed", "stage", stage, "duration", elapsed, "error", res.Err)
	}
	return res
}
