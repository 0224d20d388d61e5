package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/telellmgram/internal/config"
	"github.com/edgard/telellmgram/internal/llm"
	"github.com/edgard/telellmgram/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResult(t *testing.T) {
	t.Parallel()

	ok := llm.Success("پاسخ")
	assert.True(t, ok.OK())
	assert.Equal(t, "پاسخ", ok.String())

	failed := llm.Failure(errors.New("timeout"))
	assert.False(t, failed.OK())
	assert.Equal(t, "An error occurred: timeout", failed.String())
	assert.True(t, llm.IsErrorText(failed.String()))
	assert.False(t, llm.IsErrorText(ok.String()))

	assert.ErrorIs(t, llm.Failure(nil).Err, llm.ErrEmptyResponse)
}

func TestStage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", llm.StageFrom(context.Background()))
	assert.Equal(t, "reduce", llm.StageFrom(llm.WithStage(context.Background(), "reduce")))
}

func TestInstrumented(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	calls := 0
	inner := llm.CompleterFunc(func(_ context.Context, prompt string) llm.Result {
		calls++
		if prompt == "fail" {
			return llm.Failure(errors.New("boom"))
		}
		return llm.Success("ok")
	})
	c := llm.NewInstrumented(inner, m, discardLogger())

	ctx := llm.WithStage(context.Background(), "map")
	assert.True(t, c.Complete(ctx, "hello").OK())
	assert.False(t, c.Complete(ctx, "fail").OK())

	assert.Equal(t, 2, calls)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LLMCalls.WithLabelValues("map", metrics.StatusOK)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.LLMCalls.WithLabelValues("map", metrics.StatusDegraded)), 0)
}

func TestNewCompleterUnsupportedProvider(t *testing.T) {
	t.Parallel()

	_, err := llm.NewCompleter(context.Background(), config.LLMConfig{Provider: "other", APIKey: "k"}, discardLogger())
	require.Error(t, err)
}

func TestNewCompleterRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := llm.NewCompleter(context.Background(), config.LLMConfig{Provider: llm.ProviderOpenAI}, discardLogger())
	require.Error(t, err)
}

func TestOpenAICompleter(t *testing.T) {
	t.Parallel()

	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if got.Messages[0].Content == "fail" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "  تحلیل  "}}]
		}`))
	}))
	defer srv.Close()

	c, err := llm.NewOpenAICompleter(config.LLMConfig{
		APIKey:          "test-key",
		BaseURL:         srv.URL + "/v1/",
		Model:           "gpt-4o-mini",
		Temperature:     0.2,
		MaxOutputTokens: 1000,
		Timeout:         10 * time.Second,
	}, discardLogger())
	require.NoError(t, err)

	res := c.Complete(context.Background(), "سلام")
	require.True(t, res.OK(), "unexpected failure: %v", res.Err)
	assert.Equal(t, "تحلیل", res.Text)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-6)
	assert.Equal(t, 1000, got.MaxTokens)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)

	failed := c.Complete(context.Background(), "fail")
	assert.False(t, failed.OK())
	assert.True(t, llm.IsErrorText(failed.String()))
}

func TestBreaker(t *testing.T) {
	t.Parallel()

	calls := 0
	failing := llm.CompleterFunc(func(context.Context, string) llm.Result {
		calls++
		return llm.Failure(errors.New("503 unavailable"))
	})

	c := llm.NewBreaker(failing, llm.BreakerConfig{MaxFailures: 2, Cooldown: time.Hour}, discardLogger())
	for range 2 {
		assert.False(t, c.Complete(context.Background(), "p").OK())
	}
	require.Equal(t, 2, calls)

	res := c.Complete(context.Background(), "p")
	require.ErrorIs(t, res.Err, llm.ErrCircuitOpen)
	assert.True(t, llm.IsErrorText(res.String()))
	assert.Equal(t, 2, calls, "open circuit must not reach the backend")
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	t.Parallel()

	calls := 0
	cancelled := llm.CompleterFunc(func(context.Context, string) llm.Result {
		calls++
		return llm.Failure(context.Canceled)
	})

	c := llm.NewBreaker(cancelled, llm.BreakerConfig{MaxFailures: 1}, discardLogger())
	for range 3 {
		c.Complete(context.Background(), "p")
	}
	assert.Equal(t, 3, calls)
}

func TestBreakerDisabled(t *testing.T) {
	t.Parallel()

	next := llm.CompleterFunc(func(context.Context, string) llm.Result { return llm.Success("ok") })
	c := llm.NewBreaker(next, llm.BreakerConfig{}, discardLogger())
	_, wrapped := c.(*llm.Breaker)
	assert.False(t, wrapped)
}
