// Package llm provides the single-prompt completion contract used by the
// analysis pipeline and its Gemini and OpenAI-compatible backends.
package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrorMarker prefixes the rendered form of a failed completion.
const ErrorMarker = "An error occurred: "

// ErrEmptyResponse is reported when a backend returns no text.
var ErrEmptyResponse = errors.New("empty response")

// Result is the outcome of one completion. Exactly one of Text and Err is
// meaningful: Err == nil means success.
type Result struct {
	Text string
	Err  error
}

// Success builds a successful result.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure builds a failed result.
func Failure(err error) Result {
	if err == nil {
		err = ErrEmptyResponse
	}
	return Result{Err: err}
}

// OK reports whether the completion succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// String renders the result as text. A failure renders as ErrorMarker
// followed by the error.
func (r Result) String() string {
	if r.Err != nil {
		return ErrorMarker + r.Err.Error()
	}
	return r.Text
}

// IsErrorText reports whether s looks like a rendered failure.
func IsErrorText(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), ErrorMarker)
}

// Completer sends one prompt and returns one completion. Implementations
// never panic and report every failure through Result.
type Completer interface {
	Complete(ctx context.Context, prompt string) Result
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) Result

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) Result {
	return f(ctx, prompt)
}

type stageKey struct{}

// WithStage tags ctx with the pipeline stage issuing a call ("map",
// "reduce", "keywords").
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the stage set by WithStage, or "unknown".
func StageFrom(ctx context.Context) string {
	if s, ok := ctx.Value(stageKey{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}
