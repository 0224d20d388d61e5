package telegram

import (
	"context"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func TestTokenPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		token    string
		expected string
	}{
		{name: "Regular", token: "123456:ABC-DEF1234ghIkl", expected: "123456:..."},
		{name: "No separator", token: "short", expected: "redacted"},
		{name: "Suspicious id", token: "12345678901234567890:x", expected: "redacted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tokenPrefix(tt.token); got != tt.expected {
				t.Errorf("tokenPrefix(%q) = %q, want %q", tt.token, got, tt.expected)
			}
		})
	}
}

func TestApplyMiddlewareOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) bot.Middleware {
		return func(next bot.HandlerFunc) bot.HandlerFunc {
			return func(ctx context.Context, b *bot.Bot, u *models.Update) {
				order = append(order, name)
				next(ctx, b, u)
			}
		}
	}
	handler := func(context.Context, *bot.Bot, *models.Update) { order = append(order, "handler") }

	applyMiddleware(handler, []bot.Middleware{mark("outer"), mark("inner")})(context.Background(), nil, &models.Update{})

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	t.Parallel()

	if _, err := NewTelegramBot("", nil); err == nil {
		t.Error("NewTelegramBot() with empty token expected error")
	}
}
