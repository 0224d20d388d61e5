package reply

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TypingInterval is how often the typing action is renewed. Telegram shows
// it for about five seconds.
const TypingInterval = 4 * time.Second

// ActionSender sends chat actions. *bot.Bot implements it.
type ActionSender interface {
	SendChatAction(ctx context.Context, params *bot.SendChatActionParams) (bool, error)
}

// KeepTyping shows the typing indicator in chatID until ctx is done.
func KeepTyping(ctx context.Context, s ActionSender, chatID int64, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		_, err := s.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.DebugContext(ctx, "Typing action failed", "error", err, "chat_id", chatID)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
