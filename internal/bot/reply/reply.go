// Package reply sends text to Telegram chats, splitting it to fit the
// message size limit.
package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// MaxMessageLen is the Telegram limit for one text message, in characters.
const MaxMessageLen = 4096

// Sender sends one message. *bot.Bot implements it.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Split cuts text into parts of at most limit characters. It prefers to cut
// after a newline, then after a space, and only then inside a word.
func Split(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := lastIndex(runes[:limit], '\n')
		if cut <= 0 {
			cut = lastIndex(runes[:limit], ' ')
		}
		if cut <= 0 {
			cut = limit
		}

		if part := strings.TrimSpace(string(runes[:cut])); part != "" {
			parts = append(parts, part)
		}
		runes = []rune(strings.TrimLeft(string(runes[cut:]), " \n"))
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

// Send delivers text to chatID in as many messages as needed.
func Send(ctx context.Context, s Sender, chatID int64, text string) error {
	parts := Split(text, MaxMessageLen)
	for i, part := range parts {
		if _, err := s.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: part}); err != nil {
			return fmt.Errorf("failed to send part %d of %d: %w", i+1, len(parts), err)
		}
	}
	return nil
}
