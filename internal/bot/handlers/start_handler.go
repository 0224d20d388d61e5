package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/telellmgram/internal/bot/reply"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return textHandler{deps: deps, name: "start", text: deps.Config.Messages.Welcome}.Handle
}

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return textHandler{deps: deps, name: "help", text: deps.Config.Messages.Help}.Handle
}

// textHandler answers a command with a fixed configured text.
type textHandler struct {
	deps HandlerDeps
	name string
	text string
}

func (h textHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	log.InfoContext(ctx, "Handling command", "chat_id", update.Message.Chat.ID, "user_id", update.Message.From.ID)
	h.handle(ctx, b, update.Message.Chat.ID)
}

func (h textHandler) handle(ctx context.Context, s reply.Sender, chatID int64) {
	text := h.text
	if info := h.deps.Config.Telegram.BotInfo; info != nil && info.Username != "" {
		text = strings.ReplaceAll(text, "@botname", "@"+info.Username)
	}

	if err := reply.Send(ctx, s, chatID, text); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send message", "handler", h.name, "error", err, "chat_id", chatID)
	}
}
