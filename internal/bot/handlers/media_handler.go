package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/telellmgram/internal/bot/reply"
)

// NewMediaHandler returns a handler for the /media command.
func NewMediaHandler(deps HandlerDeps) bot.HandlerFunc {
	return mediaHandler{deps}.Handle
}

// mediaHandler lists the media of the corpus index.
type mediaHandler struct {
	deps HandlerDeps
}

func (h mediaHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.handle(ctx, b, update.Message.Chat.ID)
}

func (h mediaHandler) handle(ctx context.Context, s reply.Sender, chatID int64) {
	log := h.deps.Logger.With("handler", "media")

	media := h.deps.Analyzer.Index().All()
	text := h.deps.Config.Messages.NoMediaMsg
	if len(media) > 0 {
		var sb strings.Builder
		sb.WriteString(h.deps.Config.Messages.MediaHeader)
		for _, m := range media {
			fmt.Fprintf(&sb, "\n%d - %s (%s)", m.ID, m.Name, m.Kind)
		}
		text = sb.String()
	}

	if err := reply.Send(ctx, s, chatID, text); err != nil {
		log.ErrorContext(ctx, "Failed to send media list", "error", err, "chat_id", chatID)
		return
	}
	log.DebugContext(ctx, "Sent media list", "chat_id", chatID, "count", len(media))
}
