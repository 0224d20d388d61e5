package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/telellmgram/internal/analysis"
	"github.com/edgard/telellmgram/internal/bot/reply"
	"github.com/edgard/telellmgram/internal/pipeline"
)

// replyTimeout bounds sending the result once a run has ended.
const replyTimeout = time.Minute

// NewAnalyzeHandler returns a handler running the given analysis variant.
// Every analysis command (/analyze, /topic, /window, /trend, /user) is an
// instance of it.
func NewAnalyzeHandler(deps HandlerDeps, variant analysis.Variant) bot.HandlerFunc {
	return analyzeHandler{deps: deps, variant: variant}.Handle
}

type analyzeHandler struct {
	deps    HandlerDeps
	variant analysis.Variant
}

func (h analyzeHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		h.deps.Logger.ErrorContext(ctx, "Analyze handler called with nil Message or From", "update_id", update.ID)
		return
	}
	h.handle(ctx, b, update.Message)
}

// handle validates the command, claims the run guard and starts the
// analysis in the background. It returns once the run is started.
func (h analyzeHandler) handle(ctx context.Context, s reply.Sender, msg *models.Message) {
	log := h.deps.Logger.With("handler", "analyze", "variant", h.variant)
	chatID := msg.Chat.ID
	msgs := h.deps.Config.Messages

	req, err := parseArgs(h.variant, msg.Text)
	if err != nil {
		log.InfoContext(ctx, "Rejected malformed analysis command", "chat_id", chatID, "error", err)
		h.send(ctx, s, chatID, fmt.Sprintf(msgs.UsageFmt, usages[h.variant]))
		return
	}

	done, ok := h.deps.Runs.Start()
	if !ok {
		log.InfoContext(ctx, "Analysis already running, rejecting request", "chat_id", chatID)
		h.send(ctx, s, chatID, msgs.AnalyzeBusyMsg)
		return
	}

	log.InfoContext(ctx, "Admin requested analysis", "chat_id", chatID, "request", req.Summary(h.variant))
	h.send(ctx, s, chatID, msgs.AnalyzeProgressMsg)

	go func() {
		defer done()
		h.run(ctx, s, chatID, req)
	}()
}

func (h analyzeHandler) run(ctx context.Context, s reply.Sender, chatID int64, req analysis.Request) {
	log := h.deps.Logger.With("handler", "analyze", "variant", h.variant, "chat_id", chatID)

	runCtx, cancel := context.WithTimeout(ctx, h.deps.Config.Telegram.RunTimeout)
	defer cancel()

	if a, ok := s.(reply.ActionSender); ok {
		typingCtx, stopTyping := context.WithCancel(runCtx)
		defer stopTyping()
		go reply.KeepTyping(typingCtx, a, chatID, reply.TypingInterval, log)
	}

	startTime := time.Now()
	report, err := h.deps.Analyzer.Run(runCtx, h.variant, req)
	duration := time.Since(startTime)

	// The reply still goes out when the update context is gone.
	sendCtx, cancelSend := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancelSend()

	msgs := h.deps.Config.Messages
	switch {
	case errors.Is(err, pipeline.ErrRunDeadline),
		errors.Is(err, context.DeadlineExceeded) && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		log.WarnContext(ctx, "Analysis timed out", "duration", duration)
		h.send(sendCtx, s, chatID, msgs.AnalyzeTimeoutMsg)
	case err != nil:
		log.ErrorContext(ctx, "Analysis failed", "error", err, "duration", duration)
		h.send(sendCtx, s, chatID, fmt.Sprintf(msgs.AnalyzeFailedFmt, analysis.Explain(err)))
	default:
		log.InfoContext(ctx, "Analysis completed",
			"run_id", report.RunID,
			"chunks", report.Chunks,
			"degraded", report.Degraded,
			"duration", duration)
		h.send(sendCtx, s, chatID, h.format(report))
	}
}

func (h analyzeHandler) format(report *analysis.Report) string {
	var sb strings.Builder
	sb.WriteString(reply.Plain(report.Text))
	if report.Degraded > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf(h.deps.Config.Messages.AnalyzeDegradedFmt, report.Degraded, report.Mapped))
	}
	return sb.String()
}

func (h analyzeHandler) send(ctx context.Context, s reply.Sender, chatID int64, text string) {
	if err := reply.Send(ctx, s, chatID, text); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", chatID, "variant", h.variant)
	}
}
