package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edgard/telellmgram/internal/analysis"
	"github.com/edgard/telellmgram/internal/bot/reply"
	"github.com/edgard/telellmgram/internal/corpus"
)

var errDigestBusy = errors.New("another analysis is running, trend digest skipped")

// newTrendDigestTask creates the task that runs trend detection over the last
// configured days for each configured media and posts the results.
func newTrendDigestTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "trend_digest")

	return func(ctx context.Context) error {
		cfg := deps.Config.Scheduler.TrendDigest
		if len(cfg.MediaIDs) == 0 {
			log.WarnContext(ctx, "No media configured for trend digest, nothing to do")
			return nil
		}

		chatID := deps.Config.DigestChatID()
		if chatID == 0 {
			return fmt.Errorf("trend digest has no destination chat")
		}

		done, ok := deps.Runs.Start()
		if !ok {
			log.WarnContext(ctx, "Skipping trend digest", "reason", errDigestBusy)
			return errDigestBusy
		}
		defer done()

		end := deps.now()
		start := end.AddDate(0, 0, -(cfg.Days - 1))
		req := analysis.Request{
			Start: start.Format(corpus.DateLayout),
			End:   end.Format(corpus.DateLayout),
		}

		var errs []error
		for _, mediaID := range cfg.MediaIDs {
			if ctx.Err() != nil {
				errs = append(errs, ctx.Err())
				break
			}

			req.MediaIDs = []int64{mediaID}
			startTime := time.Now()
			report, err := deps.Analyzer.Run(ctx, analysis.Trend, req)

			var text string
			if err != nil {
				log.ErrorContext(ctx, "Trend digest failed for media", "media_id", mediaID, "error", err)
				errs = append(errs, fmt.Errorf("media %d: %w", mediaID, err))
				text = fmt.Sprintf(deps.Config.Messages.AnalyzeFailedFmt, analysis.Explain(err))
			} else {
				log.InfoContext(ctx, "Trend digest analysis completed",
					"media_id", mediaID,
					"run_id", report.RunID,
					"duration", time.Since(startTime))
				text = fmt.Sprintf(deps.Config.Messages.TrendDigestHeaderFmt, mediaName(report, mediaID), report.Range) +
					"\n\n" + reply.Plain(report.Text)
			}

			if err := reply.Send(ctx, deps.Sender, chatID, text); err != nil {
				log.ErrorContext(ctx, "Failed to send trend digest", "media_id", mediaID, "chat_id", chatID, "error", err)
				errs = append(errs, fmt.Errorf("send digest of media %d: %w", mediaID, err))
			}
		}

		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("trend digest: %w", err)
		}
		return nil
	}
}

func mediaName(report *analysis.Report, id int64) string {
	if len(report.Media) > 0 && report.Media[0].Name != "" {
		return report.Media[0].Name
	}
	return fmt.Sprint(id)
}
