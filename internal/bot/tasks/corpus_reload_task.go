package tasks

import (
	"context"
	"fmt"
)

// newCorpusReloadTask creates the task that picks up media imported while
// the bot is running.
func newCorpusReloadTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "corpus_reload")

	return func(ctx context.Context) error {
		if err := deps.Corpus.Reload(); err != nil {
			log.ErrorContext(ctx, "Failed to reload corpus", "error", err)
			return fmt.Errorf("corpus reload failed: %w", err)
		}
		log.InfoContext(ctx, "Corpus reloaded")
		return nil
	}
}
