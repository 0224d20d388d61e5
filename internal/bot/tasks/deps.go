// Package tasks implements the scheduled tasks of the TeleLLMgram bot.
// It includes task definitions, dependencies, and registration mechanisms.
package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/edgard/telellmgram/internal/analysis"
	"github.com/edgard/telellmgram/internal/bot/reply"
	"github.com/edgard/telellmgram/internal/config"
	"github.com/edgard/telellmgram/internal/database"
)

// Analyzer runs analyses. *analysis.Analyzer implements it.
type Analyzer interface {
	Run(ctx context.Context, v analysis.Variant, req analysis.Request) (*analysis.Report, error)
}

// RunGuard serializes analyses started by tasks with those started from
// chat commands.
type RunGuard interface {
	Start() (done func(), ok bool)
}

// CorpusReloader rereads the corpus from disk. *corpus.CSVStore implements it.
type CorpusReloader interface {
	Reload() error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Store    database.Store
	Corpus   CorpusReloader
	Analyzer Analyzer
	Runs     RunGuard
	Sender   reply.Sender
	Config   *config.Config

	// Now defaults to time.Now.
	Now func() time.Time
}

func (d TaskDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}
