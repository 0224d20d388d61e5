package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/telellmgram/internal/analysis"
	"github.com/edgard/telellmgram/internal/config"
	"github.com/edgard/telellmgram/internal/corpus"
)

// Analyzer runs analyses. *analysis.Analyzer implements it.
type Analyzer interface {
	Run(ctx context.Context, v analysis.Variant, req analysis.Request) (*analysis.Report, error)
	Index() *corpus.Index
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Analyzer Analyzer
	Runs     *RunGuard
}
