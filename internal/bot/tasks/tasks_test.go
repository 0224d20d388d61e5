package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/telellmgram/internal/analysis"
	"github.com/edgard/telellmgram/internal/config"
	"github.com/edgard/telellmgram/internal/corpus"
	"github.com/edgard/telellmgram/internal/database"
)

type fakeSender struct {
	mu    sync.Mutex
	chats []int64
	texts []string
}

func (f *fakeSender) SendMessage(_ context.Context, params *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chats = append(f.chats, params.ChatID.(int64))
	f.texts = append(f.texts, params.Text)
	return &models.Message{}, nil
}

type analyzerFunc func(ctx context.Context, v analysis.Variant, req analysis.Request) (*analysis.Report, error)

func (f analyzerFunc) Run(ctx context.Context, v analysis.Variant, req analysis.Request) (*analysis.Report, error) {
	return f(ctx, v, req)
}

type guard struct{ busy bool }

func (g *guard) Start() (func(), bool) {
	if g.busy {
		return nil, false
	}
	g.busy = true
	return func() { g.busy = false }, true
}

func newDeps(an Analyzer) (TaskDeps, *fakeSender) {
	cfg := &config.Config{Messages: config.DefaultMessages}
	cfg.Telegram.AdminUserID = 42
	cfg.Scheduler.TrendDigest = config.TrendDigestConfig{MediaIDs: []int64{1, 2}, Days: 7}

	sender := &fakeSender{}
	return TaskDeps{
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Analyzer: an,
		Runs:     &guard{},
		Sender:   sender,
		Config:   cfg,
		Now:      func() time.Time { return time.Date(2023, time.March, 10, 9, 0, 0, 0, time.UTC) },
	}, sender
}

func TestTrendDigestTask(t *testing.T) {
	t.Parallel()

	var requests []analysis.Request
	an := analyzerFunc(func(_ context.Context, v analysis.Variant, req analysis.Request) (*analysis.Report, error) {
		assert.Equal(t, analysis.Trend, v)
		requests = append(requests, req)
		if req.MediaIDs[0] == 2 {
			return nil, analysis.ErrEmptyCorpus
		}
		rng, err := corpus.ParseDateRange(req.Start, req.End)
		require.NoError(t, err)
		return &analysis.Report{
			Text:  "موضوعات داغ",
			Media: []corpus.MediaDescriptor{{ID: 1, Name: "news"}},
			Range: rng,
		}, nil
	})
	deps, sender := newDeps(an)

	err := RegisterAllTasks(deps)["trend_digest"](context.Background())
	require.ErrorIs(t, err, analysis.ErrEmptyCorpus)

	require.Len(t, requests, 2)
	assert.Equal(t, "04/03/23", requests[0].Start)
	assert.Equal(t, "10/03/23", requests[0].End)

	require.Len(t, sender.texts, 2)
	assert.Equal(t, []int64{42, 42}, sender.chats)
	assert.Equal(t, "Trend digest for news (2023-03-04..2023-03-10):\n\nموضوعات داغ", sender.texts[0])
	assert.Equal(t, fmt.Sprintf(deps.Config.Messages.AnalyzeFailedFmt, analysis.Explain(analysis.ErrEmptyCorpus)), sender.texts[1])
	assert.False(t, deps.Runs.(*guard).busy)
}

func TestTrendDigestTaskSkips(t *testing.T) {
	t.Parallel()

	an := analyzerFunc(func(context.Context, analysis.Variant, analysis.Request) (*analysis.Report, error) {
		return nil, errors.New("must not run")
	})

	t.Run("Busy", func(t *testing.T) {
		t.Parallel()

		deps, sender := newDeps(an)
		deps.Runs = &guard{busy: true}
		err := newTrendDigestTask(deps)(context.Background())
		require.ErrorIs(t, err, errDigestBusy)
		assert.Empty(t, sender.texts)
	})

	t.Run("No media", func(t *testing.T) {
		t.Parallel()

		deps, sender := newDeps(an)
		deps.Config.Scheduler.TrendDigest.MediaIDs = nil
		require.NoError(t, newTrendDigestTask(deps)(context.Background()))
		assert.Empty(t, sender.texts)
	})

	t.Run("No chat", func(t *testing.T) {
		t.Parallel()

		deps, _ := newDeps(an)
		deps.Config.Telegram.AdminUserID = 0
		require.Error(t, newTrendDigestTask(deps)(context.Background()))
	})
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()

	deps, _ := newDeps(nil)
	db, err := database.NewDB(filepath.Join(t.TempDir(), "audit.db"), deps.Logger)
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db, deps.Logger) })
	deps.Store = database.NewStore(db, deps.Logger)

	task := RegisterAllTasks(deps)["sql_maintenance"]
	require.NoError(t, task(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, task(ctx))
}

type reloaderFunc func() error

func (f reloaderFunc) Reload() error { return f() }

func TestCorpusReloadTask(t *testing.T) {
	t.Parallel()

	deps, _ := newDeps(nil)

	reloads := 0
	deps.Corpus = reloaderFunc(func() error { reloads++; return nil })
	require.NoError(t, RegisterAllTasks(deps)["corpus_reload"](context.Background()))
	assert.Equal(t, 1, reloads)

	deps.Corpus = reloaderFunc(func() error { return errors.New("index missing") })
	require.Error(t, newCorpusReloadTask(deps)(context.Background()))
}
