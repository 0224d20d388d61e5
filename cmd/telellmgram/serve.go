package main

import (
	"errors"
	"fmt"

	tgbot "github.com/go-telegram/bot"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/edgard/telellmgram/internal/bot"
	"github.com/edgard/telellmgram/internal/bot/handlers"
	"github.com/edgard/telellmgram/internal/bot/tasks"
	"github.com/edgard/telellmgram/internal/logger"
	"github.com/edgard/telellmgram/internal/metrics"
	"github.com/edgard/telellmgram/internal/telegram"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot, the scheduler and the metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log := c.cfg, c.log

			if cfg.Telegram.Token == "" {
				return errors.New("telegram.token is required to serve")
			}
			if cfg.Telegram.AdminUserID == 0 {
				log.Warn("No admin configured, every analysis command will be refused")
			}

			comps, err := c.newComponents(ctx)
			if err != nil {
				return err
			}
			defer comps.Close(c)

			runs := handlers.NewRunGuard()
			hDeps := handlers.HandlerDeps{
				Logger:   log,
				Config:   cfg,
				Analyzer: comps.analyzer,
				Runs:     runs,
			}

			tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, tgbot.WithMiddlewares(logger.Middleware(log)))
			if err != nil {
				return err
			}

			cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
			if err != nil {
				return fmt.Errorf("failed to get bot info: %w", err)
			}
			log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

			if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
				return fmt.Errorf("failed to register Telegram handlers: %w", err)
			}

			tDeps := tasks.TaskDeps{
				Logger:   log,
				Store:    comps.audit,
				Corpus:   comps.records,
				Analyzer: comps.analyzer,
				Runs:     runs,
				Sender:   tg,
				Config:   cfg,
			}
			sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
			if err != nil {
				return err
			}
			app := bot.NewBot(log, tg, sched, runs)

			g, gCtx := errgroup.WithContext(ctx)
			g.Go(func() error { return app.Run(gCtx) })
			if cfg.Metrics.Addr != "" {
				g.Go(func() error { return metrics.Serve(gCtx, cfg.Metrics.Addr, comps.registry, log) })
			}

			log.Info("Serving", "metrics_addr", cfg.Metrics.Addr)
			if err := g.Wait(); err != nil {
				log.Error("Stopped due to error", "error", err)
				return err
			}
			log.Info("Stopped gracefully")
			return nil
		},
	}
}
