package bot

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/edgard/telellmgram/internal/bot/tasks"
	"github.com/edgard/telellmgram/internal/config"
)

func TestSchedulerLifecycle(t *testing.T) {
	t.Parallel()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.SchedulerConfig{Tasks: map[string]config.TaskConfig{
		"sql_maintenance": {Enabled: true, Schedule: "0 0 3 * * *"},
		"trend_digest":    {Enabled: false, Schedule: "0 0 8 * * 1"},
		"unknown":         {Enabled: true, Schedule: "0 * * * * *"},
		"no_schedule":     {Enabled: true},
	}}
	taskMap := map[string]tasks.ScheduledTaskFunc{
		"sql_maintenance": func(context.Context) error { return nil },
		"trend_digest":    func(context.Context) error { return nil },
		"no_schedule":     func(context.Context) error { return nil },
	}

	s, err := NewScheduler(log, cfg, taskMap)
	if err != nil {
		t.Fatalf("NewScheduler() error = %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start() expected error")
	}
	if jobs := s.scheduler.Jobs(); len(jobs) != 1 || jobs[0].Name() != "sql_maintenance" {
		t.Errorf("scheduled jobs = %d, want only sql_maintenance", len(jobs))
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
