package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edgard/telellmgram/internal/pipeline"
)

// ErrRunNotFound is returned when a run id is not in the database.
var ErrRunNotFound = errors.New("run not found")

// Store defines the audit database operations.
type Store interface {
	pipeline.AuditRecorder

	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// ListRecentRuns returns the latest runs, newest first.
	ListRecentRuns(ctx context.Context, limit int) ([]Run, error)

	// GetRun returns one run by id.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListExchanges returns the exchanges of a run in the order they were made.
	ListExchanges(ctx context.Context, runID string) ([]Exchange, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a Store backed by db.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// BeginRun inserts a run in the idle state.
func (s *sqlxStore) BeginRun(ctx context.Context, id uuid.UUID, variant, request string) error {
	if id == uuid.Nil {
		return fmt.Errorf("run id cannot be nil")
	}

	run := Run{
		ID:        id.String(),
		Variant:   variant,
		Request:   request,
		State:     string(pipeline.StateIdle),
		StartedAt: time.Now().UTC(),
	}

	query := `
        INSERT INTO analysis_runs (id, variant, request, state, started_at)
        VALUES (:id, :variant, :request, :state, :started_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		s.logger.ErrorContext(ctx, "Error saving run", "run_id", run.ID, "error", err)
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// RecordExchange appends one prompt/response pair to a run.
func (s *sqlxStore) RecordExchange(ctx context.Context, ex pipeline.Exchange) error {
	row := Exchange{
		RunID:     ex.RunID.String(),
		Stage:     ex.Stage,
		Index:     ex.Index,
		Prompt:    ex.Prompt,
		Response:  ex.Response,
		Degraded:  ex.Degraded,
		LatencyMS: ex.Latency.Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}

	query := `
        INSERT INTO llm_exchanges (run_id, stage, idx, prompt, response, degraded, latency_ms, created_at)
        VALUES (:run_id, :stage, :idx, :prompt, :response, :degraded, :latency_ms, :created_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		s.logger.ErrorContext(ctx, "Error saving exchange", "run_id", row.RunID, "stage", row.Stage, "error", err)
		return fmt.Errorf("failed to save exchange of run %s: %w", row.RunID, err)
	}
	return nil
}

// FinishRun stores the terminal state of a run.
func (s *sqlxStore) FinishRun(ctx context.Context, out pipeline.Outcome) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	result, err := tx.ExecContext(ctx, `
        UPDATE analysis_runs
        SET state = ?, chunks = ?, mapped = ?, degraded = ?, reason = ?, finished_at = ?
        WHERE id = ?;
    `, string(out.State), out.Chunks, out.Mapped, out.Degraded, out.Reason, time.Now().UTC(), out.RunID.String())
	if err != nil {
		s.logger.ErrorContext(ctx, "Error finishing run", "run_id", out.RunID, "error", err)
		return fmt.Errorf("failed to update run %s: %w", out.RunID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, out.RunID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *sqlxStore) ListRecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	var runs []Run
	query := `SELECT id, variant, request, state, chunks, mapped, degraded, reason, started_at, finished_at
	          FROM analysis_runs ORDER BY started_at DESC, id LIMIT ?`
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (s *sqlxStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	query := `SELECT id, variant, request, state, chunks, mapped, degraded, reason, started_at, finished_at
	          FROM analysis_runs WHERE id = ?`

	err := s.db.GetContext(ctx, &run, query, id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case err != nil:
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &run, nil
}

func (s *sqlxStore) ListExchanges(ctx context.Context, runID string) ([]Exchange, error) {
	var exchanges []Exchange
	query := `SELECT id, run_id, stage, idx, prompt, response, degraded, latency_ms, created_at
	          FROM llm_exchanges WHERE run_id = ? ORDER BY id`
	if err := s.db.SelectContext(ctx, &exchanges, query, runID); err != nil {
		return nil, fmt.Errorf("failed to list exchanges of run %s: %w", runID, err)
	}
	return exchanges, nil
}

// RunSQLMaintenance executes VACUUM on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}
	return nil
}
