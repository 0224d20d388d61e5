package database

import (
	"database/sql"
	"time"
)

// Run is one analysis run.
type Run struct {
	ID         string       `db:"id"`
	Variant    string       `db:"variant"`
	Request    string       `db:"request"`
	State      string       `db:"state"`
	Chunks     int          `db:"chunks"`
	Mapped     int          `db:"mapped"`
	Degraded   int          `db:"degraded"`
	Reason     string       `db:"reason"`
	StartedAt  time.Time    `db:"started_at"`
	FinishedAt sql.NullTime `db:"finished_at"` // null while running
}

// Exchange is one prompt sent during a run and the response it got.
type Exchange struct {
	ID        int64     `db:"id"`
	RunID     string    `db:"run_id"`
	Stage     string    `db:"stage"`
	Index     int       `db:"idx"`
	Prompt    string    `db:"prompt"`
	Response  string    `db:"response"`
	Degraded  bool      `db:"degraded"`
	LatencyMS int64     `db:"latency_ms"`
	CreatedAt time.Time `db:"created_at"`
}
