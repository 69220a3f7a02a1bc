// Package journal keeps a SQLite history of request cycles.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"pluto/internal/pipeline"
)

//go:embed schema.sql
var schema string

type Journal struct {
	db   *sql.DB
	path string
}

func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one writer; the pipeline is single threaded anyway
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	log.Info("Journal opened", "path", path)
	return &Journal{db: db, path: path}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Observe stores a finished cycle.
func (j *Journal) Observe(ctx context.Context, c pipeline.Cycle) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO cycles (
			id, source, started_at, duration_ms,
			transcript, intent, response, no_speech, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Source, c.StartedAt.UnixMilli(), c.Duration.Milliseconds(),
		c.Transcript, c.Intent, c.Response, c.NoSpeech, c.Err,
	)
	if err != nil {
		return fmt.Errorf("insert cycle %s: %w", c.ID, err)
	}

	log.Debug("Cycle journaled", "id", c.ID, "intent", c.Intent)
	return nil
}

// Recent returns up to limit cycles, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]pipeline.Cycle, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, source, started_at, duration_ms,
		       transcript, intent, response, no_speech, error
		FROM cycles
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []pipeline.Cycle
	for rows.Next() {
		var (
			c          pipeline.Cycle
			startedAt  int64
			durationMs int64
		)
		if err := rows.Scan(&c.ID, &c.Source, &startedAt, &durationMs,
			&c.Transcript, &c.Intent, &c.Response, &c.NoSpeech, &c.Err); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.StartedAt = time.UnixMilli(startedAt)
		c.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, c)
	}

	return out, rows.Err()
}

type Stats struct {
	Total    int            `json:"total"`
	Failed   int            `json:"failed"`
	NoSpeech int            `json:"no_speech"`
	ByIntent map[string]int `json:"by_intent"`
}

func (j *Journal) Stats(ctx context.Context) (Stats, error) {
	s := Stats{ByIntent: make(map[string]int)}

	err := j.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(error != ''), 0),
		       COALESCE(SUM(no_speech), 0)
		FROM cycles`).Scan(&s.Total, &s.Failed, &s.NoSpeech)
	if err != nil {
		return s, fmt.Errorf("count cycles: %w", err)
	}

	rows, err := j.db.QueryContext(ctx, `SELECT intent, COUNT(*) FROM cycles GROUP BY intent`)
	if err != nil {
		return s, fmt.Errorf("count intents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return s, err
		}
		s.ByIntent[name] = n
	}

	return s, rows.Err()
}
