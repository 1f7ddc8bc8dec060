package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/config"
)

const defaultResultsTable = "analysis_results"

// PostgresSink appends one row per analyzed file to a Postgres table.
type PostgresSink struct {
	db    *sql.DB
	table string
}

// NewPostgresSink connects to Postgres and makes sure the results table
// exists.
func NewPostgresSink(ctx context.Context, cfg config.PostgresSinkConfig) (*PostgresSink, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("postgres sink: DSN is required")
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		table = defaultResultsTable
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres sink: open database connection: %w", err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres sink: ping database: %w", err)
	}

	s := &PostgresSink{db: db, table: table}
	if err = s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *PostgresSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			run_id TEXT NOT NULL,
			media_type TEXT NOT NULL,
			path TEXT NOT NULL,
			model TEXT NOT NULL,
			mode TEXT,
			prompt TEXT,
			word_count INTEGER,
			analysis TEXT,
			transcript TEXT,
			error TEXT,
			success BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, quoteIdentifier(s.table))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("postgres sink: create results table: %w", err)
	}
	return nil
}

// Deliver inserts one row per result, tagged with the run ID.
func (s *PostgresSink) Deliver(ctx context.Context, run Run) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres sink: not initialized")
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (run_id, media_type, path, model, mode, prompt, word_count, analysis, transcript, error, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, quoteIdentifier(s.table))

	for _, res := range run.Results {
		if _, err := s.db.ExecContext(ctx, query,
			run.ID,
			string(run.MediaType),
			res.Path,
			res.Model,
			nullString(res.Mode),
			nullString(res.Prompt),
			nullInt(res.WordCount),
			nullString(res.Analysis),
			nullString(res.Transcript),
			nullString(res.Err),
			res.Success,
		); err != nil {
			return fmt.Errorf("postgres sink: insert result row: %w", err)
		}
	}
	log.Debugf("stored %d result row(s) in %s", len(run.Results), s.table)
	return nil
}

func quoteIdentifier(identifier string) string {
	replaced := strings.ReplaceAll(identifier, "\"", "\"\"")
	return "\"" + replaced + "\""
}

// nullString maps empty strings to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt maps zero to SQL NULL.
func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
