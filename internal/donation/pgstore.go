package donation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS donation_submissions (
	id                      TEXT PRIMARY KEY,
	profile                 TEXT NOT NULL,
	file_name               TEXT NOT NULL,
	created_at              TIMESTAMPTZ NOT NULL,
	total_tables            INTEGER NOT NULL,
	total_remaining_rows    INTEGER NOT NULL,
	total_deleted_rows      INTEGER NOT NULL,
	total_sheets_not_found  INTEGER NOT NULL,
	total_tables_not_parsed INTEGER NOT NULL,
	body                    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS donation_submissions_created_at_idx
	ON donation_submissions (created_at)`

// PGStore archives submissions in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a store backed by pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// EnsureSchema creates the submissions table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create donation_submissions: %w", err)
	}
	return nil
}

// Save inserts a submission. Saving the same id twice keeps the first copy.
func (s *PGStore) Save(ctx context.Context, sub Submission) error {
	query := `
		INSERT INTO donation_submissions (
			id, profile, file_name, created_at,
			total_tables, total_remaining_rows, total_deleted_rows,
			total_sheets_not_found, total_tables_not_parsed, body
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		sub.ID, sub.Profile, sub.FileName, sub.CreatedAt,
		sub.Metadata.TotalTables, sub.Metadata.TotalRemainingRows, sub.Metadata.TotalDeletedRows,
		sub.Metadata.TotalSheetsNotFound, sub.Metadata.TotalTablesNotParsed,
		string(sub.Body),
	)
	if err != nil {
		return fmt.Errorf("insert submission %s: %w", sub.ID, err)
	}
	return nil
}

// Get loads a submission by id.
func (s *PGStore) Get(ctx context.Context, id string) (Submission, error) {
	query := `
		SELECT id, profile, file_name, created_at,
			total_tables, total_remaining_rows, total_deleted_rows,
			total_sheets_not_found, total_tables_not_parsed, body::text
		FROM donation_submissions
		WHERE id = $1`

	var sub Submission
	var body string
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sub.ID, &sub.Profile, &sub.FileName, &sub.CreatedAt,
		&sub.Metadata.TotalTables, &sub.Metadata.TotalRemainingRows, &sub.Metadata.TotalDeletedRows,
		&sub.Metadata.TotalSheetsNotFound, &sub.Metadata.TotalTablesNotParsed,
		&body,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, fmt.Errorf("get submission %s: %w", id, err)
	}
	sub.Body = []byte(body)
	return sub, nil
}

// Purge deletes submissions created before the cutoff.
func (s *PGStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM donation_submissions WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge submissions: %w", err)
	}
	return tag.RowsAffected(), nil
}
