// Package sqlite is a file-backed review dataset for single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"review_analyzer/internal/domain"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS reviews (
  row_no      INTEGER PRIMARY KEY,
  review_id   TEXT,
  review_body TEXT NOT NULL,
  location    TEXT NOT NULL,
  created_at  TEXT NOT NULL
);
`

const upsertReviewSQL = `
INSERT INTO reviews (row_no, review_id, review_body, location, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (row_no) DO UPDATE SET
  review_id   = COALESCE(excluded.review_id, reviews.review_id),
  review_body = excluded.review_body,
  location    = excluded.location,
  created_at  = excluded.created_at
`

const loadReviewsSQL = `
SELECT row_no, review_id, review_body, location, created_at
FROM reviews
ORDER BY row_no
`

type Repo struct{ db *sql.DB }

// Open opens (creating if needed) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Repo, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// a single connection keeps ":memory:" databases coherent and serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() error { return r.db.Close() }

func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertReviewSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, rv := range rs {
		if rv.Row <= 0 {
			return fmt.Errorf("review %d has no dataset row number", i)
		}
		var id any
		if rv.ReviewID != "" {
			id = rv.ReviewID
		}
		if _, err := stmt.ExecContext(ctx, rv.Row, id, rv.ReviewBody, rv.Location, rv.Timestamp.String()); err != nil {
			return fmt.Errorf("upsert review %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (r *Repo) LoadReviews(ctx context.Context) ([]domain.Review, error) {
	rows, err := r.db.QueryContext(ctx, loadReviewsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		var (
			rv        domain.Review
			reviewID  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&rv.Row, &reviewID, &rv.ReviewBody, &rv.Location, &createdAt); err != nil {
			return nil, err
		}
		rv.ReviewID = reviewID.String
		ts, err := domain.ParseTimestamp(createdAt)
		if err != nil {
			return nil, fmt.Errorf("review %q: bad created_at %q: %w", rv.ReviewBody, createdAt, err)
		}
		rv.Timestamp = ts
		out = append(out, rv)
	}
	return out, rows.Err()
}
