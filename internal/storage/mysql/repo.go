package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"review_analyzer/internal/domain"
)

// batchSize keeps each INSERT well under max_allowed_packet.
const batchSize = 500

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	for start := 0; start < len(rs); start += batchSize {
		end := min(start+batchSize, len(rs))
		if err := r.upsertBatch(ctx, rs[start:end]); err != nil {
			return fmt.Errorf("upsert reviews [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func (r *Repo) upsertBatch(ctx context.Context, rs []domain.Review) error {
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*5)
	for _, rv := range rs {
		if rv.Row <= 0 {
			return fmt.Errorf("review %q has no dataset row number", rv.ReviewBody)
		}
		// (row_no, review_id, review_body, location, created_at)
		values = append(values, "(?,?,?,?,?)")
		args = append(args,
			rv.Row,
			valStr(rv.ReviewID),
			rv.ReviewBody,
			rv.Location,
			rv.Timestamp.Time,
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
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
			createdAt time.Time
		)
		if err := rows.Scan(&rv.Row, &reviewID, &rv.ReviewBody, &rv.Location, &createdAt); err != nil {
			return nil, err
		}
		if reviewID.Valid {
			rv.ReviewID = reviewID.String
		}
		rv.Timestamp = domain.NewTimestamp(createdAt.In(time.Local))
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
