package app

import (
	"context"
	"fmt"
	"strings"

	"review_analyzer/internal/domain"
)

/********** alias registry (single source of truth) **********/

var reviewAliases = map[string][]string{
	"id":        {"ReviewId", "review_id", "reviewId", "id"},
	"body":      {"ReviewBody", "review_body", "body", "text", "review"},
	"location":  {"Location", "location", "city"},
	"timestamp": {"Timestamp", "timestamp", "created_at", "date"},
}

// firstNonEmptyAlias returns the first non-blank column named by the alias set.
func firstNonEmptyAlias(row map[string]string, key string) string {
	for _, col := range reviewAliases[key] {
		if v := row[col]; strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// mapRecord converts one dataset row. Dataset rows are trusted: text fields
// are kept verbatim and only the timestamp is validated.
func mapRecord(row map[string]string) (domain.Review, error) {
	raw := firstNonEmptyAlias(row, "timestamp")
	ts, err := domain.ParseTimestamp(raw)
	if err != nil {
		return domain.Review{}, fmt.Errorf("bad timestamp %q: %w", raw, err)
	}
	return domain.Review{
		ReviewID:   strings.TrimSpace(firstNonEmptyAlias(row, "id")),
		ReviewBody: firstNonEmptyAlias(row, "body"),
		Location:   firstNonEmptyAlias(row, "location"),
		Timestamp:  ts,
	}, nil
}

// MapRecords converts dataset rows in order. Row numbers in errors are
// 1-based data rows.
func MapRecords(rows []map[string]string) ([]domain.Review, error) {
	out := make([]domain.Review, 0, len(rows))
	for i, row := range rows {
		rv, err := mapRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		rv.Row = i + 1
		out = append(out, rv)
	}
	return out, nil
}

// LoadDataset reads and maps the whole dataset.
func LoadDataset(ctx context.Context, r domain.RecordReader) ([]domain.Review, error) {
	rows, err := r.ReadRecords(ctx)
	if err != nil {
		return nil, err
	}
	return MapRecords(rows)
}
