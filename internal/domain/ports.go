package domain

import "context"

// Scorer turns review text into a polarity score. Implementations must be
// pure with respect to text: identical input yields identical output.
type Scorer interface {
	Score(ctx context.Context, text string) (Polarity, error)
}

// ReviewRepository is a persistent review dataset (MySQL, SQLite).
type ReviewRepository interface {
	// Write paths
	UpsertReviews(ctx context.Context, rs []Review) error

	// Read paths
	LoadReviews(ctx context.Context) ([]Review, error)
}

// RecordReader yields raw dataset rows keyed by column name.
type RecordReader interface {
	ReadRecords(ctx context.Context) ([]map[string]string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// ReviewStore is the read-shared, in-memory review collection.
type ReviewStore interface {
	All() []Review
}

type LocationRegistry interface {
	IsAllowed(location string) bool
}
