// Package memory holds the review collection served by the API.
package memory

import (
	"slices"

	"review_analyzer/internal/domain"
)

// Store is an ordered, read-only review collection built once at startup.
// It is safe for concurrent readers because nothing mutates it after New.
type Store struct {
	reviews []domain.Review
}

func New(reviews []domain.Review) *Store {
	return &Store{reviews: slices.Clone(reviews)}
}

// All returns the reviews in insertion order. The returned slice is a copy.
func (s *Store) All() []domain.Review {
	return slices.Clone(s.reviews)
}

func (s *Store) Len() int { return len(s.reviews) }
