package app

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"review_analyzer/internal/domain"
	"review_analyzer/internal/locations"
)

type QueryService struct {
	store    domain.ReviewStore
	registry domain.LocationRegistry
	scorer   domain.Scorer
	workers  int
}

func NewQueryService(st domain.ReviewStore, reg domain.LocationRegistry, sc domain.Scorer, workers int) *QueryService {
	if workers <= 0 {
		workers = 1
	}
	return &QueryService{store: st, registry: reg, scorer: sc, workers: workers}
}

// All returns the store as loaded: unannotated, in insertion order.
func (s *QueryService) All() []domain.Review {
	return s.store.All()
}

// FilterAndRank returns the reviews matching every supplied criterion, each
// annotated with its sentiment, ordered by compound score descending. Equal
// scores keep store order. The store itself is never modified.
func (s *QueryService) FilterAndRank(ctx context.Context, c domain.Criteria) ([]domain.Review, error) {
	out := make([]domain.Review, 0)

	var wantLoc string
	if c.Location != nil {
		wantLoc = locations.Normalize(*c.Location)
		// an unregistered location matches nothing, whatever the data says
		if !s.registry.IsAllowed(wantLoc) {
			return out, nil
		}
	}

	for _, r := range s.store.All() {
		if c.Location != nil && locations.Normalize(r.Location) != wantLoc {
			continue
		}
		if c.Start != nil && r.Timestamp.Before(*c.Start) {
			continue
		}
		// end_date is compared at 00:00:00, so later the same day is excluded
		if c.End != nil && r.Timestamp.After(*c.End) {
			continue
		}
		out = append(out, r)
	}

	if err := s.annotate(ctx, out); err != nil {
		return nil, domain.UpstreamScorerFailure(err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sentiment.Compound > out[j].Sentiment.Compound
	})
	return out, nil
}

// annotate scores every review with at most s.workers calls in flight.
// Each goroutine writes only its own index.
func (s *QueryService) annotate(ctx context.Context, rs []domain.Review) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range rs {
		g.Go(func() error {
			p, err := s.scorer.Score(gctx, rs[i].ReviewBody)
			if err != nil {
				return err
			}
			rs[i].Sentiment = &p
			return nil
		})
	}
	return g.Wait()
}
