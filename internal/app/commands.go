package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"review_analyzer/internal/domain"
)

type SubmissionService struct {
	registry domain.LocationRegistry
	clock    clockwork.Clock
	newID    func() string
}

func NewSubmissionService(reg domain.LocationRegistry, clock clockwork.Clock) *SubmissionService {
	return &SubmissionService{registry: reg, clock: clock, newID: uuid.NewString}
}

// Submit validates a new review and builds the record. Empty strings mean the
// field was absent. The record is returned, not stored.
func (s *SubmissionService) Submit(location, body string) (domain.Review, error) {
	if strings.TrimSpace(location) == "" || strings.TrimSpace(body) == "" {
		return domain.Review{}, domain.MissingField()
	}
	if !s.registry.IsAllowed(location) {
		return domain.Review{}, domain.DisallowedLocation(location)
	}
	return domain.Review{
		ReviewID:   s.newID(),
		ReviewBody: body,
		Location:   location,
		Timestamp:  domain.NewTimestamp(s.clock.Now().In(time.Local)),
	}, nil
}

type IngestionService struct {
	reader domain.RecordReader
	repo   domain.ReviewRepository
	scorer domain.Scorer
}

// NewIngestionService wires a dataset reader to a repository. scorer may be
// nil, in which case the cache warm-up step is skipped.
func NewIngestionService(r domain.RecordReader, repo domain.ReviewRepository, sc domain.Scorer) *IngestionService {
	return &IngestionService{reader: r, repo: repo, scorer: sc}
}

type IngestReport struct {
	Rows         int
	Warmed       int
	WarmFailures int
}

// Ingest loads the dataset, upserts it in file order and then scores every
// distinct body with at most workers calls in flight. Warm-up failures are
// counted, not returned.
func (s *IngestionService) Ingest(ctx context.Context, workers int) (IngestReport, error) {
	reviews, err := LoadDataset(ctx, s.reader)
	if err != nil {
		return IngestReport{}, fmt.Errorf("load dataset: %w", err)
	}
	if err := s.repo.UpsertReviews(ctx, reviews); err != nil {
		return IngestReport{}, fmt.Errorf("upsert reviews: %w", err)
	}
	rep := IngestReport{Rows: len(reviews)}
	if s.scorer == nil || len(reviews) == 0 {
		return rep, nil
	}
	if workers <= 0 {
		workers = 1
	}

	seen := make(map[string]struct{}, len(reviews))
	sem := semaphore.NewWeighted(int64(workers))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, r := range reviews {
		if _, dup := seen[r.ReviewBody]; dup {
			continue
		}
		seen[r.ReviewBody] = struct{}{}

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return rep, err
		}
		wg.Add(1)
		go func(body string) {
			defer wg.Done()
			defer sem.Release(1)

			_, err := s.scorer.Score(ctx, body)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				rep.WarmFailures++
				log.Warn().Err(err).Msg("warm score failed")
				return
			}
			rep.Warmed++
		}(r.ReviewBody)
	}
	wg.Wait()
	return rep, nil
}
