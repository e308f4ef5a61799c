package sentiment

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"review_analyzer/internal/domain"
)

// flightTimeout bounds a shared upstream call once it no longer follows any
// single caller's context.
const flightTimeout = 30 * time.Second

// CachedScorer memoizes polarities by scorer version and text hash.
// Concurrent requests for the same text share a single upstream call, which
// runs detached from the caller that started it: one caller giving up does
// not fail the others. Cache errors are logged and otherwise ignored; scorer
// errors are returned.
type CachedScorer struct {
	next    domain.Scorer
	cache   domain.Cache
	version string
	ttl     time.Duration
	group   singleflight.Group
}

func NewCachedScorer(next domain.Scorer, cache domain.Cache, version string, ttl time.Duration) *CachedScorer {
	return &CachedScorer{next: next, cache: cache, version: version, ttl: ttl}
}

func (c *CachedScorer) Score(ctx context.Context, text string) (domain.Polarity, error) {
	key := CacheKey(c.version, text)

	var p domain.Polarity
	if ok, err := c.cache.Get(ctx, key, &p); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("sentiment cache get failed")
	} else if ok {
		return p, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()

		p, err := c.next.Score(fctx, text)
		if err != nil {
			return domain.Polarity{}, err
		}
		if err := c.cache.Set(fctx, key, p, int(c.ttl.Seconds())); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("sentiment cache set failed")
		}
		return p, nil
	})

	select {
	case <-ctx.Done():
		return domain.Polarity{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Polarity{}, res.Err
		}
		return res.Val.(domain.Polarity), nil
	}
}

// CacheKey is "sentiment:<version>:<sha1(text)>".
func CacheKey(version, text string) string {
	sum := sha1.Sum([]byte(text))
	return "sentiment:" + version + ":" + hex.EncodeToString(sum[:])
}
