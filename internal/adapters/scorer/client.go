// Package scorer is a domain.Scorer backed by a remote sentiment engine
// reachable over HTTP.
package scorer

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/domain"
)

const (
	service     = "scorer"
	endpoint    = "/polarity"
	maxAttempts = 4
)

var (
	ErrBadRequest = errors.New("scorer: bad request")
	ErrOpen       = errors.New("scorer: circuit open")
)

type Options struct {
	Version   string        // cache namespace for this engine; defaults to "remote"
	RPS       int           // client-side rate limit
	Timeout   time.Duration // per attempt
	TripAfter uint32        // consecutive failures before the breaker opens
	Cooldown  time.Duration // open -> half-open delay
}

type Client struct {
	base    string
	hc      *http.Client
	rl      *rate.Limiter
	cb      *gobreaker.CircuitBreaker
	version string
}

func New(base string, opt Options) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("scorer base URL is required")
	}
	if opt.RPS <= 0 {
		opt.RPS = 20
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 5 * time.Second
	}
	if opt.TripAfter == 0 {
		opt.TripAfter = 5
	}
	if opt.Cooldown <= 0 {
		opt.Cooldown = 30 * time.Second
	}
	if opt.Version == "" {
		opt.Version = "remote"
	}

	c := &Client{
		base:    strings.TrimRight(base, "/"),
		hc:      &http.Client{Timeout: opt.Timeout},
		rl:      rate.NewLimiter(rate.Limit(opt.RPS), opt.RPS),
		version: opt.Version,
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    service,
		Timeout: opt.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opt.TripAfter
		},
		// caller mistakes must not open the breaker
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBadRequest) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			observability.SetBreakerState(name, int(to))
		},
	})
	observability.SetBreakerState(service, int(gobreaker.StateClosed))
	return c, nil
}

func (c *Client) Version() string { return c.version }

// Score posts text to the remote engine. Transient failures are retried
// inside one breaker call; an open breaker fails fast with ErrOpen.
func (c *Client) Score(ctx context.Context, text string) (domain.Polarity, error) {
	v, err := c.cb.Execute(func() (interface{}, error) {
		var p domain.Polarity
		err := c.post(ctx, c.base+endpoint, map[string]string{"text": text}, &p)
		return p, err
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return domain.Polarity{}, fmt.Errorf("%w: %v", ErrOpen, err)
	}
	if err != nil {
		return domain.Polarity{}, err
	}
	p := v.(domain.Polarity)
	if p.Compound < -1 || p.Compound > 1 {
		return domain.Polarity{}, fmt.Errorf("scorer: compound %v out of range", p.Compound)
	}
	return p, nil
}

// post sends a JSON body with client-side rate limiting and retries on 429
// and transient 5xx, honoring Retry-After when provided.
func (c *Client) post(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "review-analyzer/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(service, endpoint, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("scorer: decode response: %w", err)
			}
			return nil

		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%w: %s", ErrBadRequest, strings.TrimSpace(string(b)))

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("scorer: remote %d", resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("scorer: bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 100ms per attempt with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 100 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
