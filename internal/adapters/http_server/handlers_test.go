package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "review_analyzer/internal/adapters/http_server"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
	"review_analyzer/internal/locations"
	"review_analyzer/internal/storage/memory"
)

type stubScorer struct {
	scores map[string]float64
	err    error
}

func (s stubScorer) Score(ctx context.Context, text string) (domain.Polarity, error) {
	if s.err != nil {
		return domain.Polarity{}, s.err
	}
	return domain.Polarity{Compound: s.scores[text]}, nil
}

var now = time.Date(2024, 3, 5, 14, 7, 9, 0, time.Local)

func dataset(t *testing.T) []domain.Review {
	t.Helper()
	rows := []struct{ body, loc, ts string }{
		{"ok stay", "Salt Lake City, Utah", "2021-03-01 09:00:00"},
		{"loved it", "salt lake city, utah", "2021-06-15 6:09:40"},
		{"old news", "salt lake city, utah", "2020-12-31 23:59:59"},
		{"hot", "Phoenix, Arizona", "2021-07-01 12:00:00"},
		{"<b>nice</b> & tidy", "denver, colorado", "2022-01-01 00:00:00"},
	}
	out := make([]domain.Review, 0, len(rows))
	for _, r := range rows {
		ts, err := domain.ParseTimestamp(r.ts)
		require.NoError(t, err)
		out = append(out, domain.Review{ReviewBody: r.body, Location: r.loc, Timestamp: ts})
	}
	return out
}

func newServer(t *testing.T, sc domain.Scorer, opt httpserver.Options) http.Handler {
	t.Helper()
	reg := locations.Default()
	q := app.NewQueryService(memory.New(dataset(t)), reg, sc, 2)
	s := app.NewSubmissionService(reg, clockwork.NewFakeClockAt(now))

	srv := httpserver.New(opt)
	srv.MountHandlers(&httpserver.Handlers{Q: q, S: s, MaxBodyBytes: 64})
	return srv.Mux()
}

func defaultScorer() domain.Scorer {
	return stubScorer{scores: map[string]float64{"ok stay": 0.2, "loved it": 0.9, "old news": 0.5, "hot": -0.3}}
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body, 1)
	return body["error"]
}

func postForm(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestGetRoot_NoQueryReturnsRawStore(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	rr := do(h, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, strconv.Itoa(rr.Body.Len()), rr.Header().Get("Content-Length"))
	assert.NotEmpty(t, rr.Header().Get("ETag"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "[\n  {\n    \"ReviewBody\""), rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"<b>nice</b> & tidy"`)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 5)
	assert.Equal(t, "ok stay", got[0]["ReviewBody"])
	assert.Equal(t, "2021-06-15 6:09:40", got[1]["Timestamp"])
	for _, r := range got {
		assert.NotContains(t, r, "sentiment")
		assert.NotContains(t, r, "ReviewId")
	}
}

func TestGetRoot_FilterScenario(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	rr := do(h, httptest.NewRequest(http.MethodGet,
		"/?location=Salt+Lake+City%2C+Utah&start_date=2021-01-01&end_date=2021-12-31", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []domain.Review
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "loved it", got[0].ReviewBody)
	assert.Equal(t, "ok stay", got[1].ReviewBody)
	require.NotNil(t, got[0].Sentiment)
	assert.Equal(t, 0.9, got[0].Sentiment.Compound)
}

func TestGetRoot_AnyQueryAnnotates(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	rr := do(h, httptest.NewRequest(http.MethodGet, "/?page=2", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []domain.Review
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 5)
	assert.Equal(t, "loved it", got[0].ReviewBody)
	assert.Equal(t, "hot", got[4].ReviewBody)
	for _, r := range got {
		assert.NotNil(t, r.Sentiment)
	}
}

func TestGetRoot_UnregisteredLocationIsEmpty(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	rr := do(h, httptest.NewRequest(http.MethodGet, "/?location=Nowhere%2C+Nowhere", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}

func TestGetRoot_MalformedDate(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	rr := do(h, httptest.NewRequest(http.MethodGet, "/?start_date=2021-02-30", nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr), "start_date")
}

func TestGetRoot_ScorerFailure(t *testing.T) {
	h := newServer(t, stubScorer{err: errors.New("engine exploded at 0x1f")}, httpserver.Options{})
	rr := do(h, httptest.NewRequest(http.MethodGet, "/?location=phoenix,+arizona", nil))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "sentiment scoring failed", decodeError(t, rr))
	assert.NotContains(t, rr.Body.String(), "0x1f")
}

func TestGetRoot_IfNoneMatch(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	first := do(h, httptest.NewRequest(http.MethodGet, "/", nil))
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", etag)
	rr := do(h, req)
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Zero(t, rr.Body.Len())
}

func TestPostRoot_Validation(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	cases := []struct {
		name, body, want string
	}{
		{"empty body field", "Location=Denver%2C+Colorado&ReviewBody=", "No location or body"},
		{"no fields", "", "No location or body"},
		{"blank location", "Location=+++&ReviewBody=hi", "No location or body"},
		{"disallowed", "Location=Nowhere%2C+Nowhere&ReviewBody=hi", "Not a desired location"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(h, postForm(tc.body, "application/x-www-form-urlencoded"))
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tc.want, decodeError(t, rr))
		})
	}
}

func TestPostRoot_Created(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	// content type is ignored, the body is always form-encoded
	rr := do(h, postForm("Location=Denver%2C+Colorado&ReviewBody=Great+coffee", "application/json"))

	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	id, err := uuid.Parse(got["ReviewId"].(string))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.Equal(t, "Great coffee", got["ReviewBody"])
	assert.Equal(t, "Denver, Colorado", got["Location"])
	assert.Equal(t, "2024-03-05 14:07:09", got["Timestamp"])
	assert.NotContains(t, got, "sentiment")

	// not persisted
	list := do(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotContains(t, list.Body.String(), "Great coffee")
}

func TestPostRoot_BodyTooLarge(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	rr := do(h, postForm("Location=Denver%2C+Colorado&ReviewBody="+strings.Repeat("a", 100), ""))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestPostRoot_RateLimited(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{SubmitRPS: 1})
	body := "Location=Denver%2C+Colorado&ReviewBody=hi"

	assert.Equal(t, http.StatusCreated, do(h, postForm(body, "")).Code)
	rr := do(h, postForm(body, ""))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	// reads are never limited
	assert.Equal(t, http.StatusOK, do(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestRoot_OtherMethods(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	for _, m := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rr := do(h, httptest.NewRequest(m, "/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code, m)
		assert.Equal(t, "GET, POST", rr.Header().Get("Allow"), m)
		assert.Equal(t, "method not allowed", decodeError(t, rr))
	}
}

func TestUnknownPathAndHealthz(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})

	rr := do(h, httptest.NewRequest(http.MethodGet, "/reviews", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not found", decodeError(t, rr))

	rr = do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestPostRoot_SkipsBlankRepeatedFields(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	rr := do(h, postForm("Location=&Location=Denver%2C+Colorado&ReviewBody=hi", ""))

	require.Equal(t, http.StatusCreated, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Denver, Colorado", got["Location"])
}

func TestGetRoot_SkipsBlankRepeatedLocation(t *testing.T) {
	h := newServer(t, defaultScorer(), httpserver.Options{})
	rr := do(h, httptest.NewRequest(http.MethodGet, "/?location=&location=Phoenix%2C+Arizona", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got []domain.Review
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "hot", got[0].ReviewBody)
}

func TestTimeout_RespondsWithJSON(t *testing.T) {
	srv := httpserver.New(httpserver.Options{RequestTimeout: 20 * time.Millisecond})
	srv.Mount("/slow", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))

	rr := do(srv.Mux(), httptest.NewRequest(http.MethodGet, "/slow", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "timeout", decodeError(t, rr))
}
