package httpserver

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"review_analyzer/internal/adapters/observability"
	"review_analyzer/internal/app"
	"review_analyzer/internal/domain"
)

const defaultMaxBody = 1 << 20

type Handlers struct {
	Q *app.QueryService
	S *app.SubmissionService
	// MaxBodyBytes caps POST bodies; zero means 1 MiB.
	MaxBodyBytes int64
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.HandleFunc("/", h.root)
}

func (h *Handlers) root(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.listReviews(w, r)
	case http.MethodPost:
		h.submitReview(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// encode renders v as two-space indented JSON without HTML escaping.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("write response body failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := encode(v)
	if err != nil {
		log.Error().Err(err).Msg("marshal response failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeBody(w, status, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	body, _ := encode(errorBody{Error: msg})
	writeBody(w, status, body)
}

// writeDomainError maps err to its status and logs the cause server-side.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	e := domain.AsError(err)
	status := e.HTTPStatus()
	ev := log.Info()
	if status >= 500 {
		ev = log.Error()
	}
	ev.Err(e.Cause).
		Str("kind", string(e.Kind)).
		Str("path", r.URL.Path).
		Msg(e.Message)
	writeError(w, status, e.Message)
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte, error) {
	body, err := encode(v)
	if err != nil {
		return "", nil, err
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body, nil
}

// listReviews serves the raw store when the query string is empty and the
// filtered, scored and ranked subset otherwise.
func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	var out []domain.Review
	if r.URL.RawQuery == "" {
		out = h.Q.All()
	} else {
		c, err := app.ParseCriteria(r.URL.Query())
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		out, err = h.Q.FilterAndRank(r.Context(), c)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		observability.ObserveScored(len(out))
	}
	if out == nil {
		out = []domain.Review{}
	}

	etag, body, err := calcETagAndBody(out)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	writeBody(w, http.StatusOK, body)
}

func (h *Handlers) submitReview(w http.ResponseWriter, r *http.Request) {
	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBody
	}
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			observability.ObserveSubmission("too_large")
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		log.Warn().Err(err).Msg("read request body failed")
		writeError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	// malformed pairs are skipped, the well-formed ones still count
	form, _ := url.ParseQuery(string(raw))

	rv, err := h.S.Submit(app.FirstValue(form, "Location"), app.FirstValue(form, "ReviewBody"))
	if err != nil {
		observability.ObserveSubmission(string(domain.KindOf(err)))
		writeDomainError(w, r, err)
		return
	}
	observability.ObserveSubmission("created")
	writeJSON(w, http.StatusCreated, rv)
}
