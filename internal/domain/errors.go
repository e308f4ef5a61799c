package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNotFound = errors.New("not found")

// Kind classifies request failures for status mapping and logging.
type Kind string

const (
	KindMissingField       Kind = "missing_field"
	KindDisallowedLocation Kind = "disallowed_location"
	KindParse              Kind = "parse_error"
	KindUpstreamScorer     Kind = "upstream_scorer_failure"
	KindInternal           Kind = "internal"
)

// Error is a request-level failure. Message is safe to show to clients;
// Cause is for logs only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindMissingField, KindDisallowedLocation, KindParse:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func MissingField() *Error {
	return &Error{Kind: KindMissingField, Message: "No location or body"}
}

func DisallowedLocation(location string) *Error {
	return &Error{Kind: KindDisallowedLocation, Message: "Not a desired location", Cause: fmt.Errorf("location %q", location)}
}

func ParseError(field, value string, cause error) *Error {
	return &Error{Kind: KindParse, Message: fmt.Sprintf("invalid %s: %q (want YYYY-MM-DD)", field, value), Cause: cause}
}

func UpstreamScorerFailure(cause error) *Error {
	return &Error{Kind: KindUpstreamScorer, Message: "sentiment scoring failed", Cause: cause}
}

// AsError converts any error into an *Error, wrapping unknown errors as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Message: "internal server error", Cause: err}
}

// KindOf returns the Kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}
