package sources

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies fetch failures
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindAuth      ErrorKind = "auth"
	KindRateLimit ErrorKind = "rate_limit"
	KindMalformed ErrorKind = "malformed"
)

// FetchError is returned by every Source when a query could not run
type FetchError struct {
	Source string
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s error: %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func newFetchError(source string, kind ErrorKind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}

// KindOf returns the kind of a fetch error, or "" for anything else
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// statusError maps a non-200 upstream status to a fetch error
func statusError(source string, status int, body []byte) *FetchError {
	err := fmt.Errorf("upstream returned status %d: %s", status, truncateBody(body))
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return newFetchError(source, KindAuth, err)
	case status == http.StatusTooManyRequests:
		return newFetchError(source, KindRateLimit, err)
	default:
		return newFetchError(source, KindNetwork, err)
	}
}

// transportError wraps a request that never produced a response
func transportError(source string, err error) *FetchError {
	return newFetchError(source, KindNetwork, fmt.Errorf("request failed: %w", err))
}

func truncateBody(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
