package source

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoUsableRows is matched by every error caused by a page that was fetched but did
// not contain enough rows.
var ErrNoUsableRows = errors.New("no usable rows")

// TransportError is a failure to retrieve a page: a network error, a timeout or a non-2xx
// response.
type TransportError struct {
	URL string
	// StatusCode is 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	cause := e.Err
	// the url is already part of the message
	var urlErr *url.Error
	if errors.As(cause, &urlErr) {
		cause = urlErr.Err
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, cause)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseInsufficientError is returned for a page where the best strategy found fewer rows
// than required.
type ParseInsufficientError struct {
	URL  string
	Rows int
}

func (e *ParseInsufficientError) Error() string {
	return fmt.Sprintf("parsed %d usable rows from %s", e.Rows, e.URL)
}

func (e *ParseInsufficientError) Is(target error) bool {
	return target == ErrNoUsableRows
}

// AggregateFetchError holds the final failure of every source, in the order they were
// tried.
type AggregateFetchError struct {
	Failures []error
}

func (e *AggregateFetchError) Error() string {
	messages := make([]string, len(e.Failures))
	for i, failure := range e.Failures {
		messages[i] = failure.Error()
	}
	return fmt.Sprintf("every source failed: %s", strings.Join(messages, "; "))
}

func (e *AggregateFetchError) Unwrap() []error {
	return e.Failures
}

// TransportExhaustedError is returned when no source could be retrieved at all. Last is
// the failure of the final source, errors.As finds it before anything in Aggregate.
type TransportExhaustedError struct {
	Last      *TransportError
	Aggregate *AggregateFetchError
}

func (e *TransportExhaustedError) Error() string {
	return e.Aggregate.Error()
}

func (e *TransportExhaustedError) Unwrap() []error {
	return []error{e.Last, e.Aggregate}
}
