package scraper

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound reports that a search produced no usable result link.
	ErrNotFound = errors.New("movie not found")
	// ErrFieldMissing reports that a required field was absent from a page.
	ErrFieldMissing = errors.New("required field missing")
)

// NotFoundError is returned when the search results listing or its first link is absent.
type NotFoundError struct {
	Query   string
	Locator string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no search result for %q (locator %q)", e.Query, e.Locator)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// FieldError is returned when a field with the required policy has no match.
type FieldError struct {
	Field    string
	Selector string
	URL      string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s not found at %s (selector %q)", e.Field, e.URL, e.Selector)
}

// Is lets errors.Is match ErrFieldMissing.
func (e *FieldError) Is(target error) bool { return target == ErrFieldMissing }

// HTTPStatusError reports a non-2xx response from the movie database.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *HTTPStatusError) Unwrap() error { return e.Err }

// Transient reports whether the status is worth retrying.
func (e *HTTPStatusError) Transient() bool {
	switch {
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}
