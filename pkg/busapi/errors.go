package busapi

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchError is returned for every failed backend call.
type FetchError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("busapi: %s: %d %s", e.Op, e.StatusCode, e.Message)
	}

	if e.Err != nil {
		return fmt.Sprintf("busapi: %s: %s", e.Op, e.Err)
	}

	return fmt.Sprintf("busapi: %s: %s", e.Op, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the same request may succeed.
func (e *FetchError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

func IsNotFound(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) && fetchErr.StatusCode == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr) &&
		(fetchErr.StatusCode == http.StatusUnauthorized || fetchErr.StatusCode == http.StatusForbidden)
}
