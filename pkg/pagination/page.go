package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// ErrInvalidConfig is returned when a fetch cannot be set up at all.
var ErrInvalidConfig = errors.New("invalid pagination config")

// PageRequest identifies one page of a listing. It is immutable once built.
type PageRequest struct {
	query  url.Values
	Offset int
	Limit  int
}

// NewPageRequest copies base so later changes by the caller do not leak into the request.
func NewPageRequest(base url.Values, offset, limit int) PageRequest {
	q := make(url.Values, len(base))
	for k, v := range base {
		q[k] = append([]string(nil), v...)
	}
	return PageRequest{query: q, Offset: offset, Limit: limit}
}

// Values returns the base query with offset and limit applied.
func (r PageRequest) Values() url.Values {
	q := make(url.Values, len(r.query)+2)
	for k, v := range r.query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("offset", strconv.Itoa(r.Offset))
	q.Set("limit", strconv.Itoa(r.Limit))
	return q
}

// String renders the encoded query string, e.g. "limit=100&offset=200&status=ACTIVE".
func (r PageRequest) String() string {
	return r.Values().Encode()
}

// Page is a single page returned by a list endpoint.
type Page[T any] struct {
	Records []T
	// Total is the number of records the server reports for the whole query.
	Total int
}

// PageFunc fetches a single page.
type PageFunc[T any] func(ctx context.Context, req PageRequest) (Page[T], error)

// PageError records a page that could not be fetched.
type PageError struct {
	Request PageRequest
	Err     error
}

// Error implements the error interface.
func (e PageError) Error() string {
	return fmt.Sprintf("page offset=%d limit=%d: %v", e.Request.Offset, e.Request.Limit, e.Err)
}

// Unwrap returns the underlying fetch error.
func (e PageError) Unwrap() error {
	return e.Err
}

// Result aggregates every dispatched page of a listing.
type Result[T any] struct {
	// Records holds the records of all successful pages in completion order.
	Records []T
	// Errors holds one entry per failed page.
	Errors []PageError
}

// Failed reports whether any page failed.
func (r *Result[T]) Failed() bool {
	return len(r.Errors) > 0
}

// Err joins all page errors, or returns nil when every page succeeded.
func (r *Result[T]) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, pe := range r.Errors {
		errs[i] = pe
	}
	return errors.Join(errs...)
}

// RemainingOffsets returns the offsets after the first page: pageSize, 2*pageSize, ... < total.
func RemainingOffsets(total, pageSize int) []int {
	if pageSize <= 0 || total <= pageSize {
		return nil
	}
	offsets := make([]int, 0, (total-1)/pageSize)
	for offset := pageSize; offset < total; offset += pageSize {
		offsets = append(offsets, offset)
	}
	return offsets
}
