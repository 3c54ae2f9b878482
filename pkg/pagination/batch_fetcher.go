package pagination

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
)

// FetchRemaining fetches every page after the first one for a listing whose first page
// (offset 0) the caller already holds. total and pageSize must come from the same query
// as that first page.
//
// The returned error is only non-nil for invalid arguments; page failures are collected
// in Result.Errors while the remaining pages still complete.
func FetchRemaining[T any](ctx context.Context, fetch PageFunc[T], total, pageSize int, base url.Values, workers int) (*Result[T], error) {
	switch {
	case fetch == nil:
		return nil, fmt.Errorf("%w: fetch function is nil", ErrInvalidConfig)
	case total < 0:
		return nil, fmt.Errorf("%w: total must be >= 0 (got %d)", ErrInvalidConfig, total)
	case pageSize <= 0:
		return nil, fmt.Errorf("%w: page size must be > 0 (got %d)", ErrInvalidConfig, pageSize)
	case workers < 1:
		return nil, fmt.Errorf("%w: workers must be >= 1 (got %d)", ErrInvalidConfig, workers)
	}

	start := time.Now()
	offsets := RemainingOffsets(total, pageSize)
	result := &Result[T]{}
	if len(offsets) == 0 {
		return result, nil
	}

	requests := make([]PageRequest, len(offsets))
	for i, offset := range offsets {
		requests[i] = NewPageRequest(base, offset, pageSize)
	}

	log.Info().
		Int("total", total).
		Int("page_size", pageSize).
		Int("pages", len(requests)).
		Int("workers", workers).
		Msg("Starting parallel page fetch")

	outcomes := Dispatch(ctx, requests, workers, func(ctx context.Context, req PageRequest) ([]T, error) {
		pageStart := time.Now()
		page, err := fetch(ctx, req)
		pageFetchDuration.Observe(time.Since(pageStart).Seconds())
		if err != nil {
			return nil, err
		}
		return page.Records, nil
	})

	for _, o := range outcomes {
		if o.Err != nil {
			pagesFetched.WithLabelValues("error").Inc()
			log.Warn().
				Err(o.Err).
				Int("offset", o.Input.Offset).
				Msg("Page fetch failed")
			result.Errors = append(result.Errors, PageError{Request: o.Input, Err: o.Err})
			continue
		}
		pagesFetched.WithLabelValues("ok").Inc()
		result.Records = append(result.Records, o.Output...)
	}

	log.Info().
		Int("records", len(result.Records)).
		Int("failed_pages", len(result.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return result, nil
}

// FetchAll fetches the first page, then every remaining page with FetchRemaining.
// The first page's records come first in the result. A first page error is fatal
// because without it the total is unknown.
func FetchAll[T any](ctx context.Context, fetch PageFunc[T], pageSize int, base url.Values, workers int) (*Result[T], error) {
	if fetch == nil {
		return nil, fmt.Errorf("%w: fetch function is nil", ErrInvalidConfig)
	}
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be > 0 (got %d)", ErrInvalidConfig, pageSize)
	}

	first, err := fetch(ctx, NewPageRequest(base, 0, pageSize))
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	pagesFetched.WithLabelValues("ok").Inc()

	// Single page optimization
	if first.Total <= pageSize {
		return &Result[T]{Records: first.Records}, nil
	}

	rest, err := FetchRemaining(ctx, fetch, first.Total, pageSize, base, workers)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(first.Records)+len(rest.Records))
	records = append(records, first.Records...)
	rest.Records = append(records, rest.Records...)
	return rest, nil
}
