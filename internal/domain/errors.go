package domain

import "errors"

var (
	// ErrProductNotFound is returned when the backend has no product for a query or barcode
	ErrProductNotFound = errors.New("product not found")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrBackendFailure is returned when a FindAllEasy backend request fails
	ErrBackendFailure = errors.New("backend request failed")

	// ErrTimeout is returned when a backend request does not finish before its deadline
	ErrTimeout = errors.New("backend request timed out")

	// ErrSuperseded is returned when a newer search for the same session replaced this one
	ErrSuperseded = errors.New("request superseded by a newer search")

	// ErrHintNotFound is returned when no category hint is stored for a session
	ErrHintNotFound = errors.New("category hint not found")
)
