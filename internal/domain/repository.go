package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching serialized payloads
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// SearchBackend defines the interface for the FindAllEasy search backend
type SearchBackend interface {
	Search(ctx context.Context, request *BackendSearchRequest) ([]ResultItem, error)
	ProductInfo(ctx context.Context, code string, mode LookupMode) (*ProductInfo, error)
}

// HintStore persists the last category hint per client session
type HintStore interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Set(ctx context.Context, sessionID, category string) error
	Delete(ctx context.Context, sessionID string) error
}

// StatusPublisher receives status updates from long-running operations
type StatusPublisher interface {
	Publish(status Status) Status
	Clear(source string)
}
