package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/findalleasy/vitrin/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	searchPath      = "/api/search"
	productInfoPath = "/api/product-info/product"

	defaultTimeout           = 10 * time.Second
	defaultRequestsPerSecond = 5.0
	defaultBurst             = 10

	// maxBodyBytes bounds how much of a backend response is read
	maxBodyBytes = 8 << 20
)

// ClientConfig holds the settings of a backend client
type ClientConfig struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Logger            *zap.Logger
}

// Client talks to the FindAllEasy search backend
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	timeout     time.Duration
	rateLimiter *rate.Limiter
	logger      *zap.Logger
	debug       bool
}

// NewClient creates a new backend client
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		// the per-request deadline comes from the context; this is only a backstop
		httpClient:  &http.Client{Timeout: 2 * timeout},
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		timeout:     timeout,
		rateLimiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:      logger.Named("backend"),
	}
}

// SetDebug toggles request/response logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// Search runs POST /api/search and returns the raw result items
func (c *Client) Search(ctx context.Context, request *domain.BackendSearchRequest) ([]domain.ResultItem, error) {
	if request == nil || strings.TrimSpace(request.Query) == "" {
		return nil, domain.ErrInvalidRequest
	}

	body, err := c.postJSON(ctx, searchPath, request)
	if err != nil {
		c.logger.Warn("search request failed", zap.String("query", request.Query), zap.Error(err))
		return nil, err
	}

	items, err := MapSearchResults(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if c.debug {
		c.logger.Debug("search results", zap.String("query", request.Query), zap.Int("count", len(items)))
	}
	return items, nil
}

// ProductInfo runs POST /api/product-info/product for a barcode or QR payload
func (c *Client) ProductInfo(ctx context.Context, code string, mode domain.LookupMode) (*domain.ProductInfo, error) {
	if strings.TrimSpace(code) == "" {
		return nil, domain.ErrInvalidRequest
	}

	payload := map[string]string{"qr": code, "mode": string(mode)}
	body, err := c.postJSON(ctx, productInfoPath, payload)
	if err != nil {
		if !errors.Is(err, domain.ErrProductNotFound) {
			c.logger.Warn("product info request failed", zap.String("code", code), zap.Error(err))
		}
		return nil, err
	}

	info, err := MapProductInfo(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if info == nil {
		return nil, domain.ErrProductNotFound
	}
	if info.Code == "" {
		info.Code = code
	}
	info.Mode = mode
	return info, nil
}

// postJSON sends one JSON request under the client timeout. There are no retries.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "FindAllEasy-Vitrin/1.0")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	if c.debug {
		c.logger.Debug("backend request", zap.String("path", path), zap.ByteString("body", data))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrBackendFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", domain.ErrBackendFailure, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrProductNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d, body: %s", domain.ErrBackendFailure, resp.StatusCode, truncate(body, 256))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
