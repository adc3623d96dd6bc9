package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/findalleasy/vitrin/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Package-level compiled regex patterns for performance
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// Status priorities; a barcode scan outranks a running search
const (
	prioritySearch  = 1
	priorityBarcode = 2
)

// barcodeHint is the session hint left by a successful barcode lookup
const barcodeHint = "barcode"

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	CacheTTL time.Duration
	Timeout  time.Duration
	Logger   *zap.Logger
}

// SearchService runs vitrin searches and barcode lookups against the backend
type SearchService struct {
	cache   domain.CacheRepository
	backend domain.SearchBackend
	hints   domain.HintStore
	status  domain.StatusPublisher
	vitrin  *VitrinService

	cacheTTL time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	flights singleflight.Group

	mu       sync.Mutex
	seq      uint64
	inflight map[string]inflightSearch
}

// inflightSearch is the cancellation token of the newest search of a session
type inflightSearch struct {
	gen    uint64
	cancel context.CancelFunc
}

// NewSearchService creates a new search service with dependencies.
// hints and status may be nil.
func NewSearchService(
	cache domain.CacheRepository,
	backend domain.SearchBackend,
	hints domain.HintStore,
	status domain.StatusPublisher,
	vitrin *VitrinService,
	config SearchServiceConfig,
) *SearchService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if status == nil {
		status = nopPublisher{}
	}
	if vitrin == nil {
		vitrin = NewVitrinService(VitrinConfig{Logger: logger})
	}

	return &SearchService{
		cache:    cache,
		backend:  backend,
		hints:    hints,
		status:   status,
		vitrin:   vitrin,
		cacheTTL: cacheTTL,
		timeout:  timeout,
		logger:   logger.Named("search"),
		inflight: make(map[string]inflightSearch),
	}
}

// Search looks up and ranks offers for a query.
// Flow: optimize query -> remember hint -> check cache -> search backend -> rank -> cache -> return.
// A newer search of the same session cancels this one, which then returns ErrSuperseded.
func (s *SearchService) Search(ctx context.Context, request *domain.SearchRequest) (*domain.SearchResponse, error) {
	if request == nil || strings.TrimSpace(request.Query) == "" {
		return nil, domain.ErrInvalidRequest
	}

	ctx, gen, done := s.begin(ctx, request.SessionID)
	defer done()

	query := s.vitrin.OptimizeQuery(request.Query)
	if query == "" {
		// the query was nothing but filler words
		query = strings.TrimSpace(request.Query)
	}

	hint := s.resolveHint(ctx, request)

	s.status.Publish(domain.Status{
		Source:   domain.SourceSearch,
		Message:  fmt.Sprintf("%q aranıyor", query),
		Level:    domain.StatusLoading,
		Priority: prioritySearch,
	})

	cacheKey := generateCacheKey(query, request.Region, hint)
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		if !s.isCurrent(request.SessionID, gen) {
			return nil, domain.ErrSuperseded
		}
		cached.Source = "cache"
		s.publishDone(cached)
		return cached, nil
	}

	items, err := s.searchBackend(ctx, &domain.BackendSearchRequest{
		Query:    query,
		Region:   request.Region,
		Category: request.Category,
	})
	if !s.isCurrent(request.SessionID, gen) {
		s.logger.Debug("dropping stale search response", zap.String("query", query), zap.String("session", request.SessionID))
		return nil, domain.ErrSuperseded
	}
	if err != nil {
		s.status.Publish(domain.Status{
			Source:   domain.SourceSearch,
			Message:  "Arama şu anda yapılamıyor, lütfen tekrar deneyin",
			Level:    domain.StatusError,
			Priority: prioritySearch,
		})
		return nil, err
	}

	output := s.vitrin.Process(domain.ProcessInput{Query: request.Query, Results: items}, hint)
	response := &domain.SearchResponse{
		Query:   output.Query,
		Mode:    output.Mode,
		Results: output.Results,
		Total:   len(output.Results),
		Source:  "backend",
	}
	if response.Query == "" {
		response.Query = query
	}

	if err := s.setInCache(ctx, cacheKey, response); err != nil {
		s.logger.Warn("failed to cache search response", zap.String("key", cacheKey), zap.Error(err))
	}

	s.publishDone(response)
	return response, nil
}

// searchBackend collapses identical concurrent backend calls. The shared call
// runs under its own timeout so one caller leaving does not fail the others.
func (s *SearchService) searchBackend(ctx context.Context, request *domain.BackendSearchRequest) ([]domain.ResultItem, error) {
	key := strings.Join([]string{request.Query, request.Region, request.Category}, "\x00")

	ch := s.flights.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.backend.Search(flightCtx, request)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			if errors.Is(res.Err, domain.ErrTimeout) || errors.Is(res.Err, domain.ErrProductNotFound) || errors.Is(res.Err, domain.ErrRateLimited) {
				return nil, res.Err
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrBackendFailure, res.Err)
		}
		items, _ := res.Val.([]domain.ResultItem)
		return items, nil
	}
}

// LookupBarcode resolves a scanned barcode or QR payload. The backend is asked
// in free-only mode first and, when that finds nothing, once in paid mode.
// A successful lookup makes the session's next search a product search.
func (s *SearchService) LookupBarcode(ctx context.Context, sessionID, code string) (*domain.ProductInfo, error) {
	code = strings.TrimSpace(code)
	if compact, ok := asBarcode(code); ok {
		code = compact
	}
	if code == "" {
		return nil, domain.ErrInvalidRequest
	}

	cacheKey := "barcode:" + code
	if data, err := s.cache.Get(ctx, cacheKey); err == nil {
		var info domain.ProductInfo
		if err := json.Unmarshal(data, &info); err == nil {
			s.storeHint(ctx, sessionID, barcodeHint)
			return &info, nil
		}
	}

	s.status.Publish(domain.Status{
		Source:   domain.SourceBarcode,
		Message:  "Barkod sorgulanıyor",
		Level:    domain.StatusLoading,
		Priority: priorityBarcode,
	})
	defer s.status.Clear(domain.SourceBarcode)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	info, err := s.backend.ProductInfo(ctx, code, domain.LookupFreeOnly)
	if errors.Is(err, domain.ErrProductNotFound) {
		s.logger.Info("free lookup found nothing, trying paid providers", zap.String("code", code))
		info, err = s.backend.ProductInfo(ctx, code, domain.LookupPaidAllowed)
	}
	if err != nil {
		return nil, err
	}

	s.storeHint(ctx, sessionID, barcodeHint)

	if data, err := json.Marshal(info); err == nil {
		if err := s.cache.Set(ctx, cacheKey, data, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache product info", zap.String("key", cacheKey), zap.Error(err))
		}
	}
	return info, nil
}

// Rank runs the vitrin ranking on caller supplied results
func (s *SearchService) Rank(input domain.ProcessInput, hint string) domain.ProcessOutput {
	return s.vitrin.Process(input, hint)
}

// OptimizeQuery strips filler phrases from a query
func (s *SearchService) OptimizeQuery(query string) string {
	return s.vitrin.OptimizeQuery(query)
}

// Hint returns the stored category hint of a session
func (s *SearchService) Hint(ctx context.Context, sessionID string) (string, error) {
	if s.hints == nil || strings.TrimSpace(sessionID) == "" {
		return "", domain.ErrHintNotFound
	}
	return s.hints.Get(ctx, sessionID)
}

// SetHint stores the category hint of a session
func (s *SearchService) SetHint(ctx context.Context, sessionID, category string) error {
	if strings.TrimSpace(sessionID) == "" {
		return domain.ErrInvalidRequest
	}
	if s.hints == nil {
		return nil
	}
	return s.hints.Set(ctx, sessionID, category)
}

// resolveHint stores the request category as the session hint when present,
// otherwise reads the stored one. Hint storage failures only lose the hint.
// Requests without a session only ever see their own category.
func (s *SearchService) resolveHint(ctx context.Context, request *domain.SearchRequest) string {
	if request.Category != "" {
		s.storeHint(ctx, request.SessionID, request.Category)
		return request.Category
	}

	if s.hints == nil || strings.TrimSpace(request.SessionID) == "" {
		return ""
	}
	hint, err := s.hints.Get(ctx, request.SessionID)
	if err != nil && !errors.Is(err, domain.ErrHintNotFound) {
		s.logger.Warn("failed to read category hint", zap.Error(err))
	}
	return hint
}

// storeHint remembers category for a session; sessionless callers keep nothing
func (s *SearchService) storeHint(ctx context.Context, sessionID, category string) {
	if s.hints == nil || strings.TrimSpace(sessionID) == "" {
		return
	}
	if err := s.hints.Set(ctx, sessionID, category); err != nil {
		s.logger.Warn("failed to store category hint", zap.String("category", category), zap.Error(err))
	}
}

// begin registers a new search for the session and cancels the previous one
func (s *SearchService) begin(ctx context.Context, sessionID string) (context.Context, uint64, func()) {
	ctx, cancel := context.WithCancel(ctx)
	if sessionID == "" {
		return ctx, 0, cancel
	}

	s.mu.Lock()
	s.seq++
	gen := s.seq
	if prev, ok := s.inflight[sessionID]; ok {
		prev.cancel()
	}
	s.inflight[sessionID] = inflightSearch{gen: gen, cancel: cancel}
	s.mu.Unlock()

	return ctx, gen, func() {
		s.mu.Lock()
		if cur, ok := s.inflight[sessionID]; ok && cur.gen == gen {
			delete(s.inflight, sessionID)
		}
		s.mu.Unlock()
		cancel()
	}
}

// isCurrent reports whether gen is still the newest search of the session
func (s *SearchService) isCurrent(sessionID string, gen uint64) bool {
	if sessionID == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.inflight[sessionID]
	return ok && cur.gen == gen
}

func (s *SearchService) publishDone(response *domain.SearchResponse) {
	status := domain.Status{
		Source:   domain.SourceSearch,
		Message:  fmt.Sprintf("%d sonuç bulundu", response.Total),
		Level:    domain.StatusSuccess,
		Priority: prioritySearch,
	}
	if response.Total == 0 {
		status.Message = "Sonuç bulunamadı"
		status.Level = domain.StatusWarning
	}
	s.status.Publish(status)
}

// generateCacheKey creates a normalized cache key.
// Format: "vitrin:{normalized_query}:{region}:{hint}"
func generateCacheKey(query, region, hint string) string {
	return fmt.Sprintf("vitrin:%s:%s:%s",
		normalizeForCacheKey(query),
		normalizeForCacheKey(region),
		normalizeForCacheKey(hint))
}

// normalizeForCacheKey folds Turkish letters, drops special characters and collapses whitespace
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := foldTR(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// getFromCache retrieves a ranked response from cache
func (s *SearchService) getFromCache(ctx context.Context, key string) (*domain.SearchResponse, error) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var response domain.SearchResponse
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&response); err != nil {
		return nil, domain.ErrCacheMiss
	}
	return &response, nil
}

// setInCache stores a ranked response in cache
func (s *SearchService) setInCache(ctx context.Context, key string, response *domain.SearchResponse) error {
	stored := *response
	stored.CachedAt = time.Now()
	data, err := json.Marshal(&stored)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}

// nopPublisher drops status updates when no bus is wired
type nopPublisher struct{}

func (nopPublisher) Publish(status domain.Status) domain.Status { return status }
func (nopPublisher) Clear(string)                                {}
