package usecase

import (
	"slices"
	"strings"

	"github.com/findalleasy/vitrin/internal/domain"
	"go.uber.org/zap"
)

// VitrinConfig holds configuration for the vitrin service
type VitrinConfig struct {
	Keywords           domain.KeywordTable
	Logger             *zap.Logger
	EnableDebugLogging bool
}

// VitrinService filters and orders backend search results for the vitrin
type VitrinService struct {
	index              *keywordIndex
	optimizer          *QueryOptimizer
	sort               func([]domain.ResultItem, domain.Mode) []domain.ResultItem
	logger             *zap.Logger
	enableDebugLogging bool
}

// NewVitrinService creates a new vitrin service. An empty keyword table falls
// back to the built-in lists.
func NewVitrinService(config VitrinConfig) *VitrinService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	table := MergeKeywordTable(DefaultKeywordTable(), config.Keywords)

	return &VitrinService{
		index:              newKeywordIndex(table),
		optimizer:          NewQueryOptimizer(table, logger, config.EnableDebugLogging),
		sort:               SortResults,
		logger:             logger,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// OptimizeQuery strips filler phrases from a query
func (s *VitrinService) OptimizeQuery(query string) string {
	return s.optimizer.Optimize(query)
}

// IsHardProduct reports whether an item must show a price to be listed
func (s *VitrinService) IsHardProduct(item domain.ResultItem) bool {
	return s.index.isHardProduct(item)
}

// InferMode decides whether a search is a product or a service search
func (s *VitrinService) InferMode(query string, candidates []domain.ResultItem, hint string) domain.Mode {
	return s.index.inferMode(query, candidates, hint)
}

// Process cleans the query, drops entries that cannot be shown and orders the
// rest for the inferred mode. In product mode every surfaced item has a price,
// and when none has one the result list is empty. Process never panics: on an
// internal failure it returns the trimmed query with the input left untouched.
func (s *VitrinService) Process(input domain.ProcessInput, hint string) (output domain.ProcessOutput) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("vitrin processing failed, returning input unchanged",
				zap.String("query", input.Query),
				zap.Int("results", len(input.Results)),
				zap.Any("panic", r))
			output = domain.ProcessOutput{
				Query:   strings.TrimSpace(input.Query),
				Results: input.Results,
			}
		}
	}()

	candidates := make([]domain.ResultItem, 0, len(input.Results))
	for _, item := range input.Results {
		if item != nil {
			candidates = append(candidates, item)
		}
	}

	query := s.optimizer.Optimize(input.Query)
	mode := s.index.inferMode(query, candidates, hint)

	kept := make([]domain.ResultItem, 0, len(candidates))
	for _, item := range candidates {
		_, hasPrice := ExtractPrice(item)
		if hasPrice {
			kept = append(kept, item)
			continue
		}
		if mode == domain.ModeProduct || s.index.isHardProduct(item) {
			continue
		}
		kept = append(kept, item)
	}

	if s.enableDebugLogging {
		s.logger.Debug("vitrin processed",
			zap.String("query", query),
			zap.String("mode", string(mode)),
			zap.Int("input", len(input.Results)),
			zap.Int("kept", len(kept)))
	}

	if mode == domain.ModeProduct && !anyPriced(kept) {
		return domain.ProcessOutput{Query: query, Results: []domain.ResultItem{}, Mode: mode}
	}

	return domain.ProcessOutput{
		Query:   query,
		Results: s.sort(kept, mode),
		Mode:    mode,
	}
}

func anyPriced(items []domain.ResultItem) bool {
	for _, item := range items {
		if _, ok := ExtractPrice(item); ok {
			return true
		}
	}
	return false
}

// rankKey caches the sort keys of one item
type rankKey struct {
	item     domain.ResultItem
	price    float64
	hasPrice bool
	trust    float64
}

// SortResults returns items ordered for the mode. Product mode: price
// ascending, then trust descending. Service mode: trust descending, then
// price ascending with unpriced items last. Equal items keep input order.
func SortResults(items []domain.ResultItem, mode domain.Mode) []domain.ResultItem {
	keys := make([]rankKey, len(items))
	for i, item := range items {
		price, ok := ExtractPrice(item)
		keys[i] = rankKey{item: item, price: price, hasPrice: ok, trust: ExtractTrust(item)}
	}

	compare := compareService
	if mode == domain.ModeProduct {
		compare = compareProduct
	}
	slices.SortStableFunc(keys, compare)

	out := make([]domain.ResultItem, len(keys))
	for i, k := range keys {
		out[i] = k.item
	}
	return out
}

func compareProduct(a, b rankKey) int {
	if c := comparePrice(a, b); c != 0 {
		return c
	}
	return compareTrustDesc(a, b)
}

func compareService(a, b rankKey) int {
	if c := compareTrustDesc(a, b); c != 0 {
		return c
	}
	return comparePrice(a, b)
}

// comparePrice orders by price ascending with unpriced items after priced ones
func comparePrice(a, b rankKey) int {
	switch {
	case !a.hasPrice && !b.hasPrice:
		return 0
	case !a.hasPrice:
		return 1
	case !b.hasPrice:
		return -1
	case a.price < b.price:
		return -1
	case a.price > b.price:
		return 1
	}
	return 0
}

func compareTrustDesc(a, b rankKey) int {
	switch {
	case a.trust > b.trust:
		return -1
	case a.trust < b.trust:
		return 1
	}
	return 0
}
