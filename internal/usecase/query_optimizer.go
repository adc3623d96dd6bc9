package usecase

import (
	"regexp"
	"strings"

	"github.com/findalleasy/vitrin/internal/domain"
	"go.uber.org/zap"
)

var (
	// barcodePattern matches an EAN/UPC/GTIN-like code once whitespace is removed
	barcodePattern = regexp.MustCompile(`^\d{8,18}$`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// punctuation trimmed from a word before it is compared with the filler phrases
const wordPunctuation = ",.!?;:-'\"()[]"

// QueryOptimizer strips filler phrases ("en ucuz", "fiyatı", "satın al", ...) from search queries
type QueryOptimizer struct {
	index  *keywordIndex
	logger *zap.Logger
	debug  bool
}

// NewQueryOptimizer creates a query optimizer for the given keyword table
func NewQueryOptimizer(table domain.KeywordTable, logger *zap.Logger, debug bool) *QueryOptimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryOptimizer{
		index:  newKeywordIndex(table),
		logger: logger,
		debug:  debug,
	}
}

var defaultOptimizer = NewQueryOptimizer(DefaultKeywordTable(), nil, false)

// OptimizeQuery cleans a query with the built-in filler phrases
func OptimizeQuery(query string) string {
	return defaultOptimizer.Optimize(query)
}

// Optimize removes filler phrases as whole words and collapses whitespace.
// A bare barcode comes back with its whitespace removed and nothing else touched.
// It never panics: on any internal failure the trimmed input is returned.
func (o *QueryOptimizer) Optimize(query string) (cleaned string) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Warn("query optimization failed", zap.String("query", query), zap.Any("panic", r))
			cleaned = strings.TrimSpace(query)
		}
	}()

	if strings.TrimSpace(query) == "" {
		return ""
	}

	if code, ok := asBarcode(query); ok {
		return code
	}

	words := strings.Fields(query)
	for {
		kept, removed := o.removeFillers(words)
		words = kept
		// removing a word can bring two halves of a phrase together
		if removed == 0 {
			break
		}
	}

	cleaned = whitespacePattern.ReplaceAllString(strings.Join(words, " "), " ")
	cleaned = strings.TrimSpace(cleaned)
	if code, ok := asBarcode(cleaned); ok {
		cleaned = code
	}

	if o.debug {
		o.logger.Debug("query optimized", zap.String("input", query), zap.String("output", cleaned))
	}

	return cleaned
}

// removeFillers drops every filler phrase occurrence and bare punctuation tokens
func (o *QueryOptimizer) removeFillers(words []string) ([]string, int) {
	keys := make([]string, len(words))
	for i, w := range words {
		keys[i] = foldTR(strings.Trim(w, wordPunctuation))
	}

	kept := make([]string, 0, len(words))
	removed := 0
	for i := 0; i < len(words); {
		if keys[i] == "" {
			removed++
			i++
			continue
		}
		if n := matchPhrase(keys[i:], o.index.fillers); n > 0 {
			removed += n
			i += n
			continue
		}
		kept = append(kept, words[i])
		i++
	}
	return kept, removed
}

// matchPhrase returns the word count of the longest phrase that starts at keys[0], or 0
func matchPhrase(keys []string, phrases [][]string) int {
	for _, phrase := range phrases {
		if len(phrase) > len(keys) {
			continue
		}
		match := true
		for j, w := range phrase {
			if keys[j] != w {
				match = false
				break
			}
		}
		if match {
			return len(phrase)
		}
	}
	return 0
}

// asBarcode reports whether s is a barcode and returns it without whitespace
func asBarcode(s string) (string, bool) {
	code := whitespacePattern.ReplaceAllString(s, "")
	if barcodePattern.MatchString(code) {
		return code, true
	}
	return "", false
}

// IsBarcode reports whether s is 8 to 18 digits once whitespace is removed
func IsBarcode(s string) bool {
	_, ok := asBarcode(s)
	return ok
}
