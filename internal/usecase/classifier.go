package usecase

import (
	"strings"

	"github.com/findalleasy/vitrin/internal/domain"
)

// isHardProduct reports whether price is mandatory for the item: it carries a
// barcode, comes from a known retail provider or sits in a product category.
// Unknown providers and categories are not hard products.
func (idx *keywordIndex) isHardProduct(item domain.ResultItem) bool {
	if item == nil {
		return false
	}

	for _, field := range barcodeFields {
		v, ok := lookup(item, field)
		if !ok {
			continue
		}
		if IsBarcode(toString(v)) {
			return true
		}
	}

	if provider := compactKey(stringField(item, providerField)); provider != "" {
		for _, token := range idx.providerTokens {
			if strings.Contains(provider, token) {
				return true
			}
		}
	}

	if category := stringField(item, categoryField); category != "" {
		return idx.isProductCategory(category)
	}

	return false
}

// isProductCategory matches category keywords against whole words of the
// category, so "market" and "moda" do not hit "marketing" or "komodin".
// Two adjacent words also count as one ("e-commerce", "beyaz eşya"), and a
// word may carry a plural or possessive suffix ("kitaplar", "phones").
func (idx *keywordIndex) isProductCategory(category string) bool {
	words := strings.FieldsFunc(foldTR(category), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})

	candidates := make([]string, 0, 2*len(words))
	candidates = append(candidates, words...)
	for i := 0; i+1 < len(words); i++ {
		candidates = append(candidates, words[i]+words[i+1])
	}

	for _, word := range candidates {
		for _, keyword := range idx.productCategories {
			if word == keyword {
				return true
			}
			if len(keyword) >= minSuffixedWord && strings.HasPrefix(word, keyword) &&
				categorySuffixes[word[len(keyword):]] {
				return true
			}
		}
	}
	return false
}

var categorySuffixes = map[string]bool{
	"s": true, "es": true,
	"i": true, "u": true, "si": true, "su": true,
	"lar": true, "ler": true, "lari": true, "leri": true,
}

// inferMode decides between product and service mode. Signals in priority
// order: category hint, barcode query, service words in the query, share of
// hard products in the candidates. Without any signal the search is a service search.
func (idx *keywordIndex) inferMode(query string, candidates []domain.ResultItem, hint string) domain.Mode {
	if h := compactKey(hint); h != "" {
		if containsAny(h, idx.hintProduct) {
			return domain.ModeProduct
		}
		if containsAny(h, idx.hintService) {
			return domain.ModeService
		}
	}

	if IsBarcode(query) {
		return domain.ModeProduct
	}

	if idx.hasServiceWords(query) {
		return domain.ModeService
	}

	total, hard := 0, 0
	for _, item := range candidates {
		if item == nil {
			continue
		}
		total++
		if idx.isHardProduct(item) {
			hard++
		}
	}
	if total > 0 && float64(hard)/float64(total) >= idx.productMajority {
		return domain.ModeProduct
	}

	return domain.ModeService
}

// hasServiceWords matches service phrases against the query words by prefix,
// so suffixed forms like "otelleri" or "sigortası" still count
func (idx *keywordIndex) hasServiceWords(query string) bool {
	words := strings.Fields(foldTR(query))
	for i := range words {
		words[i] = strings.Trim(words[i], wordPunctuation)
	}

	for i := range words {
		for _, phrase := range idx.queryService {
			if len(phrase) > len(words)-i {
				continue
			}
			match := true
			for j, w := range phrase {
				// only the last word of a phrase may carry a suffix, and only
				// when it is long enough not to swallow unrelated words
				if j == len(phrase)-1 && len(w) >= minSuffixedWord {
					match = match && strings.HasPrefix(words[i+j], w)
				} else {
					match = match && words[i+j] == w
				}
			}
			if match {
				return true
			}
		}
	}
	return false
}

// minSuffixedWord keeps "tur" from matching "turuncu" and "dis" from matching "disk"
const minSuffixedWord = 4

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
