package usecase

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/findalleasy/vitrin/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// defaultProductMajority is the hard-product share that switches a search to product mode
const defaultProductMajority = 0.5

// DefaultKeywordTable returns a fresh copy of the built-in keyword lists.
// Entries may carry Turkish letters; matching folds them to ASCII.
func DefaultKeywordTable() domain.KeywordTable {
	return domain.KeywordTable{
		FillerPhrases: []string{
			// price
			"en ucuz", "en uygun", "en uygun fiyatlı", "uygun fiyatlı", "ucuz", "ucuzu",
			"fiyat", "fiyatı", "fiyatları", "fiyatlar", "kaç tl", "ne kadar",
			// discount
			"indirim", "indirimli", "kampanya", "kampanyalı", "fırsat", "kupon",
			// buy
			"satın al", "satın", "sipariş", "sipariş ver", "online al",
			// search
			"ara", "arama", "bul", "göster", "listele", "karşılaştır",
		},
		ProviderTokens: []string{
			"trendyol", "hepsiburada", "n11", "amazon", "ciceksepeti", "teknosa",
			"mediamarkt", "vatanbilgisayar", "pttavm", "morhipo", "boyner",
			"akakce", "cimri", "epey", "googleshopping", "shopping",
			"aliexpress", "ebay", "migros", "carrefour", "a101", "getir",
			"barcode",
		},
		ProductCategories: []string{
			"product", "urun", "ecommerce", "eticaret", "retail", "perakende",
			"electronics", "elektronik", "telefon", "phone", "laptop", "bilgisayar",
			"market", "grocery", "gida", "fashion", "moda", "giyim", "ayakkabi",
			"kozmetik", "cosmetic", "beyazesya", "appliance", "oyuncak", "kitap",
		},
		HintProduct: []string{
			"product", "urun", "shopping", "alisveris", "electronics", "elektronik",
			"market", "grocery", "fashion", "giyim", "kozmetik", "barcode", "barkod", "qr",
		},
		HintService: []string{
			"service", "hizmet", "travel", "seyahat", "hotel", "otel", "flight", "ucak",
			"tour", "tatil", "rental", "kiralama", "insurance", "sigorta", "health", "saglik",
			"doctor", "doktor", "clinic", "klinik", "education", "egitim", "course", "kurs",
			"estate", "emlak",
		},
		QueryService: []string{
			// travel
			"otel", "uçak", "bilet", "tatil", "tur", "pansiyon", "rezervasyon", "araç kiralama", "kiralık araç",
			// insurance
			"sigorta", "kasko", "poliçe",
			// medical
			"doktor", "hastane", "klinik", "diş", "muayene", "estetik",
			// education
			"kurs", "eğitim", "okul", "özel ders", "dershane",
			// real estate
			"emlak", "kiralık", "satılık", "daire", "arsa",
		},
		ProductMajority: defaultProductMajority,
	}
}

// LoadKeywordTable reads a YAML (or JSON) keyword file and lays it over the defaults.
// Lists present in the file replace the default list of the same name.
func LoadKeywordTable(path string) (domain.KeywordTable, error) {
	table := DefaultKeywordTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("read keyword file: %w", err)
	}

	var override domain.KeywordTable
	if err := yaml.Unmarshal(data, &override); err != nil {
		return table, fmt.Errorf("parse keyword file %s: %w", path, err)
	}

	return MergeKeywordTable(table, override), nil
}

// MergeKeywordTable returns base with every non-empty list of override applied
func MergeKeywordTable(base, override domain.KeywordTable) domain.KeywordTable {
	pick := func(b, o []string) []string {
		if len(o) > 0 {
			return o
		}
		return b
	}
	base.FillerPhrases = pick(base.FillerPhrases, override.FillerPhrases)
	base.ProviderTokens = pick(base.ProviderTokens, override.ProviderTokens)
	base.ProductCategories = pick(base.ProductCategories, override.ProductCategories)
	base.HintProduct = pick(base.HintProduct, override.HintProduct)
	base.HintService = pick(base.HintService, override.HintService)
	base.QueryService = pick(base.QueryService, override.QueryService)
	if override.ProductMajority > 0 {
		base.ProductMajority = override.ProductMajority
	}
	return base
}

// keywordIndex is a KeywordTable folded and split for matching
type keywordIndex struct {
	fillers           [][]string // longest phrase first
	providerTokens    []string
	productCategories []string
	hintProduct       []string
	hintService       []string
	queryService      [][]string
	productMajority   float64
}

func newKeywordIndex(table domain.KeywordTable) *keywordIndex {
	idx := &keywordIndex{
		fillers:           splitPhrases(table.FillerPhrases),
		providerTokens:    compactAll(table.ProviderTokens),
		productCategories: compactAll(table.ProductCategories),
		hintProduct:       compactAll(table.HintProduct),
		hintService:       compactAll(table.HintService),
		queryService:      splitPhrases(table.QueryService),
		productMajority:   table.ProductMajority,
	}
	if idx.productMajority <= 0 || idx.productMajority > 1 {
		idx.productMajority = defaultProductMajority
	}
	return idx
}

func splitPhrases(phrases []string) [][]string {
	out := make([][]string, 0, len(phrases))
	for _, p := range phrases {
		words := strings.Fields(foldTR(p))
		if len(words) > 0 {
			out = append(out, words)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

func compactAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if c := compactKey(w); c != "" {
			out = append(out, c)
		}
	}
	return out
}

var asciiFolder = strings.NewReplacer(
	"ı", "i", "ğ", "g", "ü", "u", "ş", "s", "ö", "o", "ç", "c",
	"â", "a", "î", "i", "û", "u",
)

// foldTR lower-cases with Turkish rules and folds Turkish letters to ASCII,
// so "FİYATI", "fiyatı" and "fiyati" all become "fiyati".
func foldTR(s string) string {
	// a Caser keeps state, so one per call
	return asciiFolder.Replace(cases.Lower(language.Turkish).String(s))
}

// compactKey folds s and keeps only ASCII letters and digits
func compactKey(s string) string {
	folded := foldTR(s)
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
