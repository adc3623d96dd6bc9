package usecase

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/findalleasy/vitrin/internal/domain"
)

// Field priority lists. A dotted name walks into a nested object.
var (
	priceFields   = []string{"price", "finalPrice", "optimizedPrice", "amount", "bestOffer.price"}
	trustFields   = []string{"trustScore", "trustedScore", "providerScore", "score", "confidence"}
	barcodeFields = []string{"qrCode", "barcode", "gtin"}
	providerField = []string{"provider", "providerFamily", "providerKey", "source"}
	categoryField = []string{"category", "type", "vertical"}
)

// ExtractPrice returns the first positive finite price found on the item.
// Zero, negative and unparsable prices count as absent.
func ExtractPrice(item domain.ResultItem) (float64, bool) {
	for _, field := range priceFields {
		v, ok := lookup(item, field)
		if !ok {
			continue
		}
		n, ok := toNumber(v)
		if ok && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// ExtractTrust returns the item's trust on a 0-100 scale. Fractions in (0, 1]
// are rescaled and rounded, anything else is floored at 0. No signal means 0.
func ExtractTrust(item domain.ResultItem) float64 {
	for _, field := range trustFields {
		v, ok := lookup(item, field)
		if !ok {
			continue
		}
		n, ok := toNumber(v)
		if !ok {
			continue
		}
		if n > 0 && n <= 1 {
			return math.Round(n * 100)
		}
		return math.Max(0, n)
	}
	return 0
}

// lookup resolves a possibly dotted field name on an item
func lookup(item domain.ResultItem, field string) (any, bool) {
	var current any = map[string]any(item)
	for _, part := range strings.Split(field, ".") {
		obj, ok := asObject(current)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

func asObject(v any) (map[string]any, bool) {
	switch o := v.(type) {
	case map[string]any:
		return o, o != nil
	case domain.ResultItem:
		return o, o != nil
	}
	return nil, false
}

// stringField returns the first non-empty string form of the given fields
func stringField(item domain.ResultItem, fields []string) string {
	for _, field := range fields {
		v, ok := lookup(item, field)
		if !ok {
			continue
		}
		if s := toString(v); s != "" {
			return s
		}
	}
	return ""
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

// toNumber coerces JSON numbers and locale formatted strings to a finite float
func toNumber(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int32:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint64:
		n = float64(x)
	case json.Number:
		// JSON numbers may use exponents, which the locale cleaner would strip
		f, err := strconv.ParseFloat(x.String(), 64)
		switch {
		case errors.Is(err, strconv.ErrRange):
			return 0, false
		case err != nil:
			return parseNumber(x.String())
		}
		n = f
	case string:
		return parseNumber(x)
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// parseNumber reads "1.234,56", "1,234.56", "₺ 99,90" and the like. Every
// separator but the last is dropped and the last one is the decimal mark.
func parseNumber(s string) (float64, bool) {
	var b strings.Builder
	negative := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		}
	}

	cleaned := b.String()
	if last := strings.LastIndexAny(cleaned, ".,"); last >= 0 {
		whole := strings.NewReplacer(".", "", ",", "").Replace(cleaned[:last])
		cleaned = whole + "." + cleaned[last+1:]
	}
	if cleaned == "" || cleaned == "." {
		return 0, false
	}

	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	if negative {
		n = -n
	}
	return n, true
}
