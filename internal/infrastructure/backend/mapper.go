package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/findalleasy/vitrin/internal/domain"
)

// resultKeys are the envelope fields that may carry the result array, in order
var resultKeys = []string{"results", "items", "data", "products"}

// MapSearchResults decodes a search response. The backend answers either with
// a bare array or with an object holding the array under one of resultKeys
// (one level of nesting is followed, e.g. {"data":{"results":[...]}}).
// Entries that are not JSON objects are dropped. Numbers stay json.Number so
// long GTINs keep every digit.
func MapSearchResults(body []byte) ([]domain.ResultItem, error) {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	list, ok := findResultList(raw, 2)
	if !ok {
		return nil, errors.New("no result list in response")
	}

	items := make([]domain.ResultItem, 0, len(list))
	for _, entry := range list {
		if obj, ok := entry.(map[string]any); ok && obj != nil {
			items = append(items, domain.ResultItem(obj))
		}
	}
	return items, nil
}

func findResultList(v any, depth int) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case map[string]any:
		if depth == 0 {
			return nil, false
		}
		for _, key := range resultKeys {
			if inner, ok := x[key]; ok {
				if list, ok := findResultList(inner, depth-1); ok {
					return list, true
				}
			}
		}
	}
	return nil, false
}

// MapProductInfo decodes a product-info response. It returns nil without an
// error when the backend answered but knows no product.
func MapProductInfo(body []byte) (*domain.ProductInfo, error) {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	product := raw
	if inner, ok := raw["product"].(map[string]any); ok {
		product = inner
	} else if _, ok := raw["product"]; ok {
		// explicit "product": null
		return nil, nil
	}

	name := firstString(product, "name", "title", "productName")
	if name == "" {
		return nil, nil
	}

	return &domain.ProductInfo{
		Code:     firstString(product, "code", "barcode", "gtin", "qr"),
		Name:     name,
		Brand:    firstString(product, "brand"),
		Category: firstString(product, "category"),
		Image:    firstString(product, "image", "imageUrl", "thumbnail"),
		Source:   firstString(product, "source", "provider"),
	}, nil
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := obj[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}
