package domain

import "time"

// SearchRequest represents a vitrin search request
type SearchRequest struct {
	Query     string `json:"query" binding:"required"`
	Category  string `json:"category,omitempty"`
	Region    string `json:"region,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// SearchResponse is the ranked vitrin for a search
type SearchResponse struct {
	Query    string       `json:"query"`
	Mode     Mode         `json:"mode,omitempty"`
	Results  []ResultItem `json:"results"`
	Total    int          `json:"total"`
	Source   string       `json:"source"` // "backend" or "cache"
	CachedAt time.Time    `json:"cachedAt,omitempty"`
}

// BackendSearchRequest is the body sent to POST /api/search
type BackendSearchRequest struct {
	Query    string `json:"query"`
	Region   string `json:"region,omitempty"`
	Category string `json:"category,omitempty"`
}

// LookupMode controls whether the backend may use paid providers for a barcode lookup
type LookupMode string

const (
	LookupFreeOnly    LookupMode = "free_only"
	LookupPaidAllowed LookupMode = "paid_allowed"
)

// ProductInfo is the backend answer for a barcode / QR lookup
type ProductInfo struct {
	Code     string     `json:"code"`
	Name     string     `json:"name"`
	Brand    string     `json:"brand,omitempty"`
	Category string     `json:"category,omitempty"`
	Image    string     `json:"image,omitempty"`
	Source   string     `json:"source,omitempty"`
	Mode     LookupMode `json:"mode"`
}
