package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/findalleasy/vitrin/internal/domain"
	"github.com/findalleasy/vitrin/internal/statusbus"
	"github.com/findalleasy/vitrin/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sessionHeader carries the browser session when the body does not
const sessionHeader = "X-Session-ID"

// statusClientClosedRequest is nginx's code for a client that hung up first
const statusClientClosedRequest = 499

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search *usecase.SearchService
	bus    *statusbus.Bus
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler. search and bus may be nil; the
// endpoints that need them then answer 503.
func NewHandler(search *usecase.SearchService, bus *statusbus.Bus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		search: search,
		bus:    bus,
		logger: logger.Named("http"),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "findalleasy-vitrin",
		"version": "1.0.0",
	})
}

// Search handles vitrin search requests
func (h *Handler) Search(c *gin.Context) {
	if !h.requireSearch(c) {
		return
	}

	var request domain.SearchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: query is required"})
		return
	}
	if request.SessionID == "" {
		request.SessionID = c.GetHeader(sessionHeader)
	}

	response, err := h.search.Search(c.Request.Context(), &request)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// rankRequest is the body of POST /vitrin/rank
type rankRequest struct {
	Query   string              `json:"query"`
	Results []domain.ResultItem `json:"results"`
	Hint    string              `json:"hint,omitempty"`
}

// Rank filters and orders caller supplied results without calling the backend
func (h *Handler) Rank(c *gin.Context) {
	if !h.requireSearch(c) {
		return
	}

	var request rankRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: expected {query, results}"})
		return
	}

	output := h.search.Rank(domain.ProcessInput{Query: request.Query, Results: request.Results}, request.Hint)
	if output.Results == nil {
		output.Results = []domain.ResultItem{}
	}
	c.JSON(http.StatusOK, output)
}

// OptimizeQuery strips filler phrases from a query
func (h *Handler) OptimizeQuery(c *gin.Context) {
	if !h.requireSearch(c) {
		return
	}

	var request struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	optimized := h.search.OptimizeQuery(request.Query)
	c.JSON(http.StatusOK, gin.H{
		"query":     request.Query,
		"optimized": optimized,
		"barcode":   usecase.IsBarcode(optimized),
	})
}

// LookupBarcode resolves a scanned barcode or QR payload
func (h *Handler) LookupBarcode(c *gin.Context) {
	if !h.requireSearch(c) {
		return
	}

	sessionID := c.Query("sessionId")
	if sessionID == "" {
		sessionID = c.GetHeader(sessionHeader)
	}

	info, err := h.search.LookupBarcode(c.Request.Context(), sessionID, c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// Status returns the status currently shown to the user and every active one
func (h *Handler) Status(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Status bus not configured"})
		return
	}

	response := gin.H{"statuses": h.bus.Snapshot()}
	if current, ok := h.bus.Current(); ok {
		response["current"] = current
	} else {
		response["current"] = nil
	}
	c.JSON(http.StatusOK, response)
}

// StatusStream pushes status updates as server-sent events until the client goes away
func (h *Handler) StatusStream(c *gin.Context) {
	if h.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Status bus not configured"})
		return
	}

	id, updates := h.bus.Subscribe()
	defer h.bus.Unsubscribe(id)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	if current, ok := h.bus.Current(); ok {
		c.SSEvent("status", current)
		c.Writer.Flush()
	}

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case status, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("status", status)
			return true
		}
	})
}

// GetHint returns the stored category hint of a session
func (h *Handler) GetHint(c *gin.Context) {
	if !h.requireSearch(c) {
		return
	}

	sessionID := c.Param("session")
	hint, err := h.search.Hint(c.Request.Context(), sessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "category": hint})
}

// PutHint stores the category hint of a session. An empty category clears it.
func (h *Handler) PutHint(c *gin.Context) {
	if !h.requireSearch(c) {
		return
	}

	var request struct {
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sessionID := c.Param("session")
	category := strings.TrimSpace(request.Category)
	if err := h.search.SetHint(c.Request.Context(), sessionID, category); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "category": category})
}

func (h *Handler) requireSearch(c *gin.Context) bool {
	if h.search == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Vitrin service not configured"})
		return false
	}
	return true
}

// respondError maps domain errors to HTTP responses
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
	case errors.Is(err, domain.ErrHintNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "No hint stored for session"})
	case errors.Is(err, domain.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": "Superseded by a newer search"})
	case errors.Is(err, context.Canceled):
		// the client went away; nobody reads the answer
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Backend rate limit exceeded, try again later"})
	case errors.Is(err, domain.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Backend did not answer in time"})
	case errors.Is(err, domain.ErrBackendFailure):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Search backend temporarily unavailable"})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
