package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/findalleasy/vitrin/config"
	"github.com/findalleasy/vitrin/internal/domain"
	"github.com/findalleasy/vitrin/internal/infrastructure/cache"
	"github.com/findalleasy/vitrin/internal/statusbus"
	"github.com/findalleasy/vitrin/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	// Run tests
	exitCode := m.Run()

	// Exit with the test result code
	os.Exit(exitCode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"https://*.findalleasy.com", "http://localhost:5173"},
		},
		Cache: config.CacheConfig{
			Type: "memory",
		},
	}
}

// setupTestRouter creates a test router without a vitrin service
func setupTestRouter() *gin.Engine {
	handler := NewHandler(nil, nil, nil)
	if handler == nil {
		panic("setupTestRouter: NewHandler returned nil")
	}

	router := SetupRouter(testConfig(), handler, nil)
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}

	return router
}

// --- Mock implementations for testing with SearchService ---

// mockBackend is a mock implementation of domain.SearchBackend
type mockBackend struct {
	mu           sync.Mutex
	results      []domain.ResultItem
	searchError  error
	product      *domain.ProductInfo
	productError error
	lastRequest  *domain.BackendSearchRequest
	release      chan struct{} // when set, Search waits for it
}

func (m *mockBackend) Search(ctx context.Context, request *domain.BackendSearchRequest) ([]domain.ResultItem, error) {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRequest = request
	if m.searchError != nil {
		return nil, m.searchError
	}
	return m.results, nil
}

func (m *mockBackend) ProductInfo(ctx context.Context, code string, mode domain.LookupMode) (*domain.ProductInfo, error) {
	if m.productError != nil {
		return nil, m.productError
	}
	if m.product == nil {
		return nil, domain.ErrProductNotFound
	}
	info := *m.product
	info.Code = code
	info.Mode = mode
	return &info, nil
}

// mockHintStore is a mock implementation of domain.HintStore
type mockHintStore struct {
	mu    sync.Mutex
	hints map[string]string
}

func newMockHintStore() *mockHintStore {
	return &mockHintStore{hints: make(map[string]string)}
}

func (m *mockHintStore) Get(ctx context.Context, sessionID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hint, ok := m.hints[sessionID]; ok {
		return hint, nil
	}
	return "", domain.ErrHintNotFound
}

func (m *mockHintStore) Set(ctx context.Context, sessionID, category string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if category == "" {
		delete(m.hints, sessionID)
		return nil
	}
	m.hints[sessionID] = category
	return nil
}

func (m *mockHintStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hints, sessionID)
	return nil
}

type testServer struct {
	router  *gin.Engine
	backend *mockBackend
	hints   *mockHintStore
	bus     *statusbus.Bus
}

// setupTestRouterWithService creates a test router with a real SearchService using mocks
func setupTestRouterWithService(t *testing.T) *testServer {
	t.Helper()

	memCache := cache.NewMemoryCache()
	bus := statusbus.New()
	t.Cleanup(bus.Close)

	ts := &testServer{
		backend: &mockBackend{},
		hints:   newMockHintStore(),
		bus:     bus,
	}

	searchService := usecase.NewSearchService(
		memCache,
		ts.backend,
		ts.hints,
		bus,
		usecase.NewVitrinService(usecase.VitrinConfig{}),
		usecase.SearchServiceConfig{
			CacheTTL: time.Minute,
			Timeout:  time.Second,
		},
	)

	ts.router = SetupRouter(testConfig(), NewHandler(searchService, bus, nil), nil)
	return ts
}

func doJSON(router *gin.Engine, method, path, payload string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body %s)", err, w.Body.String())
	}
	return response
}

func resultTitles(t *testing.T, response map[string]interface{}) []string {
	t.Helper()
	results, ok := response["results"].([]interface{})
	if !ok {
		t.Fatalf("results = %v, want array", response["results"])
	}
	titles := make([]string, 0, len(results))
	for _, r := range results {
		item, _ := r.(map[string]interface{})
		title, _ := item["title"].(string)
		titles = append(titles, title)
	}
	return titles
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		w := doJSON(router, "GET", "/health", "")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decodeBody(t, w)
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "findalleasy-vitrin" {
			t.Errorf("service = %v, want findalleasy-vitrin", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doJSON(router, method, "/health", "")
			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})

	t.Run("sets a request id", func(t *testing.T) {
		router := setupTestRouter()

		w := doJSON(router, "GET", "/health", "")
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("X-Request-ID header not set")
		}
	})
}

// TestUnconfiguredService tests that vitrin endpoints answer 503 without a service
func TestUnconfiguredService(t *testing.T) {
	router := setupTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/vitrin/search"},
		{"POST", "/api/v1/vitrin/rank"},
		{"POST", "/api/v1/vitrin/optimize-query"},
		{"GET", "/api/v1/products/barcode/8690504000011"},
		{"GET", "/api/v1/status"},
		{"GET", "/api/v1/hints/s1"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			w := doJSON(router, endpoint.method, endpoint.path, `{"query":"iphone"}`)

			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
			}

			errorMsg, _ := decodeBody(t, w)["error"].(string)
			if !strings.Contains(errorMsg, "not configured") {
				t.Errorf("error = %q, want to contain 'not configured'", errorMsg)
			}
		})
	}
}

// TestSearchEndpoint tests the vitrin search endpoint with a real service
func TestSearchEndpoint(t *testing.T) {
	t.Run("returns ranked results for valid request", func(t *testing.T) {
		ts := setupTestRouterWithService(t)
		ts.backend.results = []domain.ResultItem{
			{"title": "A", "provider": "trendyol", "price": 100},
			{"title": "B", "provider": "hepsiburada", "price": "49,90 TL"},
			{"title": "C", "provider": "n11"},
		}

		w := doJSON(ts.router, "POST", "/api/v1/vitrin/search", `{"query":"en ucuz iphone fiyatı","region":"TR"}`)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d (body %s)", w.Code, http.StatusOK, w.Body.String())
		}

		response := decodeBody(t, w)
		if response["query"] != "iphone" {
			t.Errorf("query = %v, want iphone", response["query"])
		}
		if response["mode"] != "product" {
			t.Errorf("mode = %v, want product", response["mode"])
		}
		if got := resultTitles(t, response); strings.Join(got, ",") != "B,A" {
			t.Errorf("results = %v, want [B A]", got)
		}
		if ts.backend.lastRequest.Query != "iphone" {
			t.Errorf("backend query = %q, want iphone", ts.backend.lastRequest.Query)
		}
	})

	t.Run("second identical search is served from cache", func(t *testing.T) {
		ts := setupTestRouterWithService(t)
		ts.backend.results = []domain.ResultItem{{"title": "A", "price": 1}}

		doJSON(ts.router, "POST", "/api/v1/vitrin/search", `{"query":"kahve"}`)
		w := doJSON(ts.router, "POST", "/api/v1/vitrin/search", `{"query":"kahve"}`)

		if response := decodeBody(t, w); response["source"] != "cache" {
			t.Errorf("source = %v, want cache", response["source"])
		}
	})

	t.Run("returns 400 for missing query", func(t *testing.T) {
		ts := setupTestRouterWithService(t)

		w := doJSON(ts.router, "POST", "/api/v1/vitrin/search", `{"region":"TR"}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if decodeBody(t, w)["error"] == nil {
			t.Error("expected error field in response")
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		ts := setupTestRouterWithService(t)

		w := doJSON(ts.router, "POST", "/api/v1/vitrin/search", `{invalid json}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 502 for backend failure", func(t *testing.T) {
		ts := setupTestRouterWithService(t)
		ts.backend.searchError = domain.ErrBackendFailure

		w := doJSON(ts.router, "POST", "/api/v1/vitrin/search", `{"query":"kahve"}`)

		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
		if response := decodeBody(t, w); response["error"] != "Search backend temporarily unavailable" {
			t.Errorf("error = %v, want 'Search backend temporarily unavailable'", response["error"])
		}

		current, ok := ts.bus.Current()
		if !ok || current.Level != domain.StatusError {
			t.Errorf("current status = %+v, want an error status", current)
		}
	})

	t.Run("returns 504 for backend timeout", func(t *testing.T) {
		ts := setupTestRouterWithService(t)
		ts.backend.searchError = domain.ErrTimeout

		w := doJSON(ts.router, "POST", "/api/v1/vitrin/search", `{"query":"kahve"}`)

		if w.Code != http.StatusGatewayTimeout {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusGatewayTimeout)
		}
	})

	t.Run("session header and category set the hint", func(t *testing.T) {
		ts := setupTestRouterWithService(t)
		ts.backend.results = []domain.ResultItem{{"title": "A", "price": 1}}

		req, _ := http.NewRequest("POST", "/api/v1/vitrin/search", strings.NewReader(`{"query":"kahve","category":"market"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Session-ID", "browser-1")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if ts.hints.hints["browser-1"] != "market" {
			t.Errorf("hint = %q, want market", ts.hints.hints["browser-1"])
		}
	})
}

// TestRankEndpoint tests ranking caller supplied results
func TestRankEndpoint(t *testing.T) {
	t.Run("ranks service results by trust then price", func(t *testing.T) {
		ts := setupTestRouterWithService(t)

		payload := `{
			"query": "antalya otel",
			"results": [
				{"title": "pahalı", "price": 2000, "trustScore": 90},
				null,
				{"title": "fiyatsız", "trustScore": 0.95},
				{"title": "ucuz", "price": "1.500,00 TL", "trustScore": 40}
			]
		}`
		w := doJSON(ts.router, "POST", "/api/v1/vitrin/rank", payload)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		response := decodeBody(t, w)
		if response["mode"] != "service" {
			t.Errorf("mode = %v, want service", response["mode"])
		}
		if response["query"] != "antalya otel" {
			t.Errorf("query = %v, want antalya otel", response["query"])
		}
		if got := resultTitles(t, response); strings.Join(got, ",") != "fiyatsız,pahalı,ucuz" {
			t.Errorf("results = %v, want [fiyatsız pahalı ucuz]", got)
		}
	})

	t.Run("product hint without prices gives empty list", func(t *testing.T) {
		ts := setupTestRouterWithService(t)

		w := doJSON(ts.router, "POST", "/api/v1/vitrin/rank", `{"query":"x","hint":"electronics","results":[{"title":"a"}]}`)

		response := decodeBody(t, w)
		if response["mode"] != "product" {
			t.Errorf("mode = %v, want product", response["mode"])
		}
		if got := resultTitles(t, response); len(got) != 0 {
			t.Errorf("results = %v, want empty", got)
		}
	})
}

// TestOptimizeQueryEndpoint tests the query normalizer endpoint
func TestOptimizeQueryEndpoint(t *testing.T) {
	ts := setupTestRouterWithService(t)

	tests := []struct {
		payload   string
		optimized string
		barcode   bool
	}{
		{`{"query":"en ucuz iphone fiyatı"}`, "iphone", false},
		{`{"query":"8690 5040 0001 1"}`, "8690504000011", true},
		{`{"query":""}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			w := doJSON(ts.router, "POST", "/api/v1/vitrin/optimize-query", tt.payload)

			response := decodeBody(t, w)
			if response["optimized"] != tt.optimized {
				t.Errorf("optimized = %v, want %q", response["optimized"], tt.optimized)
			}
			if response["barcode"] != tt.barcode {
				t.Errorf("barcode = %v, want %v", response["barcode"], tt.barcode)
			}
		})
	}
}

// TestBarcodeEndpoint tests barcode lookups
func TestBarcodeEndpoint(t *testing.T) {
	t.Run("returns product info", func(t *testing.T) {
		ts := setupTestRouterWithService(t)
		ts.backend.product = &domain.ProductInfo{Name: "Maden Suyu", Brand: "Beypazarı"}

		w := doJSON(ts.router, "GET", "/api/v1/products/barcode/8690504000011?sessionId=s1", "")

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		response := decodeBody(t, w)
		if response["name"] != "Maden Suyu" {
			t.Errorf("name = %v, want Maden Suyu", response["name"])
		}
		if response["code"] != "8690504000011" {
			t.Errorf("code = %v, want 8690504000011", response["code"])
		}
		if ts.hints.hints["s1"] != "barcode" {
			t.Errorf("hint = %q, want barcode", ts.hints.hints["s1"])
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		ts := setupTestRouterWithService(t)

		w := doJSON(ts.router, "GET", "/api/v1/products/barcode/8690504000011", "")

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("returns 429 when backend is rate limited", func(t *testing.T) {
		ts := setupTestRouterWithService(t)
		ts.backend.productError = domain.ErrRateLimited

		w := doJSON(ts.router, "GET", "/api/v1/products/barcode/8690504000011", "")

		if w.Code != http.StatusTooManyRequests {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusTooManyRequests)
		}
	})
}

// TestHintEndpoints tests storing and reading session hints
func TestHintEndpoints(t *testing.T) {
	ts := setupTestRouterWithService(t)

	w := doJSON(ts.router, "GET", "/api/v1/hints/s1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET before PUT: Status = %d, want %d", w.Code, http.StatusNotFound)
	}

	w = doJSON(ts.router, "PUT", "/api/v1/hints/s1", `{"category":" hotel "}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT: Status = %d, want %d", w.Code, http.StatusOK)
	}

	w = doJSON(ts.router, "GET", "/api/v1/hints/s1", "")
	if response := decodeBody(t, w); response["category"] != "hotel" {
		t.Errorf("category = %v, want hotel", response["category"])
	}

	w = doJSON(ts.router, "PUT", "/api/v1/hints/s1", `{"category":""}`)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT empty: Status = %d, want %d", w.Code, http.StatusOK)
	}
	w = doJSON(ts.router, "GET", "/api/v1/hints/s1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("GET after clear: Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestStatusEndpoint tests the current status snapshot
func TestStatusEndpoint(t *testing.T) {
	ts := setupTestRouterWithService(t)

	w := doJSON(ts.router, "GET", "/api/v1/status", "")
	if response := decodeBody(t, w); response["current"] != nil {
		t.Errorf("current = %v, want null", response["current"])
	}

	ts.bus.Publish(domain.Status{Source: domain.SourceSearch, Message: "aranıyor", Level: domain.StatusLoading, Priority: 1})
	ts.bus.Publish(domain.Status{Source: domain.SourceBarcode, Message: "barkod", Level: domain.StatusLoading, Priority: 2})

	w = doJSON(ts.router, "GET", "/api/v1/status", "")
	response := decodeBody(t, w)

	current, ok := response["current"].(map[string]interface{})
	if !ok {
		t.Fatalf("current = %v, want object", response["current"])
	}
	if current["source"] != domain.SourceBarcode {
		t.Errorf("current source = %v, want barcode", current["source"])
	}
	if statuses, _ := response["statuses"].([]interface{}); len(statuses) != 2 {
		t.Errorf("statuses = %v, want 2 entries", response["statuses"])
	}
}

// closeNotifyRecorder lets gin's Stream run against an httptest recorder
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool {
	return r.closed
}

// TestStatusStreamEndpoint tests server-sent status events
func TestStatusStreamEndpoint(t *testing.T) {
	ts := setupTestRouterWithService(t)
	ts.bus.Publish(domain.Status{Source: domain.SourceSearch, Message: "ilk", Level: domain.StatusLoading})

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, "GET", "/api/v1/status/stream", nil)
	w := &closeNotifyRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.router.ServeHTTP(w, req)
	}()

	// wait for the subscription before publishing
	deadline := time.Now().Add(time.Second)
	for ts.bus.Stats().Subscribers == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	ts.bus.Publish(domain.Status{Source: domain.SourceSearch, Message: "ikinci", Level: domain.StatusSuccess})
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not stop after the client went away")
	}

	body := w.Body.String()
	if !strings.Contains(body, "event:status") {
		t.Errorf("body = %q, want status events", body)
	}
	if !strings.Contains(body, "ilk") || !strings.Contains(body, "ikinci") {
		t.Errorf("body = %q, want both statuses", body)
	}
	if ts.bus.Stats().Subscribers != 0 {
		t.Errorf("subscribers = %d, want 0 after disconnect", ts.bus.Stats().Subscribers)
	}
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for web client subdomains", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://www.findalleasy.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "https://www.findalleasy.com" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "https://www.findalleasy.com")
		}

		gotCreds := w.Header().Get("Access-Control-Allow-Credentials")
		if gotCreds != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", gotCreds, "true")
		}
	})

	t.Run("search endpoint has CORS for localhost", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/v1/vitrin/search", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "http://localhost:5173" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "http://localhost:5173")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter()

		// Add a test route that panics
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		// This should not crash the test - recovery middleware should handle it
		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := setupTestRouter()

		for _, path := range []string{"/api/vitrin/search", "/vitrin/search", "/api/v1/vitrin"} {
			w := doJSON(router, "POST", path, "")
			if w.Code != http.StatusNotFound {
				t.Errorf("Path %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestRateLimitIntegration tests the per-IP limit on the API group
func TestRateLimitIntegration(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.PerIP = 2
	router := SetupRouter(cfg, NewHandler(nil, nil, nil), nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := doJSON(router, "POST", "/api/v1/vitrin/optimize-query", `{"query":"x"}`)
		codes = append(codes, w.Code)
	}

	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want the third request limited", codes)
	}

	// health is outside the limited group
	if w := doJSON(router, "GET", "/health", ""); w.Code != http.StatusOK {
		t.Errorf("health Status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestSearchEndpoint_ClientGone tests that a disconnected client is not logged as a failure
func TestSearchEndpoint_ClientGone(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	backend := &mockBackend{
		results: []domain.ResultItem{{"title": "A", "price": 1}},
		release: make(chan struct{}),
	}
	defer close(backend.release)
	searchService := usecase.NewSearchService(cache.NewMemoryCache(), backend, newMockHintStore(), nil, nil,
		usecase.SearchServiceConfig{Timeout: time.Second})
	router := SetupRouter(testConfig(), NewHandler(searchService, nil, zap.New(core)), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, _ := http.NewRequestWithContext(ctx, "POST", "/api/v1/vitrin/search", strings.NewReader(`{"query":"kahve"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != statusClientClosedRequest {
		t.Errorf("Status = %d, want %d", w.Code, statusClientClosedRequest)
	}
	if n := logs.FilterMessage("request failed").Len(); n != 0 {
		t.Errorf("logged %d request failures, want 0", n)
	}
}
