package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/findalleasy/vitrin/config"
	httpDelivery "github.com/findalleasy/vitrin/internal/delivery/http"
	"github.com/findalleasy/vitrin/internal/domain"
	"github.com/findalleasy/vitrin/internal/infrastructure/backend"
	"github.com/findalleasy/vitrin/internal/infrastructure/cache"
	"github.com/findalleasy/vitrin/internal/infrastructure/hints"
	"github.com/findalleasy/vitrin/internal/logging"
	"github.com/findalleasy/vitrin/internal/statusbus"
	"github.com/findalleasy/vitrin/internal/usecase"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting FindAllEasy vitrin service",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type),
		zap.Duration("cache_ttl", cfg.Cache.TTL))

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCacheWithCleanup(cfg.Cache.CleanupInterval)
	defer memoryCache.Close()

	backendClient := backend.NewClient(backend.ClientConfig{
		BaseURL:           cfg.Backend.BaseURL,
		APIKey:            cfg.Backend.APIKey,
		Timeout:           cfg.Backend.Timeout,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		Burst:             cfg.Backend.Burst,
		Logger:            logger,
	})

	// Enable debug mode in development environment
	if cfg.Server.Environment == "development" {
		backendClient.SetDebug(true)
		logger.Debug("backend client debug mode enabled")
	}
	if cfg.Backend.APIKey == "" {
		logger.Warn("backend API key not configured", zap.String("base_url", cfg.Backend.BaseURL))
	}

	hintStore, err := hints.Open(cfg.Hints.DBPath)
	if err != nil {
		return fmt.Errorf("open hint store: %w", err)
	}
	defer hintStore.Close()

	bus := statusbus.New()
	defer bus.Close()

	keywords, err := loadKeywords(cfg.Vitrin)
	if err != nil {
		return err
	}

	// Initialize usecase layer
	vitrinService := usecase.NewVitrinService(usecase.VitrinConfig{
		Keywords:           keywords,
		Logger:             logger.Named("vitrin"),
		EnableDebugLogging: cfg.Vitrin.Debug,
	})

	searchService := usecase.NewSearchService(
		memoryCache,
		backendClient,
		hintStore,
		bus,
		vitrinService,
		usecase.SearchServiceConfig{
			CacheTTL: cfg.Cache.TTL,
			Timeout:  cfg.Backend.Timeout,
			Logger:   logger,
		},
	)

	handler := httpDelivery.NewHandler(searchService, bus, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger.Named("http"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Hints.MaxAge > 0 {
		go purgeHints(ctx, hintStore, cfg.Hints.MaxAge, logger)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	// SSE streams end once the bus closes their channels
	bus.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// loadKeywords reads the keyword file; a configured product_majority wins
// over the file's, an unset one (0) leaves it alone
func loadKeywords(cfg config.VitrinConfig) (domain.KeywordTable, error) {
	keywords, err := usecase.LoadKeywordTable(cfg.KeywordsFile)
	if err != nil {
		return domain.KeywordTable{}, err
	}
	if cfg.ProductMajority > 0 {
		keywords.ProductMajority = cfg.ProductMajority
	}
	return keywords, nil
}

// purgeHints drops hints older than maxAge once an hour
func purgeHints(ctx context.Context, store *hints.Store, maxAge time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		n, err := store.PurgeOlderThan(ctx, time.Now().Add(-maxAge))
		if err != nil {
			logger.Warn("hint purge failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("purged stale hints", zap.Int64("count", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
