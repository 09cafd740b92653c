package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"leafwise-server/internal/config"
	"leafwise-server/internal/domain/analysis"
	"leafwise-server/internal/domain/careplan"
	"leafwise-server/internal/domain/catalog"
	"leafwise-server/internal/domain/identify"
	"leafwise-server/internal/domain/usage"
	"leafwise-server/internal/infrastructure/billing"
	"leafwise-server/internal/infrastructure/cache"
	"leafwise-server/internal/infrastructure/logger"
	"leafwise-server/internal/infrastructure/plantcatalog/perenual"
	"leafwise-server/internal/infrastructure/plantcatalog/trefle"
	"leafwise-server/internal/infrastructure/store"
	"leafwise-server/internal/infrastructure/throttle"
	"leafwise-server/internal/infrastructure/vision"
	"leafwise-server/internal/interfaces/httpserver"
)

type Application struct {
	httpServer *httpserver.HttpServer
	log        zerolog.Logger
}

func NewApplication(httpServer *httpserver.HttpServer, log zerolog.Logger) *Application {
	return &Application{
		httpServer: httpServer,
		log:        log,
	}
}

func (a *Application) Start(ctx context.Context) error {
	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheStore := newCacheStore(cfg, log)

	// One throttled client per provider quota bucket. The vision bucket
	// covers every model call; the catalog bucket covers both REST
	// providers, which share the daily budget.
	visionThrottle := throttle.New("vision", throttle.Config{
		DailyQuota:  cfg.VisionDailyQuota,
		MinInterval: cfg.VisionMinInterval,
	}, log)
	catalogThrottle := throttle.New("catalog", throttle.Config{
		DailyQuota:  cfg.CatalogDailyQuota,
		MinInterval: cfg.CatalogMinInterval,
	}, log)

	visionClient := vision.New(cfg.VisionAPIKey, cfg.VisionBaseURL, cfg.VisionModel, visionThrottle, log)

	perenualClient := perenual.New(cfg.PerenualBaseURL, cfg.PerenualAPIKey, cfg.CatalogCallTimeout, catalogThrottle, log)
	trefleClient := trefle.New(cfg.TrefleBaseURL, cfg.TrefleAPIKey, cfg.CatalogCallTimeout, catalogThrottle, log)
	enricher := catalog.NewEnricher(cacheStore, cfg.CatalogCacheTTL, log, perenualClient, trefleClient)

	billingClient := billing.New(cfg.BillingURL, cfg.BillingServiceKey, cfg.BillingTimeout, log)
	ledger := usage.NewLedger(store.NewUsageStore(), billingClient, cfg.FreeTierAllowance, cfg.FreeTierWindowDays, log)

	identifyService := identify.NewService(visionClient, visionClient, cfg.ConfidenceThreshold, log)
	synthesizer := careplan.NewSynthesizer(visionClient, log)

	analysisService := analysis.NewService(
		identifyService,
		enricher,
		visionClient,
		synthesizer,
		ledger,
		store.NewResultStore(),
		log,
	)

	httpServer := httpserver.New(cfg, log, analysisService)
	app := NewApplication(httpServer, log)

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// newCacheStore selects the response cache backend. Redis keeps catalog
// lookups warm across restarts; without it the cache is per-process.
func newCacheStore(cfg *config.Config, log zerolog.Logger) cache.Store {
	if cfg.CacheRedisURL == "" {
		return cache.NewMemoryStore()
	}
	redisStore, err := cache.NewRedisStore(cfg.CacheRedisURL, "catalog:", log)
	if err != nil {
		log.Warn().Err(err).Msg("redis cache unavailable, falling back to in-memory cache")
		return cache.NewMemoryStore()
	}
	return redisStore
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
