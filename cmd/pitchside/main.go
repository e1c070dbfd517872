package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortuna/pitchside/internal/analysis"
	"github.com/fortuna/pitchside/internal/api/rest"
	"github.com/fortuna/pitchside/internal/api/websocket"
	"github.com/fortuna/pitchside/internal/browser"
	"github.com/fortuna/pitchside/internal/cache"
	"github.com/fortuna/pitchside/internal/config"
	"github.com/fortuna/pitchside/internal/ingest/sofascore"
	"github.com/fortuna/pitchside/internal/ingest/whoscored"
	"github.com/fortuna/pitchside/internal/publisher"
	"github.com/fortuna/pitchside/internal/scheduler"
	"github.com/fortuna/pitchside/internal/store"
	"github.com/fortuna/pitchside/internal/store/repository"
)

const (
	serviceName    = "pitchside"
	serviceVersion = rest.Version
)

func main() {
	log.Printf("Starting %s v%s - Football Match Centre Service", serviceName, serviceVersion)

	config.LoadDotEnv()
	cfg := config.Load()

	// Initialize database connection
	db, err := store.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("✓ Connected to database")

	if err := db.RunMigrations(context.Background()); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// Initialize Redis with retry logic
	maxRetries := 30
	retryDelay := 2 * time.Second

	log.Println("Connecting to Redis...")
	redisCache := connectWithRetry("Redis", maxRetries, retryDelay, func() (*cache.RedisCache, error) {
		return cache.NewRedisCache(cfg.RedisURL)
	})
	defer redisCache.Close()
	log.Println("✓ Connected to Redis")

	redisPublisher := publisher.NewRedisStreamPublisher(redisCache.Client())
	log.Println("✓ Redis publisher initialized")

	// Headless browser shared by both scrapers
	b := browser.New(cfg.Browser, log.New(os.Stderr, "[browser] ", log.LstdFlags))
	defer b.Close()

	pages := whoscored.NewClient(b, log.New(os.Stderr, "[whoscored] ", log.LstdFlags))
	sofa := sofascore.New(cfg.SofaScoreBaseURL, b, log.New(os.Stderr, "[sofascore] ", log.LstdFlags))
	summaries := sofascore.NewCachedSummaries(sofa, redisCache, cfg.BlobCacheTTL, log.New(os.Stderr, "[sofascore] ", log.LstdFlags))

	// WebSocket server carries job status updates
	wsServer := websocket.NewServer()
	go func() {
		log.Printf("Starting WebSocket server on port %s", cfg.WSPort)
		if err := wsServer.Start(cfg.WSPort); err != nil {
			log.Printf("WebSocket server error: %v", err)
		}
	}()

	// Analysis service
	analyses := repository.NewAnalysisRepository(db)
	analyzer := analysis.NewAnalyzer(pages, redisCache, cfg.BlobCacheTTL, log.New(os.Stderr, "[analysis] ", log.LstdFlags))
	analysisService := analysis.NewService(analyses, analyzer, redisPublisher, wsServer.Hub(), log.New(os.Stderr, "[jobs] ", log.LstdFlags))
	analysisService.SetHistoryLimit(cfg.AnalysisKeep)
	analysisService.Start()

	log.Println("✓ Analysis service started")

	// Scheduler
	matches := repository.NewMatchRepository(db)
	sched := scheduler.NewOrchestrator(sofa, matches, redisPublisher, &scheduler.Config{
		RefreshHour:   cfg.RegistryRefreshHour,
		TrackedTeamID: cfg.TrackedTeamID,
		RegistryPath:  cfg.RegistryPath,
		Retention:     cfg.RegistryRetention,
		EnableRefresh: cfg.EnableRegistryRefresh,
		MaxRetries:    3,
		RetryDelay:    5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sched.Start(ctx)

	log.Println("✓ Scheduler started")

	// REST API
	restServer := rest.NewServer(cfg.RESTPort, rest.Dependencies{
		Health:    db,
		Analyses:  analysisService,
		Artefacts: analyses,
		Matches:   matches,
		Summaries: summaries,
	}, rest.Options{
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})
	go func() {
		log.Printf("Starting REST API server on port %s", cfg.RESTPort)
		if err := restServer.Start(); err != nil {
			log.Printf("REST server error: %v", err)
		}
	}()

	log.Printf("✓ Pitchside v%s started successfully", serviceVersion)
	log.Printf("  REST API: http://0.0.0.0:%s", cfg.RESTPort)
	log.Printf("  WebSocket: ws://0.0.0.0:%s/ws/analyses", cfg.WSPort)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down Pitchside gracefully...")

	cancel()
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("REST API server shutdown error: %v", err)
	}
	if err := analysisService.Shutdown(shutdownCtx); err != nil {
		log.Printf("Analysis service shutdown error: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("WebSocket server shutdown error: %v", err)
	}

	log.Println("Pitchside stopped")
}

func connectWithRetry[T any](name string, attempts int, delay time.Duration, connect func() (T, error)) T {
	var (
		v   T
		err error
	)
	for i := 0; i < attempts; i++ {
		v, err = connect()
		if err == nil {
			return v
		}
		if i < attempts-1 {
			log.Printf("%s connection attempt %d/%d failed: %v (retrying in %v)", name, i+1, attempts, err, delay)
			time.Sleep(delay)
		}
	}
	log.Fatalf("Failed to connect to %s after %d attempts: %v", name, attempts, err)
	return v
}
