package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tlsandbox/cohere-globalmart/internal/catalog"
	"github.com/tlsandbox/cohere-globalmart/internal/config"
	dbRedis "github.com/tlsandbox/cohere-globalmart/internal/db/redis"
	logpkg "github.com/tlsandbox/cohere-globalmart/internal/logger"
	"github.com/tlsandbox/cohere-globalmart/internal/metrics"
	"github.com/tlsandbox/cohere-globalmart/internal/repository/densecache"
	"github.com/tlsandbox/cohere-globalmart/internal/repository/embcache"
	profilerepo "github.com/tlsandbox/cohere-globalmart/internal/repository/profile"
	sessionrepo "github.com/tlsandbox/cohere-globalmart/internal/repository/session"
	chiTransport "github.com/tlsandbox/cohere-globalmart/internal/transport/chi"
	"github.com/tlsandbox/cohere-globalmart/internal/transport/cohere"
	intentuc "github.com/tlsandbox/cohere-globalmart/internal/usecase/intent"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/recommend"
	"github.com/tlsandbox/cohere-globalmart/internal/usecase/retrieval"
	"github.com/tlsandbox/cohere-globalmart/internal/version"
	"github.com/tlsandbox/cohere-globalmart/internal/worker"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting globalmart API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.Bool("ai_enabled", cfg.AIEnabled()),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register model metrics explicitly (no init())
	metrics.RegisterModelMetrics()

	products, err := catalog.LoadCSV(cfg.Catalog.CSVPath)
	if err != nil {
		logger.Fatal("Failed to load catalog CSV", zap.Error(err), zap.String("path", cfg.Catalog.CSVPath))
	}
	index, err := catalog.NewIndex(products)
	if err != nil {
		logger.Fatal("Failed to build catalog index", zap.Error(err))
	}
	logger.Info("Catalog loaded", zap.Int("items", index.Len()))

	pool := worker.NewPool(cfg.Cohere.Workers, time.Duration(cfg.Cohere.RequestTimeout)*time.Second)

	// A missing API key disables every remote-model path; the services then
	// run their deterministic fallbacks end to end.
	var client *cohere.Client
	if cfg.AIEnabled() {
		client = cohere.New(&cohere.Config{
			APIKey:         cfg.Cohere.APIKey,
			BaseURL:        cfg.Cohere.BaseURL,
			ChatModel:      cfg.Cohere.ChatModel,
			VisionModel:    cfg.Cohere.VisionModel,
			RerankModel:    cfg.Cohere.RerankModel,
			EmbedModel:     cfg.Cohere.EmbedModel,
			IntentModel:    cfg.Cohere.IntentModel,
			RequestTimeout: time.Duration(cfg.Cohere.RequestTimeout) * time.Second,
			MaxRetries:     cfg.Cohere.MaxRetries,
			BreakerTrips:   cfg.Cohere.BreakerTrips,
			BreakerReset:   time.Duration(cfg.Cohere.BreakerReset) * time.Second,
			Logger:         logger,
		})
	}

	// Pass nil interfaces (not typed nil pointers!) when AI is disabled.
	// Go gotcha: (*cohere.Client)(nil) wrapped in an interface != nil.
	var embedder retrieval.Embedder
	var reranker retrieval.Reranker
	var extractor intentuc.Extractor
	var vision recommend.Vision
	var judge recommend.MatchJudge
	if client != nil {
		embedder = embcache.New(client, store, metrics.EmbedCacheTotal, logger)
		reranker = client
		extractor = client
		vision = client
		judge = client
	}

	cache := densecache.New(store, metrics.DenseCacheTotal, logger)
	sessions := sessionrepo.New(store)
	profiles := profilerepo.New(store)

	retriever := retrieval.New(index, embedder, reranker, cache, pool, retrieval.Config{
		AIEnabled:      cfg.AIEnabled(),
		CandidatePool:  cfg.Ranking.CandidatePool,
		EmbedBatchSize: cfg.Ranking.EmbedBatchSize,
	}, logger)

	intents := intentuc.New(index, extractor, pool, cfg.AIEnabled(), logger)

	embedModel := cfg.Cohere.EmbedModel
	if client != nil {
		embedModel = client.EmbedModel()
	}
	recs := recommend.New(sessions, profiles, index, retriever, intents, vision, judge, pool, recommend.Config{
		AIEnabled:    cfg.AIEnabled(),
		PreferNewest: cfg.Ranking.PreferNewest,
		EmbedModel:   embedModel,
		SearchBudget: time.Duration(cfg.Ranking.SearchTimeoutSec) * time.Second,
		ImageBudget:  time.Duration(cfg.Ranking.ImageTimeoutSec) * time.Second,
		MatchBudget:  time.Duration(cfg.Ranking.MatchTimeoutSec) * time.Second,
	}, logger)

	// Warm the dense index in the background so first searches hit a ready
	// matrix. Failure is non-fatal: retrieval degrades to lexical-only.
	if cfg.AIEnabled() {
		go func() {
			warmCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Ranking.DenseBuildTimeoutSec)*time.Second)
			defer cancel()
			if err := recs.WarmDenseIndex(warmCtx); err != nil {
				logger.Warn("Dense index warm-up failed", zap.Error(err))
			} else {
				logger.Info("Dense index ready")
			}
		}()
	}

	server := chiTransport.NewServer(recs, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
