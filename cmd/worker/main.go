package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"ats-job-pipeline/internal/api"
	"ats-job-pipeline/internal/artifact"
	"ats-job-pipeline/internal/config"
	"ats-job-pipeline/internal/extract"
	"ats-job-pipeline/internal/models"
	"ats-job-pipeline/internal/pool"
	"ats-job-pipeline/internal/queue"
	"ats-job-pipeline/internal/ratelimit"
	"ats-job-pipeline/internal/scrape"
	workerproc "ats-job-pipeline/internal/worker"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	q := queue.New(cfg)
	if err := q.Ping(ctx); err != nil {
		log.Fatalf("redis: %v", err)
	}

	scrapedStore, err := artifact.ForRoot(ctx, cfg, cfg.ScrapedDir, "scraped")
	if err != nil {
		log.Fatalf("init scraped store: %v", err)
	}
	extractedStore, err := artifact.ForRoot(ctx, cfg, cfg.ExtractedDir, "extracted")
	if err != nil {
		log.Fatalf("init extracted store: %v", err)
	}

	scraper := scrape.NewScraper(scrape.NewClient(cfg), scrapedStore)

	var completer extract.Completer
	if cfg.LLMAPIKey != "" {
		completer = extract.NewOpenAIClient(cfg)
	} else {
		log.Printf("[worker] LLM_API_KEY not set, extraction will record per-job errors")
	}
	var limiter extract.Limiter
	if cfg.LLMRateCapacity > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		limiter = ratelimit.NewTokenBucket(rdb, "pipeline:ratelimit:llm", cfg.LLMRateCapacity, cfg.LLMRateRefill, time.Hour)
	}
	extractor := extract.NewExtractor(completer, limiter, extractedStore, cfg.LLMMaxRetries)

	processor := workerproc.NewProcessor(q, cfg.WorkerQueue)
	processor.RegisterHandler(models.TaskScrapeCompany, workerproc.ScrapeHandler(scraper))
	processor.RegisterHandler(models.TaskExtractBatch, workerproc.ExtractHandler(extractor))

	manager := pool.NewManager(q, cfg.WorkerQueue, cfg.WorkerCount, cfg.MonitorInterval, cfg.ShutdownGrace, processor.RunBurst)

	server := api.New(cfg, q, manager)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("status server stopped: %v", err)
		}
	}()

	log.Printf("[worker] draining queue %q with %d workers (visibility=%s)",
		cfg.WorkerQueue, cfg.WorkerCount, cfg.VisibilityTimeout)
	if err := manager.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("[worker] stopped: %v", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
