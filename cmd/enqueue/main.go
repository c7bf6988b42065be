// Command enqueue drives the pipeline from the operator's side: it
// fills the scrape queue from the company registry, fans scraped jobs
// out into extraction batches, merges finished batches, and prints
// scrape coverage summaries.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"ats-job-pipeline/internal/artifact"
	"ats-job-pipeline/internal/batch"
	"ats-job-pipeline/internal/config"
	"ats-job-pipeline/internal/models"
	"ats-job-pipeline/internal/queue"
	"ats-job-pipeline/internal/registry"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: enqueue <command> [flags]

commands:
  scrape      enqueue registry companies onto the scrape queue
  extract     enqueue scraped jobs as extraction batches
  aggregate   merge finished batch files into per-company artifacts
  summary     print scrape coverage by ATS
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	var err error
	switch os.Args[1] {
	case "scrape":
		err = runScrape(ctx, cfg, os.Args[2:])
	case "extract":
		err = runExtract(ctx, cfg, os.Args[2:])
	case "aggregate":
		err = runAggregate(ctx, cfg)
	case "summary":
		err = runSummary(ctx, cfg)
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("[enqueue] %v", err)
	}
}

func runScrape(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("scrape", flag.ExitOnError)
	limit := fs.Int("limit", 0, "max companies to enqueue (0 = all)")
	purge := fs.Bool("purge", true, "drop pending scrape tasks before enqueueing")
	every := fs.String("every", "", `re-enqueue on an interval, e.g. "6h" (blocks)`)
	_ = fs.Parse(args)

	source, err := registry.ForConfig(ctx, cfg)
	if err != nil {
		return err
	}
	q := queue.New(cfg)
	if err := q.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	enqueue := func(ctx context.Context) error {
		return enqueueScrapes(ctx, cfg, q, source, *limit, *purge)
	}

	if *every == "" {
		return enqueue(ctx)
	}

	c := cron.New(cron.WithLogger(cron.DefaultLogger))
	if _, err := c.AddFunc("@every "+*every, func() {
		if err := enqueue(ctx); err != nil {
			log.Printf("[enqueue] scheduled run: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("cron spec %q: %w", *every, err)
	}
	c.Start()
	defer c.Stop()
	log.Printf("[enqueue] re-enqueueing every %s, ctrl-c to stop", *every)

	// run once immediately so the first cycle doesn't wait an interval
	if err := enqueue(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func enqueueScrapes(ctx context.Context, cfg config.Config, q *queue.Client, source registry.Source, limit int, purge bool) error {
	companies, err := source.Companies(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(companies) > limit {
		companies = companies[:limit]
	}
	if len(companies) == 0 {
		return fmt.Errorf("registry is empty")
	}

	if purge {
		dropped, err := q.Purge(ctx, cfg.ScrapeQueue)
		if err != nil {
			return err
		}
		if dropped > 0 {
			log.Printf("[enqueue] purged %d pending tasks", dropped)
		}
	}

	byATS := map[string]int{}
	for _, company := range companies {
		task := models.Task{
			ID:    uuid.NewString(),
			Queue: cfg.ScrapeQueue,
			Name:  models.TaskScrapeCompany,
			Args: map[string]any{
				"ats":     company.ATS,
				"slug":    company.Slug,
				"company": company.DisplayName,
			},
			TimeoutSeconds: 120,
			Retry:          models.RetryPolicy{MaxAttempts: 1},
		}
		if err := q.Enqueue(ctx, task); err != nil {
			return err
		}
		byATS[company.ATS]++
	}

	parts := make([]string, 0, len(byATS))
	for _, ats := range models.ATSNames {
		if byATS[ats] > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", ats, byATS[ats]))
		}
	}
	log.Printf("[enqueue] %d companies on %q (%s)", len(companies), cfg.ScrapeQueue, strings.Join(parts, ", "))
	return nil
}

func runExtract(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	batchLimit := fs.Int("limit", 0, "max batches to enqueue (0 = all)")
	companyLimit := fs.Int("companies", 0, "max companies to enqueue (0 = all)")
	_ = fs.Parse(args)

	store, err := artifact.ForRoot(ctx, cfg, cfg.ScrapedDir, "scraped")
	if err != nil {
		return err
	}
	q := queue.New(cfg)
	if err := q.Ping(ctx); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	results, err := readScrapeResults(ctx, store)
	if err != nil {
		return err
	}
	if *companyLimit > 0 && len(results) > *companyLimit {
		results = results[:*companyLimit]
	}

	totalBatches, totalJobs := 0, 0
	for _, result := range results {
		if len(result.Jobs) == 0 {
			continue
		}
		for i, chunk := range batch.Chunk(result.Jobs, cfg.BatchSize) {
			if *batchLimit > 0 && totalBatches >= *batchLimit {
				log.Printf("[enqueue] reached batch limit %d", *batchLimit)
				return finishExtract(cfg, totalBatches, totalJobs)
			}
			task := models.Task{
				ID:    uuid.NewString(),
				Queue: cfg.ExtractQueue,
				Name:  models.TaskExtractBatch,
				Args: map[string]any{
					"ats":      result.ATS,
					"company":  result.Slug,
					"batch_id": i,
					"jobs":     chunk,
				},
				TimeoutSeconds: 600,
				Retry:          models.RetryPolicy{MaxAttempts: 3, BackoffSeconds: []int{10, 30, 60}},
			}
			if err := q.Enqueue(ctx, task); err != nil {
				return err
			}
			totalBatches++
			totalJobs += len(chunk)
		}
	}
	return finishExtract(cfg, totalBatches, totalJobs)
}

func finishExtract(cfg config.Config, batches, jobs int) error {
	log.Printf("[enqueue] %d batches (%d jobs, %d jobs/batch) on %q",
		batches, jobs, cfg.BatchSize, cfg.ExtractQueue)
	return nil
}

// readScrapeResults loads every persisted scrape artifact, sorted by
// key for stable ordering.
func readScrapeResults(ctx context.Context, store artifact.Store) ([]models.ScrapeResult, error) {
	keys, err := store.List(ctx, "")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var results []models.ScrapeResult
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := store.Read(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		var result models.ScrapeResult
		if err := json.Unmarshal(data, &result); err != nil {
			log.Printf("[enqueue] skipping %s: %v", key, err)
			continue
		}
		results = append(results, result)
	}
	return results, nil
}

func runAggregate(ctx context.Context, cfg config.Config) error {
	store, err := artifact.ForRoot(ctx, cfg, cfg.ExtractedDir, "extracted")
	if err != nil {
		return err
	}
	agg := &batch.Aggregator{Store: store}

	pairs, err := agg.Companies(ctx)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		log.Printf("[enqueue] no pending batches to aggregate")
		return nil
	}

	for _, pair := range pairs {
		merged, err := agg.Aggregate(ctx, pair[0], pair[1])
		if err != nil {
			return fmt.Errorf("aggregate %s/%s: %w", pair[0], pair[1], err)
		}
		log.Printf("[enqueue] %s/%s: %d jobs (%d extracted, %d errors)",
			merged.ATS, merged.Company, merged.TotalJobs, merged.Extracted, merged.Errors)
	}
	return nil
}

type atsStats struct {
	companies int
	jobs      int
	withDesc  int
}

func runSummary(ctx context.Context, cfg config.Config) error {
	store, err := artifact.ForRoot(ctx, cfg, cfg.ScrapedDir, "scraped")
	if err != nil {
		return err
	}
	results, err := readScrapeResults(ctx, store)
	if err != nil {
		return err
	}

	byATS := map[string]*atsStats{}
	var total atsStats
	for _, result := range results {
		stats := byATS[result.ATS]
		if stats == nil {
			stats = &atsStats{}
			byATS[result.ATS] = stats
		}
		stats.companies++
		total.companies++
		for _, job := range result.Jobs {
			stats.jobs++
			total.jobs++
			if job.Description != "" {
				stats.withDesc++
				total.withDesc++
			}
		}
	}

	names := make([]string, 0, len(byATS))
	for ats := range byATS {
		names = append(names, ats)
	}
	sort.Strings(names)

	fmt.Printf("%-20s %9s %10s %11s %8s\n", "ATS", "Companies", "Jobs", "With Desc", "Rate")
	fmt.Println(strings.Repeat("-", 65))
	for _, ats := range names {
		stats := byATS[ats]
		fmt.Printf("%-20s %9d %10d %11d %7.1f%%\n",
			ats, stats.companies, stats.jobs, stats.withDesc, descRate(stats.withDesc, stats.jobs))
	}
	fmt.Println(strings.Repeat("-", 65))
	fmt.Printf("%-20s %9d %10d %11d %7.1f%%\n",
		"TOTAL", total.companies, total.jobs, total.withDesc, descRate(total.withDesc, total.jobs))
	return nil
}

func descRate(withDesc, jobs int) float64 {
	if jobs == 0 {
		return 0
	}
	return 100 * float64(withDesc) / float64(jobs)
}
