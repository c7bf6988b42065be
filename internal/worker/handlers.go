package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"ats-job-pipeline/internal/extract"
	"ats-job-pipeline/internal/models"
	"ats-job-pipeline/internal/scrape"
	"ats-job-pipeline/internal/telemetry"
)

// decodeArgs maps a task's keyword args onto a typed struct via a JSON
// round trip.
func decodeArgs(task models.Task, out any) error {
	raw, err := json.Marshal(task.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode args for %s: %w", task.Name, err)
	}
	return nil
}

type scrapeArgs struct {
	ATS     string `json:"ats"`
	Slug    string `json:"slug"`
	Company string `json:"company"`
}

// ScrapeHandler scrapes one company and persists the result. A failed
// board fetch is a recorded outcome, not a task failure; only
// persistence problems surface as errors so the task retries.
func ScrapeHandler(scraper *scrape.Scraper) Handler {
	return func(ctx context.Context, task models.Task) error {
		var args scrapeArgs
		if err := decodeArgs(task, &args); err != nil {
			return err
		}

		company := models.Company{ATS: args.ATS, Slug: args.Slug, DisplayName: args.Company}
		result, err := scraper.ScrapeAndSave(ctx, company)
		if err != nil {
			return err
		}
		if result.Error != "" {
			telemetry.ScrapeFailures.Inc()
			return nil
		}
		telemetry.ScrapeSuccess.Inc()
		telemetry.JobsScraped.Add(float64(result.JobsCount))
		return nil
	}
}

type extractArgs struct {
	ATS     string          `json:"ats"`
	Company string          `json:"company"`
	BatchID int             `json:"batch_id"`
	Jobs    []models.RawJob `json:"jobs"`
}

// ExtractHandler runs LLM extraction over one batch and writes the
// batch artifact.
func ExtractHandler(extractor *extract.Extractor) Handler {
	return func(ctx context.Context, task models.Task) error {
		var args extractArgs
		if err := decodeArgs(task, &args); err != nil {
			return err
		}

		batch, err := extractor.ExtractBatch(ctx, args.ATS, args.Company, args.BatchID, args.Jobs)
		if err != nil {
			return err
		}
		telemetry.BatchesExtracted.Inc()
		telemetry.JobsExtracted.Add(float64(batch.Extracted))
		telemetry.ExtractErrors.Add(float64(batch.Errors))
		return nil
	}
}
