package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ats-job-pipeline/internal/artifact"
	"ats-job-pipeline/internal/models"
)

// Scraper fetches a company's job board through the matching ATS
// adapter and persists the result as a JSON artifact.
type Scraper struct {
	client *Client
	store  artifact.Store

	// Resolve maps an ATS tag to its adapter. Overridable in tests to
	// point adapters at local servers.
	Resolve func(ats string) (Adapter, error)
}

func NewScraper(client *Client, store artifact.Store) *Scraper {
	return &Scraper{client: client, store: store, Resolve: ForATS}
}

// ScrapeCompany fetches and assembles all jobs for one company. A
// failed board fetch yields a result with the Error field set and no
// jobs; per-job description failures are logged and leave the
// description empty.
func (s *Scraper) ScrapeCompany(ctx context.Context, company models.Company) models.ScrapeResult {
	result := models.ScrapeResult{
		Company:   company.DisplayName,
		Slug:      company.Slug,
		ATS:       company.ATS,
		ScrapedAt: time.Now().UTC(),
	}

	adapter, err := s.Resolve(company.ATS)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	body, err := s.client.GetJSON(ctx, adapter.Endpoint(company.Slug))
	if err != nil {
		log.Printf("[scraper] %s/%s: %v", company.ATS, company.Slug, err)
		result.Error = "API request failed"
		return result
	}

	raw, err := adapter.JobList(body)
	if err != nil {
		log.Printf("[scraper] %s/%s: %v", company.ATS, company.Slug, err)
		result.Error = "API request failed"
		return result
	}

	jobs := make([]models.RawJob, 0, len(raw))
	for _, item := range raw {
		desc, err := adapter.JobDescription(ctx, s.client, company.Slug, item)
		if err != nil {
			log.Printf("[scraper] %s/%s job %s: %v", company.ATS, company.Slug, adapter.JobID(item), err)
		}
		jobs = append(jobs, models.RawJob{
			ID:          adapter.JobID(item),
			Title:       adapter.JobTitle(item),
			Location:    adapter.JobLocation(item),
			URL:         adapter.JobURL(company.Slug, item),
			Description: desc,
		})
	}

	result.Jobs = jobs
	result.JobsCount = len(jobs)
	for _, j := range jobs {
		if j.Description != "" {
			result.JobsWithDescription++
		}
	}
	return result
}

// ScrapeAndSave scrapes a company and, on success, writes the result
// to <ats>/<slug>.json. Failed scrapes are returned but never
// persisted, so a later run can fill the gap.
func (s *Scraper) ScrapeAndSave(ctx context.Context, company models.Company) (models.ScrapeResult, error) {
	result := s.ScrapeCompany(ctx, company)
	if result.Error != "" {
		return result, nil
	}

	key := fmt.Sprintf("%s/%s.json", company.ATS, company.Slug)
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return result, fmt.Errorf("encode scrape result: %w", err)
	}
	location, err := s.store.Write(ctx, key, data)
	if err != nil {
		return result, fmt.Errorf("save scrape result: %w", err)
	}
	result.SavedTo = location

	log.Printf("[scraper] %s/%s: %d jobs (%d with description) -> %s",
		company.ATS, company.Slug, result.JobsCount, result.JobsWithDescription, key)
	return result, nil
}
