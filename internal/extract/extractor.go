package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"
	"unicode/utf8"

	"ats-job-pipeline/internal/artifact"
	"ats-job-pipeline/internal/models"
	"ats-job-pipeline/internal/normalize"
)

const systemPrompt = "You are a job posting analyzer. Extract structured data and return only valid JSON."

const extractionPrompt = `Extract structured data from this job posting. Return ONLY valid JSON.

Job Title: %s
Company: %s
Location: %s

Description:
%s

Extract and return this JSON structure:
{
  "department": "Engineering|Sales|Marketing|Finance|HR|Design|Product|Operations|Legal|Customer Success|Other",
  "seniority": "Intern|Junior|Mid|Senior|Lead|Staff|Principal|Manager|Director|VP|C-Level",
  "tech_stack": ["list", "of", "technologies", "frameworks", "tools"],
  "skills": ["key", "skills", "required"],
  "pain_points": ["problems", "this", "role", "solves"],
  "job_summary": "One sentence describing the primary function of this role",
  "remote_policy": "Remote|Hybrid|Onsite|Unknown",
  "salary_min": null,
  "salary_max": null,
  "experience_years": null
}

IMPORTANT:
- tech_stack: Only include specific technologies (Python, Kubernetes, AWS, etc.)
- skills: Include soft skills and domain expertise
- job_summary: Focus on the PRIMARY function, not a generic description
- Extract salary if mentioned (as integers, e.g., 150000)
- Return null for missing numeric fields

JSON:`

const (
	maxDescriptionChars = 8000
	minDescriptionChars = 100
)

// Limiter gates outbound LLM calls across workers. Wait blocks until a
// slot is available or ctx is done.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Extractor turns raw job postings into structured records via an LLM.
// A nil Completer makes every job fail with a per-job error, which
// keeps the pipeline runnable without credentials.
type Extractor struct {
	completer  Completer
	limiter    Limiter
	store      artifact.Store
	maxRetries int

	// sleep is ctx-aware and replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewExtractor(completer Completer, limiter Limiter, store artifact.Store, maxRetries int) *Extractor {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Extractor{
		completer:  completer,
		limiter:    limiter,
		store:      store,
		maxRetries: maxRetries,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

// ExtractJob extracts one posting. Failures are recorded in the result,
// never returned: a batch keeps going past bad jobs.
func (e *Extractor) ExtractJob(ctx context.Context, company string, job models.RawJob) models.ExtractedJob {
	desc := job.Description
	if len(desc) > maxDescriptionChars {
		// back up to a rune boundary so the prompt stays valid UTF-8
		cut := maxDescriptionChars
		for cut > 0 && !utf8.RuneStart(desc[cut]) {
			cut--
		}
		desc = desc[:cut]
	}
	if len(desc) < minDescriptionChars {
		return models.ExtractedJob{Error: "No description", Raw: &job}
	}

	prompt := fmt.Sprintf(extractionPrompt, job.Title, company, job.Location, desc)
	response, err := e.complete(ctx, prompt)
	if err != nil {
		log.Printf("[extractor] %s %q: %v", company, job.Title, err)
		return models.ExtractedJob{Error: "Failed to parse LLM response", Raw: &job}
	}

	raw, err := ExtractJSON(response)
	if err != nil {
		return models.ExtractedJob{Error: "Failed to parse LLM response", Raw: &job}
	}
	var extracted models.ExtractedJob
	if err := json.Unmarshal(raw, &extracted); err != nil {
		return models.ExtractedJob{Error: "Failed to parse LLM response", Raw: &job}
	}

	extracted.TechStack = normalize.TechStack(extracted.TechStack)
	extracted.Skills = normalize.Skills(extracted.Skills)
	extracted.JobID = job.ID
	extracted.Title = job.Title
	extracted.Company = company
	extracted.Location = job.Location
	extracted.URL = job.URL
	extracted.Error = ""
	extracted.Raw = nil
	return extracted
}

// complete runs one completion with rate-limit retries: exponential
// backoff with jitter, stretched to the provider's retry-after hint
// when it is longer.
func (e *Extractor) complete(ctx context.Context, prompt string) (string, error) {
	if e.completer == nil {
		return "", fmt.Errorf("no LLM configured")
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		response, err := e.completer.Complete(ctx, systemPrompt, prompt)
		if err == nil {
			return response, nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return "", err
		}
		lastErr = err
		if attempt == e.maxRetries-1 {
			break
		}

		wait := time.Duration(float64(uint(1)<<uint(attempt))*float64(time.Second)) +
			time.Duration(rand.Int63n(int64(time.Second)))
		if rle.RetryAfter > wait {
			wait = rle.RetryAfter
		}
		log.Printf("[extractor] rate limited, waiting %s (attempt %d/%d)", wait, attempt+1, e.maxRetries)
		if err := e.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("rate limit exhausted after %d attempts: %w", e.maxRetries, lastErr)
}

// ExtractBatch extracts every job in one batch and writes the batch
// artifact to <ats>/<company>_batch_<id>.json.
func (e *Extractor) ExtractBatch(ctx context.Context, ats, company string, batchID int, jobs []models.RawJob) (models.ExtractionBatch, error) {
	batch := models.ExtractionBatch{
		Company: company,
		ATS:     ats,
		BatchID: batchID,
		Jobs:    make([]models.ExtractedJob, 0, len(jobs)),
	}

	for _, job := range jobs {
		result := e.ExtractJob(ctx, company, job)
		if result.Failed() {
			batch.Errors++
		} else {
			batch.Extracted++
		}
		batch.Jobs = append(batch.Jobs, result)
	}

	key := fmt.Sprintf("%s/%s_batch_%d.json", ats, company, batchID)
	data, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return batch, fmt.Errorf("encode batch: %w", err)
	}
	if _, err := e.store.Write(ctx, key, data); err != nil {
		return batch, fmt.Errorf("save batch: %w", err)
	}

	log.Printf("[extractor] %s batch %d: %d/%d extracted", company, batchID, batch.Extracted, len(jobs))
	return batch, nil
}
