package models

import "time"

// RawJob is a single posting as scraped from an ATS API, description
// already reduced to plain text.
type RawJob struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// ScrapeResult is the whole-company artifact written to
// <scraped-root>/<ats>/<slug>.json. A re-scrape replaces the file in
// full; there are no partial updates.
type ScrapeResult struct {
	Company             string    `json:"company"`
	Slug                string    `json:"slug"`
	ATS                 string    `json:"ats"`
	JobsCount           int       `json:"jobs_count"`
	Jobs                []RawJob  `json:"jobs"`
	ScrapedAt           time.Time `json:"scraped_at,omitempty"`
	SavedTo             string    `json:"saved_to,omitempty"`
	JobsWithDescription int       `json:"jobs_with_description,omitempty"`
	Error               string    `json:"error,omitempty"`
}

// ExtractedJob carries the LLM-derived fields for one posting. When
// extraction fails for a job, only Error and Raw are set; a per-job
// failure never fails the batch.
type ExtractedJob struct {
	JobID    string `json:"job_id,omitempty"`
	Title    string `json:"title,omitempty"`
	Company  string `json:"company,omitempty"`
	Location string `json:"location,omitempty"`
	URL      string `json:"url,omitempty"`

	Department      string   `json:"department,omitempty"`
	Seniority       string   `json:"seniority,omitempty"`
	TechStack       []string `json:"tech_stack,omitempty"`
	Skills          []string `json:"skills,omitempty"`
	PainPoints      []string `json:"pain_points,omitempty"`
	JobSummary      string   `json:"job_summary,omitempty"`
	RemotePolicy    string   `json:"remote_policy,omitempty"`
	SalaryMin       *int     `json:"salary_min,omitempty"`
	SalaryMax       *int     `json:"salary_max,omitempty"`
	ExperienceYears *float64 `json:"experience_years,omitempty"`

	Error string  `json:"error,omitempty"`
	Raw   *RawJob `json:"raw,omitempty"`
}

// Failed reports whether this entry records an extraction failure.
func (j ExtractedJob) Failed() bool { return j.Error != "" }

// ExtractionBatch is the per-batch artifact written to
// <extracted-root>/<ats>/<company>_batch_<id>.json. Batches of the same
// company are independent and may be produced concurrently.
type ExtractionBatch struct {
	Company   string         `json:"company"`
	ATS       string         `json:"ats"`
	BatchID   int            `json:"batch_id"`
	Jobs      []ExtractedJob `json:"jobs"`
	Extracted int            `json:"extracted"`
	Errors    int            `json:"errors"`
}

// AggregatedCompany is the merged per-company artifact at
// <extracted-root>/<ats>/<company>.json, consumed by the external loader.
type AggregatedCompany struct {
	Company   string         `json:"company"`
	ATS       string         `json:"ats"`
	TotalJobs int            `json:"total_jobs"`
	Extracted int            `json:"extracted"`
	Errors    int            `json:"errors"`
	Jobs      []ExtractedJob `json:"jobs"`
}
