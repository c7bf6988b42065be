package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ats-job-pipeline/internal/models"
)

// Adapter captures the structural differences between ATS providers:
// where the job list lives in the response, which fields carry which
// values, and how descriptions are obtained.
type Adapter interface {
	Name() string
	// Endpoint is the job-board list URL for a company slug.
	Endpoint(slug string) string
	// JobList extracts the raw job objects from a list response.
	JobList(body []byte) ([]map[string]any, error)
	JobID(job map[string]any) string
	JobTitle(job map[string]any) string
	JobLocation(job map[string]any) string
	JobURL(slug string, job map[string]any) string
	// JobDescription resolves the plain-text description; providers
	// that omit it from the list response fetch it per job via c.
	JobDescription(ctx context.Context, c *Client, slug string, job map[string]any) (string, error)
}

// ForATS resolves the built-in adapter for a provider tag.
func ForATS(ats string) (Adapter, error) {
	switch ats {
	case models.ATSGreenhouse:
		return NewGreenhouse(""), nil
	case models.ATSLever:
		return NewLever(""), nil
	case models.ATSAshby:
		return NewAshby(""), nil
	case models.ATSSmartRecruiters:
		return NewSmartRecruiters(""), nil
	}
	return nil, fmt.Errorf("unknown ats %q", ats)
}

// ---- field helpers -------------------------------------------------

func fieldString(job map[string]any, key string) string {
	switch v := job[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func fieldMap(job map[string]any, key string) map[string]any {
	if m, ok := job[key].(map[string]any); ok {
		return m
	}
	return nil
}

func listUnder(body []byte, key string) ([]map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	items, _ := payload[key].([]any)
	return toJobMaps(items), nil
}

func toJobMaps(items []any) []map[string]any {
	jobs := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			jobs = append(jobs, m)
		}
	}
	return jobs
}

// ---- greenhouse ----------------------------------------------------

// Greenhouse lists jobs under "jobs" and ships HTML descriptions inline
// (entity-escaped) when content=true is requested.
type Greenhouse struct {
	baseURL string
}

func NewGreenhouse(baseURL string) *Greenhouse {
	if baseURL == "" {
		baseURL = "https://boards-api.greenhouse.io"
	}
	return &Greenhouse{baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (g *Greenhouse) Name() string { return models.ATSGreenhouse }

func (g *Greenhouse) Endpoint(slug string) string {
	return fmt.Sprintf("%s/v1/boards/%s/jobs?content=true", g.baseURL, slug)
}

func (g *Greenhouse) JobList(body []byte) ([]map[string]any, error) {
	return listUnder(body, "jobs")
}

func (g *Greenhouse) JobID(job map[string]any) string    { return fieldString(job, "id") }
func (g *Greenhouse) JobTitle(job map[string]any) string { return fieldString(job, "title") }

func (g *Greenhouse) JobLocation(job map[string]any) string {
	return fieldString(fieldMap(job, "location"), "name")
}

func (g *Greenhouse) JobURL(slug string, job map[string]any) string {
	return fmt.Sprintf("https://boards.greenhouse.io/%s/jobs/%s", slug, g.JobID(job))
}

func (g *Greenhouse) JobDescription(_ context.Context, _ *Client, _ string, job map[string]any) (string, error) {
	return CleanDescription(fieldString(job, "content")), nil
}

// ---- lever ---------------------------------------------------------

// Lever returns the job list at the response root with plain-text
// descriptions already included.
type Lever struct {
	baseURL string
}

func NewLever(baseURL string) *Lever {
	if baseURL == "" {
		baseURL = "https://api.lever.co"
	}
	return &Lever{baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (l *Lever) Name() string { return models.ATSLever }

func (l *Lever) Endpoint(slug string) string {
	return fmt.Sprintf("%s/v0/postings/%s?mode=json", l.baseURL, slug)
}

func (l *Lever) JobList(body []byte) ([]map[string]any, error) {
	var items []any
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return toJobMaps(items), nil
}

func (l *Lever) JobID(job map[string]any) string    { return fieldString(job, "id") }
func (l *Lever) JobTitle(job map[string]any) string { return fieldString(job, "text") }

func (l *Lever) JobLocation(job map[string]any) string {
	return fieldString(fieldMap(job, "categories"), "location")
}

func (l *Lever) JobURL(_ string, job map[string]any) string {
	return fieldString(job, "hostedUrl")
}

func (l *Lever) JobDescription(_ context.Context, _ *Client, _ string, job map[string]any) (string, error) {
	return fieldString(job, "descriptionPlain"), nil
}

// ---- ashby ---------------------------------------------------------

// Ashby lists jobs under "jobs"; descriptions arrive as plain text.
type Ashby struct {
	baseURL string
}

func NewAshby(baseURL string) *Ashby {
	if baseURL == "" {
		baseURL = "https://api.ashbyhq.com"
	}
	return &Ashby{baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (a *Ashby) Name() string { return models.ATSAshby }

func (a *Ashby) Endpoint(slug string) string {
	return fmt.Sprintf("%s/posting-api/job-board/%s", a.baseURL, slug)
}

func (a *Ashby) JobList(body []byte) ([]map[string]any, error) {
	return listUnder(body, "jobs")
}

func (a *Ashby) JobID(job map[string]any) string       { return fieldString(job, "id") }
func (a *Ashby) JobTitle(job map[string]any) string    { return fieldString(job, "title") }
func (a *Ashby) JobLocation(job map[string]any) string { return fieldString(job, "location") }

func (a *Ashby) JobURL(slug string, job map[string]any) string {
	if u := fieldString(job, "jobUrl"); u != "" {
		return u
	}
	return fmt.Sprintf("https://jobs.ashbyhq.com/%s/%s", slug, a.JobID(job))
}

func (a *Ashby) JobDescription(_ context.Context, _ *Client, _ string, job map[string]any) (string, error) {
	return fieldString(job, "descriptionPlain"), nil
}

// ---- smartrecruiters -----------------------------------------------

// SmartRecruiters lists jobs under "content" but omits descriptions;
// each job needs a detail fetch whose jobAd sections are stitched into
// one document.
type SmartRecruiters struct {
	baseURL string
}

func NewSmartRecruiters(baseURL string) *SmartRecruiters {
	if baseURL == "" {
		baseURL = "https://api.smartrecruiters.com"
	}
	return &SmartRecruiters{baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *SmartRecruiters) Name() string { return models.ATSSmartRecruiters }

func (s *SmartRecruiters) Endpoint(slug string) string {
	return fmt.Sprintf("%s/v1/companies/%s/postings", s.baseURL, slug)
}

func (s *SmartRecruiters) JobList(body []byte) ([]map[string]any, error) {
	return listUnder(body, "content")
}

func (s *SmartRecruiters) JobID(job map[string]any) string    { return fieldString(job, "id") }
func (s *SmartRecruiters) JobTitle(job map[string]any) string { return fieldString(job, "name") }

func (s *SmartRecruiters) JobLocation(job map[string]any) string {
	return fieldString(fieldMap(job, "location"), "city")
}

func (s *SmartRecruiters) JobURL(slug string, job map[string]any) string {
	return fmt.Sprintf("https://jobs.smartrecruiters.com/%s/%s", slug, s.JobID(job))
}

// descriptionSections are the jobAd sections assembled, in order, into
// the description. Sections with no text are dropped.
var descriptionSections = []string{
	"jobDescription",
	"qualifications",
	"additionalInformation",
	"companyDescription",
}

func (s *SmartRecruiters) JobDescription(ctx context.Context, c *Client, slug string, job map[string]any) (string, error) {
	id := s.JobID(job)
	if id == "" {
		return "", nil
	}
	detailURL := fmt.Sprintf("%s/v1/companies/%s/postings/%s", s.baseURL, slug, id)
	body, err := c.GetJSON(ctx, detailURL)
	if err != nil {
		return "", fmt.Errorf("fetch posting detail %s/%s: %w", slug, id, err)
	}

	var detail map[string]any
	if err := json.Unmarshal(body, &detail); err != nil {
		return "", fmt.Errorf("decode posting detail: %w", err)
	}
	sections := fieldMap(fieldMap(detail, "jobAd"), "sections")

	var parts []string
	for _, key := range descriptionSections {
		section := fieldMap(sections, key)
		if section == nil {
			continue
		}
		text := CleanDescription(fieldString(section, "text"))
		if text == "" {
			continue
		}
		if title := fieldString(section, "title"); title != "" {
			parts = append(parts, "## "+title)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n"), nil
}
